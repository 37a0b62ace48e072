package statsapi

import (
	"context"
	"testing"

	"github.com/goliatone/go-adboard/components/dashboard"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClientFailureInjection(t *testing.T) {
	client := NewMockClient(MockData{Summary: dashboard.Summary{Clicks: 3}})
	ctx := context.Background()

	summary, err := client.Summary(ctx, dashboard.StatsQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Clicks)

	client.Fail(OpSummary, dashboard.ErrNetwork)
	_, err = client.Summary(ctx, dashboard.StatsQuery{})
	assert.ErrorIs(t, err, dashboard.ErrNetwork)

	client.Fail(OpSummary, nil)
	_, err = client.Summary(ctx, dashboard.StatsQuery{})
	assert.NoError(t, err)
	assert.Equal(t, 3, client.Calls(OpSummary))
}

func TestMockClientPoolFiltersByChannel(t *testing.T) {
	project := uuid.New()
	client := NewMockClient(MockData{Pool: map[uuid.UUID][]dashboard.Campaign{
		project: {
			{ID: "y-1", Channel: dashboard.ChannelYandex},
			{ID: "v-1", Channel: dashboard.ChannelVK},
		},
	}})

	all, err := client.ResolveCampaignPool(context.Background(), dashboard.PoolQuery{ProjectID: project, Channel: dashboard.ChannelAll})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	vk, err := client.ResolveCampaignPool(context.Background(), dashboard.PoolQuery{ProjectID: project, Channel: dashboard.ChannelVK})
	require.NoError(t, err)
	require.Len(t, vk, 1)
	assert.Equal(t, "v-1", vk[0].ID)
}
