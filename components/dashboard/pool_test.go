package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePoolWithoutProjectSkipsSource(t *testing.T) {
	source := &stubPoolSource{}
	resolver, err := NewCampaignPoolResolver(source, nil)
	require.NoError(t, err)

	campaigns, err := resolver.ResolvePool(context.Background(), uuid.Nil, ChannelYandex, TrailingRange(time.Now(), 14))
	require.NoError(t, err)
	assert.NotNil(t, campaigns)
	assert.Empty(t, campaigns)
	assert.Zero(t, source.calls.Load())
}

func TestResolvePoolScopesQueryAndDeduplicates(t *testing.T) {
	project := uuid.New()
	rng := TrailingRange(time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC), 7)
	var got PoolQuery
	source := &stubPoolSource{
		resolve: func(_ context.Context, q PoolQuery) ([]Campaign, error) {
			got = q
			return []Campaign{{ID: "c-1"}, {ID: "c-1"}, {ID: ""}, {ID: "c-2"}}, nil
		},
	}
	resolver, err := NewCampaignPoolResolver(source, nil)
	require.NoError(t, err)

	campaigns, err := resolver.ResolvePool(context.Background(), project, "", rng)
	require.NoError(t, err)
	assert.Len(t, campaigns, 2)
	assert.Equal(t, project, got.ProjectID)
	assert.Equal(t, ChannelAll, got.Channel)

	values := got.Values()
	assert.Equal(t, "2024-06-14", values.Get("start_date"))
	assert.Equal(t, "2024-06-20", values.Get("end_date"))
	assert.False(t, values.Has("campaign_ids"))
}

func TestResolvePoolRejectsReversedRange(t *testing.T) {
	resolver, err := NewCampaignPoolResolver(&stubPoolSource{}, nil)
	require.NoError(t, err)
	rng := DateRange{
		Start: time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	_, err = resolver.ResolvePool(context.Background(), uuid.New(), ChannelAll, rng)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNewCampaignPoolResolverRequiresSource(t *testing.T) {
	_, err := NewCampaignPoolResolver(nil, nil)
	assert.ErrorIs(t, err, errMissingPoolSource)
}
