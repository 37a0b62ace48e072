package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func june20() fixedClock {
	return fixedClock{now: time.Date(2024, 6, 20, 15, 30, 0, 0, time.UTC)}
}

func TestFilterStoreDefaults(t *testing.T) {
	store := NewFilterStore(FilterStoreOptions{Clock: june20()})
	filters := store.Filters()

	assert.Equal(t, ChannelAll, filters.Channel)
	assert.Equal(t, Period14, filters.Period)
	assert.Equal(t, uuid.Nil, filters.ProjectID)
	assert.Empty(t, filters.CampaignIDs)

	values := filters.StatsQuery().Values()
	assert.Equal(t, "2024-06-07", values.Get("start_date"))
	assert.Equal(t, "2024-06-20", values.Get("end_date"))
	assert.Equal(t, "all", values.Get("platform"))
	assert.False(t, values.Has("client_id"))
	assert.False(t, values.Has("campaign_ids"))
}

func TestPresetPeriodSpansInclusiveWindow(t *testing.T) {
	store := NewFilterStore(FilterStoreOptions{Clock: june20()})
	ctx := context.Background()
	for _, period := range []Period{Period7, Period14, Period30, Period90} {
		_, err := store.SetPeriod(ctx, period)
		require.NoError(t, err)
		days, _ := period.Days()
		rng := store.Filters().DateRange
		if got := int(rng.End.Sub(rng.Start).Hours() / 24); got != days-1 {
			t.Fatalf("period %s: expected end-start=%d days, got %d", period, days-1, got)
		}
		if rng.Days() != days {
			t.Fatalf("period %s: expected %d calendar days, got %d", period, days, rng.Days())
		}
		if !rng.End.Equal(time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("period %s: expected window to end today, got %s", period, rng.End)
		}
	}
}

func TestTodayUsesStoreLocation(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	clock := fixedClock{now: time.Date(2024, 6, 19, 22, 0, 0, 0, time.UTC)}
	store := NewFilterStore(FilterStoreOptions{Clock: clock, Location: loc})

	values := store.Filters().StatsQuery().Values()
	assert.Equal(t, "2024-06-20", values.Get("end_date"))
	assert.Equal(t, "2024-06-07", values.Get("start_date"))
}

func TestCustomPeriodKeepsDateRange(t *testing.T) {
	store := NewFilterStore(FilterStoreOptions{Clock: june20()})
	before := store.Filters().DateRange

	change, err := store.SetPeriod(context.Background(), PeriodCustom)
	require.NoError(t, err)
	assert.True(t, change.Has(FieldPeriod))
	assert.False(t, change.Has(FieldDateRange))
	assert.True(t, before.Equal(store.Filters().DateRange))
}

func TestSetDateRangeSwitchesToCustom(t *testing.T) {
	store := NewFilterStore(FilterStoreOptions{Clock: june20()})
	start, err := store.ParseDate("2024-05-01")
	require.NoError(t, err)
	end, err := store.ParseDate("2024-05-31")
	require.NoError(t, err)

	change, err := store.SetDateRange(context.Background(), start, end)
	require.NoError(t, err)
	assert.True(t, change.Has(FieldDateRange|FieldPeriod))

	filters := store.Filters()
	assert.Equal(t, PeriodCustom, filters.Period)
	assert.Equal(t, 31, filters.DateRange.Days())
}

func TestSetDateRangeRejectsReversedDates(t *testing.T) {
	store := NewFilterStore(FilterStoreOptions{Clock: june20()})
	before := store.Filters()
	notified := 0
	store.Subscribe(func(context.Context, FilterChange) { notified++ })

	_, err := store.SetDateRange(context.Background(),
		time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	assert.Equal(t, before, store.Filters())
	assert.Zero(t, notified)
}

func TestUpdateRejectsUnknownPeriodAndEmptyChannel(t *testing.T) {
	store := NewFilterStore(FilterStoreOptions{Clock: june20()})
	for _, period := range []Period{"21", "0", "-7", "week"} {
		_, err := store.Update(context.Background(), FilterUpdate{Period: &period})
		assert.ErrorIs(t, err, ErrValidation, "period %q", period)
	}
	assert.Equal(t, Period14, store.Filters().Period)

	_, err := store.SetChannel(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNoOpWriteDoesNotNotify(t *testing.T) {
	store := NewFilterStore(FilterStoreOptions{Clock: june20()})
	var changes []FilterChange
	store.Subscribe(func(_ context.Context, change FilterChange) { changes = append(changes, change) })

	change, err := store.SetChannel(context.Background(), ChannelAll)
	require.NoError(t, err)
	assert.True(t, change.Empty())
	assert.Empty(t, changes)

	_, err = store.SetChannel(context.Background(), ChannelYandex)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, FieldChannel, changes[0].Fields)
	assert.Equal(t, ChannelAll, changes[0].Previous.Channel)
	assert.Equal(t, ChannelYandex, changes[0].Current.Channel)
}

func TestFirstAssignmentFlags(t *testing.T) {
	store := NewFilterStore(FilterStoreOptions{Clock: june20()})
	ctx := context.Background()

	change, err := store.SetProject(ctx, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, FieldProject, change.FirstAssignment)

	change, err = store.SetProject(ctx, uuid.New())
	require.NoError(t, err)
	assert.Zero(t, change.FirstAssignment)

	change, err = store.SetChannel(ctx, ChannelYandex)
	require.NoError(t, err)
	assert.Zero(t, change.FirstAssignment)
}

func TestChannelChangeIsNeverFirstAssignment(t *testing.T) {
	for _, initial := range []Channel{"", ChannelYandex} {
		store := NewFilterStore(FilterStoreOptions{Clock: june20(), Channel: initial})
		change, err := store.SetChannel(context.Background(), ChannelVK)
		require.NoError(t, err)
		assert.Equal(t, FieldChannel, change.Fields)
		assert.Zero(t, change.FirstAssignment, "initial channel %q", initial)
	}
}

func TestCampaignSelectionNormalization(t *testing.T) {
	store := NewFilterStore(FilterStoreOptions{Clock: june20()})
	ctx := context.Background()

	_, err := store.SetCampaigns(ctx, []string{" c-1", "c-2", "c-1", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"c-1", "c-2"}, store.Filters().CampaignIDs)

	_, err = store.ToggleCampaign(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c-2"}, store.Filters().CampaignIDs)

	_, err = store.ToggleCampaign(ctx, "c-2")
	require.NoError(t, err)
	assert.Nil(t, store.Filters().CampaignIDs)
}

func TestSubscribeCancel(t *testing.T) {
	store := NewFilterStore(FilterStoreOptions{Clock: june20()})
	var order []string
	cancelA := store.Subscribe(func(context.Context, FilterChange) { order = append(order, "a") })
	store.Subscribe(func(context.Context, FilterChange) { order = append(order, "b") })

	_, _ = store.SetChannel(context.Background(), ChannelVK)
	cancelA()
	_, _ = store.SetChannel(context.Background(), ChannelYandex)

	assert.Equal(t, []string{"a", "b", "b"}, order)
}

func TestNormalizeChannel(t *testing.T) {
	assert.Equal(t, ChannelYandex, NormalizeChannel(" Yandex "))
	assert.Equal(t, ChannelVK, NormalizeChannel("VK"))
	assert.Equal(t, Channel(""), NormalizeChannel("  "))
}
