package dashboard

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CampaignPoolResolver resolves the campaigns selectable for a project,
// channel and date window. The pool is never narrowed by the current
// campaign selection since it feeds the selection UI.
type CampaignPoolResolver struct {
	source CampaignPoolSource
	logger *zap.Logger
}

// NewCampaignPoolResolver builds a resolver over source.
func NewCampaignPoolResolver(source CampaignPoolSource, logger *zap.Logger) (*CampaignPoolResolver, error) {
	if source == nil {
		return nil, errMissingPoolSource
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CampaignPoolResolver{source: source, logger: logger.Named("pool")}, nil
}

// ResolvePool returns the pool. Without a project it returns an empty list
// and does not touch the source.
func (r *CampaignPoolResolver) ResolvePool(ctx context.Context, projectID uuid.UUID, channel Channel, rng DateRange) ([]Campaign, error) {
	if projectID == uuid.Nil {
		return []Campaign{}, nil
	}
	if rng.Start.IsZero() || rng.End.IsZero() {
		return nil, errMissingDate
	}
	if rng.Start.After(rng.End) {
		return nil, errInvalidDateRange
	}
	if channel == "" {
		channel = ChannelAll
	}
	campaigns, err := r.source.ResolveCampaignPool(ctx, PoolQuery{
		ProjectID: projectID,
		Channel:   channel,
		DateRange: rng,
	})
	if err != nil {
		return nil, err
	}
	out := make([]Campaign, 0, len(campaigns))
	seen := make(map[string]struct{}, len(campaigns))
	for _, campaign := range campaigns {
		if campaign.ID == "" {
			continue
		}
		if _, dup := seen[campaign.ID]; dup {
			continue
		}
		seen[campaign.ID] = struct{}{}
		out = append(out, campaign)
	}
	if dropped := len(campaigns) - len(out); dropped > 0 {
		r.logger.Debug("dropped duplicate pool entries", zap.Int("dropped", dropped))
	}
	return out, nil
}
