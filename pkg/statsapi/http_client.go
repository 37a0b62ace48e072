package statsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-adboard/components/dashboard"
	"github.com/goliatone/go-adboard/components/wizard"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBaseURL matches the backend development server.
const DefaultBaseURL = "http://localhost:8000/api/"

// HTTPConfig configures the REST client.
type HTTPConfig struct {
	BaseURL    string
	Session    Session
	HTTPClient *http.Client
	Timeout    time.Duration
	// RateLimit caps outgoing requests per second; zero disables limiting.
	RateLimit float64
	Burst     int
	Logger    *zap.Logger
}

// HTTPClient talks to the dashboard backend. It implements the dashboard
// stats, project and pool sources as well as the wizard integration API.
type HTTPClient struct {
	base    *url.URL
	session Session
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

var (
	_ dashboard.StatsSource        = (*HTTPClient)(nil)
	_ dashboard.ProjectSource      = (*HTTPClient)(nil)
	_ dashboard.CampaignPoolSource = (*HTTPClient)(nil)
	_ wizard.IntegrationAPI        = (*HTTPClient)(nil)
	_ wizard.CampaignStatsSource   = (*HTTPClient)(nil)
)

// NewHTTPClient builds a client for the configured backend.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errMissingBaseURL
	}
	raw := cfg.BaseURL
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("statsapi: parse base url: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		base:    base,
		session: cfg.Session,
		client:  httpClient,
		limiter: limiter,
		logger:  logger.Named("statsapi"),
	}, nil
}

// Summary reads dashboard/summary.
func (c *HTTPClient) Summary(ctx context.Context, query dashboard.StatsQuery) (dashboard.Summary, error) {
	var out dashboard.Summary
	err := c.do(ctx, http.MethodGet, "dashboard/summary", query.Values(), nil, &out)
	return out, err
}

// Dynamics reads dashboard/dynamics.
func (c *HTTPClient) Dynamics(ctx context.Context, query dashboard.StatsQuery) (dashboard.Dynamics, error) {
	var out dashboard.Dynamics
	err := c.do(ctx, http.MethodGet, "dashboard/dynamics", query.Values(), nil, &out)
	return out, err
}

// TopEntities reads dashboard/top-clients. The ranking is not filtered.
func (c *HTTPClient) TopEntities(ctx context.Context) ([]dashboard.TopEntity, error) {
	var out []dashboard.TopEntity
	err := c.do(ctx, http.MethodGet, "dashboard/top-clients", nil, nil, &out)
	return out, err
}

// CampaignBreakdown reads dashboard/campaigns.
func (c *HTTPClient) CampaignBreakdown(ctx context.Context, query dashboard.StatsQuery) ([]dashboard.CampaignRow, error) {
	var out []dashboard.CampaignRow
	err := c.do(ctx, http.MethodGet, "dashboard/campaigns", query.Values(), nil, &out)
	return out, err
}

// ListProjects reads clients/.
func (c *HTTPClient) ListProjects(ctx context.Context) ([]dashboard.Project, error) {
	var resp []projectDTO
	if err := c.do(ctx, http.MethodGet, "clients/", nil, nil, &resp); err != nil {
		return nil, err
	}
	return toProjects(resp)
}

// ResolveCampaignPool reads campaigns/ scoped by project, channel and window.
func (c *HTTPClient) ResolveCampaignPool(ctx context.Context, query dashboard.PoolQuery) ([]dashboard.Campaign, error) {
	var resp []poolCampaignDTO
	if err := c.do(ctx, http.MethodGet, "campaigns/", query.Values(), nil, &resp); err != nil {
		return nil, err
	}
	out := make([]dashboard.Campaign, len(resp))
	for i, item := range resp {
		out[i] = item.toCampaign()
	}
	return out, nil
}

// GetIntegration reads integrations/{id}.
func (c *HTTPClient) GetIntegration(ctx context.Context, integrationID string) (wizard.Integration, error) {
	var resp integrationDTO
	if err := c.doIntegration(ctx, http.MethodGet, integrationID, "", nil, nil, &resp); err != nil {
		return wizard.Integration{}, err
	}
	return resp.toIntegration()
}

// ListProfiles reads integrations/{id}/profiles.
func (c *HTTPClient) ListProfiles(ctx context.Context, integrationID string) ([]wizard.Profile, error) {
	var out []wizard.Profile
	err := c.doIntegration(ctx, http.MethodGet, integrationID, "profiles", nil, nil, &out)
	return out, err
}

// AssignProfile patches the integration account binding.
func (c *HTTPClient) AssignProfile(ctx context.Context, integrationID string, assignment wizard.ProfileAssignment) error {
	return c.doIntegration(ctx, http.MethodPatch, integrationID, "", nil, assignment, nil)
}

// DiscoverCampaigns triggers platform-side discovery.
func (c *HTTPClient) DiscoverCampaigns(ctx context.Context, integrationID string) ([]wizard.Campaign, error) {
	var out []wizard.Campaign
	err := c.doIntegration(ctx, http.MethodPost, integrationID, "discover-campaigns", nil, nil, &out)
	return out, err
}

// CampaignStats reads per-campaign statistics for the discovery list.
func (c *HTTPClient) CampaignStats(ctx context.Context, integrationID string, rng dashboard.DateRange) (map[string]wizard.CampaignStats, error) {
	values := url.Values{}
	values.Set("date_from", rng.Start.Format(time.DateOnly))
	values.Set("date_to", rng.End.Format(time.DateOnly))
	var resp []campaignStatsDTO
	if err := c.doIntegration(ctx, http.MethodGet, integrationID, "campaign-stats", values, nil, &resp); err != nil {
		return nil, err
	}
	out := make(map[string]wizard.CampaignStats, len(resp))
	for _, row := range resp {
		out[row.CampaignID] = row.toStats()
	}
	return out, nil
}

// ListCounters reads integrations/{id}/counters.
func (c *HTTPClient) ListCounters(ctx context.Context, integrationID string, query wizard.CounterQuery) ([]wizard.Counter, error) {
	var resp countersDTO
	if err := c.doIntegration(ctx, http.MethodGet, integrationID, "counters", counterValues(query), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Counters, nil
}

// ListGoals reads integrations/{id}/goals. The backend answers either with a
// bare array or with {goals, warning_message}.
func (c *HTTPClient) ListGoals(ctx context.Context, integrationID string, query wizard.GoalQuery) (wizard.GoalsResult, error) {
	var raw json.RawMessage
	if err := c.doIntegration(ctx, http.MethodGet, integrationID, "goals", goalValues(query), nil, &raw); err != nil {
		return wizard.GoalsResult{}, err
	}
	return decodeGoals(raw)
}

// CommitIntegration patches the final wizard selection.
func (c *HTTPClient) CommitIntegration(ctx context.Context, integrationID string, selection wizard.Selection) error {
	return c.doIntegration(ctx, http.MethodPatch, integrationID, "", nil, selection, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, payload any, target any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("statsapi: rate limit %s: %w: %w", path, dashboard.ErrNetwork, err)
		}
	}
	ref, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("statsapi: parse path %s: %w", path, err)
	}
	endpoint := c.base.ResolveReference(ref)
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("statsapi: encode payload: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("statsapi: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != nil {
		if token := c.session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("statsapi: %s %s: %w: %w", method, path, dashboard.ErrNetwork, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		if c.session != nil {
			c.session.Invalidate()
		}
		return fmt.Errorf("statsapi: %s %s: %w", method, path, dashboard.ErrAuthExpired)
	}
	if resp.StatusCode >= 300 {
		return &RemoteError{Status: resp.StatusCode, Detail: readDetail(resp.Body)}
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("statsapi: decode %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) doIntegration(ctx context.Context, method, integrationID, suffix string, query url.Values, payload any, target any) error {
	path, err := integrationPath(integrationID, suffix)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, query, payload, target)
}

// integrationPath escapes the id as a single path segment.
func integrationPath(id, suffix string) (string, error) {
	switch strings.TrimSpace(id) {
	case "", ".", "..":
		return "", fmt.Errorf("statsapi: integration id %q: %w", id, dashboard.ErrValidation)
	}
	path := "integrations/" + url.PathEscape(id)
	if suffix != "" {
		path += "/" + suffix
	}
	return path, nil
}

func readDetail(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	var envelope struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Detail != nil {
		if s, ok := envelope.Detail.(string); ok {
			return s
		}
		encoded, _ := json.Marshal(envelope.Detail)
		return string(encoded)
	}
	return strings.TrimSpace(string(data))
}
