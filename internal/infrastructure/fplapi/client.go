package fplapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/riskibarqy/fpl-collector/internal/domain/table"
	"github.com/riskibarqy/fpl-collector/internal/platform/logging"
	"github.com/riskibarqy/fpl-collector/internal/platform/resilience"
	"github.com/riskibarqy/fpl-collector/internal/usecase"
)

const defaultBaseURL = "https://fantasy.premierleague.com/api/"

// StatusError reports a non-2xx response from the FPL API.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fpl api status=%d message=%s", e.Code, e.Message)
}

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client fetches FPL endpoints and normalizes the payloads into table sets.
// Each call is one request; failures surface immediately, no retries.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	// Work on a copy so a client shared by the caller is never reconfigured.
	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.HTTPClient != nil {
		clone := *cfg.HTTPClient
		httpClient = &clone
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}
	if httpClient.Transport == nil {
		httpClient.Transport = otelhttp.NewTransport(http.DefaultTransport)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = strings.TrimRight(defaultBaseURL, "/")
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// GetFplData fetches bootstrap-static and returns the seven game-wide tables.
func (c *Client) GetFplData(ctx context.Context) (table.Set, error) {
	payload, err := c.doJSON(ctx, "/bootstrap-static/")
	if err != nil {
		return nil, crerr.Wrap(err, "fetch bootstrap data")
	}

	sections := map[string]string{
		table.NameChips:           "chips",
		table.NameMonths:          "phases",
		table.NameFootballPlayers: "elements",
		table.NameFootballTeams:   "teams",
		table.NameGameWeeks:       "events",
		table.NameElementTypes:    "element_types",
		table.NameElementStats:    "element_stats",
	}

	out := make(table.Set, len(sections))
	for tableName, payloadKey := range sections {
		rows, err := listSection(payload, payloadKey)
		if err != nil {
			return nil, crerr.Wrapf(err, "bootstrap section %s", payloadKey)
		}
		out[tableName] = rows
	}

	return out, nil
}

// GetManagerGameweekData fetches a manager's picks for one gameweek. The four
// sub-tables are optional: a missing, null, or malformed section is simply
// absent from the result.
func (c *Client) GetManagerGameweekData(ctx context.Context, managerID, eventID int) (table.Set, error) {
	if managerID <= 0 {
		return nil, crerr.Wrap(usecase.ErrInvalidInput, "manager id must be greater than zero")
	}
	if eventID <= 0 {
		return nil, crerr.Wrap(usecase.ErrInvalidInput, "event id must be greater than zero")
	}

	payload, err := c.doJSON(ctx, fmt.Sprintf("/entry/%d/event/%d/picks/", managerID, eventID))
	if err != nil {
		return nil, crerr.Wrapf(err, "fetch manager gameweek manager_id=%d event_id=%d", managerID, eventID)
	}

	out := make(table.Set, 4)
	c.putOptional(ctx, out, table.NameActiveChips, payload, "active_chip", false)
	c.putOptional(ctx, out, table.NameAutomaticSubs, payload, "automatic_subs", false)
	c.putOptional(ctx, out, table.NameEventHistory, payload, "entry_history", true)
	c.putOptional(ctx, out, table.NamePlayerPicks, payload, "picks", false)

	return out, nil
}

// GetLeagueStandings fetches a classic league's info and standings.
func (c *Client) GetLeagueStandings(ctx context.Context, leagueID int) (table.Set, error) {
	if leagueID <= 0 {
		return nil, crerr.Wrap(usecase.ErrInvalidInput, "league id must be greater than zero")
	}

	payload, err := c.doJSON(ctx, fmt.Sprintf("/leagues-classic/%d/standings/", leagueID))
	if err != nil {
		return nil, crerr.Wrapf(err, "fetch league standings league_id=%d", leagueID)
	}

	leagueInfo, err := objectSection(payload, "league")
	if err != nil {
		return nil, crerr.Wrap(err, "standings section league")
	}

	standingsObj, ok := payload["standings"].(map[string]any)
	if !ok {
		return nil, crerr.New("standings section is missing or malformed")
	}
	results, err := listSection(standingsObj, "results")
	if err != nil {
		return nil, crerr.Wrap(err, "standings section results")
	}

	return table.Set{
		table.NameLeagueInfo: leagueInfo,
		table.NameStandings:  results,
	}, nil
}

// GetManagerHistory fetches a manager's season history.
func (c *Client) GetManagerHistory(ctx context.Context, managerID int) (table.Set, error) {
	if managerID <= 0 {
		return nil, crerr.Wrap(usecase.ErrInvalidInput, "manager id must be greater than zero")
	}

	payload, err := c.doJSON(ctx, fmt.Sprintf("/entry/%d/history/", managerID))
	if err != nil {
		return nil, crerr.Wrapf(err, "fetch manager history manager_id=%d", managerID)
	}

	out := make(table.Set, 3)
	sections := map[string]string{
		table.NameCurrentSeason: "history",
		table.NamePastSeasons:   "history_past",
		table.NameChips:         "chips",
	}
	for tableName, payloadKey := range sections {
		rows, err := listSection(payload, payloadKey)
		if err != nil {
			return nil, crerr.Wrapf(err, "history section %s", payloadKey)
		}
		out[tableName] = rows
	}

	return out, nil
}

// GetPlayerSummary fetches per-player fixtures and history.
func (c *Client) GetPlayerSummary(ctx context.Context, playerID int) (table.Set, error) {
	if playerID <= 0 {
		return nil, crerr.Wrap(usecase.ErrInvalidInput, "player id must be greater than zero")
	}

	payload, err := c.doJSON(ctx, fmt.Sprintf("/element-summary/%d/", playerID))
	if err != nil {
		return nil, crerr.Wrapf(err, "fetch player summary player_id=%d", playerID)
	}

	out := make(table.Set, 3)
	sections := map[string]string{
		table.NamePlayerFixtures:    "fixtures",
		table.NamePlayerHistory:     "history",
		table.NamePlayerPastSeasons: "history_past",
	}
	for tableName, payloadKey := range sections {
		rows, err := listSection(payload, payloadKey)
		if err != nil {
			return nil, crerr.Wrapf(err, "player summary section %s", payloadKey)
		}
		out[tableName] = rows
	}

	return out, nil
}

func (c *Client) putOptional(ctx context.Context, out table.Set, tableName string, payload map[string]any, key string, singleRow bool) {
	rows, ok := optionalSection(payload, key, singleRow)
	if !ok {
		c.logger.DebugContext(ctx, "optional section absent", "table", tableName, "key", key)
		return
	}
	out[tableName] = rows
}

func (c *Client) doJSON(ctx context.Context, path string) (map[string]any, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "fpl circuit breaker rejected request", "state", c.breaker.State())
			return nil, crerr.Wrap(usecase.ErrDependencyUnavailable, "fpl api is temporarily unavailable")
		}
	}

	fullURL := c.baseURL + path

	out, err, _ := c.flight.Do(path, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return nil, err
	}

	raw, ok := out.([]byte)
	if !ok {
		return nil, crerr.Newf("unexpected response payload type %T", out)
	}

	var payload map[string]any
	if err := sonic.Unmarshal(raw, &payload); err != nil {
		return nil, crerr.Wrap(err, "decode fpl payload")
	}

	return payload, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, crerr.Wrap(err, "build request")
	}
	req.Header.Set("accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "fpl request failed", "url", fullURL, "error", err)
		return nil, crerr.Wrap(err, "send request")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, crerr.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Code: resp.StatusCode, Message: abbreviateBody(raw)}
		c.logger.WarnContext(ctx, "fpl request returned non-2xx status", "url", fullURL, "status", resp.StatusCode)
		return nil, statusErr
	}

	return raw, nil
}

func abbreviateBody(raw []byte) string {
	body := strings.TrimSpace(string(raw))
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	return body
}
