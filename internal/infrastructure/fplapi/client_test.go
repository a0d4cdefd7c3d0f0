package fplapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/riskibarqy/fpl-collector/internal/domain/table"
	"github.com/riskibarqy/fpl-collector/internal/platform/logging"
	"github.com/riskibarqy/fpl-collector/internal/platform/resilience"
	"github.com/riskibarqy/fpl-collector/internal/usecase"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(ClientConfig{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
		Logger:  logging.NewNop(),
	})
}

func TestNewClientCopiesSharedHTTPClient(t *testing.T) {
	t.Parallel()

	shared := &http.Client{}
	NewClient(ClientConfig{
		HTTPClient: shared,
		Timeout:    5 * time.Second,
		Logger:     logging.NewNop(),
	})

	if shared.Timeout != 0 {
		t.Fatalf("expected shared client timeout untouched, got %s", shared.Timeout)
	}
	if shared.Transport != nil {
		t.Fatalf("expected shared client transport untouched, got %T", shared.Transport)
	}
}

func TestGetFplData(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bootstrap-static/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"chips": [{"name": "wildcard", "number": 1}],
			"phases": [{"id": 1, "name": "August"}],
			"elements": [{"id": 1, "web_name": "Haaland", "total_points": 12}],
			"teams": [{"id": 1, "name": "Arsenal"}, {"id": 2, "name": "Chelsea"}],
			"events": [{"id": 1, "is_current": true, "finished": false}],
			"element_types": [{"id": 1, "singular_name": "Goalkeeper"}],
			"element_stats": [{"name": "minutes", "label": "Minutes played"}]
		}`))
	}))

	data, err := client.GetFplData(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(data) != 7 {
		t.Fatalf("expected 7 tables, got %d: %v", len(data), data.Names())
	}
	if len(data[table.NameFootballTeams]) != 2 {
		t.Fatalf("expected 2 teams, got %d", len(data[table.NameFootballTeams]))
	}
	if got := data[table.NameFootballPlayers][0].Int("total_points"); got != 12 {
		t.Fatalf("expected total_points 12, got %d", got)
	}
}

func TestGetFplDataMissingSection(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chips": []}`))
	}))

	if _, err := client.GetFplData(context.Background()); err == nil {
		t.Fatal("expected error when a bootstrap section is missing")
	}
}

func TestStatusErrorSurfacesCode(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "The game is being updated.", http.StatusServiceUnavailable)
	}))

	_, err := client.GetFplData(context.Background())
	if err == nil {
		t.Fatal("expected error on non-2xx status")
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %T: %v", err, err)
	}
	if statusErr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", statusErr.Code)
	}
}

func TestGetManagerGameweekDataNullActiveChip(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/entry/42/event/3/picks/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"active_chip": null,
			"automatic_subs": [],
			"entry_history": {"event": 3, "points": 61},
			"picks": [{"element": 1, "position": 1}, {"element": 2, "position": 2}]
		}`))
	}))

	data, err := client.GetManagerGameweekData(context.Background(), 42, 3)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if _, ok := data[table.NameActiveChips]; ok {
		t.Fatal("expected active_chips to be absent for a null chip")
	}
	if rows, ok := data[table.NameEventHistory]; !ok || len(rows) != 1 {
		t.Fatalf("expected single entry_history row, got %v", rows)
	}
	if rows := data[table.NamePlayerPicks]; len(rows) != 2 {
		t.Fatalf("expected 2 picks, got %d", len(rows))
	}
}

func TestGetManagerGameweekDataScalarChip(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"active_chip": "wildcard",
			"entry_history": {"event": 1, "points": 50},
			"picks": [{"element": 1}]
		}`))
	}))

	data, err := client.GetManagerGameweekData(context.Background(), 42, 1)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	chips, ok := data[table.NameActiveChips]
	if !ok || len(chips) != 1 {
		t.Fatalf("expected one active chip row, got %v", chips)
	}
	if chips[0]["value"] != "wildcard" {
		t.Fatalf("expected chip value wildcard, got %v", chips[0]["value"])
	}
	if _, ok := data[table.NameAutomaticSubs]; ok {
		t.Fatal("expected automatic_subs to be absent when the key is missing")
	}
}

func TestGetManagerGameweekDataInvalidInput(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for invalid input")
	}))

	if _, err := client.GetManagerGameweekData(context.Background(), 0, 1); !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := client.GetManagerGameweekData(context.Background(), 42, -1); !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGetLeagueStandings(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/leagues-classic/99/standings/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"league": {"id": 99, "name": "Mini League"},
			"standings": {"results": [{"entry": 101, "rank": 1}, {"entry": 202, "rank": 2}]}
		}`))
	}))

	data, err := client.GetLeagueStandings(context.Background(), 99)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if rows := data[table.NameLeagueInfo]; len(rows) != 1 || rows[0]["name"] != "Mini League" {
		t.Fatalf("unexpected league info %v", rows)
	}
	if rows := data[table.NameStandings]; len(rows) != 2 || rows[0].Int("entry") != 101 {
		t.Fatalf("unexpected standings %v", rows)
	}
}

func TestGetManagerHistory(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/entry/42/history/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"history": [{"event": 1, "points": 50}],
			"history_past": [{"season_name": "2024/25", "total_points": 2100}],
			"chips": [{"name": "wildcard", "event": 4}]
		}`))
	}))

	data, err := client.GetManagerHistory(context.Background(), 42)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(data[table.NameCurrentSeason]) != 1 {
		t.Fatalf("unexpected current season rows %v", data[table.NameCurrentSeason])
	}
	if len(data[table.NamePastSeasons]) != 1 {
		t.Fatalf("unexpected past season rows %v", data[table.NamePastSeasons])
	}
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	t.Parallel()

	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(ClientConfig{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
		Logger:  logging.NewNop(),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 2,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})

	for i := 0; i < 2; i++ {
		if _, err := client.GetFplData(context.Background()); err == nil {
			t.Fatal("expected failure")
		}
	}
	if requests != 2 {
		t.Fatalf("expected 2 upstream requests before the breaker opens, got %d", requests)
	}

	if _, err := client.GetFplData(context.Background()); !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable from an open breaker, got %v", err)
	}
	if requests != 2 {
		t.Fatalf("expected no upstream request while the breaker is open, got %d", requests)
	}
}
