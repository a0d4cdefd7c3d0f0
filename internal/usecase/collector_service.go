package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/riskibarqy/fpl-collector/internal/domain/syncrun"
	"github.com/riskibarqy/fpl-collector/internal/domain/table"
	"github.com/riskibarqy/fpl-collector/internal/platform/cache"
	"github.com/riskibarqy/fpl-collector/internal/platform/id"
	"github.com/riskibarqy/fpl-collector/internal/platform/logging"
)

// Fetcher pulls fresh table sets from the FPL API. Every call is one remote
// request; there is no caching behind this interface.
type Fetcher interface {
	GetFplData(ctx context.Context) (table.Set, error)
	GetManagerGameweekData(ctx context.Context, managerID, eventID int) (table.Set, error)
	GetLeagueStandings(ctx context.Context, leagueID int) (table.Set, error)
	GetManagerHistory(ctx context.Context, managerID int) (table.Set, error)
	GetPlayerSummary(ctx context.Context, playerID int) (table.Set, error)
}

type CollectorServiceConfig struct {
	MaxWorkers   int
	CacheEnabled bool
	CacheTTL     time.Duration
}

// CollectorService glues the fetcher, the persisted store and the sync-run
// repository together and tracks the current gameweek.
type CollectorService struct {
	cfg     CollectorServiceConfig
	fetcher Fetcher
	store   table.Store
	runs    syncrun.Repository
	idGen   id.Generator
	cache   *cache.Store
	logger  *logging.Logger

	mu              sync.RWMutex
	currentGameweek int
}

func NewCollectorService(
	cfg CollectorServiceConfig,
	fetcher Fetcher,
	store table.Store,
	runs syncrun.Repository,
	idGen id.Generator,
	logger *logging.Logger,
) *CollectorService {
	if logger == nil {
		logger = logging.Default()
	}
	if idGen == nil {
		idGen = id.NewRandomGenerator()
	}

	s := &CollectorService{
		cfg:     cfg,
		fetcher: fetcher,
		store:   store,
		runs:    runs,
		idGen:   idGen,
		logger:  logger,
	}
	if cfg.CacheEnabled {
		s.cache = cache.NewStore(cfg.CacheTTL)
	}

	if _, err := s.RefreshCurrentGameweek(context.Background()); err != nil {
		logger.Warn("initial current gameweek fetch failed, starting at 0", "error", err)
	}

	return s
}

// GetFplData fetches the seven game-wide tables.
func (s *CollectorService) GetFplData(ctx context.Context) (table.Set, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CollectorService.GetFplData")
	defer span.End()

	if s.fetcher == nil {
		return nil, fmt.Errorf("%w: fetcher is not configured", ErrDependencyUnavailable)
	}
	return s.fetcher.GetFplData(ctx)
}

// GetManagerGameweekData fetches a manager's picks for one gameweek.
func (s *CollectorService) GetManagerGameweekData(ctx context.Context, managerID, eventID int) (table.Set, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CollectorService.GetManagerGameweekData")
	defer span.End()

	if s.fetcher == nil {
		return nil, fmt.Errorf("%w: fetcher is not configured", ErrDependencyUnavailable)
	}
	return s.fetcher.GetManagerGameweekData(ctx, managerID, eventID)
}

// GetLeagueStandings fetches a classic league's info and standings tables.
func (s *CollectorService) GetLeagueStandings(ctx context.Context, leagueID int) (table.Set, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CollectorService.GetLeagueStandings")
	defer span.End()

	if s.fetcher == nil {
		return nil, fmt.Errorf("%w: fetcher is not configured", ErrDependencyUnavailable)
	}
	return s.fetcher.GetLeagueStandings(ctx, leagueID)
}

// GetManagerHistory fetches a manager's season history tables.
func (s *CollectorService) GetManagerHistory(ctx context.Context, managerID int) (table.Set, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CollectorService.GetManagerHistory")
	defer span.End()

	if s.fetcher == nil {
		return nil, fmt.Errorf("%w: fetcher is not configured", ErrDependencyUnavailable)
	}
	return s.fetcher.GetManagerHistory(ctx, managerID)
}

// GetPlayerSummary fetches per-player fixtures and history tables.
func (s *CollectorService) GetPlayerSummary(ctx context.Context, playerID int) (table.Set, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CollectorService.GetPlayerSummary")
	defer span.End()

	if s.fetcher == nil {
		return nil, fmt.Errorf("%w: fetcher is not configured", ErrDependencyUnavailable)
	}
	return s.fetcher.GetPlayerSummary(ctx, playerID)
}

// CurrentGameweek returns the last derived current gameweek, 0 when unknown.
func (s *CollectorService) CurrentGameweek() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentGameweek
}

// RefreshCurrentGameweek re-derives the current gameweek from a fresh
// bootstrap fetch. On failure the stored value is left unchanged and 0 is
// returned alongside the error.
func (s *CollectorService) RefreshCurrentGameweek(ctx context.Context) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CollectorService.RefreshCurrentGameweek")
	defer span.End()

	if s.fetcher == nil {
		return 0, fmt.Errorf("%w: fetcher is not configured", ErrDependencyUnavailable)
	}

	data, err := s.fetcher.GetFplData(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch bootstrap data for gameweek: %w", err)
	}

	gameweek := deriveCurrentGameweek(data[table.NameGameWeeks])

	s.mu.Lock()
	s.currentGameweek = gameweek
	s.mu.Unlock()

	return gameweek, nil
}

// deriveCurrentGameweek returns the id of the first row flagged is_current,
// or 0 when no row is flagged.
func deriveCurrentGameweek(gameWeeks table.Table) int {
	for _, row := range gameWeeks {
		if row.Bool("is_current") {
			return row.Int("id")
		}
	}
	return 0
}
