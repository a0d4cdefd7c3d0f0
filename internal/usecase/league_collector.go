package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/panjf2000/ants/v2"
	"github.com/valyala/bytebufferpool"

	"github.com/riskibarqy/fpl-collector/internal/domain/table"
)

var collectValidator = validator.New()

type CollectLeagueInput struct {
	LeagueID int `validate:"gt=0"`
}

type managerHarvest struct {
	order int
	rows  table.Table
}

// CollectPlayerDataFromLeague gathers every manager's gameweek history rows
// for gameweeks 1..current, stamped with manager_id. Managers are fetched
// concurrently; the result keeps standings order, then gameweek order.
func (s *CollectorService) CollectPlayerDataFromLeague(ctx context.Context, input CollectLeagueInput) (table.Table, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CollectorService.CollectPlayerDataFromLeague")
	defer span.End()

	if err := collectValidator.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if s.fetcher == nil {
		return nil, fmt.Errorf("%w: fetcher is not configured", ErrDependencyUnavailable)
	}

	leagueData, err := s.GetLeagueStandings(ctx, input.LeagueID)
	if err != nil {
		return nil, fmt.Errorf("fetch league standings league_id=%d: %w", input.LeagueID, err)
	}
	standings := leagueData[table.NameStandings]
	if len(standings) == 0 {
		s.logger.InfoContext(ctx, "no league standings found", "league_id", input.LeagueID)
		return nil, fmt.Errorf("%w: league %d has no standings", ErrNotFound, input.LeagueID)
	}

	managers := make([]int, 0, len(standings))
	for _, row := range standings {
		if managerID := row.Int("entry"); managerID > 0 {
			managers = append(managers, managerID)
		}
	}

	currentGameweek := s.CurrentGameweek()
	if currentGameweek <= 0 {
		if currentGameweek, err = s.RefreshCurrentGameweek(ctx); err != nil {
			return nil, fmt.Errorf("derive current gameweek: %w", err)
		}
	}
	if currentGameweek <= 0 || len(managers) == 0 {
		return table.Table{}, nil
	}

	workerCount := normalizeCollectWorkerCount(s.cfg.MaxWorkers, len(managers))
	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	results := make(chan managerHarvest, len(managers))
	var workers sync.WaitGroup
	for i, managerID := range managers {
		i, managerID := i, managerID
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			results <- managerHarvest{
				order: i,
				rows:  s.harvestManager(ctx, managerID, currentGameweek),
			}
		}); err != nil {
			workers.Done()
			return nil, fmt.Errorf("submit manager harvest to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(results)

	harvests := make([]managerHarvest, 0, len(managers))
	for item := range results {
		harvests = append(harvests, item)
	}
	sort.SliceStable(harvests, func(i, j int) bool { return harvests[i].order < harvests[j].order })

	out := make(table.Table, 0, len(harvests)*currentGameweek)
	for _, item := range harvests {
		out = append(out, item.rows...)
	}
	return out, nil
}

// harvestManager collects one manager's event_history rows across gameweeks.
// Failed or history-less gameweeks are skipped.
func (s *CollectorService) harvestManager(ctx context.Context, managerID, currentGameweek int) table.Table {
	out := make(table.Table, 0, currentGameweek)
	for week := 1; week <= currentGameweek; week++ {
		data, err := s.managerGameweekData(ctx, managerID, week)
		if err != nil {
			s.logger.DebugContext(ctx, "manager gameweek fetch failed, skipping",
				"manager_id", managerID, "event_id", week, "error", err)
			continue
		}

		for _, row := range data[table.NameEventHistory] {
			stamped := make(table.Row, len(row)+1)
			for key, value := range row {
				stamped[key] = value
			}
			stamped["manager_id"] = managerID
			out = append(out, stamped)
		}
	}
	return out
}

func (s *CollectorService) managerGameweekData(ctx context.Context, managerID, eventID int) (table.Set, error) {
	if s.cache == nil {
		return s.fetcher.GetManagerGameweekData(ctx, managerID, eventID)
	}

	key := fmt.Sprintf("manager_gameweek:%d:%d", managerID, eventID)
	value, err := s.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		return s.fetcher.GetManagerGameweekData(ctx, managerID, eventID)
	})
	if err != nil {
		return nil, err
	}
	data, ok := value.(table.Set)
	if !ok {
		return nil, fmt.Errorf("unexpected cached payload type %T", value)
	}
	return data, nil
}

// ExportLeaguePlayerData renders the league harvest as a JSON array of rows.
func (s *CollectorService) ExportLeaguePlayerData(ctx context.Context, input CollectLeagueInput) ([]byte, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CollectorService.ExportLeaguePlayerData")
	defer span.End()

	rows, err := s.CollectPlayerDataFromLeague(ctx, input)
	if err != nil {
		return nil, err
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_ = buf.WriteByte('[')
	for i, row := range rows {
		if i > 0 {
			_ = buf.WriteByte(',')
		}
		encoded, err := sonic.Marshal(row)
		if err != nil {
			return nil, fmt.Errorf("encode harvest row %d: %w", i, err)
		}
		_, _ = buf.Write(encoded)
	}
	_ = buf.WriteByte(']')

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func normalizeCollectWorkerCount(value, taskCount int) int {
	if taskCount <= 0 {
		return 1
	}
	if value <= 0 {
		value = 1
	}
	if value > 2 {
		value = 2
	}
	if value > taskCount {
		value = taskCount
	}
	return value
}
