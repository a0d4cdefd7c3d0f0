package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/riskibarqy/fpl-collector/internal/domain/syncrun"
	"github.com/riskibarqy/fpl-collector/internal/domain/table"
)

type stubFetcher struct {
	mu sync.Mutex

	fplData    table.Set
	fplErr     error
	fplCalls   int
	managers   map[string]table.Set
	managerErr error
	standings  table.Set
	standErr   error
	history    table.Set
	historyErr error
	summary    table.Set
	summaryErr error
}

func (f *stubFetcher) GetFplData(context.Context) (table.Set, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fplCalls++
	if f.fplErr != nil {
		return nil, f.fplErr
	}
	return f.fplData, nil
}

func (f *stubFetcher) GetManagerGameweekData(_ context.Context, managerID, eventID int) (table.Set, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.managerErr != nil {
		return nil, f.managerErr
	}
	data, ok := f.managers[fmt.Sprintf("%d:%d", managerID, eventID)]
	if !ok {
		return table.Set{}, nil
	}
	return data, nil
}

func (f *stubFetcher) GetLeagueStandings(context.Context, int) (table.Set, error) {
	if f.standErr != nil {
		return nil, f.standErr
	}
	return f.standings, nil
}

func (f *stubFetcher) GetManagerHistory(context.Context, int) (table.Set, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history, nil
}

func (f *stubFetcher) GetPlayerSummary(context.Context, int) (table.Set, error) {
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	return f.summary, nil
}

type stubStore struct {
	mu sync.Mutex

	tables     map[string]table.Table
	existsErr  error
	readErr    error
	replaceErr error
	replaced   []string
}

func newStubStore() *stubStore {
	return &stubStore{tables: map[string]table.Table{}}
}

func (s *stubStore) TableExists(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, ok := s.tables[name]
	return ok, nil
}

func (s *stubStore) ReadTable(_ context.Context, name string) (table.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.tables[name], nil
}

func (s *stubStore) ReplaceTable(_ context.Context, name string, rows table.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.tables[name] = rows
	s.replaced = append(s.replaced, name)
	return nil
}

func (s *stubStore) replacedTables() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.replaced...)
}

type stubRunRepo struct {
	mu   sync.Mutex
	runs []syncrun.Run
	err  error
}

func (r *stubRunRepo) Record(_ context.Context, run syncrun.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.runs = append(r.runs, run)
	return nil
}

func (r *stubRunRepo) ListRecent(_ context.Context, limit int) ([]syncrun.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if limit > len(r.runs) {
		limit = len(r.runs)
	}
	out := make([]syncrun.Run, 0, limit)
	for i := len(r.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.runs[i])
	}
	return out, nil
}

func newTestService(fetcher Fetcher, store table.Store, runs syncrun.Repository) *CollectorService {
	return NewCollectorService(
		CollectorServiceConfig{MaxWorkers: 2},
		fetcher,
		store,
		runs,
		nil,
		nil,
	)
}

func bootstrapFixture() table.Set {
	return table.Set{
		table.NameChips:  {{"name": "wildcard", "number": float64(1)}},
		table.NameMonths: {{"id": float64(1), "name": "August"}},
		table.NameFootballPlayers: {
			{"id": float64(1), "web_name": "Haaland", "total_points": float64(12)},
			{"id": float64(2), "web_name": "Saka", "total_points": float64(9)},
		},
		table.NameFootballTeams: {
			{"id": float64(1), "name": "Arsenal", "strength": float64(5)},
			{"id": float64(2), "name": "Chelsea", "strength": float64(4)},
		},
		table.NameGameWeeks: {
			{"id": float64(1), "is_current": false, "finished": true},
			{"id": float64(2), "is_current": true, "finished": false},
		},
		table.NameElementTypes: {{"id": float64(1), "singular_name": "Goalkeeper"}},
		table.NameElementStats: {{"name": "minutes", "label": "Minutes played"}},
	}
}

func seedStoreFromSet(store *stubStore, data table.Set) {
	for name, rows := range data {
		copied := make(table.Table, len(rows))
		for i, row := range rows {
			dup := make(table.Row, len(row))
			for key, value := range row {
				dup[key] = value
			}
			copied[i] = dup
		}
		store.tables[name] = copied
	}
}
