package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/riskibarqy/fpl-collector/internal/domain/table"
)

func TestDetectChangesAllTablesMissing(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{fplData: bootstrapFixture()}
	svc := newTestService(fetcher, newStubStore(), nil)

	check := svc.DetectChanges(context.Background())
	if check.Status != UpdateStatusNeedsUpdate {
		t.Fatalf("expected needs_update, got %s", check.Status)
	}
	if len(check.Updates) != 7 {
		t.Fatalf("expected 7 verdicts, got %d", len(check.Updates))
	}
	for name, needed := range check.Updates {
		if !needed {
			t.Fatalf("expected table %s to need update", name)
		}
	}
}

func TestDetectChangesUpToDate(t *testing.T) {
	t.Parallel()

	data := bootstrapFixture()
	store := newStubStore()
	seedStoreFromSet(store, data)
	svc := newTestService(&stubFetcher{fplData: data}, store, nil)

	check := svc.DetectChanges(context.Background())
	if check.Status != UpdateStatusUpToDate {
		t.Fatalf("expected up_to_date, got %s (err=%v)", check.Status, check.Err)
	}
	for name, needed := range check.Updates {
		if needed {
			t.Fatalf("expected table %s to be up to date", name)
		}
	}
}

func TestDetectChangesGameWeeksReorder(t *testing.T) {
	t.Parallel()

	data := bootstrapFixture()
	store := newStubStore()
	seedStoreFromSet(store, data)

	// Same rows, swapped order. The comparison is order-sensitive.
	gw := store.tables[table.NameGameWeeks]
	store.tables[table.NameGameWeeks] = table.Table{gw[1], gw[0]}

	svc := newTestService(&stubFetcher{fplData: data}, store, nil)
	check := svc.DetectChanges(context.Background())

	if !check.Updates[table.NameGameWeeks] {
		t.Fatal("expected game_weeks to need update after reorder")
	}
}

func TestDetectChangesGameWeeksNullFilledStore(t *testing.T) {
	t.Parallel()

	data := bootstrapFixture()
	data[table.NameGameWeeks] = table.Table{
		{"id": float64(1), "is_current": false, "finished": true},
		{"id": float64(2), "is_current": true, "finished": false, "top_element": float64(7)},
	}
	store := newStubStore()
	seedStoreFromSet(store, data)

	// The persisted copy carries every column on every row, NULL where the
	// fresh row had no value. That must not read as a change.
	store.tables[table.NameGameWeeks] = table.Table{
		{"id": "1", "is_current": "0", "finished": "1", "top_element": nil},
		{"id": "2", "is_current": "1", "finished": "0", "top_element": "7"},
	}

	svc := newTestService(&stubFetcher{fplData: data}, store, nil)
	check := svc.DetectChanges(context.Background())

	if check.Updates[table.NameGameWeeks] {
		t.Fatal("expected NULL-filled stored game_weeks to be up to date")
	}
	if check.Status != UpdateStatusUpToDate {
		t.Fatalf("expected up_to_date, got %s (err=%v)", check.Status, check.Err)
	}
}

func TestDetectChangesPlayersIgnoreNonPointsColumns(t *testing.T) {
	t.Parallel()

	data := bootstrapFixture()
	store := newStubStore()
	seedStoreFromSet(store, data)

	// A renamed player with unchanged total_points goes undetected.
	store.tables[table.NameFootballPlayers][0]["web_name"] = "Someone Else"

	svc := newTestService(&stubFetcher{fplData: data}, store, nil)
	check := svc.DetectChanges(context.Background())

	if check.Updates[table.NameFootballPlayers] {
		t.Fatal("expected football_players verdict to ignore non-points columns")
	}
}

func TestDetectChangesPlayersPointsChange(t *testing.T) {
	t.Parallel()

	data := bootstrapFixture()
	store := newStubStore()
	seedStoreFromSet(store, data)
	store.tables[table.NameFootballPlayers][1]["total_points"] = float64(15)

	svc := newTestService(&stubFetcher{fplData: data}, store, nil)
	check := svc.DetectChanges(context.Background())

	if !check.Updates[table.NameFootballPlayers] {
		t.Fatal("expected football_players to need update after points change")
	}
}

func TestDetectChangesTeamsValueChangeInvisible(t *testing.T) {
	t.Parallel()

	data := bootstrapFixture()
	store := newStubStore()
	seedStoreFromSet(store, data)

	// Same row count, different strength value. Row-count comparison misses it.
	store.tables[table.NameFootballTeams][0]["strength"] = float64(2)

	svc := newTestService(&stubFetcher{fplData: data}, store, nil)
	check := svc.DetectChanges(context.Background())

	if check.Updates[table.NameFootballTeams] {
		t.Fatal("expected football_teams value change to go undetected")
	}
}

func TestDetectChangesFetchFailure(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{fplErr: errors.New("boom")}
	svc := newTestService(fetcher, newStubStore(), nil)

	check := svc.DetectChanges(context.Background())
	if check.Status != UpdateStatusFetchFailed {
		t.Fatalf("expected fetch_failed, got %s", check.Status)
	}
	if check.Err == nil {
		t.Fatal("expected an error on fetch failure")
	}

	if verdicts := svc.CheckForUpdates(context.Background()); len(verdicts) != 0 {
		t.Fatalf("expected empty verdict map, got %v", verdicts)
	}
}

func TestDetectChangesStoreFailure(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	store.existsErr = errors.New("disk on fire")
	svc := newTestService(&stubFetcher{fplData: bootstrapFixture()}, store, nil)

	check := svc.DetectChanges(context.Background())
	if check.Status != UpdateStatusStoreError {
		t.Fatalf("expected store_error, got %s", check.Status)
	}
	if !errors.Is(check.Err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", check.Err)
	}

	if verdicts := svc.CheckForUpdates(context.Background()); len(verdicts) != 0 {
		t.Fatalf("expected empty verdict map, got %v", verdicts)
	}
}

func TestDetectChangesMissingPointsColumnAborts(t *testing.T) {
	t.Parallel()

	data := bootstrapFixture()
	store := newStubStore()
	seedStoreFromSet(store, data)
	delete(store.tables[table.NameFootballPlayers][0], "total_points")

	svc := newTestService(&stubFetcher{fplData: data}, store, nil)
	check := svc.DetectChanges(context.Background())

	if check.Status != UpdateStatusStoreError {
		t.Fatalf("expected store_error on missing column, got %s", check.Status)
	}
}
