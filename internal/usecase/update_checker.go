package usecase

import (
	"context"
	"fmt"

	"github.com/riskibarqy/fpl-collector/internal/domain/table"
)

type UpdateStatus string

const (
	UpdateStatusUpToDate    UpdateStatus = "up_to_date"
	UpdateStatusNeedsUpdate UpdateStatus = "needs_update"
	UpdateStatusFetchFailed UpdateStatus = "fetch_failed"
	UpdateStatusStoreError  UpdateStatus = "store_error"
)

// UpdateCheck is the outcome of one staleness check. Updates is populated
// only for the up_to_date and needs_update statuses; Err carries the cause
// for the two failure statuses.
type UpdateCheck struct {
	Status  UpdateStatus
	Updates map[string]bool
	Err     error
}

// DetectChanges fetches a fresh bootstrap snapshot and compares it against
// the persisted store, one verdict per table. Any store or shape failure
// aborts the whole check.
func (s *CollectorService) DetectChanges(ctx context.Context) UpdateCheck {
	ctx, span := startUsecaseSpan(ctx, "usecase.CollectorService.DetectChanges")
	defer span.End()

	if s.fetcher == nil || s.store == nil {
		return UpdateCheck{
			Status: UpdateStatusStoreError,
			Err:    fmt.Errorf("%w: collector is not fully configured", ErrDependencyUnavailable),
		}
	}

	data, err := s.fetcher.GetFplData(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "update check fetch failed", "error", err)
		return UpdateCheck{Status: UpdateStatusFetchFailed, Err: err}
	}

	updates := make(map[string]bool, len(data))
	for _, name := range data.Names() {
		needed, err := s.tableNeedsUpdate(ctx, name, data[name])
		if err != nil {
			s.logger.WarnContext(ctx, "update check aborted", "table", name, "error", err)
			return UpdateCheck{Status: UpdateStatusStoreError, Err: err}
		}
		updates[name] = needed
	}

	status := UpdateStatusUpToDate
	for _, needed := range updates {
		if needed {
			status = UpdateStatusNeedsUpdate
			break
		}
	}

	return UpdateCheck{Status: status, Updates: updates}
}

// CheckForUpdates returns the per-table verdict map. Both fetch and store
// failures collapse to an empty map; use DetectChanges to tell them apart.
func (s *CollectorService) CheckForUpdates(ctx context.Context) map[string]bool {
	check := s.DetectChanges(ctx)
	switch check.Status {
	case UpdateStatusUpToDate, UpdateStatusNeedsUpdate:
		return check.Updates
	default:
		return map[string]bool{}
	}
}

func (s *CollectorService) tableNeedsUpdate(ctx context.Context, name string, fresh table.Table) (bool, error) {
	exists, err := s.store.TableExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("%w: check table %s: %v", ErrStoreUnavailable, name, err)
	}
	if !exists {
		return true, nil
	}

	existing, err := s.store.ReadTable(ctx, name)
	if err != nil {
		return false, fmt.Errorf("%w: read table %s: %v", ErrStoreUnavailable, name, err)
	}

	switch name {
	case table.NameGameWeeks:
		return !table.Equal(fresh, existing), nil
	case table.NameFootballPlayers:
		freshPoints, ok := fresh.Column("total_points")
		if !ok {
			return false, fmt.Errorf("fresh %s rows are missing the total_points column", name)
		}
		existingPoints, ok := existing.Column("total_points")
		if !ok {
			return false, fmt.Errorf("stored %s rows are missing the total_points column", name)
		}
		return !stringSlicesEqual(freshPoints, existingPoints), nil
	default:
		// Row-count comparison only; value changes that keep the count are
		// not detected for these tables.
		return len(fresh) != len(existing), nil
	}
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
