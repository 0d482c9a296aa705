package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-custody/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	defaultDispatchLogPerPage = 25
	maxDispatchLogPerPage     = 500
)

// DispatchLogStore is the append-only audit log of dispatch attempts.
type DispatchLogStore struct {
	db   *bun.DB
	repo repository.Repository[*dispatchEntryRecord]
}

// RetentionPolicy bounds the dispatch log by age and by row count. Zero
// values disable the corresponding bound.
type RetentionPolicy struct {
	TTL    time.Duration
	RowCap int
}

func NewDispatchLogStore(db *bun.DB) (*DispatchLogStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*dispatchEntryRecord](db, dispatchEntryHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid dispatch log repository wiring: %w", err)
		}
	}
	return &DispatchLogStore{db: db, repo: repo}, nil
}

func NewDispatchLogStoreFromPersistence(client any) (*DispatchLogStore, error) {
	db, err := resolveBunDB(client)
	if err != nil {
		return nil, err
	}
	return NewDispatchLogStore(db)
}

func (s *DispatchLogStore) Record(ctx context.Context, entry core.DispatchEntry) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: dispatch log store is not configured")
	}
	record := dispatchEntryToRecord(entry)
	// Locally rejected dispatches may lack the fields that failed validation.
	if entry.Status != core.DispatchStatusRejected && (record.ActivityType == "" || record.OrganizationID == "") {
		return fmt.Errorf("sqlstore: dispatch entry requires activity_type and organization_id")
	}
	_, err := s.repo.Create(ctx, record)
	return err
}

func (s *DispatchLogStore) Get(ctx context.Context, id string) (core.DispatchEntry, error) {
	if s == nil || s.db == nil {
		return core.DispatchEntry{}, fmt.Errorf("sqlstore: dispatch log store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.DispatchEntry{}, fmt.Errorf("sqlstore: dispatch entry id is required")
	}
	record := &dispatchEntryRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.DispatchEntry{}, fmt.Errorf("%w: id %q", core.ErrDispatchEntryNotFound, id)
		}
		return core.DispatchEntry{}, err
	}
	return dispatchRecordToDomain(record), nil
}

func (s *DispatchLogStore) List(ctx context.Context, filter core.DispatchLogFilter) (core.DispatchLogPage, error) {
	if s == nil || s.repo == nil {
		return core.DispatchLogPage{}, fmt.Errorf("sqlstore: dispatch log store is not configured")
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = defaultDispatchLogPerPage
	}
	if perPage > maxDispatchLogPerPage {
		perPage = maxDispatchLogPerPage
	}
	offset := (page - 1) * perPage

	selectors := []repository.SelectCriteria{
		repository.OrderBy("created_at DESC"),
		repository.SelectPaginate(perPage, offset),
	}
	if activityType := strings.TrimSpace(filter.ActivityType); activityType != "" {
		selectors = append(selectors, repository.SelectBy("activity_type", "=", activityType))
	}
	if organizationID := strings.TrimSpace(filter.OrganizationID); organizationID != "" {
		selectors = append(selectors, repository.SelectBy("organization_id", "=", organizationID))
	}
	if status := strings.TrimSpace(string(filter.Status)); status != "" {
		selectors = append(selectors, repository.SelectBy("status", "=", status))
	}

	records, total, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return core.DispatchLogPage{}, err
	}
	items := make([]core.DispatchEntry, 0, len(records))
	for _, record := range records {
		items = append(items, dispatchRecordToDomain(record))
	}
	return core.DispatchLogPage{
		Items:   items,
		Page:    page,
		PerPage: perPage,
		Total:   total,
		HasNext: offset+len(items) < total,
	}, nil
}

// Prune deletes entries older than the TTL, then the oldest entries beyond
// the row cap. It returns the number of rows removed.
func (s *DispatchLogStore) Prune(ctx context.Context, policy RetentionPolicy, now time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: dispatch log store is not configured")
	}
	if now.IsZero() {
		now = time.Now()
	}
	deleted := 0

	if policy.TTL > 0 {
		cutoff := now.UTC().Add(-policy.TTL)
		res, err := s.db.NewDelete().
			Model((*dispatchEntryRecord)(nil)).
			Where("created_at < ?", cutoff).
			Exec(ctx)
		if err != nil {
			return deleted, err
		}
		affected, _ := res.RowsAffected()
		deleted += int(affected)
	}

	if policy.RowCap > 0 {
		total, err := s.db.NewSelect().Model((*dispatchEntryRecord)(nil)).Count(ctx)
		if err != nil {
			return deleted, err
		}
		if excess := total - policy.RowCap; excess > 0 {
			res, err := s.db.NewRaw(
				"DELETE FROM custody_dispatch_log WHERE id IN (SELECT id FROM custody_dispatch_log ORDER BY created_at ASC LIMIT ?)",
				excess,
			).Exec(ctx)
			if err != nil {
				return deleted, err
			}
			affected, _ := res.RowsAffected()
			deleted += int(affected)
		}
	}

	return deleted, nil
}

func dispatchEntryToRecord(entry core.DispatchEntry) *dispatchEntryRecord {
	id := strings.TrimSpace(entry.ID)
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := entry.CreatedAt.UTC()
	if entry.CreatedAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	status := strings.TrimSpace(string(entry.Status))
	if status == "" {
		status = string(core.DispatchStatusOK)
	}
	return &dispatchEntryRecord{
		ID:             id,
		ActivityType:   strings.TrimSpace(entry.ActivityType),
		OrganizationID: strings.TrimSpace(entry.OrganizationID),
		AuthMode:       strings.TrimSpace(entry.AuthMode),
		Endpoint:       strings.TrimSpace(entry.Endpoint),
		Signed:         entry.Signed,
		Status:         status,
		StatusCode:     entry.StatusCode,
		ActivityID:     strings.TrimSpace(entry.ActivityID),
		ErrorMessage:   strings.TrimSpace(entry.Error),
		CreatedAt:      createdAt,
	}
}

func dispatchRecordToDomain(record *dispatchEntryRecord) core.DispatchEntry {
	if record == nil {
		return core.DispatchEntry{}
	}
	return core.DispatchEntry{
		ID:             record.ID,
		ActivityType:   record.ActivityType,
		OrganizationID: record.OrganizationID,
		AuthMode:       record.AuthMode,
		Endpoint:       record.Endpoint,
		Signed:         record.Signed,
		Status:         core.DispatchStatus(record.Status),
		StatusCode:     record.StatusCode,
		ActivityID:     record.ActivityID,
		Error:          record.ErrorMessage,
		CreatedAt:      record.CreatedAt.UTC(),
	}
}
