package sqlstore_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/goliatone/go-custody/core"
	sqlstore "github.com/goliatone/go-custody/store/sql"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf("file:custody-test-%d?mode=memory&cache=shared", time.Now().UnixNano())
	client, err := sqlstore.Open(context.Background(), sqlstore.Config{Driver: "sqlite3", DSN: dsn})
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	return client, func() {
		_ = client.Close()
	}
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	var tableName string
	if err := client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"custody_dispatch_log",
	).Scan(context.Background(), &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "custody_dispatch_log" {
		t.Fatalf("expected custody_dispatch_log table, got %q", tableName)
	}
}

func TestOpen_RejectsUnknownDriver(t *testing.T) {
	if _, err := sqlstore.Open(context.Background(), sqlstore.Config{Driver: "mysql", DSN: "x"}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
	if _, err := sqlstore.Open(context.Background(), sqlstore.Config{Driver: "sqlite3"}); err == nil {
		t.Fatalf("expected missing dsn error")
	}
}

func TestDispatchLogStore_RecordListAndGet(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewDispatchLogStoreFromPersistence(client)
	if err != nil {
		t.Fatalf("new dispatch log store: %v", err)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []core.DispatchEntry{
		{ID: "11111111-1111-1111-1111-111111111111", ActivityType: "ACTIVITY_TYPE_CREATE_WALLET", OrganizationID: "org_1", AuthMode: "api_key", Endpoint: "/create_wallet", Signed: true, Status: core.DispatchStatusOK, StatusCode: 200, ActivityID: "act_1", CreatedAt: base},
		{ID: "22222222-2222-2222-2222-222222222222", ActivityType: "ACTIVITY_TYPE_SIGN_TRANSACTION_V2", OrganizationID: "org_1", AuthMode: "webauthn", Endpoint: "/sign_transaction", Signed: true, Status: core.DispatchStatusRejected, StatusCode: 401, Error: "could not verify stamp", CreatedAt: base.Add(time.Minute)},
		{ID: "33333333-3333-3333-3333-333333333333", ActivityType: "ACTIVITY_TYPE_CREATE_WALLET", OrganizationID: "org_2", AuthMode: "api_key", Endpoint: "/create_wallet", Status: core.DispatchStatusFailed, Error: "dial tcp: refused", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, entry := range entries {
		if err := store.Record(ctx, entry); err != nil {
			t.Fatalf("record %s: %v", entry.ID, err)
		}
	}

	page, err := store.List(ctx, core.DispatchLogFilter{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 3 {
		t.Fatalf("expected 3 entries, got total=%d items=%d", page.Total, len(page.Items))
	}
	if page.Items[0].ID != entries[2].ID {
		t.Fatalf("expected newest first, got %s", page.Items[0].ID)
	}

	org1, err := store.List(ctx, core.DispatchLogFilter{OrganizationID: "org_1", PerPage: 1})
	if err != nil {
		t.Fatalf("list org_1: %v", err)
	}
	if org1.Total != 2 || len(org1.Items) != 1 || !org1.HasNext {
		t.Fatalf("unexpected org_1 page: %+v", org1)
	}

	rejected, err := store.List(ctx, core.DispatchLogFilter{Status: core.DispatchStatusRejected})
	if err != nil {
		t.Fatalf("list rejected: %v", err)
	}
	if rejected.Total != 1 || rejected.Items[0].StatusCode != 401 || rejected.Items[0].AuthMode != "webauthn" {
		t.Fatalf("unexpected rejected page: %+v", rejected)
	}

	got, err := store.Get(ctx, entries[0].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ActivityID != "act_1" || !got.Signed || got.Endpoint != "/create_wallet" {
		t.Fatalf("unexpected entry: %+v", got)
	}
	if _, err := store.Get(ctx, "44444444-4444-4444-4444-444444444444"); !errors.Is(err, core.ErrDispatchEntryNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDispatchLogStore_RecordAssignsIDAndRequiresFields(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewDispatchLogStore(client.DB())
	if err != nil {
		t.Fatalf("new dispatch log store: %v", err)
	}
	if err := store.Record(ctx, core.DispatchEntry{ActivityType: "ACTIVITY_TYPE_CREATE_WALLET"}); err == nil {
		t.Fatalf("expected missing organization error")
	}
	if err := store.Record(ctx, core.DispatchEntry{ActivityType: "ACTIVITY_TYPE_CREATE_WALLET", OrganizationID: "org_1"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	page, err := store.List(ctx, core.DispatchLogFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID == "" || page.Items[0].Status != core.DispatchStatusOK {
		t.Fatalf("expected generated id and default status, got %+v", page.Items)
	}
}

func TestDispatchLogStore_RecordsRejectedEntriesWithoutInputFields(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewDispatchLogStore(client.DB())
	if err != nil {
		t.Fatalf("new dispatch log store: %v", err)
	}
	rejected := core.DispatchEntry{
		AuthMode: "api_key",
		Endpoint: "/activity",
		Status:   core.DispatchStatusRejected,
		Error:    "core: activity type is required",
	}
	if err := store.Record(ctx, rejected); err != nil {
		t.Fatalf("expected rejected entry without activity type to be recorded: %v", err)
	}
	if err := store.Record(ctx, core.DispatchEntry{Status: core.DispatchStatusFailed}); err == nil {
		t.Fatalf("expected failed entry without fields to be refused")
	}

	page, err := store.List(ctx, core.DispatchLogFilter{Status: core.DispatchStatusRejected})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ActivityType != "" || page.Items[0].Error != rejected.Error {
		t.Fatalf("unexpected rejected entries %+v", page.Items)
	}
}

func TestDispatchLogStore_Prune(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewDispatchLogStore(client.DB())
	if err != nil {
		t.Fatalf("new dispatch log store: %v", err)
	}
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := store.Record(ctx, core.DispatchEntry{
			ActivityType:   "ACTIVITY_TYPE_CREATE_WALLET",
			OrganizationID: "org_1",
			CreatedAt:      now.Add(-time.Duration(i) * 24 * time.Hour),
		}); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	deleted, err := store.Prune(ctx, sqlstore.RetentionPolicy{TTL: 60 * time.Hour, RowCap: 2}, now)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("expected 3 deleted rows, got %d", deleted)
	}
	page, err := store.List(ctx, core.DispatchLogFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("expected 2 remaining rows, got %d", page.Total)
	}
}

func TestCachedDispatchLogReader_GetHitsCache(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewDispatchLogStore(client.DB())
	if err != nil {
		t.Fatalf("new dispatch log store: %v", err)
	}
	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	cacheService, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	reader, err := sqlstore.NewCachedDispatchLogReader(store, cacheService)
	if err != nil {
		t.Fatalf("new cached reader: %v", err)
	}

	const id = "55555555-5555-5555-5555-555555555555"
	if err := store.Record(ctx, core.DispatchEntry{ID: id, ActivityType: "ACTIVITY_TYPE_CREATE_WALLET", OrganizationID: "org_1", ActivityID: "act_9"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	first, err := reader.Get(ctx, id)
	if err != nil {
		t.Fatalf("first get: %v", err)
	}

	if _, err := client.DB().NewRaw("DELETE FROM custody_dispatch_log WHERE id = ?", id).Exec(ctx); err != nil {
		t.Fatalf("delete row: %v", err)
	}
	second, err := reader.Get(ctx, id)
	if err != nil {
		t.Fatalf("cached get: %v", err)
	}
	if second.ActivityID != first.ActivityID || second.ActivityID != "act_9" {
		t.Fatalf("expected cached entry, got %+v", second)
	}

	page, err := reader.List(ctx, core.DispatchLogFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 0 {
		t.Fatalf("expected list to read through, got total %d", page.Total)
	}
}

func TestDispatchEntryCacheKey(t *testing.T) {
	key, err := sqlstore.DispatchEntryCacheKey(" a/b ")
	if err != nil {
		t.Fatalf("cache key: %v", err)
	}
	if key != "go-custody::dispatch_entry::v1::a%2Fb" {
		t.Fatalf("unexpected cache key %q", key)
	}
	if _, err := sqlstore.DispatchEntryCacheKey(" "); err == nil {
		t.Fatalf("expected empty id error")
	}
}
