package sqlite_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"
	"github.com/sony/gobreaker"

	"news-fetcher/internal/domain/entity"
	"news-fetcher/internal/infra/adapter/persistence/sqlite"
	"news-fetcher/internal/repository"
	"news-fetcher/internal/resilience/circuitbreaker"
)

/* ────────────────────────────  helpers  ──────────────────────────── */

func itemRows(items ...*entity.NewsItem) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "title", "description", "url",
		"source_name", "published_at", "fetched_at",
	})
	for _, it := range items {
		rows.AddRow(it.ID, it.Title, it.Description, it.URL,
			it.SourceName, it.PublishedAt, it.FetchedAt)
	}
	return rows
}

/* ──────────────────────────── 1. ExistsByURL ──────────────────────────── */

func TestItemRepo_ExistsByURL(t *testing.T) {
	t.Parallel()

	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM news_items WHERE url = ? LIMIT 1`)).
		WithArgs("https://example.com/a").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM news_items WHERE url = ? LIMIT 1`)).
		WithArgs("https://example.com/missing").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	repo := sqlite.NewItemRepo(db)

	ok, err := repo.ExistsByURL(context.Background(), "https://example.com/a")
	if err != nil || !ok {
		t.Fatalf("ExistsByURL existing ok=%v err=%v", ok, err)
	}
	ok, err = repo.ExistsByURL(context.Background(), "https://example.com/missing")
	if err != nil || ok {
		t.Fatalf("ExistsByURL missing ok=%v err=%v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestItemRepo_ExistsByURL_Error(t *testing.T) {
	t.Parallel()

	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	boom := errors.New("disk I/O error")
	mock.ExpectQuery("SELECT 1 FROM news_items").WillReturnError(boom)

	_, err := sqlite.NewItemRepo(db).ExistsByURL(context.Background(), "u")
	if !errors.Is(err, boom) {
		t.Fatalf("want wrapped %v, got %v", boom, err)
	}
}

func TestItemRepo_ExistsByURL_OpenBreakerRejects(t *testing.T) {
	t.Parallel()

	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	guard := circuitbreaker.NewDBGuardWithConfig(circuitbreaker.Config{
		Name:             "test-db",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 1.0,
		MinRequests:      3,
	})
	repo := sqlite.NewItemRepo(guard.Wrap(db))

	boom := errors.New("database is locked")
	for i := 0; i < 3; i++ {
		mock.ExpectQuery("SELECT 1 FROM news_items").WillReturnError(boom)
		if _, err := repo.ExistsByURL(context.Background(), "u"); !errors.Is(err, boom) {
			t.Fatalf("call %d: want wrapped %v, got %v", i+1, boom, err)
		}
	}

	_, err := repo.ExistsByURL(context.Background(), "u")
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("want ErrOpenState once the breaker trips, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

/* ──────────────────────────── 2. Create ──────────────────────────── */

func TestItemRepo_Create(t *testing.T) {
	t.Parallel()

	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	jst := time.FixedZone("JST", 9*3600)
	published := time.Date(2026, 3, 1, 9, 0, 0, 0, jst)
	fetched := time.Date(2026, 3, 1, 10, 0, 0, 0, jst)
	item := &entity.PersistedItem{
		NewsItem: entity.NewsItem{
			ID: "id-1", Title: "t", Description: "d",
			URL: "https://example.com/a", SourceName: "Example",
			PublishedAt: published, FetchedAt: fetched,
		},
		Category: "science",
	}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO news_items`)).
		WithArgs("id-1", "t", "d", "https://example.com/a", "Example",
			published.UTC(), fetched.UTC(), "science").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := sqlite.NewItemRepo(db).Create(context.Background(), item); err != nil {
		t.Fatalf("Create err=%v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestItemRepo_Create_AssignsID(t *testing.T) {
	t.Parallel()

	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectExec("INSERT INTO news_items").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "sports").
		WillReturnResult(sqlmock.NewResult(1, 1))

	item := &entity.PersistedItem{NewsItem: entity.NewsItem{URL: "u"}, Category: "sports"}
	if err := sqlite.NewItemRepo(db).Create(context.Background(), item); err != nil {
		t.Fatalf("Create err=%v", err)
	}
	if item.ID == "" {
		t.Fatal("expected an ID to be assigned")
	}
}

func TestItemRepo_Create_UniqueViolation(t *testing.T) {
	t.Parallel()

	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectExec("INSERT INTO news_items").
		WillReturnError(errors.New("UNIQUE constraint failed: news_items.url"))

	err := sqlite.NewItemRepo(db).Create(context.Background(),
		&entity.PersistedItem{NewsItem: entity.NewsItem{ID: "x", URL: "u"}, Category: "c"})
	if err == nil {
		t.Fatal("expected error on duplicate url")
	}
}

/* ──────────────────────────── 3. ListRecent ──────────────────────────── */

func TestItemRepo_ListRecent(t *testing.T) {
	t.Parallel()

	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	want := []*entity.NewsItem{
		{ID: "2", Title: "newer", URL: "https://example.com/2", SourceName: "S",
			PublishedAt: since.Add(48 * time.Hour), FetchedAt: since.Add(49 * time.Hour)},
		{ID: "1", Title: "older", URL: "https://example.com/1", SourceName: "S",
			PublishedAt: since.Add(24 * time.Hour), FetchedAt: since.Add(25 * time.Hour)},
	}

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE category = ? AND published_at >= ?`)).
		WithArgs("science", since, 10).
		WillReturnRows(itemRows(want...))

	got, err := sqlite.NewItemRepo(db).ListRecent(context.Background(), "science", since, 10)
	if err != nil {
		t.Fatalf("ListRecent err=%v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ListRecent mismatch (-want +got):\n%s", diff)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestItemRepo_ListRecent_ScanError(t *testing.T) {
	t.Parallel()

	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT id, title").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("only-one-column"))

	if _, err := sqlite.NewItemRepo(db).ListRecent(context.Background(), "c", time.Now(), 10); err == nil {
		t.Fatal("expected scan error")
	}
}

/* ──────────────────────────── 4. Session ──────────────────────────── */

func TestStore_Session(t *testing.T) {
	t.Parallel()

	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT 1 FROM news_items").
		WithArgs("u").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	store := sqlite.NewStore(db, nil)
	err := store.Session(context.Background(), func(repo repository.ItemRepository) error {
		ok, err := repo.ExistsByURL(context.Background(), "u")
		if ok {
			t.Error("expected missing url")
		}
		return err
	})
	if err != nil {
		t.Fatalf("Session err=%v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestStore_Session_PropagatesError(t *testing.T) {
	t.Parallel()

	db, _, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	boom := errors.New("boom")
	err := sqlite.NewStore(db, nil).Session(context.Background(), func(repository.ItemRepository) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want %v, got %v", boom, err)
	}
}

func TestStore_Session_ClosedDB(t *testing.T) {
	t.Parallel()

	db, _, _ := sqlmock.New()
	_ = db.Close()

	called := false
	err := sqlite.NewStore(db, nil).Session(context.Background(), func(repository.ItemRepository) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("expected error acquiring connection from closed db")
	}
	if called {
		t.Fatal("fn must not run without a connection")
	}
}
