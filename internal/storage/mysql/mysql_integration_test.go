//go:build integration

package mysql_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"review_lens/internal/domain"
	mysqlrepo "review_lens/internal/storage/mysql"
)

// ---------- small helpers ----------
func ptime(t time.Time) *time.Time { return &t }

func migrationsDir(t *testing.T) string {
	t.Helper()
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return filepath.Join("..", "..", "..", "migrations")
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir(t)

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("migrations dir %s is not a directory or missing", dir)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	// Start isolated MySQL; let Docker pick a free host port.
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=review_lens",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "review_lens")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

// ---------- the test ----------
func TestRepo_MySQL_UpsertAndQuery(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	rel := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	info := domain.AppInfo{
		ID:            "123",
		Name:          "Notes",
		Developer:     "ACME",
		Rating:        4.5,
		RatingCount:   9000,
		FileSizeBytes: 1 << 20,
		ReleaseDate:   ptime(rel),
		RawJSON:       []byte(`{"trackName":"Notes"}`),
	}
	if err := repo.UpsertApp(ctx, info); err != nil {
		t.Fatalf("UpsertApp: %v", err)
	}
	// second upsert must update in place
	info.Name = "Notes Pro"
	if err := repo.UpsertApp(ctx, info); err != nil {
		t.Fatalf("UpsertApp again: %v", err)
	}

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var rs []domain.Review
	for i := 0; i < 5; i++ {
		region := "US"
		if i%2 == 1 {
			region = "GB"
		}
		rs = append(rs, domain.Review{
			ID:      fmt.Sprintf("r%d", i),
			Title:   "t",
			Content: fmt.Sprintf("content %d", i),
			Rating:  1 + i%5,
			Author:  fmt.Sprintf("author %d", i),
			Date:    base.Add(-time.Duration(i) * time.Hour),
			Version: "1.0",
			Region:  region,
		})
	}
	if err := repo.UpsertReviews(ctx, "123", rs); err != nil {
		t.Fatalf("UpsertReviews: %v", err)
	}
	// re-ingesting the same reviews must not duplicate rows
	if err := repo.UpsertReviews(ctx, "123", rs); err != nil {
		t.Fatalf("UpsertReviews again: %v", err)
	}

	run := domain.CollectionRun{
		ID: "00000000-0000-0000-0000-000000000001", AppID: "123", Region: "us",
		Target: 5, Collected: 5, Regions: []string{"GB", "US"},
		StartedAt: base, FinishedAt: base.Add(time.Second),
	}
	if err := repo.RecordRun(ctx, run); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	// Assert
	first, err := repo.ListReviews(ctx, "123", domain.PageQuery{Limit: 3})
	if err != nil {
		t.Fatalf("ListReviews: %v", err)
	}
	if len(first.Items) != 3 || first.Items[0].ID != "r0" || first.NextCursor == nil {
		t.Fatalf("unexpected first page: %+v", first)
	}
	second, err := repo.ListReviews(ctx, "123", domain.PageQuery{Limit: 3, Cursor: first.NextCursor})
	if err != nil {
		t.Fatalf("ListReviews page 2: %v", err)
	}
	if len(second.Items) != 2 || second.Items[0].ID != "r3" || second.NextCursor != nil {
		t.Fatalf("unexpected second page: %+v", second)
	}

	gb, err := repo.ListReviews(ctx, "123", domain.PageQuery{Limit: 10, Region: "gb"})
	if err != nil {
		t.Fatalf("ListReviews gb: %v", err)
	}
	if len(gb.Items) != 2 {
		t.Fatalf("expected 2 GB reviews, got %+v", gb.Items)
	}

	var name string
	if err := db.QueryRowContext(ctx, "SELECT name FROM apps WHERE id = ?", "123").Scan(&name); err != nil || name != "Notes Pro" {
		t.Fatalf("expected updated app name, got %q (%v)", name, err)
	}
}
