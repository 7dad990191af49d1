//go:build integration
// +build integration

package rules_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jadesonbruno/dataquality/dataset"
	"github.com/jadesonbruno/dataquality/migrations"
	"github.com/jadesonbruno/dataquality/rules"

	_ "github.com/lib/pq"
)

// setupTestDB creates a PostgreSQL container, applies the migrations and
// returns a connection
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "dq_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgresContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := postgresContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/dq_test?sslmode=disable", host, port.Port())

	var db *sql.DB
	for i := 0; i < 30; i++ {
		db, err = sql.Open("postgres", dsn)
		if err == nil {
			err = db.Ping()
			if err == nil {
				break
			}
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	m, err := migrations.New(dsn)
	if err != nil {
		t.Fatalf("Failed to load migrations: %v", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		m.Close()
		db.Close()
		postgresContainer.Terminate(ctx)
	}
	return db, cleanup
}

func TestPostgresSuiteStore_BasicCRUD(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := rules.NewPostgresSuiteStore(db)

	suite, err := rules.SuiteFromRules("expectation",
		rules.ColumnExists("id").WithNotes("Identifier each employee"),
		rules.RowCountBetween(1, 100),
		rules.ValuesMatchExpression("id", `value > 0`).WithSeverity(rules.SeverityWarning),
	)
	if err != nil {
		t.Fatalf("Failed to build suite: %v", err)
	}

	if err := store.Add(suite); err != nil {
		t.Fatalf("Failed to add suite: %v", err)
	}

	retrieved, err := store.Get("expectation")
	if err != nil {
		t.Fatalf("Failed to get suite: %v", err)
	}
	got := retrieved.Rules()
	if len(got) != 3 {
		t.Fatalf("Expected 3 rules, got %d", len(got))
	}
	if got[0].Notes != "Identifier each employee" {
		t.Errorf("Expected notes to round-trip, got %q", got[0].Notes)
	}
	if got[2].Severity != rules.SeverityWarning {
		t.Errorf("Expected warning severity, got %s", got[2].Severity)
	}
	if v, _ := got[1].Params.Float(rules.ParamMax); v != 100 {
		t.Errorf("Expected max 100, got %v", v)
	}

	updated, _ := rules.SuiteFromRules("expectation", rules.ValuesUnique("id"))
	if err := store.Update(updated); err != nil {
		t.Fatalf("Failed to update suite: %v", err)
	}
	retrieved, _ = store.Get("expectation")
	if retrieved.Len() != 1 {
		t.Errorf("Expected 1 rule after update, got %d", retrieved.Len())
	}

	if err := store.Delete("expectation"); err != nil {
		t.Fatalf("Failed to delete suite: %v", err)
	}
	if _, err := store.Get("expectation"); !errors.Is(err, rules.ErrSuiteNotFound) {
		t.Errorf("Expected ErrSuiteNotFound, got %v", err)
	}
}

func TestPostgresSuiteStore_DuplicateAndMissing(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := rules.NewPostgresSuiteStore(db)
	if err := store.Add(rules.NewSuite("orders")); err != nil {
		t.Fatalf("Failed to add suite: %v", err)
	}

	if err := store.Add(rules.NewSuite("orders")); !errors.Is(err, rules.ErrSuiteExists) {
		t.Errorf("Expected ErrSuiteExists, got %v", err)
	}
	if err := store.Update(rules.NewSuite("missing")); !errors.Is(err, rules.ErrSuiteNotFound) {
		t.Errorf("Expected ErrSuiteNotFound on update, got %v", err)
	}
	if err := store.Delete("missing"); !errors.Is(err, rules.ErrSuiteNotFound) {
		t.Errorf("Expected ErrSuiteNotFound on delete, got %v", err)
	}
}

func TestPostgresSuiteStore_ConcurrentAdd(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := rules.NewPostgresSuiteStore(db)

	const workers = 8
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.Add(rules.NewSuite("orders"))
		}()
	}
	wg.Wait()
	close(errs)

	added := 0
	for err := range errs {
		switch {
		case err == nil:
			added++
		case !errors.Is(err, rules.ErrSuiteExists):
			t.Errorf("Expected ErrSuiteExists for a losing add, got %v", err)
		}
	}
	if added != 1 {
		t.Errorf("Expected exactly one successful add, got %d", added)
	}
}

func TestPostgresSuiteStore_ListOrdering(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := rules.NewPostgresSuiteStore(db)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := store.Add(rules.NewSuite(name)); err != nil {
			t.Fatalf("Failed to add suite %s: %v", name, err)
		}
	}

	list, err := store.List()
	if err != nil {
		t.Fatalf("Failed to list suites: %v", err)
	}
	want := []string{"alpha", "mid", "zeta"}
	if len(list) != len(want) {
		t.Fatalf("Expected %d suites, got %d", len(want), len(list))
	}
	for i, s := range list {
		if s.Name() != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], s.Name())
		}
	}
}

// TestEngineAgainstPostgresTable validates a live table through the
// postgres source.
func TestEngineAgainstPostgresTable(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := db.Exec(`
		CREATE TABLE employees (id INTEGER, name TEXT);
		INSERT INTO employees VALUES (1, 'ann'), (2, 'bob'), (2, NULL);
	`)
	if err != nil {
		t.Fatalf("Failed to seed table: %v", err)
	}

	src := dataset.NewTableSource(db, "postgres", "employees")
	suite, _ := rules.SuiteFromRules("employees",
		rules.ColumnExists("id"),
		rules.ValuesUnique("id"),
		rules.ValuesNotNull("name").WithSeverity(rules.SeverityWarning),
		rules.ColumnExists("salary"),
	)

	res, err := rules.NewEngine().Run(context.Background(), suite, src)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	passed := []bool{true, false, false, false}
	for i, o := range res.Outcomes {
		if o.Passed != passed[i] {
			t.Errorf("Outcome %d (%s): expected passed=%v, got %v: %s", i, o.Rule.Kind, passed[i], o.Passed, o.Message)
		}
	}
	if res.Success {
		t.Error("Expected run to fail")
	}
}
