package rules

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

// TestSuiteStoreInterface verifies InMemorySuiteStore implements SuiteStore
func TestSuiteStoreInterface(t *testing.T) {
	var _ SuiteStore = (*InMemorySuiteStore)(nil)
	var _ SuiteStore = (*PostgresSuiteStore)(nil)
}

// TestInMemorySuiteStoreCRUD verifies add, get, update and delete
func TestInMemorySuiteStoreCRUD(t *testing.T) {
	store := NewInMemorySuiteStore()
	suite := mustSuite(t, "expectation", ColumnExists("id"))

	if err := store.Add(suite); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	got, err := store.Get("expectation")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Len() != 1 {
		t.Errorf("Expected 1 rule, got %d", got.Len())
	}

	replacement := mustSuite(t, "expectation", ColumnExists("id"), ValuesUnique("id"))
	if err := store.Update(replacement); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	got, _ = store.Get("expectation")
	if got.Len() != 2 {
		t.Errorf("Expected updated suite with 2 rules, got %d", got.Len())
	}

	if err := store.Delete("expectation"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := store.Get("expectation"); !errors.Is(err, ErrSuiteNotFound) {
		t.Errorf("Expected ErrSuiteNotFound after delete, got %v", err)
	}
}

// TestInMemorySuiteStoreErrors verifies the error sentinels
func TestInMemorySuiteStoreErrors(t *testing.T) {
	store := NewInMemorySuiteStore()
	if err := store.Add(NewSuite("a")); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	testCases := []struct {
		name string
		err  error
		want error
	}{
		{"duplicate add", store.Add(NewSuite("a")), ErrSuiteExists},
		{"get missing", func() error { _, err := store.Get("missing"); return err }(), ErrSuiteNotFound},
		{"update missing", store.Update(NewSuite("missing")), ErrSuiteNotFound},
		{"delete missing", store.Delete("missing"), ErrSuiteNotFound},
		{"nil suite", store.Add(nil), ErrInvalidSuiteID},
		{"empty name", store.Add(NewSuite(" ")), ErrInvalidSuiteID},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(tc.err, tc.want) {
				t.Errorf("Expected %v, got %v", tc.want, tc.err)
			}
		})
	}
}

// TestInMemorySuiteStoreList verifies List is sorted by name
func TestInMemorySuiteStoreList(t *testing.T) {
	store := NewInMemorySuiteStore()
	for _, name := range []string{"orders", "customers", "invoices"} {
		if err := store.Add(NewSuite(name)); err != nil {
			t.Fatalf("Add(%s) failed: %v", name, err)
		}
	}

	list, err := store.List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	want := []string{"customers", "invoices", "orders"}
	for i, s := range list {
		if s.Name() != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], s.Name())
		}
	}
}

// TestInMemorySuiteStoreConcurrency verifies concurrent access is safe
func TestInMemorySuiteStoreConcurrency(t *testing.T) {
	store := NewInMemorySuiteStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = store.Add(NewSuite(fmt.Sprintf("suite-%d", i)))
		}(i)
		go func() {
			defer wg.Done()
			_, _ = store.List()
		}()
	}
	wg.Wait()

	list, _ := store.List()
	if len(list) != 50 {
		t.Errorf("Expected 50 suites, got %d", len(list))
	}
}
