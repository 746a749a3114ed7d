package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Nomadcxx/jellyname/internal/naming"
)

func TestGetUnknownReturnsDefaults(t *testing.T) {
	store := NewStore(Settings{Channel: "Default"})

	got := store.Get("nobody")
	if got.Template != naming.DefaultTemplate {
		t.Errorf("expected default template, got %q", got.Template)
	}
	if got.Channel != "Default" {
		t.Errorf("expected default channel, got %q", got.Channel)
	}

	if _, err := store.Lookup("nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	store := NewStore(Settings{})
	a := store.Create()
	b := store.Create()

	if a == b {
		t.Fatal("expected distinct session IDs")
	}

	store.SetTemplate(a, "{ShowName} {Episode}")
	store.SetChannel(a, "ChanA")

	if got := store.Get(b); got.Template != naming.DefaultTemplate || got.Channel != "" {
		t.Errorf("session b should be untouched, got %+v", got)
	}

	got := store.Get(a)
	if got.Template != "{ShowName} {Episode}" || got.Channel != "ChanA" {
		t.Errorf("unexpected settings for a: %+v", got)
	}

	store.SetTemplate(a, "")
	if got := store.Get(a); got.Template != naming.DefaultTemplate {
		t.Errorf("empty template should fall back to default, got %q", got.Template)
	}
}

func TestConcurrentUpdates(t *testing.T) {
	store := NewStore(Settings{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i)
			store.SetTemplate(id, fmt.Sprintf("T%d {Episode}", i))
			store.SetChannel(id, fmt.Sprintf("C%d", i))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		got := store.Get(fmt.Sprintf("s%d", i))
		if got.Template != fmt.Sprintf("T%d {Episode}", i) || got.Channel != fmt.Sprintf("C%d", i) {
			t.Errorf("session s%d has settings of another session: %+v", i, got)
		}
	}
	if len(store.List()) != 20 {
		t.Errorf("expected 20 sessions, got %d", len(store.List()))
	}
}

func TestDelete(t *testing.T) {
	store := NewStore(Settings{})
	id := store.Create()

	if err := store.Delete(id); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	if err := store.Delete(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSaveAndOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "sessions.toml")

	store, err := Open(path, Settings{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if len(store.List()) != 0 {
		t.Fatalf("expected empty store")
	}

	id := store.Create()
	store.SetChannel(id, "Persisted")
	if err := store.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reopened, err := Open(path, Settings{})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}

	got, err := reopened.Lookup(id)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got.Channel != "Persisted" {
		t.Errorf("expected persisted channel, got %q", got.Channel)
	}
	if got.Created.IsZero() {
		t.Error("expected creation time to survive")
	}
}

func TestListOrder(t *testing.T) {
	store := NewStore(Settings{})
	first := store.Create()
	second := store.Create()

	entries := store.List()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	seen := map[string]bool{entries[0].ID: true, entries[1].ID: true}
	if !seen[first] || !seen[second] {
		t.Errorf("missing sessions in list: %+v", entries)
	}
}

func TestSaveMergesConcurrentStores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.toml")

	seed, err := Open(path, Settings{})
	if err != nil {
		t.Fatal(err)
	}
	shared := seed.Create()
	gone := seed.Create()
	if err := seed.Save(); err != nil {
		t.Fatal(err)
	}

	a, err := Open(path, Settings{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Open(path, Settings{})
	if err != nil {
		t.Fatal(err)
	}

	idA := a.Create()
	a.SetChannel(shared, "FromA")
	idB := b.Create()
	if err := b.Delete(gone); err != nil {
		t.Fatal(err)
	}

	if err := a.Save(); err != nil {
		t.Fatal(err)
	}
	if err := b.Save(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path, Settings{})
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{idA, idB, shared} {
		if _, err := reopened.Lookup(id); err != nil {
			t.Errorf("session %s lost: %v", id, err)
		}
	}
	if got := reopened.Get(shared).Channel; got != "FromA" {
		t.Errorf("shared channel = %q, want FromA", got)
	}
	if _, err := reopened.Lookup(gone); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted session should stay deleted, got %v", err)
	}

	if _, err := b.Lookup(idA); err != nil {
		t.Errorf("save should refresh the store with other sessions: %v", err)
	}
}
