package completion

import (
	"context"
	"errors"
	"testing"
)

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("quota exceeded")
}
func (failingStore) Set(context.Context, string, string) error { return errors.New("quota exceeded") }
func (failingStore) Delete(context.Context, string) error      { return errors.New("quota exceeded") }

func TestFlagRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	flag := NewFlag(NewMemoryStore(), "")
	if flag.IsSet(ctx) {
		t.Fatal("fresh flag should not be set")
	}
	if err := flag.Mark(ctx); err != nil {
		t.Fatalf("Mark() error = %v", err)
	}
	if !flag.IsSet(ctx) {
		t.Fatal("flag should be set after Mark")
	}
	if err := flag.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if flag.IsSet(ctx) {
		t.Fatal("flag should be cleared")
	}
}

func TestFlagScopesAreIndependent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	alice := NewFlag(store, "visitor-a")
	bob := NewFlag(store, "visitor-b")
	if alice.StorageKey() != "visitor-a:"+Key {
		t.Fatalf("StorageKey() = %q", alice.StorageKey())
	}
	if err := alice.Mark(ctx); err != nil {
		t.Fatalf("Mark() error = %v", err)
	}
	if bob.IsSet(ctx) {
		t.Fatal("marking one scope leaked into another")
	}
}

func TestFlagStoreFailureReadsAsUnset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	flag := NewFlag(failingStore{}, "")
	if flag.IsSet(ctx) {
		t.Fatal("IsSet() = true on failing store, want false")
	}
	if _, err := flag.Lookup(ctx); err == nil {
		t.Fatal("Lookup() should surface the store error")
	}
	if err := flag.Mark(ctx); err == nil {
		t.Fatal("Mark() should surface the store error")
	}
}

func TestFlagWithoutStore(t *testing.T) {
	t.Parallel()

	var flag Flag
	if err := flag.Mark(context.Background()); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("Mark() error = %v, want ErrStoreUnavailable", err)
	}
}
