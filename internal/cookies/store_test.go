package cookies

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "nested", "cookies.txt"), nil)
}

func TestStore_AppendDelete(t *testing.T) {
	store := newTestStore(t)

	if err := store.Append("blob1"); err != nil {
		t.Fatalf("append blob1: %v", err)
	}
	if err := store.Append("blob2"); err != nil {
		t.Fatalf("append blob2: %v", err)
	}
	if err := store.Delete(0); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"blob2"}) {
		t.Errorf("expected [blob2], got %q", got)
	}
}

func TestStore_AppendIsListedLast(t *testing.T) {
	store := newTestStore(t)

	for _, blob := range []string{"a=1", "b=2; c=3", "multi\nline\nblob"} {
		if err := store.Append(blob); err != nil {
			t.Fatalf("append %q: %v", blob, err)
		}
		got, err := store.List()
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if got[len(got)-1] != blob {
			t.Errorf("expected %q last, got %q", blob, got[len(got)-1])
		}
	}
}

func TestStore_DeleteShiftsPositions(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 4; i++ {
		if err := store.Append(fmt.Sprintf("blob%d", i)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	if err := store.Delete(1); err != nil {
		t.Fatalf("delete(1): %v", err)
	}
	if err := store.Delete(1); err != nil {
		t.Fatalf("second delete(1): %v", err)
	}

	got, _ := store.List()
	if !reflect.DeepEqual(got, []string{"blob0", "blob3"}) {
		t.Errorf("unexpected records %q", got)
	}
}

func TestStore_DeleteOutOfRange(t *testing.T) {
	store := newTestStore(t)
	if err := store.Append("only"); err != nil {
		t.Fatalf("append: %v", err)
	}

	for _, index := range []int{-1, 1, 10} {
		if err := store.Delete(index); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("delete(%d): expected ErrIndexOutOfRange, got %v", index, err)
		}
	}

	got, _ := store.List()
	if len(got) != 1 {
		t.Errorf("out of range delete must not modify the store, got %q", got)
	}
}

func TestStore_MissingFile(t *testing.T) {
	store := newTestStore(t)

	got, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty list, got %q", got)
	}
	if err := store.Delete(0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestStore_AppendEmpty(t *testing.T) {
	store := newTestStore(t)
	if err := store.Append("  \n\t"); !errors.Is(err, ErrEmptyBlob) {
		t.Errorf("expected ErrEmptyBlob, got %v", err)
	}
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Errorf("empty append should not create the file")
	}
}

func TestStore_ConcurrentAppends(t *testing.T) {
	store := newTestStore(t)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := store.Append(fmt.Sprintf("blob%d", i)); err != nil {
				t.Errorf("append: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != n {
		t.Errorf("expected %d records, got %d", n, len(got))
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected []string
	}{
		{"empty", "", []string{}},
		{"single", "a" + RecordDelimiter, []string{"a"}},
		{"whitespace records dropped", "a" + RecordDelimiter + "  " + RecordDelimiter + "b" + RecordDelimiter, []string{"a", "b"}},
		{"missing trailing delimiter", "a" + RecordDelimiter + "b", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Split(tt.content); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
