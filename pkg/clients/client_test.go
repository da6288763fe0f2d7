package clients

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/samvad-hq/samvad-link-scrapper/internal/storage"
)

// fakeSnapshot is the snapshot type of fakeStrategy.
type fakeSnapshot struct {
	newest string
	noise  int
}

// fakeStrategy serves a preset snapshot or error and counts fetches.
type fakeStrategy struct {
	snapshot     fakeSnapshot
	fetchErr     error
	translateErr error
	fetches      atomic.Int32
}

func (f *fakeStrategy) Name() string { return "fake" }
func (f *fakeStrategy) Translate(link string) (string, error) {
	if f.translateErr != nil {
		return "", f.translateErr
	}
	return "api://" + link, nil
}
func (f *fakeStrategy) Fetch(context.Context, string) (fakeSnapshot, error) {
	f.fetches.Add(1)
	if f.fetchErr != nil {
		return fakeSnapshot{}, f.fetchErr
	}
	return f.snapshot, nil
}
func (f *fakeStrategy) Fingerprint(s fakeSnapshot) string {
	if s.newest == "" {
		return EmptyFingerprint
	}
	return "item:" + s.newest
}
func (f *fakeStrategy) Summarize(s fakeSnapshot) string { return "newest " + s.newest }

// countingStore wraps a MemoryStore and counts saves.
type countingStore struct {
	*storage.MemoryStore
	saves   atomic.Int32
	getErr  error
	saveErr error
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: storage.NewMemoryStore()}
}

func (c *countingStore) Get(link string) (string, bool, error) {
	if c.getErr != nil {
		return "", false, c.getErr
	}
	return c.MemoryStore.Get(link)
}

func (c *countingStore) Save(link, fp string) (string, bool, error) {
	if c.saveErr != nil {
		return "", false, c.saveErr
	}
	c.saves.Add(1)
	return c.MemoryStore.Save(link, fp)
}

func TestClientFirstObservationReportsChange(t *testing.T) {
	store := newCountingStore()
	client := NewClient[fakeSnapshot](&fakeStrategy{snapshot: fakeSnapshot{newest: "a"}}, store, nil)

	evt, err := client.Poll(context.Background(), "link")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if !evt.Changed || evt.Previous != nil || evt.Current != "item:a" {
		t.Fatalf("unexpected event %+v", evt)
	}
	if evt.Provider != "fake" || evt.Summary != "newest a" {
		t.Fatalf("unexpected event metadata %+v", evt)
	}
	if store.saves.Load() != 1 {
		t.Fatalf("expected 1 save, got %d", store.saves.Load())
	}
}

func TestClientUnchangedFingerprintDoesNotMutateStore(t *testing.T) {
	store := newCountingStore()
	strategy := &fakeStrategy{snapshot: fakeSnapshot{newest: "a", noise: 1}}
	client := NewClient[fakeSnapshot](strategy, store, nil)

	if _, err := client.Poll(context.Background(), "link"); err != nil {
		t.Fatalf("first Poll: %v", err)
	}

	// Same newest item, different unrelated field.
	strategy.snapshot = fakeSnapshot{newest: "a", noise: 2}
	evt, err := client.Poll(context.Background(), "link")
	if err != nil {
		t.Fatalf("second Poll: %v", err)
	}
	if evt.Changed {
		t.Fatalf("expected unchanged event, got %+v", evt)
	}
	if evt.PreviousValue() != "item:a" {
		t.Fatalf("Previous = %q", evt.PreviousValue())
	}
	if store.saves.Load() != 1 {
		t.Fatalf("expected store untouched on second poll, saves=%d", store.saves.Load())
	}
}

func TestClientReportsTransition(t *testing.T) {
	store := newCountingStore()
	strategy := &fakeStrategy{snapshot: fakeSnapshot{newest: "a"}}
	client := NewClient[fakeSnapshot](strategy, store, nil)

	if _, err := client.Poll(context.Background(), "link"); err != nil {
		t.Fatalf("first Poll: %v", err)
	}
	strategy.snapshot = fakeSnapshot{newest: "b"}

	evt, err := client.Poll(context.Background(), "link")
	if err != nil {
		t.Fatalf("second Poll: %v", err)
	}
	if !evt.Changed || evt.PreviousValue() != "item:a" || evt.Current != "item:b" {
		t.Fatalf("unexpected event %+v", evt)
	}
	if fp, _, _ := store.Get("link"); fp != "item:b" {
		t.Fatalf("stored fingerprint = %q", fp)
	}
}

func TestClientEmptySnapshotIsChangeExactlyOnce(t *testing.T) {
	store := newCountingStore()
	client := NewClient[fakeSnapshot](&fakeStrategy{}, store, nil)

	evt, err := client.Poll(context.Background(), "link")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if !evt.Changed || evt.Current != EmptyFingerprint || evt.Previous != nil {
		t.Fatalf("expected first empty observation to be a change, got %+v", evt)
	}

	evt, err = client.Poll(context.Background(), "link")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if evt.Changed {
		t.Fatalf("expected second empty observation to be unchanged")
	}
}

func TestClientFetchFailureLeavesStateUntouched(t *testing.T) {
	for _, fetchErr := range []error{ErrNetwork, &StatusError{StatusCode: 404}, ErrDecode} {
		store := newCountingStore()
		_, _, _ = store.MemoryStore.Save("link", "F1")
		client := NewClient[fakeSnapshot](&fakeStrategy{fetchErr: fetchErr}, store, nil)

		_, err := client.Poll(context.Background(), "link")
		if !errors.Is(err, fetchErr) {
			t.Fatalf("expected %v, got %v", fetchErr, err)
		}
		if fp, _, _ := store.Get("link"); fp != "F1" {
			t.Fatalf("fingerprint mutated to %q after %v", fp, fetchErr)
		}
		if store.saves.Load() != 0 {
			t.Fatalf("unexpected save after %v", fetchErr)
		}
	}
}

func TestClientTranslateFailureSkipsFetch(t *testing.T) {
	strategy := &fakeStrategy{translateErr: invalidLink("x", "bad")}
	client := NewClient[fakeSnapshot](strategy, newCountingStore(), nil)

	_, err := client.Poll(context.Background(), "x")
	if !errors.Is(err, ErrInvalidLinkFormat) {
		t.Fatalf("expected ErrInvalidLinkFormat, got %v", err)
	}
	if strategy.fetches.Load() != 0 {
		t.Fatalf("fetch attempted for invalid link")
	}
}

func TestClientCancelledContextDoesNotSave(t *testing.T) {
	store := newCountingStore()
	client := NewClient[fakeSnapshot](&fakeStrategy{snapshot: fakeSnapshot{newest: "a"}}, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Poll(ctx, "link")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if store.saves.Load() != 0 {
		t.Fatalf("store written by cancelled cycle")
	}
}

func TestClientStorageErrorsAreCategorized(t *testing.T) {
	store := newCountingStore()
	store.getErr = errors.New("disk gone")
	client := NewClient[fakeSnapshot](&fakeStrategy{snapshot: fakeSnapshot{newest: "a"}}, store, nil)

	_, err := client.Poll(context.Background(), "link")
	if !errors.Is(err, ErrStorage) || Kind(err) != "storage" {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestClientConcurrentDuplicateDetectionsReportOnce(t *testing.T) {
	store := newCountingStore()
	client := NewClient[fakeSnapshot](&fakeStrategy{snapshot: fakeSnapshot{newest: "a"}}, store, nil)

	const workers = 12
	var (
		wg      sync.WaitGroup
		changed atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			evt, err := client.Poll(context.Background(), "link")
			if err != nil {
				t.Errorf("Poll: %v", err)
				return
			}
			if evt.Changed {
				changed.Add(1)
			}
		}()
	}
	wg.Wait()

	if changed.Load() != 1 {
		t.Fatalf("expected exactly one changed event, got %d", changed.Load())
	}
}

func TestKind(t *testing.T) {
	cases := map[string]error{
		"invalid_link":         invalidLink("x", "bad"),
		"unsupported_provider": ErrUnsupportedProvider,
		"network":              ErrNetwork,
		"provider":             &StatusError{StatusCode: 500},
		"decode":               ErrDecode,
		"unknown":              errors.New("other"),
		"":                     nil,
	}
	for want, err := range cases {
		if got := Kind(err); got != want {
			t.Errorf("Kind(%v) = %q want %q", err, got, want)
		}
	}
}
