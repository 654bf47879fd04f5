package index

import (
	"sync"
	"testing"
	"time"
)

func waitFinished(t *testing.T, done chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("async build did not finish")
		return nil
	}
}

func TestBuildAsync_ProgressAndCompletion(t *testing.T) {
	dir, s := testStore(t)
	writeDoc(t, dir, "a.md", []string{"title: A", "tags: [x]"}, "")
	writeDoc(t, dir, "b.md", []string{"title: B"}, "")
	writeDoc(t, dir, "c.md", []string{"title: C"}, "")

	var mu sync.Mutex
	type tick struct{ done, total int }
	var ticks []tick
	finished := make(chan error, 1)

	s.BuildAsync(func(done, total int) {
		mu.Lock()
		ticks = append(ticks, tick{done, total})
		mu.Unlock()
	}, func(err error) {
		finished <- err
	})

	if err := waitFinished(t, finished); err != nil {
		t.Fatalf("build failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ticks) != 3 {
		t.Fatalf("progress ticks = %v, want one per file", ticks)
	}
	for i, tk := range ticks {
		if tk.done != i+1 || tk.total != 3 {
			t.Errorf("tick %d = %+v", i, tk)
		}
	}
	if len(s.Entries()) != 3 {
		t.Errorf("entries = %d, want 3", len(s.Entries()))
	}
}

func TestBuildAsync_MatchesSyncBuild(t *testing.T) {
	dir, s := testStore(t)
	writeDoc(t, dir, "a.md", []string{"title: A", "tags: [q, r]"}, "")
	writeDoc(t, dir, "sub/b.md", []string{"title: B", "tags: [q]"}, "")

	finished := make(chan error, 1)
	s.BuildAsync(nil, func(err error) { finished <- err })
	if err := waitFinished(t, finished); err != nil {
		t.Fatal(err)
	}
	rebuildOracle(t, dir, s)
}

func TestBuildAsync_EmptyProjectStillFinishes(t *testing.T) {
	_, s := testStore(t)

	finished := make(chan error, 1)
	s.BuildAsync(func(done, total int) {
		t.Errorf("unexpected progress tick %d/%d for empty project", done, total)
	}, func(err error) {
		finished <- err
	})
	if err := waitFinished(t, finished); err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if len(s.Entries()) != 0 {
		t.Errorf("entries = %d, want 0", len(s.Entries()))
	}
}
