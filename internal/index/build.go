package index

// ProgressFunc receives the aggregate done/total fraction after each file
// of an asynchronous rebuild completes.
type ProgressFunc func(done, total int)

// FinishedFunc is invoked exactly once when an asynchronous rebuild ends,
// with the build error if the scan failed. It always fires, so a caller's
// "busy" UI state can never hang.
type FinishedFunc func(err error)

// BuildAsync runs a full rebuild on a background goroutine so the caller is
// never blocked. Both callbacks are invoked on the worker goroutine; a
// caller with an event loop is responsible for marshalling onto it.
func (s *Store) BuildAsync(onProgress ProgressFunc, onFinished FinishedFunc) {
	go func() {
		var err error
		defer func() {
			if onFinished != nil {
				onFinished(err)
			}
		}()
		err = s.buildWithProgress(onProgress)
	}()
}

func (s *Store) buildWithProgress(onProgress ProgressFunc) error {
	paths, err := s.fs.ListMarkdown("")
	if err != nil {
		return err
	}

	// Stage the scan off-lock; only the final state swap competes with
	// incremental mutations.
	entries := s.scan(paths, onProgress)

	s.mu.Lock()
	s.entries = entries
	s.recountLocked()
	s.persistLocked()
	s.mu.Unlock()

	s.emit(EventRebuilt, "")
	return nil
}
