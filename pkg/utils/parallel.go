package utils

import "golang.org/x/sync/errgroup"

// ParallelFor runs f(0), f(1), ..., f(n-1), each in its own goroutine,
// and waits for all of them to finish. f returns nothing, so a panic is
// the only failure signal; f is expected to call Fatal itself on
// unrecoverable conditions the way the rest of this package does.
// ICF's propagation round uses it for its per-section digest
// recomputation: each section's new digest depends only on the previous
// round's digests, so the work-stealing the original pipeline describes
// is just an unordered parallel loop in Go.
func ParallelFor(n int, f func(i int)) {
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			f(i)
			return nil
		})
	}
	_ = g.Wait()
}
