// Package report is the Report & Operation Engine: the named reporting
// operations (checksum, diff, recover, verify, compat, health) and the
// write-path operations (repair, defrag, transplant, rebuild) that
// compose every lower layer. Operations never print
// directly; each returns a typed report. No operation takes a progress
// writer or emits progress events while it runs.
package report

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ibdtool/ibdtool/internal/tablespace"
)

// forEachPageParallel iterates every page of ts across a worker pool
// sized to the host's CPU count, invoking fn with each page's number and
// bytes. Results are collected into a page-number-indexed slice so the
// caller's final report order is independent of completion order.
// A cancelled ctx stops new work from starting; workers already
// mid-page finish that page before returning.
func forEachPageParallel[T any](ctx context.Context, ts *tablespace.Tablespace, fn func(n int, buf []byte) (T, error)) ([]T, error) {
	n := ts.PageCount()
	results := make([]T, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i := 0; i < n; i++ {
		pageNum := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			worker, err := ts.Clone()
			if err != nil {
				return err
			}
			defer worker.Close()

			buf, err := worker.ReadPage(pageNum)
			if err != nil {
				return err
			}
			res, err := fn(pageNum, buf)
			if err != nil {
				return err
			}
			results[pageNum] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
