package scrub

import (
	"context"

	"golang.org/x/sync/errgroup"

	"photoscrub/core"
)

// Batch scrubs items sequentially. The result has exactly one entry per
// input in input order; failed items keep their original bytes and are
// listed in Failed.
func Batch(items [][]byte) *core.BatchResult {
	results := make([]core.StripResult, len(items))
	for i, data := range items {
		results[i] = *Strip(data)
	}
	return assembleBatch(results)
}

// BatchContext scrubs items with up to workers goroutines. Results keep
// input order. Once ctx is cancelled the remaining items fail with the
// context error instead of being scrubbed.
func BatchContext(ctx context.Context, items [][]byte, workers int) *core.BatchResult {
	if workers < 1 {
		workers = 1
	}
	results := make([]core.StripResult, len(items))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, data := range items {
		i, data := i, data // per-iteration copies; go directive predates 1.22 loopvar scoping
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = core.StripResult{
					Data:   data,
					Format: core.DetectFormat(data),
					Err:    err,
				}
				return nil
			}
			results[i] = *Strip(data)
			return nil
		})
	}
	g.Wait()
	return assembleBatch(results)
}

func assembleBatch(results []core.StripResult) *core.BatchResult {
	b := &core.BatchResult{Items: results}
	analyses := make([]core.PrivacyAnalysis, 0, len(results))
	for i := range results {
		analyses = append(analyses, results[i].Analysis)
		if !results[i].Clean {
			b.Failed = append(b.Failed, i)
		}
	}
	b.Overall = core.MergeAnalyses(analyses...)
	return b
}
