package embed

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchWorkers is the number of batches embedded concurrently.
const DefaultBatchWorkers = 2

// EmbedAll embeds texts in batches of batchSize, running up to workers
// batches at once. Results keep input order. The first failing batch
// cancels the rest.
func EmbedAll(ctx context.Context, e Embedder, texts []string, batchSize, workers int) ([][]float32, error) {
	if batchSize < MinBatchSize {
		batchSize = DefaultBatchSize
	}
	batchSize = min(batchSize, MaxBatchSize)
	if workers < 1 {
		workers = DefaultBatchWorkers
	}

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		g.Go(func() error {
			vecs, err := e.EmbedBatch(gctx, texts[start:end])
			if err != nil {
				return err
			}
			if len(vecs) != end-start {
				return fmt.Errorf("batch %d-%d: got %d vectors", start, end, len(vecs))
			}
			copy(out[start:end], vecs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
