package disasm

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DecodeBatch decodes independent code buffers in parallel. Results are in
// the order of codes. At most workers buffers are decoded at once; workers <= 0
// means no limit. Cancellation is observed before each buffer starts.
func DecodeBatch(ctx context.Context, codes [][]byte, workers int) ([]Stream, error) {
	streams := make([]Stream, len(codes))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, code := range codes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			streams[i] = Decode(code)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return streams, nil
}
