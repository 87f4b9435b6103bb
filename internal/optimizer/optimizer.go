package optimizer

import (
	"context"
	"time"
)

// Result describes the outcome of recompressing a single file.
type Result struct {
	Path       string
	SizeBefore int64
	SizeAfter  int64
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

// Recompressor rewrites a written PNG file in place for smaller size.
// Failure leaves the file untouched; the stripped-but-not-recompressed
// file remains the valid output.
type Recompressor interface {
	Optimize(ctx context.Context, path string) Result
}
