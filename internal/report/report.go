package report

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Report accumulates per-run outcomes of a strip run. One Report is
// created per invocation and threaded through the pipeline; there is
// no shared global state.
type Report struct {
	FilesFound     int64
	FilesProcessed int64
	FilesStripped  int64
	FilesSkipped   int64
	FilesFailed    int64
	FilesPlanned   int64

	BackupsCreated   int64
	FilesOptimized   int64
	OptimizeWarnings int64
	FilesWithEXIF    int64

	DirectoriesScanned int64
	DirectoriesCreated int64

	BytesIn      int64
	BytesOut     int64
	BytesRemoved int64

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Errors []FileError

	mutex sync.RWMutex

	FileTypeStats map[string]int64
}

// FileError records a per-file failure that did not abort the batch.
type FileError struct {
	FilePath  string
	Operation string
	Error     string
	Timestamp time.Time
}

// New returns an empty Report with the start time set.
func New() *Report {
	return &Report{
		StartTime:     time.Now(),
		FileTypeStats: make(map[string]int64),
		Errors:        make([]FileError, 0),
	}
}

// IncrementFilesFound increases the count of discovered files by 1.
func (r *Report) IncrementFilesFound() {
	atomic.AddInt64(&r.FilesFound, 1)
}

// IncrementFilesProcessed increases the count of processed files by 1.
func (r *Report) IncrementFilesProcessed() {
	atomic.AddInt64(&r.FilesProcessed, 1)
}

// IncrementFilesStripped increases the count of files written with
// metadata removed by 1.
func (r *Report) IncrementFilesStripped() {
	atomic.AddInt64(&r.FilesStripped, 1)
}

// IncrementFilesSkipped increases the count of unsupported files by 1.
func (r *Report) IncrementFilesSkipped() {
	atomic.AddInt64(&r.FilesSkipped, 1)
}

// IncrementFilesFailed increases the count of failed files by 1.
func (r *Report) IncrementFilesFailed() {
	atomic.AddInt64(&r.FilesFailed, 1)
}

// IncrementFilesPlanned increases the count of dry-run planned files by 1.
func (r *Report) IncrementFilesPlanned() {
	atomic.AddInt64(&r.FilesPlanned, 1)
}

// IncrementBackupsCreated increases the count of backups written by 1.
func (r *Report) IncrementBackupsCreated() {
	atomic.AddInt64(&r.BackupsCreated, 1)
}

// IncrementFilesOptimized increases the count of recompressed files by 1.
func (r *Report) IncrementFilesOptimized() {
	atomic.AddInt64(&r.FilesOptimized, 1)
}

// IncrementOptimizeWarnings increases the count of recompressor
// failures by 1. These files still count as successfully processed.
func (r *Report) IncrementOptimizeWarnings() {
	atomic.AddInt64(&r.OptimizeWarnings, 1)
}

// IncrementFilesWithEXIF increases the count of sources that carried
// EXIF metadata by 1.
func (r *Report) IncrementFilesWithEXIF() {
	atomic.AddInt64(&r.FilesWithEXIF, 1)
}

// IncrementDirectoriesScanned increases the count of scanned directories by 1.
func (r *Report) IncrementDirectoriesScanned() {
	atomic.AddInt64(&r.DirectoriesScanned, 1)
}

// IncrementDirectoriesCreated increases the count of created directories by 1.
func (r *Report) IncrementDirectoriesCreated() {
	atomic.AddInt64(&r.DirectoriesCreated, 1)
}

// IncrementFileType increases the count for a specific file type by 1.
func (r *Report) IncrementFileType(fileType string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.FileTypeStats[fileType]++
}

// AddBytes records the input and output sizes of one stripped file.
func (r *Report) AddBytes(in, out int64) {
	atomic.AddInt64(&r.BytesIn, in)
	atomic.AddInt64(&r.BytesOut, out)
	if in > out {
		atomic.AddInt64(&r.BytesRemoved, in-out)
	}
}

// AddError records a per-file error.
func (r *Report) AddError(filePath, operation, errorMsg string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.Errors = append(r.Errors, FileError{
		FilePath:  filePath,
		Operation: operation,
		Error:     errorMsg,
		Timestamp: time.Now(),
	})
}

// Finalize computes the run duration.
func (r *Report) Finalize() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
}

// HasFailures reports whether any file failed to process. Skips and
// optimize warnings do not count.
func (r *Report) HasFailures() bool {
	return atomic.LoadInt64(&r.FilesFailed) > 0
}

// GetFilesFailed returns the number of failed files.
func (r *Report) GetFilesFailed() int64 {
	return atomic.LoadInt64(&r.FilesFailed)
}

// GetFilesStripped returns the number of files written.
func (r *Report) GetFilesStripped() int64 {
	return atomic.LoadInt64(&r.FilesStripped)
}

// GetFilesSkipped returns the number of unsupported files skipped.
func (r *Report) GetFilesSkipped() int64 {
	return atomic.LoadInt64(&r.FilesSkipped)
}

// Summary returns a formatted summary of the run.
func (r *Report) Summary() string {
	r.mutex.RLock()
	duration := r.Duration
	r.mutex.RUnlock()

	return fmt.Sprintf(`Metazap Run Summary:

Files:
		Found: %d
		Processed: %d
		Stripped: %d
		Planned (dry-run): %d
		Skipped (unsupported): %d
		Failed: %d
		Had EXIF: %d

Writes:
		Backups Created: %d
		Optimized: %d
		Optimize Warnings: %d

Bytes:
		Read: %s
		Written: %s
		Metadata Removed: %s

Directories:
		Scanned: %d
		Created: %d

Duration: %v`,
		atomic.LoadInt64(&r.FilesFound),
		atomic.LoadInt64(&r.FilesProcessed),
		atomic.LoadInt64(&r.FilesStripped),
		atomic.LoadInt64(&r.FilesPlanned),
		atomic.LoadInt64(&r.FilesSkipped),
		atomic.LoadInt64(&r.FilesFailed),
		atomic.LoadInt64(&r.FilesWithEXIF),
		atomic.LoadInt64(&r.BackupsCreated),
		atomic.LoadInt64(&r.FilesOptimized),
		atomic.LoadInt64(&r.OptimizeWarnings),
		formatBytes(atomic.LoadInt64(&r.BytesIn)),
		formatBytes(atomic.LoadInt64(&r.BytesOut)),
		formatBytes(atomic.LoadInt64(&r.BytesRemoved)),
		atomic.LoadInt64(&r.DirectoriesScanned),
		atomic.LoadInt64(&r.DirectoriesCreated),
		duration)
}

// FileTypeBreakdown returns a formatted breakdown of file types found.
func (r *Report) FileTypeBreakdown() string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if len(r.FileTypeStats) == 0 {
		return "No file type statistics available"
	}

	result := "File Type Breakdown:\n"
	for fileType, count := range r.FileTypeStats {
		result += fmt.Sprintf("  %s: %d\n", fileType, count)
	}
	return result
}

// ErrorSummary returns a summary of per-file errors, capped at ten.
func (r *Report) ErrorSummary() string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if len(r.Errors) == 0 {
		return "No errors occurred during processing"
	}

	result := fmt.Sprintf("Errors (%d total):\n", len(r.Errors))
	for i, err := range r.Errors {
		if i >= 10 {
			result += fmt.Sprintf("  ... and %d more errors\n", len(r.Errors)-10)
			break
		}
		result += fmt.Sprintf("  [%s] %s: %s - %s\n",
			err.Timestamp.Format("15:04:05"),
			err.Operation,
			err.FilePath,
			err.Error)
	}
	return result
}

// formatBytes returns a human-readable string for a byte count.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
