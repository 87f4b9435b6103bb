package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fibnas/metazap/internal/config"
	"github.com/fibnas/metazap/internal/detect"
	"github.com/fibnas/metazap/internal/logger"
	"github.com/fibnas/metazap/internal/optimizer"
	"github.com/fibnas/metazap/internal/report"
	"github.com/fibnas/metazap/internal/stripper"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/sirupsen/logrus"
)

// LogHookFunc forwards per-file log lines to an external consumer,
// for example the web interface.
type LogHookFunc func(level, message string)

// Pipeline strips metadata from every supported image under the input
// directory. Files are processed sequentially and independently; the
// only state shared across files is the run report.
type Pipeline struct {
	config       *config.Config
	logger       *logrus.Logger
	report       *report.Report
	stripper     stripper.Stripper
	recompressor optimizer.Recompressor

	logHook LogHookFunc
}

// New returns a new Pipeline.
func New(
	cfg *config.Config,
	logger *logrus.Logger,
	rep *report.Report,
	s stripper.Stripper,
	rc optimizer.Recompressor,
) *Pipeline {
	return NewWithLogHook(cfg, logger, rep, s, rc, nil)
}

// NewWithLogHook returns a Pipeline that also forwards log lines to
// the given hook.
func NewWithLogHook(
	cfg *config.Config,
	logger *logrus.Logger,
	rep *report.Report,
	s stripper.Stripper,
	rc optimizer.Recompressor,
	logHook LogHookFunc,
) *Pipeline {
	return &Pipeline{
		config:       cfg,
		logger:       logger,
		report:       rep,
		stripper:     s,
		recompressor: rc,
		logHook:      logHook,
	}
}

// Run processes all files under the input directory. Per-file errors
// are recorded in the report and do not abort the batch; only a missing
// input root or a cancelled context is returned as an error.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.config.ValidateInput(); err != nil {
		return err
	}

	p.logger.Info("Starting metadata strip run")

	entries, err := p.discover()
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		p.logger.Info("No supported image files found")
		p.report.Finalize()
		return nil
	}

	p.logger.Infof("Found %d image files to process", len(entries))

	if p.config.Processing.DryRun {
		p.logger.Info("Running in dry-run mode - no files will be modified")
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			p.report.Finalize()
			return err
		}
		p.processEntry(ctx, entry)
	}

	p.report.Finalize()
	p.logger.Info("Metadata strip run completed")
	return nil
}

// Scan discovers and plans without processing anything. Used by the
// scan subcommand and the web interface.
func (p *Pipeline) Scan(ctx context.Context) ([]Entry, error) {
	if err := p.config.ValidateInput(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := p.discover()
	if err != nil {
		return nil, err
	}
	p.report.Finalize()
	return entries, nil
}

// processEntry runs one file through strip, backup, write and optimize.
func (p *Pipeline) processEntry(ctx context.Context, entry Entry) {
	logger.WithFile(p.logger, entry.SourcePath).Debug("Processing file")
	p.report.IncrementFilesProcessed()

	data, err := os.ReadFile(entry.SourcePath)
	if err != nil {
		p.fail(entry, "read", err)
		return
	}

	if !detect.Matches(data, entry.Type) {
		p.fail(entry, "detect", fmt.Errorf("%w: contents do not match %s extension", stripper.ErrCorrupt, entry.Type))
		return
	}

	if entry.Type == detect.TypeJPEG && hasEXIF(data) {
		p.report.IncrementFilesWithEXIF()
	}

	cleaned, err := p.stripper.Strip(data, entry.Type)
	if err != nil {
		p.fail(entry, "strip", err)
		return
	}

	if p.config.Processing.VerifyDecode {
		if _, err := imaging.Decode(bytes.NewReader(cleaned)); err != nil {
			p.fail(entry, "verify", fmt.Errorf("stripped output does not decode: %w", err))
			return
		}
	}

	if p.config.Processing.DryRun {
		p.reportPlan(entry)
		return
	}

	if err := p.write(entry, data, cleaned); err != nil {
		p.fail(entry, "write", err)
		return
	}

	p.report.AddBytes(int64(len(data)), int64(len(cleaned)))
	p.report.IncrementFilesStripped()
	p.emit("info", fmt.Sprintf("Zapped: %s -> %s", entry.SourcePath, entry.DestPath))

	if entry.Optimize {
		p.optimize(ctx, entry)
	}
}

// write persists the cleaned bytes, creating the backup first when one
// is required. The destination receives either the full stripped bytes
// or nothing: the write goes to a temp file which is renamed over the
// destination.
func (p *Pipeline) write(entry Entry, original, cleaned []byte) error {
	destDir := filepath.Dir(entry.DestPath)
	if err := p.createDirectory(destDir); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", destDir, err)
	}

	if entry.NeedsBackup {
		if err := p.writeBackup(entry, original); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
		p.report.IncrementBackupsCreated()
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(entry.SourcePath); err == nil {
		mode = info.Mode()
	}

	tmpPath := entry.DestPath + ".tmp"
	if err := writeFileSync(tmpPath, cleaned, mode); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, entry.DestPath); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// writeBackup copies the original bytes next to the source. The backup
// is durably written before the destination is touched.
func (p *Pipeline) writeBackup(entry Entry, original []byte) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(entry.SourcePath); err == nil {
		mode = info.Mode()
	}

	bak := backupPath(entry.SourcePath)
	if err := writeFileSync(bak, original, mode); err != nil {
		return err
	}
	p.logger.Debugf("Created backup: %s", bak)
	return nil
}

// optimize invokes the external recompressor on the written file.
// Failure is a warning: the stripped file remains the valid output.
func (p *Pipeline) optimize(ctx context.Context, entry Entry) {
	res := p.recompressor.Optimize(ctx, entry.DestPath)
	if res.Err != nil {
		p.emit("warning", fmt.Sprintf("Optimizer failed for %s: %v", entry.DestPath, res.Err))
		p.report.IncrementOptimizeWarnings()
		return
	}

	p.report.IncrementFilesOptimized()
	if res.SizeBefore > 0 && res.SizeAfter > 0 {
		p.logger.Debugf("Optimized %s: %d -> %d bytes", entry.DestPath, res.SizeBefore, res.SizeAfter)
	}
}

// reportPlan logs what would happen to a file in dry-run mode.
func (p *Pipeline) reportPlan(entry Entry) {
	msg := fmt.Sprintf("DRY-RUN: Would strip %s -> %s", entry.SourcePath, entry.DestPath)
	if entry.NeedsBackup {
		msg += fmt.Sprintf(" (backup to %s)", backupPath(entry.SourcePath))
	}
	if entry.Optimize {
		msg += " (then optimize)"
	}
	p.emit("info", msg)
	p.report.IncrementFilesPlanned()
}

// fail records a per-file failure and continues the batch.
func (p *Pipeline) fail(entry Entry, operation string, err error) {
	logger.WithFileOperation(p.logger, entry.SourcePath, operation).Errorf("Error zapping file: %v", err)
	if p.logHook != nil {
		p.logHook("error", fmt.Sprintf("Error zapping %s: %v", entry.SourcePath, err))
	}
	p.report.IncrementFilesFailed()
	p.report.AddError(entry.SourcePath, operation, err.Error())
}

// createDirectory creates a directory and its parents if they do not exist.
func (p *Pipeline) createDirectory(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		if err := os.MkdirAll(dirPath, 0755); err != nil {
			return err
		}
		p.report.IncrementDirectoriesCreated()
		p.logger.Debugf("Created directory: %s", dirPath)
	}
	return nil
}

// emit logs a message and forwards it to the log hook when one is set.
func (p *Pipeline) emit(level, msg string) {
	switch level {
	case "error":
		p.logger.Error(msg)
	case "warning":
		p.logger.Warn(msg)
	default:
		p.logger.Info(msg)
	}
	if p.logHook != nil {
		p.logHook(level, msg)
	}
}

// hasEXIF reports whether a JPEG byte stream carries decodable EXIF.
func hasEXIF(data []byte) bool {
	_, err := exif.Decode(bytes.NewReader(data))
	return err == nil
}

// writeFileSync writes data to path and fsyncs it before closing.
func writeFileSync(path string, data []byte, mode os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
