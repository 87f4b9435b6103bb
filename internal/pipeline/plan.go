package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fibnas/metazap/internal/detect"
)

// Entry describes one discovered image and the work planned for it.
// Entries are computed once during discovery and are immutable.
type Entry struct {
	SourcePath  string
	RelPath     string
	Type        detect.FileType
	Size        int64
	DestPath    string
	NeedsBackup bool
	Optimize    bool
}

// discover walks the input directory and returns a planned entry per
// supported file. Enumeration order is filesystem order. Unsupported
// files are recorded as skipped and never planned.
func (p *Pipeline) discover() ([]Entry, error) {
	root := p.config.InputDirectory
	var entries []Entry

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			p.logger.Warnf("Error accessing path %s: %v", path, err)
			return nil
		}

		if info.IsDir() {
			p.report.IncrementDirectoriesScanned()
			if !p.config.Recursive && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		ft := detect.ByExtension(path)
		if !ft.IsSupported() {
			p.logger.Debugf("Skipping unsupported file: %s", path)
			p.report.IncrementFilesSkipped()
			return nil
		}

		entry, err := p.plan(path, info, ft)
		if err != nil {
			p.logger.Errorf("Could not plan %s: %v", path, err)
			p.report.IncrementFilesFailed()
			p.report.AddError(path, "plan", err.Error())
			return nil
		}

		entries = append(entries, entry)
		p.report.IncrementFilesFound()
		p.report.IncrementFileType(ft.String())

		if p.config.Processing.MaxFilesPerRun > 0 && len(entries) >= p.config.Processing.MaxFilesPerRun {
			p.logger.Infof("Reached maximum files limit (%d), stopping discovery", p.config.Processing.MaxFilesPerRun)
			return filepath.SkipAll
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk input directory: %w", err)
	}

	return entries, nil
}

// plan computes the destination path and per-file options. Exactly one
// destination is computed per source file.
func (p *Pipeline) plan(path string, info os.FileInfo, ft detect.FileType) (Entry, error) {
	rel, err := filepath.Rel(p.config.InputDirectory, path)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to compute relative path: %w", err)
	}

	dest := path
	if !p.config.IsInPlace() {
		dest = filepath.Join(p.config.GetOutputDirectory(), rel)
	}

	return Entry{
		SourcePath:  path,
		RelPath:     rel,
		Type:        ft,
		Size:        info.Size(),
		DestPath:    dest,
		NeedsBackup: p.config.IsInPlace() && p.config.Processing.CreateBackups,
		Optimize:    ft == detect.TypePNG && p.config.Optimizer.Enabled,
	}, nil
}

// backupPath returns the sibling backup path for an in-place target,
// photo.jpg becoming photo.bak.jpg.
func backupPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".bak" + ext
}
