package inspect

import (
	"fmt"
	"os"
	"sort"

	"github.com/fibnas/metazap/internal/detect"

	"github.com/barasher/go-exiftool"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
	"github.com/sirupsen/logrus"
)

// Field is one metadata key/value pair read from a file.
type Field struct {
	Key   string
	Value string
}

// Inspector reads metadata from a single image file. It prefers the
// external exiftool binary and falls back to the built-in EXIF reader
// for JPEGs when exiftool is not installed.
type Inspector struct {
	logger *logrus.Logger
}

// NewInspector returns a new Inspector.
func NewInspector(logger *logrus.Logger) *Inspector {
	return &Inspector{logger: logger}
}

// Inspect returns the metadata fields of the given file, sorted by key.
func (i *Inspector) Inspect(path string) ([]Field, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("file does not exist: %s", path)
	}

	ft := detect.ByExtension(path)
	if !ft.IsSupported() {
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}

	fields, err := i.viaExiftool(path)
	if err == nil {
		return fields, nil
	}
	i.logger.Debugf("exiftool unavailable for %s, falling back to goexif: %v", path, err)

	if ft == detect.TypeJPEG {
		return i.viaGoexif(path)
	}
	return nil, fmt.Errorf("no metadata reader available for %s: %w", path, err)
}

// viaExiftool reads metadata through the external exiftool binary.
func (i *Inspector) viaExiftool(path string) ([]Field, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, err
	}
	defer et.Close()

	metas := et.ExtractMetadata(path)
	if len(metas) == 0 {
		return nil, fmt.Errorf("exiftool returned no metadata for %s", path)
	}
	if metas[0].Err != nil {
		return nil, metas[0].Err
	}

	fields := make([]Field, 0, len(metas[0].Fields))
	for key, value := range metas[0].Fields {
		fields = append(fields, Field{Key: key, Value: fmt.Sprintf("%v", value)})
	}
	sortFields(fields)
	return fields, nil
}

// viaGoexif reads JPEG EXIF with the built-in decoder.
func (i *Inspector) viaGoexif(path string) ([]Field, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode EXIF: %w", err)
	}

	w := &fieldWalker{}
	if err := x.Walk(w); err != nil {
		return nil, err
	}
	sortFields(w.fields)
	return w.fields, nil
}

type fieldWalker struct {
	fields []Field
}

func (w *fieldWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	val := tag.String()
	if len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"' {
		val = val[1 : len(val)-1]
	}
	w.fields = append(w.fields, Field{Key: string(name), Value: val})
	return nil
}

func sortFields(fields []Field) {
	sort.Slice(fields, func(a, b int) bool {
		return fields[a].Key < fields[b].Key
	})
}
