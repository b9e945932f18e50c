package walker

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// FileType buckets files for analysis.
type FileType int

const (
	// Source is production code.
	Source FileType = iota
	// Test is test code.
	Test
)

// InputFile describes one file found under a folder root.
type InputFile struct {
	// Path is the absolute filesystem path.
	Path string

	// RelPath is the slash-separated path relative to the folder root.
	RelPath string

	// Language is the language suffix the file matched.
	Language string

	// Type is the classification bucket.
	Type FileType
}

// Walker walks one workspace folder's base directory.
type Walker struct {
	baseDir    string
	classifier *Classifier
	logger     *zap.Logger
}

// New creates a walker rooted at baseDir.
func New(baseDir string, classifier *Classifier, logger *zap.Logger) *Walker {
	return &Walker{
		baseDir:    baseDir,
		classifier: classifier,
		logger:     logger,
	}
}

// Walk yields every file under the root whose name ends in
// "."+language and whose classification matches typ. Unreadable
// directory entries are logged and skipped, not fatal. Walking stops
// early when ctx is cancelled.
func (w *Walker) Walk(ctx context.Context, language string, typ FileType, consumer func(InputFile)) error {
	suffix := "." + language
	return filepath.WalkDir(w.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("skipping unreadable path",
				zap.String("path", path), zap.Error(err))
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, suffix) {
			return nil
		}

		rel, err := filepath.Rel(w.baseDir, path)
		if err != nil {
			w.logger.Warn("skipping file outside base directory",
				zap.String("path", path), zap.Error(err))
			return nil
		}
		rel = filepath.ToSlash(rel)

		fileType := Source
		if w.classifier.IsTest(rel) {
			fileType = Test
		}
		if fileType != typ {
			return nil
		}

		consumer(InputFile{
			Path:     path,
			RelPath:  rel,
			Language: language,
			Type:     fileType,
		})
		return nil
	})
}
