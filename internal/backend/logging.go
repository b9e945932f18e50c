package backend

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/workspaced/internal/binding"
	"github.com/fyrsmithlabs/workspaced/internal/folders"
)

// LoggingService is a backend that only logs events. Used when no
// analysis backend is configured, so the registry behaves identically
// with and without a live backend.
type LoggingService struct {
	logger *zap.Logger
}

// NewLoggingService creates a log-only backend service.
func NewLoggingService(logger *zap.Logger) *LoggingService {
	return &LoggingService{logger: logger}
}

// AddFolders logs each added folder and its resolved binding.
func (s *LoggingService) AddFolders(ctx context.Context, added []folders.FolderInfo, resolver binding.Resolver) error {
	for _, wf := range added {
		bnd, bound := resolver.Binding(wf.URI)
		fields := []zap.Field{zap.String("uri", wf.URI), zap.Bool("bound", bound)}
		if bound {
			fields = append(fields, zap.String("project_key", bnd.ProjectKey))
		}
		s.logger.Info("workspace folder added (no backend configured)", fields...)
	}
	return nil
}

// RemoveFolder logs the removed folder.
func (s *LoggingService) RemoveFolder(ctx context.Context, folderURI string) error {
	s.logger.Info("workspace folder removed (no backend configured)",
		zap.String("uri", folderURI))
	return nil
}
