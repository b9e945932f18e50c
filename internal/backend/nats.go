package backend

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/workspaced/internal/binding"
	"github.com/fyrsmithlabs/workspaced/internal/folders"
)

// NATSService publishes folder lifecycle events to NATS subjects.
//
// Events are published to:
//   - analysis.folders.added   (one event per added folder)
//   - analysis.folders.removed (one event per removed folder)
type NATSService struct {
	pub    Publisher
	logger *zap.Logger
}

// NewNATSService creates a backend service over a NATS connection.
func NewNATSService(pub Publisher, logger *zap.Logger) *NATSService {
	return &NATSService{
		pub:    pub,
		logger: logger,
	}
}

// AddFolders publishes one added event per folder, resolving the
// project binding for each at publish time.
func (s *NATSService) AddFolders(ctx context.Context, added []folders.FolderInfo, resolver binding.Resolver) error {
	for _, wf := range added {
		if err := ctx.Err(); err != nil {
			return err
		}

		event := folderAddedEvent{URI: wf.URI, Name: wf.Name}
		if bnd, ok := resolver.Binding(wf.URI); ok {
			event.Binding = bnd
		}

		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal folder added event: %w", err)
		}
		if err := s.pub.Publish(SubjectFolderAdded, data); err != nil {
			return fmt.Errorf("publish folder added event for %s: %w", wf.URI, err)
		}

		s.logger.Debug("published folder added event",
			zap.String("uri", wf.URI),
			zap.Bool("bound", event.Binding != nil))
	}
	return nil
}

// RemoveFolder publishes a removed event for the folder URI.
func (s *NATSService) RemoveFolder(ctx context.Context, folderURI string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(folderRemovedEvent{URI: folderURI})
	if err != nil {
		return fmt.Errorf("marshal folder removed event: %w", err)
	}
	if err := s.pub.Publish(SubjectFolderRemoved, data); err != nil {
		return fmt.Errorf("publish folder removed event for %s: %w", folderURI, err)
	}

	s.logger.Debug("published folder removed event", zap.String("uri", folderURI))
	return nil
}
