// Package backend delivers folder lifecycle events to the external
// analysis backend.
//
// Delivery is at-most-once and fire-and-forget: implementations are
// invoked from dispatch tasks, and a failed delivery is only corrected
// by the next lifecycle event touching the same folder.
package backend

import (
	"github.com/fyrsmithlabs/workspaced/internal/binding"
)

// Subjects for folder lifecycle events.
const (
	SubjectFolderAdded   = "analysis.folders.added"
	SubjectFolderRemoved = "analysis.folders.removed"
)

// Publisher publishes a payload to a subject. Satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// folderAddedEvent is the payload published when a folder is added.
type folderAddedEvent struct {
	URI     string           `json:"uri"`
	Name    string           `json:"name,omitempty"`
	Binding *binding.Binding `json:"binding,omitempty"`
}

// folderRemovedEvent is the payload published when a folder is removed.
type folderRemovedEvent struct {
	URI string `json:"uri"`
}
