// Package folders tracks the workspace folders a development-tooling
// host has opened.
//
// The package owns the authoritative mapping from folder URI to folder
// handle, resolves which folder contains a given file, fans lifecycle
// changes out to in-process listeners, and hands backend propagation to
// the dispatch queue so a slow analysis backend never stalls the host.
package folders

import (
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// ErrOpaqueURI is returned when a non-hierarchical URI is passed to a
// containment check. Only hierarchical URIs identify folders and files.
var ErrOpaqueURI = errors.New("only hierarchical URIs are supported")

// FolderInfo is the descriptor the host sends for one workspace folder.
type FolderInfo struct {
	// URI is the canonical hierarchical identifier of the folder root.
	URI string `json:"uri"`

	// Name is the human-readable label shown by the host.
	Name string `json:"name"`
}

// ChangeEvent is a workspace folder delta from the host.
type ChangeEvent struct {
	Added   []FolderInfo `json:"added"`
	Removed []FolderInfo `json:"removed"`
}

// Folder is the in-memory handle for one registered workspace root.
// Handles are immutable; re-adding a URI stores a fresh handle.
type Folder struct {
	// ID is a unique instance identifier. It changes when a folder is
	// replaced by a re-add of the same URI.
	ID string

	// URI is the canonical folder identifier.
	URI *url.URL

	// Name is the display label from the host.
	Name string

	// AddedAt is when this handle was registered.
	AddedAt time.Time
}

func newFolder(u *url.URL, name string) *Folder {
	return &Folder{
		ID:      uuid.New().String(),
		URI:     u,
		Name:    name,
		AddedAt: time.Now(),
	}
}

// String implements fmt.Stringer.
func (f *Folder) String() string {
	if f.Name == "" {
		return f.URI.String()
	}
	return f.Name + " (" + f.URI.String() + ")"
}

// LocalPath returns the native filesystem path for file-scheme folders.
func (f *Folder) LocalPath() (string, bool) {
	if !hasFileScheme(f.URI) {
		return "", false
	}
	return nativePath(f.URI), true
}

// Info returns the wire-shape descriptor for this handle.
func (f *Folder) Info() FolderInfo {
	return FolderInfo{URI: f.URI.String(), Name: f.Name}
}

// Listener observes folder lifecycle changes. Callbacks run
// synchronously on the mutating goroutine, in registration order.
type Listener interface {
	FolderAdded(f *Folder)
	FolderRemoved(f *Folder)
}

// Module describes one registered folder as an analysis module.
type Module struct {
	// Key is the module key presented to analysis engines.
	Key string `json:"key"`

	// URI is the folder root.
	URI string `json:"uri"`
}
