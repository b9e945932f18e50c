// Package binding describes how a workspace folder maps onto a project
// in the analysis backend.
//
// The folder registry never computes bindings itself. It hands a
// Resolver to the backend dispatch task so the backend can look up the
// current binding for any folder on demand.
package binding

import (
	"errors"
	"sync"
)

// Common errors.
var (
	ErrEmptyConnectionID = errors.New("connection ID cannot be empty")
	ErrEmptyProjectKey   = errors.New("project key cannot be empty")
)

// Binding ties a workspace folder to a project on an analysis connection.
type Binding struct {
	// ConnectionID identifies the backend connection the project lives on.
	ConnectionID string `json:"connection_id"`

	// ProjectKey is the project identifier within that connection.
	ProjectKey string `json:"project_key"`
}

// Validate checks that the binding has valid fields.
func (b *Binding) Validate() error {
	if b.ConnectionID == "" {
		return ErrEmptyConnectionID
	}
	if b.ProjectKey == "" {
		return ErrEmptyProjectKey
	}
	return nil
}

// Resolver looks up the current project binding for a folder.
//
// Implementations are queried lazily by backend dispatch tasks, once
// per folder per task. A folder without a binding returns (nil, false).
type Resolver interface {
	Binding(folderURI string) (*Binding, bool)
}

// StaticResolver is a Resolver backed by a fixed in-memory map.
type StaticResolver struct {
	mu       sync.RWMutex
	bindings map[string]*Binding // folder URI -> binding
}

// NewStaticResolver creates a resolver with no bindings.
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{
		bindings: make(map[string]*Binding),
	}
}

// Set stores or replaces the binding for a folder URI.
func (r *StaticResolver) Set(folderURI string, b *Binding) error {
	if err := b.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[folderURI] = b
	return nil
}

// Clear removes the binding for a folder URI, if any.
func (r *StaticResolver) Clear(folderURI string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bindings, folderURI)
}

// Binding implements Resolver.
func (r *StaticResolver) Binding(folderURI string) (*Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bindings[folderURI]
	return b, ok
}
