package backend

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/workspaced/internal/binding"
	"github.com/fyrsmithlabs/workspaced/internal/folders"
	"github.com/fyrsmithlabs/workspaced/internal/logging"
)

var (
	_ folders.BackendService = (*NATSService)(nil)
	_ folders.BackendService = (*LoggingService)(nil)
)

// fakePublisher records published messages.
type fakePublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return nil
}

func TestNATSService_AddFolders(t *testing.T) {
	pub := &fakePublisher{}
	resolver := binding.NewStaticResolver()
	require.NoError(t, resolver.Set("file:///a", &binding.Binding{ConnectionID: "sq", ProjectKey: "proj-a"}))
	svc := NewNATSService(pub, logging.NewTestLogger().Logger)

	err := svc.AddFolders(context.Background(), []folders.FolderInfo{
		{URI: "file:///a", Name: "a"},
		{URI: "file:///b", Name: "b"},
	}, resolver)
	require.NoError(t, err)

	require.Equal(t, []string{SubjectFolderAdded, SubjectFolderAdded}, pub.subjects)

	var first folderAddedEvent
	require.NoError(t, json.Unmarshal(pub.payloads[0], &first))
	assert.Equal(t, "file:///a", first.URI)
	require.NotNil(t, first.Binding)
	assert.Equal(t, "proj-a", first.Binding.ProjectKey)

	var second folderAddedEvent
	require.NoError(t, json.Unmarshal(pub.payloads[1], &second))
	assert.Equal(t, "file:///b", second.URI)
	assert.Nil(t, second.Binding, "unbound folder publishes without binding")
}

func TestNATSService_RemoveFolder(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewNATSService(pub, logging.NewTestLogger().Logger)

	require.NoError(t, svc.RemoveFolder(context.Background(), "file:///a"))

	require.Equal(t, []string{SubjectFolderRemoved}, pub.subjects)
	var event folderRemovedEvent
	require.NoError(t, json.Unmarshal(pub.payloads[0], &event))
	assert.Equal(t, "file:///a", event.URI)
}

func TestNATSService_PublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("connection lost")}
	svc := NewNATSService(pub, logging.NewTestLogger().Logger)

	err := svc.AddFolders(context.Background(), []folders.FolderInfo{{URI: "file:///a"}}, binding.NewStaticResolver())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file:///a")

	err = svc.RemoveFolder(context.Background(), "file:///a")
	require.Error(t, err)
}

func TestNATSService_CancelledContext(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewNATSService(pub, logging.NewTestLogger().Logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.AddFolders(ctx, []folders.FolderInfo{{URI: "file:///a"}}, binding.NewStaticResolver())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, pub.subjects)
}

func TestLoggingService(t *testing.T) {
	tl := logging.NewTestLogger()
	svc := NewLoggingService(tl.Logger)

	require.NoError(t, svc.AddFolders(context.Background(), []folders.FolderInfo{{URI: "file:///a"}}, binding.NewStaticResolver()))
	require.NoError(t, svc.RemoveFolder(context.Background(), "file:///a"))

	assert.Equal(t, 1, tl.FilterMessage("workspace folder added (no backend configured)").Len())
	assert.Equal(t, 1, tl.FilterMessage("workspace folder removed (no backend configured)").Len())
}
