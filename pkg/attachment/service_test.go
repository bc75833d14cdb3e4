package attachment

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBlob struct {
	mu      sync.Mutex
	objects map[string]Object
	data    map[string][]byte
}

func newMemoryBlob() *memoryBlob {
	return &memoryBlob{objects: map[string]Object{}, data: map[string][]byte{}}
}

func (m *memoryBlob) Put(_ context.Context, obj Object, data []byte) (*Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj.Size = uint64(len(data))
	m.objects[obj.Name] = obj
	m.data[obj.Name] = append([]byte(nil), data...)
	return &obj, nil
}

func (m *memoryBlob) Info(_ context.Context, name string) (*Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[name]
	if !ok {
		return nil, ErrNotFound
	}
	return &obj, nil
}

func (m *memoryBlob) Open(ctx context.Context, name string) (io.ReadCloser, *Object, error) {
	obj, err := m.Info(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return io.NopCloser(bytes.NewReader(m.data[name])), obj, nil
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestDatedFolder(t *testing.T) {
	at := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "chat/2024-03-09", DatedFolder("chat", at))
	assert.Equal(t, "tasks/2024-03-09", DatedFolder("tasks", at))
	assert.Equal(t, "avatars", DatedFolder("avatars", at))
}

func TestService_UploadAndResolveLinks(t *testing.T) {
	blobs := newMemoryBlob()
	svc := NewService(blobs, "http://chat.test/")
	svc.now = func() time.Time { return time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	id, err := svc.Upload(ctx, "chat", "../../photo.png", pngHeader)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	obj, err := svc.Describe(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "photo.png", obj.FileName)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, "chat/2024-03-09", obj.DatedFolder)

	links, err := svc.ResolveLinks(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, links.WebViewLink)
	require.NotNil(t, links.WebContentLink)
	require.NotNil(t, links.ThumbnailLink)
	assert.Equal(t, "http://chat.test/api/attachments/"+id, *links.WebViewLink)
	assert.Equal(t, "http://chat.test/api/attachments/"+id+"/content", *links.WebContentLink)
}

func TestService_NonImageHasNoThumbnail(t *testing.T) {
	svc := NewService(newMemoryBlob(), "http://chat.test")
	ctx := context.Background()

	id, err := svc.Upload(ctx, "", "notes.txt", []byte("plain text notes"))
	require.NoError(t, err)

	links, err := svc.ResolveLinks(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, links.ThumbnailLink)
	assert.NotNil(t, links.WebViewLink)

	rc, obj, err := svc.Open(ctx, id)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "plain text notes", string(body))
	assert.Equal(t, "chat", obj.Folder)
}

func TestService_MissingAttachment(t *testing.T) {
	svc := NewService(newMemoryBlob(), "http://chat.test")

	_, err := svc.ResolveLinks(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "a.txt", sanitizeFileName("dir\\sub\\a.txt"))
	assert.Equal(t, "attachment", sanitizeFileName("  "))
	assert.Equal(t, "attachment", sanitizeFileName("/"))
}
