package attachment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

var ErrNotFound = errors.New("attachment not found")

const (
	metaFolder      = "folder"
	metaDatedFolder = "dated-folder"
	metaFileName    = "file-name"
)

// Object describes one stored attachment.
type Object struct {
	Name        string
	FileName    string
	ContentType string
	Folder      string
	DatedFolder string
	Size        uint64
	ModTime     time.Time
}

// Blob is the raw byte store behind the attachment service.
type Blob interface {
	Put(ctx context.Context, obj Object, data []byte) (*Object, error)
	Info(ctx context.Context, name string) (*Object, error)
	Open(ctx context.Context, name string) (io.ReadCloser, *Object, error)
}

// getContentType extracts Content-Type from headers with a default fallback.
func getContentType(headers nats.Header) string {
	if headers != nil {
		if ct := headers.Get("Content-Type"); ct != "" {
			return ct
		}
	}
	return "application/octet-stream"
}

func objectFromInfo(info *jetstream.ObjectInfo) *Object {
	return &Object{
		Name:        info.Name,
		FileName:    info.Metadata[metaFileName],
		ContentType: getContentType(info.Headers),
		Folder:      info.Metadata[metaFolder],
		DatedFolder: info.Metadata[metaDatedFolder],
		Size:        info.Size,
		ModTime:     info.ModTime,
	}
}

// JetStreamBlob stores attachments in a NATS JetStream object store bucket.
type JetStreamBlob struct {
	store jetstream.ObjectStore
}

// NewJetStreamBlob opens the bucket, creating it when missing.
func NewJetStreamBlob(ctx context.Context, js jetstream.JetStream, bucket string) (*JetStreamBlob, error) {
	store, err := js.ObjectStore(ctx, bucket)
	if err == nil {
		return &JetStreamBlob{store: store}, nil
	}

	store, err = js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:      bucket,
		Description: "Chat attachments",
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store bucket: %w", err)
	}
	return &JetStreamBlob{store: store}, nil
}

func (b *JetStreamBlob) Put(ctx context.Context, obj Object, data []byte) (*Object, error) {
	meta := jetstream.ObjectMeta{
		Name: obj.Name,
		Headers: nats.Header{
			"Content-Type": []string{obj.ContentType},
		},
		Metadata: map[string]string{
			metaFolder:      obj.Folder,
			metaDatedFolder: obj.DatedFolder,
			metaFileName:    obj.FileName,
		},
	}

	info, err := b.store.Put(ctx, meta, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to store object: %w", err)
	}
	return objectFromInfo(info), nil
}

func (b *JetStreamBlob) Info(ctx context.Context, name string) (*Object, error) {
	info, err := b.store.GetInfo(ctx, name)
	if err != nil {
		if errors.Is(err, jetstream.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to get object info: %w", err)
	}
	return objectFromInfo(info), nil
}

func (b *JetStreamBlob) Open(ctx context.Context, name string) (io.ReadCloser, *Object, error) {
	result, err := b.store.Get(ctx, name)
	if err != nil {
		if errors.Is(err, jetstream.ErrObjectNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, nil, fmt.Errorf("failed to get object: %w", err)
	}

	info, err := result.Info()
	if err != nil {
		result.Close()
		return nil, nil, fmt.Errorf("failed to get object info: %w", err)
	}
	return result, objectFromInfo(info), nil
}
