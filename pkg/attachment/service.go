package attachment

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"campus-chat-be/internal/entity"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Folders whose uploads are grouped into a per-day subfolder.
var datedFolders = []string{"chat", "announcements", "microblogging", "tasks"}

// Service uploads attachments and derives their public links.
type Service struct {
	blobs   Blob
	baseURL string
	now     func() time.Time
}

func NewService(blobs Blob, baseURL string) *Service {
	return &Service{
		blobs:   blobs,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// DatedFolder returns the folder an upload lands in on the given day.
func DatedFolder(folder string, at time.Time) string {
	if lo.Contains(datedFolders, folder) {
		return folder + "/" + at.Format("2006-01-02")
	}
	return folder
}

func sanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == "" {
		return "attachment"
	}
	return name
}

// Upload stores data and returns the new file id.
func (s *Service) Upload(ctx context.Context, folder, fileName string, data []byte) (string, error) {
	if folder == "" {
		folder = "chat"
	}

	obj := Object{
		Name:        uuid.NewString(),
		FileName:    sanitizeFileName(fileName),
		ContentType: mimetype.Detect(data).String(),
		Folder:      folder,
		DatedFolder: DatedFolder(folder, s.now().UTC()),
	}

	stored, err := s.blobs.Put(ctx, obj, data)
	if err != nil {
		return "", err
	}
	return stored.Name, nil
}

// ResolveLinks derives the view, content and thumbnail links of a stored
// attachment. Only images get a thumbnail link.
func (s *Service) ResolveLinks(ctx context.Context, fileId string) (entity.FileLinks, error) {
	obj, err := s.blobs.Info(ctx, fileId)
	if err != nil {
		return entity.FileLinks{}, err
	}

	view := fmt.Sprintf("%s/api/attachments/%s", s.baseURL, obj.Name)
	content := view + "/content"

	links := entity.FileLinks{
		WebViewLink:    lo.ToPtr(view),
		WebContentLink: lo.ToPtr(content),
	}
	if strings.HasPrefix(obj.ContentType, "image/") {
		links.ThumbnailLink = lo.ToPtr(content)
	}
	return links, nil
}

func (s *Service) Describe(ctx context.Context, fileId string) (*Object, error) {
	return s.blobs.Info(ctx, fileId)
}

// Open streams the attachment content. The caller closes the reader.
func (s *Service) Open(ctx context.Context, fileId string) (io.ReadCloser, *Object, error) {
	return s.blobs.Open(ctx, fileId)
}
