package chat

import (
	"context"

	"campus-chat-be/internal/entity"
	"campus-chat-be/internal/pkg/logger"
	"campus-chat-be/internal/repository/specification"
	"campus-chat-be/internal/repository/unitofwork"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentLookups = 8

// ProfileLookup resolves a user's current profile picture reference.
type ProfileLookup interface {
	ProfilePicture(ctx context.Context, userId string) (*string, error)
}

// AttachmentStore stores attachment bytes and resolves their derived links.
type AttachmentStore interface {
	Upload(ctx context.Context, folder, fileName string, data []byte) (string, error)
	ResolveLinks(ctx context.Context, fileId string) (entity.FileLinks, error)
}

// Enricher adds derived data to outgoing messages. It never fails: every
// lookup error degrades to a missing field.
type Enricher struct {
	profiles    ProfileLookup
	attachments AttachmentStore
	logger      logger.ILogger
}

func NewEnricher(profiles ProfileLookup, attachments AttachmentStore, log logger.ILogger) *Enricher {
	return &Enricher{
		profiles:    profiles,
		attachments: attachments,
		logger:      log,
	}
}

func (e *Enricher) SenderPicture(ctx context.Context, userId string) *string {
	if e.profiles == nil || userId == "" {
		return nil
	}
	pic, err := e.profiles.ProfilePicture(ctx, userId)
	if err != nil {
		e.logger.Warn("Enrichment", "Profile picture lookup failed", map[string]interface{}{
			"user_id": userId,
			"error":   err.Error(),
		})
		return nil
	}
	return pic
}

// Links resolves the links of a stored attachment, or returns empty links.
func (e *Enricher) Links(ctx context.Context, fileId string) entity.FileLinks {
	if e.attachments == nil {
		return entity.FileLinks{}
	}
	links, err := e.attachments.ResolveLinks(ctx, fileId)
	if err != nil {
		e.logger.Warn("Enrichment", "Attachment link resolution failed", map[string]interface{}{
			"file_id": fileId,
			"error":   err.Error(),
		})
		return entity.FileLinks{}
	}
	return links
}

// Backlog attaches sender pictures to msgs. Lookups run concurrently, one per
// distinct sender, and the result keeps the order of msgs.
func (e *Enricher) Backlog(ctx context.Context, msgs []*entity.RoomMessage) []MessageView {
	senders := lo.Uniq(lo.Map(msgs, func(m *entity.RoomMessage, _ int) string { return m.UserId }))
	pictures := make([]*string, len(senders))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for i, userId := range senders {
		g.Go(func() error {
			pictures[i] = e.SenderPicture(gctx, userId)
			return nil
		})
	}
	_ = g.Wait()

	byUser := lo.SliceToMap(lo.Range(len(senders)), func(i int) (string, *string) {
		return senders[i], pictures[i]
	})

	return lo.Map(msgs, func(m *entity.RoomMessage, _ int) MessageView {
		return newMessageView(m, byUser[m.UserId])
	})
}

type storedProfiles struct {
	factory unitofwork.RepositoryFactory
}

// NewStoredProfiles reads profile pictures from the users table.
func NewStoredProfiles(factory unitofwork.RepositoryFactory) ProfileLookup {
	return &storedProfiles{factory: factory}
}

func (s *storedProfiles) ProfilePicture(ctx context.Context, userId string) (*string, error) {
	uow := s.factory.NewUnitOfWork(ctx)
	user, err := uow.ChatUserRepository().FindOne(ctx, specification.ByUserID{UserID: userId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	return user.ProfilePic, nil
}
