package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"campus-chat-be/internal/entity"
	"campus-chat-be/internal/pkg/logger"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestBacklogPreservesOrderAndAbsorbsFailures(t *testing.T) {
	profiles := &mockProfiles{}
	profiles.On("ProfilePicture", mock.Anything, "u1").Return(lo.ToPtr("p1"), nil)
	profiles.On("ProfilePicture", mock.Anything, "u2").Return(nil, errors.New("lookup failed"))
	profiles.On("ProfilePicture", mock.Anything, "u3").Return(lo.ToPtr("p3"), nil)

	e := NewEnricher(profiles, nil, logger.NewNopLogger())

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	users := []string{"u1", "u2", "u3", "u1", "u2", "u3", "u1"}
	msgs := lo.Map(users, func(u string, i int) *entity.RoomMessage {
		return &entity.RoomMessage{
			UserId:    u,
			Message:   fmt.Sprintf("m%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
	})

	views := e.Backlog(context.Background(), msgs)

	assert.Len(t, views, len(msgs))
	for i, v := range views {
		assert.Equal(t, fmt.Sprintf("m%d", i), v.Message)
		switch v.UserId {
		case "u1":
			assert.Equal(t, "p1", *v.SenderPicture)
		case "u2":
			assert.Nil(t, v.SenderPicture)
		case "u3":
			assert.Equal(t, "p3", *v.SenderPicture)
		}
	}
	// one lookup per distinct sender
	profiles.AssertNumberOfCalls(t, "ProfilePicture", 3)
}

func TestLinksDegradeToEmpty(t *testing.T) {
	attachments := &mockAttachments{}
	attachments.On("ResolveLinks", mock.Anything, "f1").Return(entity.FileLinks{}, errors.New("not ready"))

	e := NewEnricher(nil, attachments, logger.NewNopLogger())

	assert.Equal(t, entity.FileLinks{}, e.Links(context.Background(), "f1"))
	assert.Nil(t, e.SenderPicture(context.Background(), "u1"))
}

func TestBacklogEmpty(t *testing.T) {
	e := NewEnricher(&mockProfiles{}, nil, logger.NewNopLogger())
	assert.Empty(t, e.Backlog(context.Background(), nil))
}
