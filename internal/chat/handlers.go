package chat

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"campus-chat-be/internal/entity"
	"campus-chat-be/internal/repository/specification"
	"campus-chat-be/pkg/attachment"

	"github.com/gabriel-vasile/mimetype"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"
)

const fileSentPreview = "File sent"

func (p *Protocol) handleIdentify(ctx context.Context, cs *connState, data json.RawMessage) {
	var req IdentifyRequest
	if err := json.Unmarshal(data, &req); err != nil {
		p.logProtocolError(cs.conn, fmt.Errorf("%w: identify: %v", ErrProtocol, err))
		return
	}
	if err := p.validate.Struct(req); err != nil {
		p.logProtocolError(cs.conn, fmt.Errorf("%w: identify without userId", ErrValidation))
		return
	}

	if cs.userId != "" && cs.userId != req.UserId {
		p.sessions.Forget(cs.userId, cs.conn)
	}
	cs.userId = req.UserId
	p.sessions.Identify(req.UserId, cs.conn)

	p.logger.Info("ChatProtocol", "Connection identified", map[string]interface{}{
		"conn_id": cs.conn.ID(),
		"user_id": req.UserId,
	})
}

func (p *Protocol) handleCreateRoom(ctx context.Context, cs *connState, data json.RawMessage) {
	ctx, span := p.tracer.Start(ctx, "chat.createRoom")
	defer span.End()

	var req CreateRoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		p.emit(cs.conn, KindRoomCreationError, ErrorPayload{Message: "Malformed createRoom payload", Reason: ReasonMalformed})
		return
	}

	room, err := p.CreateRoom(ctx, req.RoomName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		reason := ReasonPersistenceFailed
		message := "Could not create room"
		if errors.Is(err, ErrValidation) {
			reason = ReasonValidation
			message = "roomName is required"
		}
		p.emit(cs.conn, KindRoomCreationError, ErrorPayload{Message: message, Reason: reason})
		return
	}

	span.SetAttributes(attribute.String("chat.room_id", room.RoomId))
	p.emit(cs.conn, KindRoomCreated, RoomCreatedPayload{
		RoomId:       room.RoomId,
		RoomName:     room.RoomName,
		Participants: room.Participants,
	})
}

func (p *Protocol) handleJoinRoom(ctx context.Context, cs *connState, data json.RawMessage) {
	ctx, span := p.tracer.Start(ctx, "chat.joinRoom")
	defer span.End()

	var req JoinRoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		p.rejectJoin(cs.conn, newJoinError(ReasonValidation, fmt.Errorf("%w: %v", ErrProtocol, err)))
		return
	}
	req.RoomName = NormalizeRoomName(req.RoomName)
	if err := p.validate.Struct(req); err != nil {
		p.rejectJoin(cs.conn, newJoinError(ReasonValidation, fmt.Errorf("%w: roomName, userId and name are required", ErrValidation)))
		return
	}

	span.SetAttributes(attribute.String("chat.room_name", req.RoomName), attribute.String("chat.user_id", req.UserId))

	p.setState(cs, StateJoining)
	roomId, joinErr := p.join(ctx, cs.conn, req)
	if joinErr != nil {
		if len(cs.rooms) > 0 {
			p.setState(cs, StateJoined)
		} else {
			p.setState(cs, StateConnected)
		}
		span.RecordError(joinErr)
		span.SetStatus(codes.Error, joinErr.Error())
		p.rejectJoin(cs.conn, joinErr)
		return
	}

	cs.rooms[roomId] = struct{}{}
	p.setState(cs, StateJoined)
}

// join resolves the room and runs the membership update, persistence,
// backlog hydration and announcements on the room's worker.
func (p *Protocol) join(ctx context.Context, conn Conn, req JoinRoomRequest) (string, *JoinError) {
	room, err := p.directory.LookupByName(ctx, req.RoomName)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", newJoinError(ReasonNotFound, err)
		}
		return "", newJoinError(ReasonLookupFailed, err)
	}
	roomId := room.RoomId

	err = p.sequencer.Do(ctx, roomId, func(ctx context.Context, st *RoomState) error {
		wasAttached := p.members.Attached(roomId, req.UserId, conn.ID())
		p.members.AddIfAbsent(roomId, req.UserId, req.Name, conn.ID())

		if err := p.persistJoin(ctx, roomId, req); err != nil {
			if !wasAttached {
				p.members.Detach(roomId, req.UserId, conn.ID())
			}
			if errors.Is(err, ErrNotFound) {
				return newJoinError(ReasonNotFound, err)
			}
			return newJoinError(ReasonPersistenceFailed, err)
		}

		backlog := p.loadBacklog(ctx, roomId)
		if n := len(backlog); n > 0 {
			st.Observe(backlog[n-1].Timestamp)
		}

		if p.broadcaster != nil {
			p.broadcaster.Subscribe(roomId, conn)
		}

		participants := p.members.List(roomId)
		p.emit(conn, KindJoinedRoom, JoinedRoomPayload{
			RoomId:       roomId,
			RoomName:     room.RoomName,
			Name:         req.Name,
			Participants: participants,
			Messages:     p.enricher.Backlog(ctx, backlog),
		})
		p.broadcast(roomId, KindUpdateParticipants, participants)
		return nil
	})
	if err != nil {
		var joinErr *JoinError
		if errors.As(err, &joinErr) {
			if joinErr.Reason == ReasonNotFound {
				p.sequencer.Stop(roomId)
			}
			return "", joinErr
		}
		return "", newJoinError(ReasonPersistenceFailed, err)
	}

	p.logger.Info("ChatProtocol", "User joined room", map[string]interface{}{
		"conn_id": conn.ID(),
		"room_id": roomId,
		"user_id": req.UserId,
	})
	return roomId, nil
}

// persistJoin upserts the user, records the room on the user and merges the
// live member list into the room's persisted participants.
func (p *Protocol) persistJoin(ctx context.Context, roomId string, req JoinRoomRequest) error {
	uow := p.factory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	room, err := uow.RoomRepository().FindOne(ctx, specification.ByRoomID{RoomID: roomId})
	if err != nil {
		return err
	}
	if room == nil {
		return fmt.Errorf("room %q: %w", roomId, ErrNotFound)
	}

	if err := uow.ChatUserRepository().UpsertName(ctx, req.UserId, req.Name); err != nil {
		return err
	}
	if err := uow.ChatUserRepository().AddRoom(ctx, req.UserId, roomId); err != nil {
		return err
	}

	participants := mergeParticipants(room.Participants, p.members.List(roomId))
	if err := uow.RoomRepository().UpdateParticipants(ctx, roomId, participants); err != nil {
		return err
	}
	return uow.Commit()
}

// mergeParticipants keeps every persisted participant, refreshes names from
// the live list and appends live members not persisted yet.
func mergeParticipants(persisted, live []entity.Participant) []entity.Participant {
	liveByUser := lo.KeyBy(live, func(p entity.Participant) string { return p.UserId })

	merged := lo.Map(persisted, func(p entity.Participant, _ int) entity.Participant {
		if l, ok := liveByUser[p.UserId]; ok {
			return l
		}
		return p
	})
	known := lo.KeyBy(persisted, func(p entity.Participant) string { return p.UserId })
	for _, l := range live {
		if _, ok := known[l.UserId]; !ok {
			merged = append(merged, l)
		}
	}
	return merged
}

// loadBacklog returns the newest messages of the room, oldest first. A failed
// read degrades to an empty backlog.
func (p *Protocol) loadBacklog(ctx context.Context, roomId string) []*entity.RoomMessage {
	uow := p.factory.NewUnitOfWork(ctx)
	msgs, err := uow.RoomMessageRepository().FindAll(ctx,
		specification.ByRoomID{RoomID: roomId},
		specification.NewestMessagesFirst{},
		specification.Pagination{Limit: p.opts.BacklogSize},
	)
	if err != nil {
		p.logger.Error("ChatProtocol", "Backlog fetch failed", map[string]interface{}{
			"room_id": roomId,
			"error":   err.Error(),
		})
		return []*entity.RoomMessage{}
	}
	return lo.Reverse(msgs)
}

func (p *Protocol) rejectJoin(conn Conn, err *JoinError) {
	message := "Could not join room"
	switch err.Reason {
	case ReasonValidation:
		message = "roomName, userId and name are required"
	case ReasonNotFound:
		message = "Room does not exist"
	case ReasonLookupFailed:
		message = "Room lookup failed"
	}

	p.logger.Warn("ChatProtocol", "Join rejected", map[string]interface{}{
		"conn_id": conn.ID(),
		"reason":  string(err.Reason),
		"error":   err.Error(),
	})
	p.emit(conn, KindRoomJoinError, ErrorPayload{Message: message, Reason: err.Reason})
}

func (p *Protocol) handleSendMessage(ctx context.Context, cs *connState, data json.RawMessage) {
	ctx, span := p.tracer.Start(ctx, "chat.sendMessage")
	defer span.End()

	var req SendMessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		p.dropSend(cs.conn, ReasonMalformed, fmt.Errorf("%w: sendMessage: %v", ErrProtocol, err))
		return
	}
	if req.RoomId == "" || req.UserId == "" || (req.Message == "" && !req.hasAttachment()) {
		p.dropSend(cs.conn, ReasonValidation, fmt.Errorf("%w: roomId, userId and message or file are required", ErrValidation))
		return
	}
	span.SetAttributes(attribute.String("chat.room_id", req.RoomId), attribute.String("chat.user_id", req.UserId))

	if !p.allowSend(ctx, req.UserId) {
		p.dropSend(cs.conn, ReasonRateLimited, fmt.Errorf("%w: user %s", ErrRateLimited, req.UserId))
		return
	}

	msg, err := p.buildMessage(ctx, &req)
	if err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, ErrProtocol):
			p.dropSend(cs.conn, ReasonMalformed, err)
			return
		case errors.Is(err, ErrValidation):
			p.dropSend(cs.conn, ReasonValidation, err)
			return
		}

		reason, message := ReasonUploadFailed, "Attachment upload failed"
		if req.FileBuffer == "" {
			reason, message = ReasonLookupFailed, "Attachment lookup failed"
		}
		p.logger.Error("Attachments", message, map[string]interface{}{
			"room_id": req.RoomId,
			"user_id": req.UserId,
			"error":   err.Error(),
		})
		p.emit(cs.conn, KindSendMessageError, ErrorPayload{Message: message, Reason: reason})
		return
	}

	picture := p.enricher.SenderPicture(ctx, req.UserId)

	if err := p.appendMessage(ctx, msg, picture); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		reason := ReasonPersistenceFailed
		if errors.Is(err, ErrNotFound) {
			reason = ReasonNotFound
			p.sequencer.Stop(req.RoomId)
		}
		p.logger.Error("ChatProtocol", "Message not persisted", map[string]interface{}{
			"room_id": req.RoomId,
			"user_id": req.UserId,
			"error":   err.Error(),
		})
		p.emit(cs.conn, KindSendMessageError, ErrorPayload{Message: "Message could not be sent", Reason: reason})
		return
	}

	p.events.PublishMessageSent(ctx, msg)
}

// buildMessage uploads any inline attachment and fills in sender, type and
// file metadata. A referenced fileUrl must resolve to a stored attachment;
// when it does not, the message falls back to its text or is rejected.
func (p *Protocol) buildMessage(ctx context.Context, req *SendMessageRequest) (*entity.RoomMessage, error) {
	msg := &entity.RoomMessage{
		RoomId:  req.RoomId,
		UserId:  req.UserId,
		Message: req.Message,
		Type:    entity.MessageTypeText,
		Sender:  unknownSender,
	}
	if member, ok := p.members.Lookup(req.RoomId, req.UserId); ok {
		msg.Sender = member.Name
	}

	fileId := req.FileUrl
	fileType := req.FileType

	if req.FileBuffer != "" {
		raw := req.FileBuffer
		if _, encoded, ok := strings.Cut(raw, ";base64,"); ok {
			raw = encoded
		}
		content, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: fileBuffer is not base64: %v", ErrProtocol, err)
		}
		if fileType == "" {
			fileType = mimetype.Detect(content).String()
		}
		if p.attachments == nil {
			return nil, fmt.Errorf("%w: no attachment store configured", ErrCollaborator)
		}

		folder := lo.CoalesceOrEmpty(req.MainFolder, p.opts.DefaultFolder)
		fileId, err = p.attachments.Upload(ctx, folder, req.FileName, content)
		if err != nil {
			return nil, fmt.Errorf("%w: upload: %v", ErrCollaborator, err)
		}
	}

	if fileId == "" {
		return msg, nil
	}

	var links entity.FileLinks
	if req.FileBuffer != "" {
		links = p.enricher.Links(ctx, fileId)
	} else {
		resolved, err := p.referencedLinks(ctx, fileId)
		switch {
		case errors.Is(err, attachment.ErrNotFound):
			if req.Message == "" {
				return nil, fmt.Errorf("%w: attachment %s does not exist", ErrValidation, fileId)
			}
			p.logger.Warn("Attachments", "Unknown attachment dropped from message", map[string]interface{}{
				"room_id": req.RoomId,
				"file_id": fileId,
			})
			return msg, nil
		case err != nil:
			return nil, fmt.Errorf("%w: resolve attachment %s: %v", ErrCollaborator, fileId, err)
		}
		links = resolved
	}

	msg.Type = entity.MessageTypeFile
	msg.FileUrl = lo.ToPtr(fileId)
	msg.File = &entity.FileMeta{
		Name:      req.FileName,
		Type:      fileType,
		FileLinks: links,
	}
	return msg, nil
}

// referencedLinks resolves a previously uploaded attachment. Without a store
// no reference can resolve.
func (p *Protocol) referencedLinks(ctx context.Context, fileId string) (entity.FileLinks, error) {
	if p.attachments == nil {
		return entity.FileLinks{}, fmt.Errorf("attachment %s: %w", fileId, attachment.ErrNotFound)
	}
	return p.attachments.ResolveLinks(ctx, fileId)
}

// appendMessage persists msg and the room preview on the room's worker, then
// broadcasts it.
func (p *Protocol) appendMessage(ctx context.Context, msg *entity.RoomMessage, picture *string) error {
	return p.sequencer.Do(ctx, msg.RoomId, func(ctx context.Context, st *RoomState) error {
		uow := p.factory.NewUnitOfWork(ctx)
		if err := uow.Begin(ctx); err != nil {
			return err
		}
		defer uow.Rollback()

		if !st.Seeded() {
			last, err := uow.RoomMessageRepository().FindOne(ctx,
				specification.ByRoomID{RoomID: msg.RoomId},
				specification.NewestMessagesFirst{},
			)
			if err != nil {
				return err
			}
			if last != nil {
				st.Observe(last.Timestamp)
			}
		}
		msg.Timestamp = st.NextTimestamp(p.now().UTC())

		if err := uow.RoomMessageRepository().Create(ctx, msg); err != nil {
			return err
		}

		preview := lo.CoalesceOrEmpty(msg.Message, fileSentPreview)
		err := uow.RoomRepository().UpdateLatestMessage(ctx, msg.RoomId, entity.LatestMessage{
			Sender:    msg.Sender,
			Message:   preview,
			Timestamp: msg.Timestamp,
		})
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("room %q: %w", msg.RoomId, ErrNotFound)
		}
		if err != nil {
			return err
		}
		if err := uow.Commit(); err != nil {
			return err
		}

		p.broadcast(msg.RoomId, KindReceiveMessage, newMessageView(msg, picture))
		return nil
	})
}

// allowSend fails open when the limiter itself errors.
func (p *Protocol) allowSend(ctx context.Context, userId string) bool {
	if p.limiter == nil {
		return true
	}
	ok, err := p.limiter.Allow(ctx, "chat:send:"+userId)
	if err != nil {
		p.logger.Warn("ChatProtocol", "Rate limiter unavailable", map[string]interface{}{"error": err.Error()})
		return true
	}
	return ok
}

// dropSend discards a send. Only strict mode tells the sender.
func (p *Protocol) dropSend(conn Conn, reason Reason, err error) {
	p.logger.Debug("ChatProtocol", "Send dropped", map[string]interface{}{
		"conn_id": conn.ID(),
		"reason":  string(reason),
		"error":   err.Error(),
	})
	if p.opts.StrictSend {
		p.emit(conn, KindSendMessageError, ErrorPayload{Message: err.Error(), Reason: reason})
	}
}
