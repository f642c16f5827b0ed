// Package chat implements the conversation and room messaging core: key
// resolution, validation and the append/read contract against the
// message log store.
package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lahnaomar31/ubo-relay-char/internal/models"
	"github.com/lahnaomar31/ubo-relay-char/internal/store"
)

var (
	// ErrUnauthenticated means no resolved caller identity was supplied.
	ErrUnauthenticated = errors.New("caller not connected")
	// ErrInvalidInput means a required field is missing: the recipient or
	// room, or both text and image.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRoomNotFound means the room does not exist in the directory.
	ErrRoomNotFound = errors.New("room not found")
)

// MessageLog is the append-only ordered store a service writes to. One
// log per conversation or room key; append is the sole mutation.
type MessageLog interface {
	Append(ctx context.Context, logKey string, msg *models.Message) error
	ReadAll(ctx context.Context, logKey string) ([]models.Message, error)
}

// RoomDirectory is the subset of the data store the room service needs.
type RoomDirectory interface {
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	IncrementMessageCount(ctx context.Context, id uuid.UUID) error
}

// ConversationService handles 1:1 message flows. It is stateless: every
// call goes straight to the log store, nothing is cached across requests.
type ConversationService struct {
	log    MessageLog
	logger zerolog.Logger
	now    func() time.Time
}

// NewConversationService creates a conversation service.
func NewConversationService(log MessageLog, logger zerolog.Logger) *ConversationService {
	return &ConversationService{
		log:    log,
		logger: logger,
		now:    time.Now,
	}
}

// newMessage builds the message that will be appended. The timestamp is
// assigned here, never taken from the client.
func newMessage(sender *models.User, text, image string, now func() time.Time) *models.Message {
	return &models.Message{
		Text:      text,
		Image:     image,
		Sender:    sender.Username,
		Timestamp: now().UTC(),
	}
}

// Post appends a direct message to the conversation between the sender
// and recipientID, and returns the stored message. At least one of text
// and image must be non-empty.
func (s *ConversationService) Post(ctx context.Context, sender *models.User, recipientID, text, image string) (*models.Message, error) {
	if sender == nil {
		return nil, ErrUnauthenticated
	}
	if recipientID == "" || (text == "" && image == "") {
		return nil, ErrInvalidInput
	}

	logKey := store.ConversationLogKey(sender.ID.String(), recipientID)
	msg := newMessage(sender, text, image, s.now)

	if err := s.log.Append(ctx, logKey, msg); err != nil {
		s.logger.Error().Err(err).Str("log_key", logKey).Msg("failed to append direct message")
		return nil, err
	}

	s.logger.Debug().Str("log_key", logKey).Str("sender", sender.Username).Msg("direct message stored")
	return msg, nil
}

// History returns the full conversation between the caller and
// recipientID, oldest first. A conversation with no messages yet is an
// empty slice, not an error.
func (s *ConversationService) History(ctx context.Context, caller *models.User, recipientID string) ([]models.Message, error) {
	if caller == nil {
		return nil, ErrUnauthenticated
	}
	if recipientID == "" {
		return nil, ErrInvalidInput
	}

	logKey := store.ConversationLogKey(caller.ID.String(), recipientID)
	messages, err := s.log.ReadAll(ctx, logKey)
	if err != nil {
		s.logger.Error().Err(err).Str("log_key", logKey).Msg("failed to read conversation")
		return nil, err
	}
	return messages, nil
}

// RoomService handles shared-channel message flows. Same shape as the
// conversation service, but the log key is the room ID directly and the
// room must exist in the directory.
type RoomService struct {
	log    MessageLog
	rooms  RoomDirectory
	logger zerolog.Logger
	now    func() time.Time
}

// NewRoomService creates a room service.
func NewRoomService(log MessageLog, rooms RoomDirectory, logger zerolog.Logger) *RoomService {
	return &RoomService{
		log:    log,
		rooms:  rooms,
		logger: logger,
		now:    time.Now,
	}
}

// Post appends a message to a room's log and returns the stored message.
func (s *RoomService) Post(ctx context.Context, sender *models.User, roomID uuid.UUID, text, image string) (*models.Message, error) {
	if sender == nil {
		return nil, ErrUnauthenticated
	}
	if text == "" && image == "" {
		return nil, ErrInvalidInput
	}

	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		s.logger.Error().Err(err).Str("room_id", roomID.String()).Msg("failed to look up room")
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}

	logKey := store.RoomLogKey(roomID.String())
	msg := newMessage(sender, text, image, s.now)

	if err := s.log.Append(ctx, logKey, msg); err != nil {
		s.logger.Error().Err(err).Str("log_key", logKey).Msg("failed to append room message")
		return nil, err
	}

	// Metadata bookkeeping is best-effort; the message is already durable.
	if err := s.rooms.IncrementMessageCount(ctx, roomID); err != nil {
		s.logger.Warn().Err(err).Str("room_id", roomID.String()).Msg("failed to bump room activity")
	}

	s.logger.Debug().Str("room_id", roomID.String()).Str("sender", sender.Username).Msg("room message stored")
	return msg, nil
}

// History returns the full message log of a room, oldest first.
func (s *RoomService) History(ctx context.Context, caller *models.User, roomID uuid.UUID) ([]models.Message, error) {
	if caller == nil {
		return nil, ErrUnauthenticated
	}

	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		s.logger.Error().Err(err).Str("room_id", roomID.String()).Msg("failed to look up room")
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}

	messages, err := s.log.ReadAll(ctx, store.RoomLogKey(roomID.String()))
	if err != nil {
		s.logger.Error().Err(err).Str("room_id", roomID.String()).Msg("failed to read room log")
		return nil, err
	}
	return messages, nil
}
