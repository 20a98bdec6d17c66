package service

import "errors"

var (
	ErrChatNotFound    = errors.New("chat not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrNotParticipant  = errors.New("identity is not a participant of this chat")
	ErrEmptyContent    = errors.New("message content cannot be empty")
	ErrInvalidEmoji    = errors.New("emoji is not in the allowed reaction set")
	ErrUserNotFound    = errors.New("user not found")
)
