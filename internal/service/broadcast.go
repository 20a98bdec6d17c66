package service

import "github.com/rahulm682/Chat-App/internal/event"

// Broadcaster is the service layer's view of the hub: fan-out and viewing
// lookups, nothing else. Fakes stand in for it in tests.
type Broadcaster interface {
	// PublishToIdentities delivers to every connection of each identity,
	// whether or not it has joined the chat room.
	PublishToIdentities(identities []string, ev event.WsEvent)
	// PublishToRoom delivers to connections joined to the chat room,
	// excluding the given connection id (empty string excludes nobody).
	PublishToRoom(chatID string, ev event.WsEvent, excludeConnID string)
	// ViewersAmong filters participants down to those currently viewing
	// the chat.
	ViewersAmong(chatID string, participants []string) []string
}
