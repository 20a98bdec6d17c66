package hub

import (
	"reflect"
	"testing"
)

func TestViewingReplacesPreviousChat(t *testing.T) {
	v := NewViewingTracker()

	v.SetViewing("c1", "alice", "chat-1")
	if !v.IsViewing("alice", "chat-1") {
		t.Fatal("alice should be viewing chat-1")
	}

	// A connection views one chat at a time: switching releases the old one.
	v.SetViewing("c1", "alice", "chat-2")
	if v.IsViewing("alice", "chat-1") {
		t.Error("chat-1 should be released after switching")
	}
	if !v.IsViewing("alice", "chat-2") {
		t.Error("alice should be viewing chat-2")
	}
}

func TestViewingEmptyChatIDReleases(t *testing.T) {
	v := NewViewingTracker()

	v.SetViewing("c1", "alice", "chat-1")
	v.SetViewing("c1", "alice", "")
	if v.IsViewing("alice", "chat-1") {
		t.Error("empty declaration should release the chat")
	}
}

func TestViewingSurvivesWhileAnotherTabViews(t *testing.T) {
	v := NewViewingTracker()

	// Two tabs of the same identity on the same chat.
	v.SetViewing("c1", "alice", "chat-1")
	v.SetViewing("c2", "alice", "chat-1")

	v.ClearConn("c1")
	if !v.IsViewing("alice", "chat-1") {
		t.Error("identity still has a tab on chat-1, viewing must survive")
	}

	v.ClearConn("c2")
	if v.IsViewing("alice", "chat-1") {
		t.Error("viewing must end with the last tab")
	}
}

func TestViewingClearConnIsIdempotent(t *testing.T) {
	v := NewViewingTracker()

	v.SetViewing("c1", "alice", "chat-1")
	v.ClearConn("c1")
	v.ClearConn("c1")
	v.ClearConn("never-seen")

	if v.IsViewing("alice", "chat-1") {
		t.Error("viewing state leaked after clear")
	}
	if infos := v.Snapshot(); len(infos) != 0 {
		t.Errorf("Snapshot() = %v, want empty", infos)
	}
}

func TestViewersAmongFiltersToParticipants(t *testing.T) {
	v := NewViewingTracker()

	v.SetViewing("c1", "alice", "chat-1")
	v.SetViewing("c2", "bob", "chat-1")
	v.SetViewing("c3", "carol", "chat-2")
	v.SetViewing("c4", "mallory", "chat-1")

	// mallory views the chat but is not a participant; carol participates
	// but views another chat.
	got := v.ViewersAmong("chat-1", []string{"alice", "bob", "carol"})
	want := []string{"alice", "bob"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ViewersAmong() = %v, want %v", got, want)
	}
}
