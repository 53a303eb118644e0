package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rsanzone/go-social/internal/database"
	"github.com/rsanzone/go-social/internal/stats"
	"github.com/rsanzone/go-social/internal/testutil"
	"github.com/rsanzone/go-social/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// newTestChatServer creates a ChatServer with relaxed stats
// expectations and its run loop started.
func newTestChatServer(t *testing.T, db database.SocialRepository) *ChatServer {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Return().Times(4)
	su.On("Incr", mock.Anything).Return().Maybe()
	su.On("Decr", mock.Anything).Return().Maybe()

	logger := testutil.TestLogger(t)
	cs, err := NewChatServer(logger, db, su)
	if err != nil {
		t.Fatalf("failed to create test ChatServer: %v", err)
	}

	go cs.Run()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		cs.Shutdown(ctx)
	})

	return cs
}

func newTestClient(t *testing.T, cs *ChatServer, user types.User) *Client {
	return &Client{
		id:         uuid.NewString(),
		chatServer: cs,
		log:        testutil.TestLogger(t),
		user:       user,
		send:       make(chan *ServerEvent, 256),
		stop:       make(chan struct{}),
	}
}

// recvEvent waits for an event matching match on the client's send
// queue, skipping unrelated ones.
func recvEvent(t *testing.T, c *Client, match func(*ServerEvent) bool) *ServerEvent {
	t.Helper()

	timeout := time.After(time.Second)
	for {
		select {
		case evt := <-c.send:
			if match(evt) {
				return evt
			}
		case <-timeout:
			t.Fatal("timed out waiting for event")
			return nil
		}
	}
}

// assertNoEvent asserts no matching event arrives within a short
// window.
func assertNoEvent(t *testing.T, c *Client, match func(*ServerEvent) bool) {
	t.Helper()

	timeout := time.After(100 * time.Millisecond)
	for {
		select {
		case evt := <-c.send:
			if match(evt) {
				t.Fatalf("unexpected event: %+v", evt)
			}
		case <-timeout:
			return
		}
	}
}

func isOnlineUsers(e *ServerEvent) bool        { return e.OnlineUsers != nil }
func isMessagesSeen(e *ServerEvent) bool       { return e.MessagesSeen != nil }
func isActiveConversation(e *ServerEvent) bool { return e.ActiveConversation != nil }
func isTyping(e *ServerEvent) bool             { return e.Typing != nil }
func isStoppedTyping(e *ServerEvent) bool      { return e.StoppedTyping != nil }

func TestNewChatServer(t *testing.T) {
	db := &database.MockSocialRepository{}
	defer db.AssertExpectations(t)

	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)
	su.On("RegisterMetric", mock.Anything).Return().Times(4)

	logger := testutil.TestLogger(t)
	cs, err := NewChatServer(logger, db, su)
	assert.NoError(t, err, "expected no error creating ChatServer")
	assert.NotNil(t, cs, "expected ChatServer to be non-nil")
	assert.Equal(t, logger, cs.log, "expected logger to be set")
	assert.Equal(t, db, cs.db, "expected database repository to be set")
	assert.NotNil(t, cs.registry, "expected registry to be initialized")
	assert.NotNil(t, cs.tracker, "expected tracker to be initialized")
	assert.NotNil(t, cs.clients, "expected clients map to be initialized")
	assert.NotNil(t, cs.broadcastChan, "expected broadcastChan to be initialized")
	assert.NotNil(t, cs.stop, "expected stop channel to be initialized")
}

func TestChatServer_RegisterBroadcastsOnline(t *testing.T) {
	cs := newTestChatServer(t, &database.MockSocialRepository{})

	u1 := newTestClient(t, cs, types.User{Id: 1, Username: "u1"})
	cs.RegisterClient(u1)

	evt := recvEvent(t, u1, isOnlineUsers)
	assert.Equal(t, []int{1}, evt.OnlineUsers.Users, "expected snapshot with first user")

	u2 := newTestClient(t, cs, types.User{Id: 2, Username: "u2"})
	cs.RegisterClient(u2)

	evt = recvEvent(t, u1, isOnlineUsers)
	assert.Equal(t, []int{1, 2}, evt.OnlineUsers.Users, "expected snapshot with both users")
}

func TestChatServer_UnidentifiedClientBroadcastOnly(t *testing.T) {
	cs := newTestChatServer(t, &database.MockSocialRepository{})

	anon := newTestClient(t, cs, types.User{})
	cs.RegisterClient(anon)

	assert.Empty(t, cs.registry.Snapshot(), "expected unidentified connection to stay unregistered")

	u1 := newTestClient(t, cs, types.User{Id: 1})
	cs.RegisterClient(u1)

	// broadcast-scoped events still reach the unidentified connection
	evt := recvEvent(t, anon, isOnlineUsers)
	assert.Equal(t, []int{1}, evt.OnlineUsers.Users)
}

func TestChatServer_MarkMessagesSeen(t *testing.T) {
	conv := database.Conversation{Id: 10, ExternalId: "c1", ParticipantOne: 1, ParticipantTwo: 2}

	db := &database.MockSocialRepository{}
	defer db.AssertExpectations(t)
	db.On("GetConversationByExternalId", "c1").Return(conv, nil)
	db.On("MarkConversationSeen", 10).Return(nil)

	cs := newTestChatServer(t, db)

	u1 := newTestClient(t, cs, types.User{Id: 1, Username: "u1"})
	cs.RegisterClient(u1)
	u2 := newTestClient(t, cs, types.User{Id: 2, Username: "u2"})
	cs.RegisterClient(u2)

	cs.markMessagesSeen(u2, &ConversationRef{ConversationId: "c1", UserId: 2})

	// the other participant gets the receipt
	seen := recvEvent(t, u1, isMessagesSeen)
	assert.Equal(t, "c1", seen.MessagesSeen.ConversationId)

	// everyone gets the presence update
	for _, c := range []*Client{u1, u2} {
		active := recvEvent(t, c, isActiveConversation)
		assert.Equal(t, "c1", active.ActiveConversation.ConversationId)
		assert.Equal(t, []int{2}, active.ActiveConversation.ActiveUsers)
	}

	// the reporter never receives its own receipt
	assertNoEvent(t, u2, isMessagesSeen)
}

func TestChatServer_MarkMessagesSeenRepeated(t *testing.T) {
	conv := database.Conversation{Id: 10, ExternalId: "c1", ParticipantOne: 1, ParticipantTwo: 2}

	db := &database.MockSocialRepository{}
	db.On("GetConversationByExternalId", "c1").Return(conv, nil)
	db.On("MarkConversationSeen", 10).Return(nil)

	cs := newTestChatServer(t, db)

	u2 := newTestClient(t, cs, types.User{Id: 2})
	cs.RegisterClient(u2)

	cs.markMessagesSeen(u2, &ConversationRef{ConversationId: "c1", UserId: 2})
	recvEvent(t, u2, isActiveConversation)

	// a repeated seen ping within the same presence window stays quiet
	cs.markMessagesSeen(u2, &ConversationRef{ConversationId: "c1", UserId: 2})
	assertNoEvent(t, u2, isActiveConversation)

	// the durable mutation still ran both times
	db.AssertNumberOfCalls(t, "MarkConversationSeen", 2)
}

func TestChatServer_MarkMessagesSeenOfflineParticipant(t *testing.T) {
	conv := database.Conversation{Id: 10, ExternalId: "c1", ParticipantOne: 1, ParticipantTwo: 2}

	db := &database.MockSocialRepository{}
	db.On("GetConversationByExternalId", "c1").Return(conv, nil)
	db.On("MarkConversationSeen", 10).Return(nil)

	cs := newTestChatServer(t, db)

	// only u2 is connected; u1 is offline and the receipt is dropped
	u2 := newTestClient(t, cs, types.User{Id: 2})
	cs.RegisterClient(u2)

	cs.markMessagesSeen(u2, &ConversationRef{ConversationId: "c1", UserId: 2})

	active := recvEvent(t, u2, isActiveConversation)
	assert.Equal(t, []int{2}, active.ActiveConversation.ActiveUsers)
	assertNoEvent(t, u2, isMessagesSeen)
}

func TestChatServer_MarkMessagesSeenStorageFailure(t *testing.T) {
	conv := database.Conversation{Id: 10, ExternalId: "c1", ParticipantOne: 1, ParticipantTwo: 2}

	db := &database.MockSocialRepository{}
	db.On("GetConversationByExternalId", "c1").Return(conv, nil)
	db.On("MarkConversationSeen", 10).Return(errors.New("db down"))

	cs := newTestChatServer(t, db)

	u1 := newTestClient(t, cs, types.User{Id: 1})
	cs.RegisterClient(u1)
	u2 := newTestClient(t, cs, types.User{Id: 2})
	cs.RegisterClient(u2)

	cs.markMessagesSeen(u2, &ConversationRef{ConversationId: "c1", UserId: 2})

	// no partial application: no presence mutation, no fanout
	assert.Empty(t, cs.tracker.MembersOf("c1"), "expected no presence mutation on storage failure")
	assertNoEvent(t, u1, isMessagesSeen)
	assertNoEvent(t, u1, isActiveConversation)
}

func TestChatServer_MarkMessagesSeenUnknownConversation(t *testing.T) {
	db := &database.MockSocialRepository{}
	db.On("GetConversationByExternalId", "nope").Return(database.Conversation{}, errors.New("no rows"))

	cs := newTestChatServer(t, db)

	u1 := newTestClient(t, cs, types.User{Id: 1})
	cs.RegisterClient(u1)

	cs.markMessagesSeen(u1, &ConversationRef{ConversationId: "nope", UserId: 1})
	assertNoEvent(t, u1, isActiveConversation)

	// malformed payloads are dropped without touching storage
	cs.markMessagesSeen(u1, &ConversationRef{ConversationId: "", UserId: 1})
	cs.markMessagesSeen(u1, &ConversationRef{ConversationId: "c1", UserId: 0})
	db.AssertNumberOfCalls(t, "GetConversationByExternalId", 1)
}

func TestChatServer_Disconnect(t *testing.T) {
	conv := database.Conversation{Id: 10, ExternalId: "c1", ParticipantOne: 1, ParticipantTwo: 2}

	db := &database.MockSocialRepository{}
	db.On("GetConversationByExternalId", "c1").Return(conv, nil)
	db.On("MarkConversationSeen", 10).Return(nil)

	cs := newTestChatServer(t, db)

	u1 := newTestClient(t, cs, types.User{Id: 1})
	cs.RegisterClient(u1)
	u2 := newTestClient(t, cs, types.User{Id: 2})
	cs.RegisterClient(u2)

	cs.markMessagesSeen(u2, &ConversationRef{ConversationId: "c1", UserId: 2})
	active := recvEvent(t, u1, isActiveConversation)
	assert.Equal(t, []int{2}, active.ActiveConversation.ActiveUsers)

	cs.DeregisterClient(u2)

	// presence is cleared for every conversation the user was viewing
	active = recvEvent(t, u1, isActiveConversation)
	assert.Equal(t, "c1", active.ActiveConversation.ConversationId)
	assert.Empty(t, active.ActiveConversation.ActiveUsers, "expected conversation presence cleared on disconnect")

	online := recvEvent(t, u1, isOnlineUsers)
	assert.Equal(t, []int{1}, online.OnlineUsers.Users, "expected snapshot without disconnected user")
	assert.Empty(t, cs.tracker.MembersOf("c1"))
}

func TestChatServer_StaleDisconnectKeepsReconnect(t *testing.T) {
	cs := newTestChatServer(t, &database.MockSocialRepository{})

	old := newTestClient(t, cs, types.User{Id: 1})
	cs.RegisterClient(old)

	fresh := newTestClient(t, cs, types.User{Id: 1})
	cs.RegisterClient(fresh)

	// the superseded connection disconnects after the reconnect
	cs.DeregisterClient(old)

	got, ok := cs.registry.Lookup(1)
	assert.True(t, ok, "expected user to stay online after stale disconnect")
	assert.Same(t, fresh, got)
}

func TestChatServer_TypingStatus(t *testing.T) {
	cs := newTestChatServer(t, &database.MockSocialRepository{})

	u1 := newTestClient(t, cs, types.User{Id: 1})
	cs.RegisterClient(u1)
	u2 := newTestClient(t, cs, types.User{Id: 2})
	cs.RegisterClient(u2)

	cs.typingStatus(u2, &ConversationRef{ConversationId: "c1", UserId: 2}, false)

	evt := recvEvent(t, u1, isTyping)
	assert.Equal(t, "c1", evt.Typing.ConversationId)
	assert.Equal(t, 2, evt.Typing.UserId)

	// the sender never hears its own echo
	assertNoEvent(t, u2, isTyping)

	cs.typingStatus(u2, &ConversationRef{ConversationId: "c1", UserId: 2}, true)
	evt = recvEvent(t, u1, isStoppedTyping)
	assert.Equal(t, "c1", evt.StoppedTyping.ConversationId)
	assertNoEvent(t, u2, isStoppedTyping)
}

func TestChatServer_NotifyNewMessage(t *testing.T) {
	cs := newTestChatServer(t, &database.MockSocialRepository{})

	u1 := newTestClient(t, cs, types.User{Id: 1})
	cs.RegisterClient(u1)

	msg := types.Message{Id: 5, ConversationId: "c1", SenderId: 2, Text: "hey"}
	cs.NotifyNewMessage(1, msg)

	evt := recvEvent(t, u1, func(e *ServerEvent) bool { return e.Message != nil })
	assert.Equal(t, msg, *evt.Message)

	// offline recipient is a silent no-op
	cs.NotifyNewMessage(99, msg)
}

func TestChatServer_NotifyNotification(t *testing.T) {
	cs := newTestChatServer(t, &database.MockSocialRepository{})

	u1 := newTestClient(t, cs, types.User{Id: 1})
	cs.RegisterClient(u1)

	notif := types.Notification{Id: 3, From: 2, To: 1, Type: "like"}
	cs.NotifyNotification(1, notif)

	evt := recvEvent(t, u1, func(e *ServerEvent) bool { return e.Notification != nil })
	assert.Equal(t, notif, *evt.Notification)
}

func TestChatServer_Shutdown(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Return().Times(4)
	su.On("Incr", mock.Anything).Return().Maybe()

	cs, err := NewChatServer(testutil.TestLogger(t), &database.MockSocialRepository{}, su)
	assert.NoError(t, err)

	go cs.Run()

	u1 := newTestClient(t, cs, types.User{Id: 1})
	cs.RegisterClient(u1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err = cs.Shutdown(ctx)
	assert.NoError(t, err, "expected successful shutdown")

	select {
	case <-u1.stop:
	default:
		t.Error("expected client stop channel to be closed on shutdown")
	}
}

func TestChatServer_ShutdownDeadline(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Return().Times(4)

	cs, err := NewChatServer(testutil.TestLogger(t), &database.MockSocialRepository{}, su)
	assert.NoError(t, err)

	// run loop never started, so done is never closed
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = cs.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
