package server

import (
	"context"
	"log"
	"sync"

	"github.com/rsanzone/go-social/internal/database"
	"github.com/rsanzone/go-social/internal/stats"
	"github.com/rsanzone/go-social/internal/types"
)

// ChatServer routes inbound connection events, keeps the connection
// registry and active-conversation tracker consistent, and fans
// outbound events out to the right connections. Events are handled on
// their connection's read goroutine; only fanout is funneled through the
// run loop.
type ChatServer struct {
	log           *log.Logger
	db            database.SocialRepository
	stats         stats.StatsProvider
	registry      *ConnectionRegistry
	tracker       *ActiveConversationTracker
	clients       map[*Client]struct{}
	clientsLock   sync.Mutex
	broadcastChan chan *ServerEvent
	stop          chan struct{}
	done          chan struct{}
}

func NewChatServer(logger *log.Logger, db database.SocialRepository, sts stats.StatsProvider) (*ChatServer, error) {
	cs := &ChatServer{
		log:           logger,
		db:            db,
		stats:         sts,
		registry:      NewConnectionRegistry(),
		tracker:       NewActiveConversationTracker(),
		clients:       make(map[*Client]struct{}),
		broadcastChan: make(chan *ServerEvent, 256),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}

	sts.RegisterMetric("NumConnections")
	sts.RegisterMetric("NumRegisteredUsers")
	sts.RegisterMetric("NumEventsRouted")
	sts.RegisterMetric("NumDroppedEvents")

	return cs, nil
}

func (cs *ChatServer) Run() {
	for {
		select {
		case evt := <-cs.broadcastChan:
			cs.fanout(evt)
		case <-cs.stop:
			close(cs.done)
			return
		}
	}
}

// Registry exposes lookup-only access for collaborators outside the
// socket layer, such as the notification push on post likes.
func (cs *ChatServer) Registry() *ConnectionRegistry {
	return cs.registry
}

// RegisterClient adds the connection and, if it carries an identity,
// registers it for targeted routing and re-broadcasts the online list.
func (cs *ChatServer) RegisterClient(c *Client) {
	cs.clientsLock.Lock()
	cs.clients[c] = struct{}{}
	cs.clientsLock.Unlock()
	cs.stats.Incr("NumConnections")

	if !c.registered() {
		cs.log.Printf("connection %q has no identity, broadcast-scoped only", c.id)
		return
	}

	cs.log.Printf("registering connection for user %d", c.user.Id)
	if !cs.registry.Register(c.user.Id, c) {
		cs.stats.Incr("NumRegisteredUsers")
	}
	cs.broadcastOnline()
}

// DeregisterClient removes the connection. Presence cleanup only runs
// when this connection was still the user's registered one; a stale
// disconnect after a reconnect must not clear the live session's state.
func (cs *ChatServer) DeregisterClient(c *Client) {
	cs.clientsLock.Lock()
	_, ok := cs.clients[c]
	delete(cs.clients, c)
	cs.clientsLock.Unlock()
	if !ok {
		return
	}
	cs.stats.Decr("NumConnections")

	if !c.registered() {
		return
	}

	if !cs.registry.Deregister(c.user.Id, c) {
		cs.log.Printf("superseded connection for user %d disconnected", c.user.Id)
		return
	}
	cs.stats.Decr("NumRegisteredUsers")
	cs.log.Printf("deregistered user %d", c.user.Id)

	cs.broadcastOnline()
	for _, conversationId := range cs.tracker.ClearUser(c.user.Id) {
		cs.broadcast(NewActiveConversationEvent(conversationId, cs.tracker.MembersOf(conversationId)))
	}
}

// markMessagesSeen applies the durable seen mutation first and performs
// presence and fanout side effects only on its success, so a storage
// failure leaves no partial state.
func (cs *ChatServer) markMessagesSeen(c *Client, ref *ConversationRef) {
	cs.stats.Incr("NumEventsRouted")

	if ref.ConversationId == "" || ref.UserId == 0 {
		cs.log.Printf("dropping malformed markMessagesAsSeen from connection %q", c.id)
		cs.stats.Incr("NumDroppedEvents")
		return
	}

	conv, err := cs.db.GetConversationByExternalId(ref.ConversationId)
	if err != nil {
		cs.log.Printf("markMessagesAsSeen: conversation %q: %v", ref.ConversationId, err)
		cs.stats.Incr("NumDroppedEvents")
		return
	}

	if err := cs.db.MarkConversationSeen(conv.Id); err != nil {
		cs.log.Printf("markMessagesAsSeen: mark seen %q: %v", ref.ConversationId, err)
		cs.stats.Incr("NumDroppedEvents")
		return
	}

	if !cs.tracker.MarkPresent(ref.ConversationId, ref.UserId) {
		// repeated seen ping within the same presence window
		return
	}

	if otherId, ok := conv.OtherParticipant(ref.UserId); ok {
		if target, online := cs.registry.Lookup(otherId); online {
			target.queueMessage(NewMessagesSeenEvent(ref.ConversationId))
		}
	}

	cs.broadcast(NewActiveConversationEvent(ref.ConversationId, cs.tracker.MembersOf(ref.ConversationId)))
}

// typingStatus broadcasts a typing indicator to everyone but the
// sender. No durable or presence state is touched.
func (cs *ChatServer) typingStatus(c *Client, ref *ConversationRef, stopped bool) {
	cs.stats.Incr("NumEventsRouted")

	if ref.ConversationId == "" {
		cs.log.Printf("dropping malformed typing event from connection %q", c.id)
		cs.stats.Incr("NumDroppedEvents")
		return
	}

	evt := NewTypingEvent(ref.ConversationId, ref.UserId, stopped)
	evt.SkipClient = c
	cs.broadcast(evt)
}

// NotifyNewMessage pushes a freshly stored message to the recipient's
// registered connection. Offline recipients rely on durable storage.
func (cs *ChatServer) NotifyNewMessage(recipientId int, msg types.Message) {
	if target, online := cs.registry.Lookup(recipientId); online {
		target.queueMessage(NewMessageEvent(msg))
	}
}

// NotifyNotification pushes an in-app notification to the recipient's
// registered connection if there is one.
func (cs *ChatServer) NotifyNotification(recipientId int, notif types.Notification) {
	if target, online := cs.registry.Lookup(recipientId); online {
		target.queueMessage(NewNotificationEvent(notif))
	}
}

func (cs *ChatServer) broadcastOnline() {
	cs.broadcast(NewOnlineUsersEvent(cs.registry.Snapshot()))
}

func (cs *ChatServer) broadcast(evt *ServerEvent) {
	select {
	case cs.broadcastChan <- evt:
	default:
		cs.log.Println("broadcast channel full, dropping event")
		cs.stats.Incr("NumDroppedEvents")
	}
}

func (cs *ChatServer) fanout(evt *ServerEvent) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()

	for c := range cs.clients {
		if c == evt.SkipClient {
			continue
		}

		c.queueMessage(evt)
	}
}

func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.log.Println("shutting down chat server")

	cs.clientsLock.Lock()
	for c := range cs.clients {
		c.stopClient()
	}
	cs.clientsLock.Unlock()

	close(cs.stop)

	select {
	case <-cs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
