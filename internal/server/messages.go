package server

import (
	"time"

	"github.com/rsanzone/go-social/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientEvent is the inbound envelope. Exactly one of the event fields
// is set per message.
type ClientEvent struct {
	BaseMessage
	MarkSeen      *ConversationRef `json:"markMessagesAsSeen,omitempty"`
	Typing        *ConversationRef `json:"userTyping,omitempty"`
	StoppedTyping *ConversationRef `json:"userStoppedTyping,omitempty"`
}

type ConversationRef struct {
	ConversationId string `json:"conversationId"`
	UserId         int    `json:"userId"`
}

// ServerEvent is the outbound envelope. SkipClient excludes one
// connection from a broadcast, used for typing events so the sender
// never hears its own echo.
type ServerEvent struct {
	BaseMessage
	OnlineUsers        *OnlineUsers        `json:"getOnlineUsers,omitempty"`
	MessagesSeen       *MessagesSeen       `json:"messagesSeen,omitempty"`
	ActiveConversation *ActiveConversation `json:"activeConversationUpdated,omitempty"`
	Typing             *TypingStatus       `json:"typingStatus,omitempty"`
	StoppedTyping      *TypingStatus       `json:"stoppedTypingStatus,omitempty"`
	Message            *types.Message      `json:"newMessage,omitempty"`
	Notification       *types.Notification `json:"newNotification,omitempty"`
	SkipClient         *Client             `json:"-"`
}

type OnlineUsers struct {
	Users []int `json:"users"`
}

type MessagesSeen struct {
	ConversationId string `json:"conversationId"`
}

type ActiveConversation struct {
	ConversationId string `json:"conversationId"`
	ActiveUsers    []int  `json:"activeUsers"`
}

type TypingStatus struct {
	ConversationId string `json:"conversationId"`
	UserId         int    `json:"userId"`
}

func NewOnlineUsersEvent(users []int) *ServerEvent {
	return &ServerEvent{
		BaseMessage: BaseMessage{Timestamp: Now()},
		OnlineUsers: &OnlineUsers{Users: users},
	}
}

func NewMessagesSeenEvent(conversationId string) *ServerEvent {
	return &ServerEvent{
		BaseMessage:  BaseMessage{Timestamp: Now()},
		MessagesSeen: &MessagesSeen{ConversationId: conversationId},
	}
}

func NewActiveConversationEvent(conversationId string, activeUsers []int) *ServerEvent {
	return &ServerEvent{
		BaseMessage: BaseMessage{Timestamp: Now()},
		ActiveConversation: &ActiveConversation{
			ConversationId: conversationId,
			ActiveUsers:    activeUsers,
		},
	}
}

func NewTypingEvent(conversationId string, userId int, stopped bool) *ServerEvent {
	evt := &ServerEvent{
		BaseMessage: BaseMessage{Timestamp: Now()},
	}

	status := &TypingStatus{
		ConversationId: conversationId,
		UserId:         userId,
	}
	if stopped {
		evt.StoppedTyping = status
	} else {
		evt.Typing = status
	}

	return evt
}

func NewMessageEvent(msg types.Message) *ServerEvent {
	return &ServerEvent{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Message:     &msg,
	}
}

func NewNotificationEvent(notif types.Notification) *ServerEvent {
	return &ServerEvent{
		BaseMessage:  BaseMessage{Timestamp: Now()},
		Notification: &notif,
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
