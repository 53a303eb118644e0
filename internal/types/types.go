package types

import (
	"time"
)

type User struct {
	Id         int       `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email,omitempty"`
	ProfilePic string    `json:"profile_pic,omitempty"`
	Password   string    `json:"-"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

type Message struct {
	Id             int       `json:"id"`
	ConversationId string    `json:"conversation_id"`
	SenderId       int       `json:"sender_id"`
	Text           string    `json:"text,omitempty"`
	Img            string    `json:"img,omitempty"`
	Seen           bool      `json:"seen"`
	CreatedAt      time.Time `json:"created_at"`
}

// LastMessage is the denormalized summary a conversation carries for
// fast list rendering. Its seen flag tracks the latest message's.
type LastMessage struct {
	Text     string `json:"text"`
	SenderId int    `json:"sender_id"`
	Seen     bool   `json:"seen"`
}

type Conversation struct {
	Id           int         `json:"id"`
	ExternalId   string      `json:"external_id"`
	Participants []User      `json:"participants"`
	LastMessage  LastMessage `json:"last_message"`
	CreatedAt    time.Time   `json:"created_at,omitempty"`
	UpdatedAt    time.Time   `json:"updated_at,omitempty"`
}

type Post struct {
	Id        int       `json:"id"`
	PostedBy  int       `json:"posted_by"`
	Text      string    `json:"text"`
	Img       string    `json:"img,omitempty"`
	Likes     []int     `json:"likes"`
	CreatedAt time.Time `json:"created_at"`
}

type Notification struct {
	Id        int       `json:"id"`
	From      int       `json:"from"`
	To        int       `json:"to"`
	Type      string    `json:"type"`
	Seen      bool      `json:"seen"`
	CreatedAt time.Time `json:"created_at"`
}
