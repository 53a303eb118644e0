package database

import "time"

type User struct {
	Id           int
	Username     string
	Email        string
	PasswordHash string
	ProfilePic   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Conversation struct {
	Id                int
	ExternalId        string
	ParticipantOne    int
	ParticipantTwo    int
	LastMessageText   string
	LastMessageSender int
	LastMessageSeen   bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OtherParticipant returns the participant that is not userId. It
// reports false when userId is not part of the conversation.
func (c Conversation) OtherParticipant(userId int) (int, bool) {
	switch userId {
	case c.ParticipantOne:
		return c.ParticipantTwo, true
	case c.ParticipantTwo:
		return c.ParticipantOne, true
	}
	return 0, false
}

type Message struct {
	Id             int
	ConversationId int
	SenderId       int
	Text           string
	Img            string
	Seen           bool
	CreatedAt      time.Time
}

type Post struct {
	Id        int
	PostedBy  int
	Text      string
	Img       string
	Likes     []int
	CreatedAt time.Time
}

type Notification struct {
	Id        int
	From      int
	To        int
	Type      string
	Seen      bool
	CreatedAt time.Time
}

type CreateAccountParams struct {
	Username     string
	Email        string
	PasswordHash string
}

type CreateMessageParams struct {
	ConversationId int
	SenderId       int
	Text           string
	Img            string
}

type CreatePostParams struct {
	PostedBy int
	Text     string
	Img      string
}

type CreateNotificationParams struct {
	From int
	To   int
	Type string
}
