package database

type SocialRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	GetAccountByUsername(username string) (User, error)
	GetConversationByExternalId(externalId string) (Conversation, error)
	GetOrCreateConversation(accountId, otherId int) (Conversation, error)
	ListConversations(accountId int) ([]Conversation, error)
	MarkConversationSeen(conversationId int) error
	CreateMessage(params CreateMessageParams) (Message, error)
	GetMessages(conversationId int) ([]Message, error)
	CreatePost(params CreatePostParams) (Post, error)
	GetPost(postId int) (Post, error)
	DeletePost(postId int) error
	GetFeedPosts(accountId int) ([]Post, error)
	GetUserPosts(accountId int) ([]Post, error)
	LikePost(postId, accountId int) ([]int, error)
	UnlikePost(postId, accountId int) ([]int, error)
	FollowUser(followerId, followeeId int) error
	UnfollowUser(followerId, followeeId int) error
	IsFollowing(followerId, followeeId int) (bool, error)
	CreateNotification(params CreateNotificationParams) (Notification, error)
	ListNotifications(accountId int) ([]Notification, error)
	MarkNotificationSeen(notificationId, accountId int) error
	DeleteNotification(notificationId, accountId int) error
}
