package database

import (
	"github.com/stretchr/testify/mock"
)

type MockSocialRepository struct {
	mock.Mock
}

func (m *MockSocialRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockSocialRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockSocialRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockSocialRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockSocialRepository) GetAccountByUsername(username string) (User, error) {
	args := m.Called(username)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockSocialRepository) GetConversationByExternalId(externalId string) (Conversation, error) {
	args := m.Called(externalId)
	return args.Get(0).(Conversation), args.Error(1)
}
func (m *MockSocialRepository) GetOrCreateConversation(accountId, otherId int) (Conversation, error) {
	args := m.Called(accountId, otherId)
	return args.Get(0).(Conversation), args.Error(1)
}
func (m *MockSocialRepository) ListConversations(accountId int) ([]Conversation, error) {
	args := m.Called(accountId)
	return args.Get(0).([]Conversation), args.Error(1)
}
func (m *MockSocialRepository) MarkConversationSeen(conversationId int) error {
	args := m.Called(conversationId)
	return args.Error(0)
}
func (m *MockSocialRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockSocialRepository) GetMessages(conversationId int) ([]Message, error) {
	args := m.Called(conversationId)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockSocialRepository) CreatePost(params CreatePostParams) (Post, error) {
	args := m.Called(params)
	return args.Get(0).(Post), args.Error(1)
}
func (m *MockSocialRepository) GetPost(postId int) (Post, error) {
	args := m.Called(postId)
	return args.Get(0).(Post), args.Error(1)
}
func (m *MockSocialRepository) DeletePost(postId int) error {
	args := m.Called(postId)
	return args.Error(0)
}
func (m *MockSocialRepository) GetFeedPosts(accountId int) ([]Post, error) {
	args := m.Called(accountId)
	return args.Get(0).([]Post), args.Error(1)
}
func (m *MockSocialRepository) GetUserPosts(accountId int) ([]Post, error) {
	args := m.Called(accountId)
	return args.Get(0).([]Post), args.Error(1)
}
func (m *MockSocialRepository) LikePost(postId, accountId int) ([]int, error) {
	args := m.Called(postId, accountId)
	return args.Get(0).([]int), args.Error(1)
}
func (m *MockSocialRepository) UnlikePost(postId, accountId int) ([]int, error) {
	args := m.Called(postId, accountId)
	return args.Get(0).([]int), args.Error(1)
}
func (m *MockSocialRepository) FollowUser(followerId, followeeId int) error {
	args := m.Called(followerId, followeeId)
	return args.Error(0)
}
func (m *MockSocialRepository) UnfollowUser(followerId, followeeId int) error {
	args := m.Called(followerId, followeeId)
	return args.Error(0)
}
func (m *MockSocialRepository) IsFollowing(followerId, followeeId int) (bool, error) {
	args := m.Called(followerId, followeeId)
	return args.Bool(0), args.Error(1)
}
func (m *MockSocialRepository) CreateNotification(params CreateNotificationParams) (Notification, error) {
	args := m.Called(params)
	return args.Get(0).(Notification), args.Error(1)
}
func (m *MockSocialRepository) ListNotifications(accountId int) ([]Notification, error) {
	args := m.Called(accountId)
	return args.Get(0).([]Notification), args.Error(1)
}
func (m *MockSocialRepository) MarkNotificationSeen(notificationId, accountId int) error {
	args := m.Called(notificationId, accountId)
	return args.Error(0)
}
func (m *MockSocialRepository) DeleteNotification(notificationId, accountId int) error {
	args := m.Called(notificationId, accountId)
	return args.Error(0)
}
