package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/rsanzone/go-social/internal/database"
	"github.com/rsanzone/go-social/internal/server"
	"github.com/rsanzone/go-social/internal/types"
)

const maxPostLength = 500

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type SendMessageRequest struct {
	RecipientId int    `json:"recipient_id"`
	Text        string `json:"text"`
	Img         string `json:"img"`
}

type CreatePostRequest struct {
	Text string `json:"text"`
	Img  string `json:"img"`
}

func (s *GoSocialApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func pathId(r *http.Request) (int, error) {
	return strconv.Atoi(r.PathValue("id"))
}

func (s *GoSocialApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	params := database.CreateAccountParams{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: pwdHash,
	}

	newUser, err := s.db.CreateAccount(params)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, types.User{
		Id:        newUser.Id,
		Username:  newUser.Username,
		Email:     newUser.Email,
		CreatedAt: newUser.CreatedAt,
	})
}

func (s *GoSocialApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if lr.Email == "" || lr.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GetAccountByEmail(lr.Email)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !verifyPassword(dbUser.PasswordHash, lr.Password) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	u := types.User{
		Id:         dbUser.Id,
		Username:   dbUser.Username,
		Email:      dbUser.Email,
		ProfilePic: dbUser.ProfilePic,
	}

	token, err := s.createJwtForSession(u, defaultJwtExpiration)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))

	s.writeJson(w, http.StatusOK, u)
}

func (s *GoSocialApp) session(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(userId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, types.User{
		Id:         user.Id,
		Username:   user.Username,
		Email:      user.Email,
		ProfilePic: user.ProfilePic,
	})
}

func (s *GoSocialApp) logout(w http.ResponseWriter, _ *http.Request) {
	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, createJwtCookie("", 0))
	w.WriteHeader(http.StatusNoContent)
}

func (s *GoSocialApp) getConversations(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	dbConvs, err := s.db.ListConversations(userId)
	if err != nil {
		s.log.Println("list conversations:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var convs []types.Conversation
	for _, c := range dbConvs {
		conv := types.Conversation{
			Id:         c.Id,
			ExternalId: c.ExternalId,
			LastMessage: types.LastMessage{
				Text:     c.LastMessageText,
				SenderId: c.LastMessageSender,
				Seen:     c.LastMessageSeen,
			},
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		}

		participants := []types.User{{Id: c.ParticipantOne}, {Id: c.ParticipantTwo}}
		if otherId, ok := c.OtherParticipant(userId); ok {
			if other, err := s.db.GetAccountById(otherId); err == nil {
				for i := range participants {
					if participants[i].Id == other.Id {
						participants[i].Username = other.Username
						participants[i].ProfilePic = other.ProfilePic
					}
				}
			} else {
				s.log.Printf("resolve participant %d: %v", otherId, err)
			}
		}
		conv.Participants = participants

		convs = append(convs, conv)
	}

	s.writeJson(w, http.StatusOK, convs)
}

// conversationForUser resolves a conversation by external id and checks
// the requester is one of its participants.
func (s *GoSocialApp) conversationForUser(w http.ResponseWriter, externalId string, userId int) (database.Conversation, bool) {
	if externalId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return database.Conversation{}, false
	}

	conv, err := s.db.GetConversationByExternalId(externalId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return database.Conversation{}, false
	}

	if _, ok := conv.OtherParticipant(userId); !ok {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return database.Conversation{}, false
	}

	return conv, true
}

func (s *GoSocialApp) getMessages(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	conv, ok := s.conversationForUser(w, r.URL.Query().Get("conversation_id"), userId)
	if !ok {
		return
	}

	dbMsgs, err := s.db.GetMessages(conv.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var msgs []types.Message
	for _, m := range dbMsgs {
		msgs = append(msgs, types.Message{
			Id:             m.Id,
			ConversationId: conv.ExternalId,
			SenderId:       m.SenderId,
			Text:           m.Text,
			Img:            m.Img,
			Seen:           m.Seen,
			CreatedAt:      m.CreatedAt,
		})
	}

	s.writeJson(w, http.StatusOK, msgs)
}

func (s *GoSocialApp) sendMessage(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.RecipientId == 0 || req.RecipientId == userId || (req.Text == "" && req.Img == "") {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := s.db.GetAccountById(req.RecipientId); err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	conv, err := s.db.GetOrCreateConversation(userId, req.RecipientId)
	if err != nil {
		s.log.Println("get or create conversation:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbMsg, err := s.db.CreateMessage(database.CreateMessageParams{
		ConversationId: conv.Id,
		SenderId:       userId,
		Text:           req.Text,
		Img:            req.Img,
	})
	if err != nil {
		s.log.Println("create message:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msg := types.Message{
		Id:             dbMsg.Id,
		ConversationId: conv.ExternalId,
		SenderId:       dbMsg.SenderId,
		Text:           dbMsg.Text,
		Img:            dbMsg.Img,
		CreatedAt:      dbMsg.CreatedAt,
	}

	// best-effort live push; offline recipients read from storage
	s.cs.NotifyNewMessage(req.RecipientId, msg)

	s.writeJson(w, http.StatusCreated, msg)
}

func (s *GoSocialApp) createPost(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Text == "" || len(req.Text) > maxPostLength {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	post, err := s.db.CreatePost(database.CreatePostParams{
		PostedBy: userId,
		Text:     req.Text,
		Img:      req.Img,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, types.Post{
		Id:        post.Id,
		PostedBy:  post.PostedBy,
		Text:      post.Text,
		Img:       post.Img,
		CreatedAt: post.CreatedAt,
	})
}

func (s *GoSocialApp) getPost(w http.ResponseWriter, r *http.Request) {
	postId, err := pathId(r)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	post, err := s.db.GetPost(postId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, types.Post{
		Id:        post.Id,
		PostedBy:  post.PostedBy,
		Text:      post.Text,
		Img:       post.Img,
		Likes:     post.Likes,
		CreatedAt: post.CreatedAt,
	})
}

func (s *GoSocialApp) deletePost(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	postId, err := pathId(r)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	post, err := s.db.GetPost(postId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if post.PostedBy != userId {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.DeletePost(postId); err != nil {
		s.log.Println("delete post:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

// followUser toggles whether the requester follows the target account.
// The follow edge is what the feed query selects on.
func (s *GoSocialApp) followUser(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	followeeId, err := pathId(r)
	if err != nil || followeeId == userId {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := s.db.GetAccountById(followeeId); err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	following, err := s.db.IsFollowing(userId, followeeId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if following {
		err = s.db.UnfollowUser(userId, followeeId)
	} else {
		err = s.db.FollowUser(userId, followeeId)
	}
	if err != nil {
		s.log.Println("toggle follow:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]bool{"following": !following})
}

func (s *GoSocialApp) getUserPosts(w http.ResponseWriter, r *http.Request) {
	accountId, err := pathId(r)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbPosts, err := s.db.GetUserPosts(accountId)
	if err != nil {
		s.log.Println("user posts:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var posts []types.Post
	for _, p := range dbPosts {
		posts = append(posts, types.Post{
			Id:        p.Id,
			PostedBy:  p.PostedBy,
			Text:      p.Text,
			Img:       p.Img,
			Likes:     p.Likes,
			CreatedAt: p.CreatedAt,
		})
	}

	s.writeJson(w, http.StatusOK, posts)
}

func (s *GoSocialApp) getFeed(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	dbPosts, err := s.db.GetFeedPosts(userId)
	if err != nil {
		s.log.Println("feed posts:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var posts []types.Post
	for _, p := range dbPosts {
		posts = append(posts, types.Post{
			Id:        p.Id,
			PostedBy:  p.PostedBy,
			Text:      p.Text,
			Img:       p.Img,
			Likes:     p.Likes,
			CreatedAt: p.CreatedAt,
		})
	}

	s.writeJson(w, http.StatusOK, posts)
}

// likePost toggles the requester's like on a post. A new like persists
// a notification for the author and pushes it live when the author has
// a registered connection.
func (s *GoSocialApp) likePost(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	postId, err := pathId(r)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	post, err := s.db.GetPost(postId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if slices.Contains(post.Likes, userId) {
		likes, err := s.db.UnlikePost(postId, userId)
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		s.writeJson(w, http.StatusOK, likes)
		return
	}

	likes, err := s.db.LikePost(postId, userId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if post.PostedBy != userId {
		notif, err := s.db.CreateNotification(database.CreateNotificationParams{
			From: userId,
			To:   post.PostedBy,
			Type: "like",
		})
		if err != nil {
			s.log.Println("create notification:", err)
		} else {
			s.cs.NotifyNotification(post.PostedBy, types.Notification{
				Id:        notif.Id,
				From:      notif.From,
				To:        notif.To,
				Type:      notif.Type,
				CreatedAt: notif.CreatedAt,
			})
		}
	}

	s.writeJson(w, http.StatusOK, likes)
}

func (s *GoSocialApp) getNotifications(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	dbNotifs, err := s.db.ListNotifications(userId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var notifs []types.Notification
	for _, n := range dbNotifs {
		notifs = append(notifs, types.Notification{
			Id:        n.Id,
			From:      n.From,
			To:        n.To,
			Type:      n.Type,
			Seen:      n.Seen,
			CreatedAt: n.CreatedAt,
		})
	}

	s.writeJson(w, http.StatusOK, notifs)
}

func (s *GoSocialApp) markNotificationSeen(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	notifId, err := pathId(r)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.MarkNotificationSeen(notifId, userId); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *GoSocialApp) deleteNotification(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	notifId, err := pathId(r)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.DeleteNotification(notifId, userId); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

// serveWs upgrades the connection. Identity is optional here: a client
// without a valid session is still connected but only ever receives
// broadcast-scoped events.
func (s *GoSocialApp) serveWs(w http.ResponseWriter, r *http.Request) {
	var user types.User
	if tokenCookie, err := r.Cookie(tokenCookieKey); err == nil {
		userId, err := s.extractUserIdFromToken(tokenCookie.Value)
		if err != nil {
			s.log.Printf("ws: invalid token, connecting unidentified: %v", err)
		} else if acct, err := s.db.GetAccountById(userId); err != nil {
			s.log.Printf("ws: resolve account %d: %v", userId, err)
		} else {
			user = types.User{
				Id:         acct.Id,
				Username:   acct.Username,
				ProfilePic: acct.ProfilePic,
			}
		}
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(user, conn, s.cs, s.log)
	s.cs.RegisterClient(client)
	go client.Write()
	go client.Read()
}
