package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/teris-io/shortid"
)

const conversationColumns = "id, external_id, participant_one, participant_two, " +
	"last_message_text, last_message_sender, last_message_seen, created_at, updated_at"

func (db *PgSocialRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, password_hash, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, username, email, created_at",
		params.Username,
		params.Email,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.Email,
		&u.CreatedAt,
	)

	return u, err
}

func (db *PgSocialRepository) GetAccountById(accountId int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, profile_pic FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		accountId,
	)

	var u User
	err := row.Scan(
		&u.Id,
		&u.Username,
		&u.Email,
		&u.ProfilePic,
	)

	return u, err
}

func (db *PgSocialRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash, profile_pic FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var u User
	err := row.Scan(
		&u.Id,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.ProfilePic,
	)

	return u, err
}

func (db *PgSocialRepository) GetAccountByUsername(username string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, profile_pic FROM accounts "+
			"WHERE username = $1 LIMIT 1",
		username,
	)

	var u User
	err := row.Scan(
		&u.Id,
		&u.Username,
		&u.Email,
		&u.ProfilePic,
	)

	return u, err
}

func scanConversation(row *sql.Row) (Conversation, error) {
	var c Conversation
	err := row.Scan(
		&c.Id,
		&c.ExternalId,
		&c.ParticipantOne,
		&c.ParticipantTwo,
		&c.LastMessageText,
		&c.LastMessageSender,
		&c.LastMessageSeen,
		&c.CreatedAt,
		&c.UpdatedAt,
	)

	return c, err
}

func (db *PgSocialRepository) GetConversationByExternalId(externalId string) (Conversation, error) {
	row := db.conn.QueryRow(
		"SELECT "+conversationColumns+" FROM conversations "+
			"WHERE external_id = $1 LIMIT 1",
		externalId,
	)

	return scanConversation(row)
}

func (db *PgSocialRepository) GetOrCreateConversation(accountId, otherId int) (Conversation, error) {
	row := db.conn.QueryRow(
		"SELECT "+conversationColumns+" FROM conversations "+
			"WHERE (participant_one = $1 AND participant_two = $2) "+
			"OR (participant_one = $2 AND participant_two = $1) LIMIT 1",
		accountId,
		otherId,
	)

	conv, err := scanConversation(row)
	if err == nil {
		return conv, nil
	}
	if err != sql.ErrNoRows {
		return Conversation{}, err
	}

	sid, err := shortid.Generate()
	if err != nil {
		return Conversation{}, fmt.Errorf("generate conversation id: %w", err)
	}

	now := time.Now().UTC()
	row = db.conn.QueryRow(
		"INSERT INTO conversations (external_id, participant_one, participant_two, "+
			"last_message_text, last_message_sender, last_message_seen, created_at, updated_at) "+
			"VALUES ($1, $2, $3, '', 0, true, $4, $4) RETURNING "+conversationColumns,
		sid,
		accountId,
		otherId,
		now,
	)

	return scanConversation(row)
}

func (db *PgSocialRepository) ListConversations(accountId int) ([]Conversation, error) {
	rows, err := db.conn.Query(
		"SELECT "+conversationColumns+" FROM conversations "+
			"WHERE participant_one = $1 OR participant_two = $1 "+
			"ORDER BY updated_at DESC",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(
			&c.Id,
			&c.ExternalId,
			&c.ParticipantOne,
			&c.ParticipantTwo,
			&c.LastMessageText,
			&c.LastMessageSender,
			&c.LastMessageSeen,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}

	return convs, rows.Err()
}

// MarkConversationSeen flips every unseen message in the conversation
// and the conversation's last-message flag in one transaction. The seen
// flag only ever transitions false to true.
func (db *PgSocialRepository) MarkConversationSeen(conversationId int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"UPDATE messages SET seen = true WHERE conversation_id = $1 AND seen = false",
		conversationId,
	); err != nil {
		return fmt.Errorf("mark messages seen: %w", err)
	}

	if _, err := tx.Exec(
		"UPDATE conversations SET last_message_seen = true, updated_at = $2 WHERE id = $1",
		conversationId,
		time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("mark conversation seen: %w", err)
	}

	return tx.Commit()
}

// CreateMessage inserts the message and refreshes the conversation's
// denormalized last-message summary in the same transaction.
func (db *PgSocialRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Message{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	row := tx.QueryRow(
		"INSERT INTO messages (conversation_id, sender_id, body, image_url, seen, created_at) "+
			"VALUES ($1, $2, $3, $4, false, $5) RETURNING id",
		params.ConversationId,
		params.SenderId,
		params.Text,
		params.Img,
		now,
	)

	msg := Message{
		ConversationId: params.ConversationId,
		SenderId:       params.SenderId,
		Text:           params.Text,
		Img:            params.Img,
		CreatedAt:      now,
	}
	if err := row.Scan(&msg.Id); err != nil {
		return Message{}, err
	}

	if _, err := tx.Exec(
		"UPDATE conversations SET last_message_text = $2, last_message_sender = $3, "+
			"last_message_seen = false, updated_at = $4 WHERE id = $1",
		params.ConversationId,
		params.Text,
		params.SenderId,
		now,
	); err != nil {
		return Message{}, fmt.Errorf("update conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Message{}, err
	}

	return msg, nil
}

func (db *PgSocialRepository) GetMessages(conversationId int) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT id, conversation_id, sender_id, body, image_url, seen, created_at "+
			"FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC",
		conversationId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.Id,
			&m.ConversationId,
			&m.SenderId,
			&m.Text,
			&m.Img,
			&m.Seen,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}

	return msgs, rows.Err()
}

func (db *PgSocialRepository) CreatePost(params CreatePostParams) (Post, error) {
	row := db.conn.QueryRow(
		"INSERT INTO posts (posted_by, body, image_url, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, created_at",
		params.PostedBy,
		params.Text,
		params.Img,
		time.Now().UTC(),
	)

	post := Post{
		PostedBy: params.PostedBy,
		Text:     params.Text,
		Img:      params.Img,
	}
	err := row.Scan(&post.Id, &post.CreatedAt)

	return post, err
}

func (db *PgSocialRepository) GetPost(postId int) (Post, error) {
	row := db.conn.QueryRow(
		"SELECT id, posted_by, body, image_url, created_at FROM posts "+
			"WHERE id = $1 LIMIT 1",
		postId,
	)

	var p Post
	if err := row.Scan(
		&p.Id,
		&p.PostedBy,
		&p.Text,
		&p.Img,
		&p.CreatedAt,
	); err != nil {
		return Post{}, err
	}

	likes, err := db.getPostLikes(p.Id)
	if err != nil {
		return Post{}, err
	}
	p.Likes = likes

	return p, nil
}

func (db *PgSocialRepository) DeletePost(postId int) error {
	_, err := db.conn.Exec("DELETE FROM posts WHERE id = $1", postId)
	return err
}

func (db *PgSocialRepository) GetFeedPosts(accountId int) ([]Post, error) {
	rows, err := db.conn.Query(
		"SELECT p.id, p.posted_by, p.body, p.image_url, p.created_at FROM posts p "+
			"JOIN follows f ON f.followee_id = p.posted_by "+
			"WHERE f.follower_id = $1 ORDER BY p.created_at DESC",
		accountId,
	)
	if err != nil {
		return nil, err
	}

	return db.collectPosts(rows)
}

func (db *PgSocialRepository) GetUserPosts(accountId int) ([]Post, error) {
	rows, err := db.conn.Query(
		"SELECT id, posted_by, body, image_url, created_at FROM posts "+
			"WHERE posted_by = $1 ORDER BY created_at DESC",
		accountId,
	)
	if err != nil {
		return nil, err
	}

	return db.collectPosts(rows)
}

func (db *PgSocialRepository) collectPosts(rows *sql.Rows) ([]Post, error) {
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(
			&p.Id,
			&p.PostedBy,
			&p.Text,
			&p.Img,
			&p.CreatedAt,
		); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range posts {
		likes, err := db.getPostLikes(posts[i].Id)
		if err != nil {
			return nil, err
		}
		posts[i].Likes = likes
	}

	return posts, nil
}

func (db *PgSocialRepository) getPostLikes(postId int) ([]int, error) {
	rows, err := db.conn.Query(
		"SELECT account_id FROM post_likes WHERE post_id = $1 ORDER BY account_id",
		postId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var likes []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		likes = append(likes, id)
	}

	return likes, rows.Err()
}

func (db *PgSocialRepository) LikePost(postId, accountId int) ([]int, error) {
	if _, err := db.conn.Exec(
		"INSERT INTO post_likes (post_id, account_id, created_at) VALUES ($1, $2, $3) "+
			"ON CONFLICT (post_id, account_id) DO NOTHING",
		postId,
		accountId,
		time.Now().UTC(),
	); err != nil {
		return nil, err
	}

	return db.getPostLikes(postId)
}

func (db *PgSocialRepository) UnlikePost(postId, accountId int) ([]int, error) {
	if _, err := db.conn.Exec(
		"DELETE FROM post_likes WHERE post_id = $1 AND account_id = $2",
		postId,
		accountId,
	); err != nil {
		return nil, err
	}

	return db.getPostLikes(postId)
}

func (db *PgSocialRepository) FollowUser(followerId, followeeId int) error {
	_, err := db.conn.Exec(
		"INSERT INTO follows (follower_id, followee_id, created_at) VALUES ($1, $2, $3) "+
			"ON CONFLICT (follower_id, followee_id) DO NOTHING",
		followerId,
		followeeId,
		time.Now().UTC(),
	)
	return err
}

func (db *PgSocialRepository) UnfollowUser(followerId, followeeId int) error {
	_, err := db.conn.Exec(
		"DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2",
		followerId,
		followeeId,
	)
	return err
}

func (db *PgSocialRepository) IsFollowing(followerId, followeeId int) (bool, error) {
	row := db.conn.QueryRow(
		"SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id = $1 AND followee_id = $2)",
		followerId,
		followeeId,
	)

	var following bool
	err := row.Scan(&following)

	return following, err
}

func (db *PgSocialRepository) CreateNotification(params CreateNotificationParams) (Notification, error) {
	row := db.conn.QueryRow(
		"INSERT INTO notifications (from_account, to_account, type, seen, created_at) "+
			"VALUES ($1, $2, $3, false, $4) RETURNING id, created_at",
		params.From,
		params.To,
		params.Type,
		time.Now().UTC(),
	)

	n := Notification{
		From: params.From,
		To:   params.To,
		Type: params.Type,
	}
	err := row.Scan(&n.Id, &n.CreatedAt)

	return n, err
}

func (db *PgSocialRepository) ListNotifications(accountId int) ([]Notification, error) {
	rows, err := db.conn.Query(
		"SELECT id, from_account, to_account, type, seen, created_at FROM notifications "+
			"WHERE to_account = $1 ORDER BY created_at DESC",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifs []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(
			&n.Id,
			&n.From,
			&n.To,
			&n.Type,
			&n.Seen,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		notifs = append(notifs, n)
	}

	return notifs, rows.Err()
}

func (db *PgSocialRepository) MarkNotificationSeen(notificationId, accountId int) error {
	_, err := db.conn.Exec(
		"UPDATE notifications SET seen = true WHERE id = $1 AND to_account = $2",
		notificationId,
		accountId,
	)
	return err
}

func (db *PgSocialRepository) DeleteNotification(notificationId, accountId int) error {
	_, err := db.conn.Exec(
		"DELETE FROM notifications WHERE id = $1 AND to_account = $2",
		notificationId,
		accountId,
	)
	return err
}
