package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/migchat/migchat-backend/pkg/apperrors"
)

const (
	insertMessageQ = `INSERT INTO messages \(from_user_id, to_user_id, content\)`
	listMessagesQ  = `SELECT m\.id, m\.content, m\.created_at`
	conversationsQ = `SELECT DISTINCT ON \(other_username\)`
	markReadQ      = `UPDATE messages SET read_at = NOW\(\)`
)

func TestMessageStore_Send(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(insertMessageQ).
		WithArgs(int64(1), int64(2), "hey").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), now))

	store := NewMessageStore(db)
	msg, err := store.Send(context.Background(), 1, 2, "hey")
	require.NoError(t, err)

	assert.Equal(t, int64(42), msg.ID)
	assert.Equal(t, int64(1), msg.FromUserID)
	assert.Equal(t, int64(2), msg.ToUserID)
	assert.Equal(t, "hey", msg.Content)
	assert.Equal(t, now, msg.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageStore_Send_DBError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(insertMessageQ).
		WillReturnError(errors.New("connection reset"))

	store := NewMessageStore(db)
	_, err = store.Send(context.Background(), 1, 2, "hey")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeInternal, appErr.Code)
}

func TestMessageStore_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	newer := time.Now()
	older := newer.Add(-time.Minute)
	mock.ExpectQuery(listMessagesQ).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "content", "created_at", "from_username", "to_username"}).
			AddRow(int64(2), "second", newer, "bob", "alice").
			AddRow(int64(1), "first", older, "alice", "bob"))

	store := NewMessageStore(db)
	msgs, err := store.List(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, msgs, 2)
	assert.Equal(t, "second", msgs[0].Content)
	assert.Equal(t, "bob", msgs[0].FromUsername)
	assert.Equal(t, "first", msgs[1].Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageStore_List_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(listMessagesQ).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "content", "created_at", "from_username", "to_username"}))

	store := NewMessageStore(db)
	msgs, err := store.List(context.Background(), 1)
	require.NoError(t, err)

	// Empty slice, not nil, so the handler serializes [] rather than null.
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func TestMessageStore_ListWith(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(listMessagesQ).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "content", "created_at", "from_username", "to_username"}).
			AddRow(int64(5), "hello", time.Now(), "alice", "bob"))

	store := NewMessageStore(db)
	msgs, err := store.ListWith(context.Background(), 1, 2)
	require.NoError(t, err)

	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageStore_Conversations(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(conversationsQ).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"other_username", "content", "created_at", "unread_count"}).
			AddRow("bob", "see you", now, int64(2)).
			AddRow("carol", "thanks", now.Add(-time.Hour), int64(0)))

	store := NewMessageStore(db)
	convs, err := store.Conversations(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, convs, 2)
	assert.Equal(t, "bob", convs[0].Username)
	assert.Equal(t, "see you", convs[0].LastMessage)
	assert.Equal(t, int64(2), convs[0].UnreadCount)
	assert.Equal(t, int64(0), convs[1].UnreadCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageStore_Conversations_UnreadExcludesSelfSent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// The unread window must not count the caller's own outbound
	// messages, which matters for a conversation with oneself.
	const selfSentGuardQ = `FILTER \(\s*WHERE m\.to_user_id = \$1 AND m\.from_user_id <> \$1 AND m\.read_at IS NULL`
	mock.ExpectQuery(selfSentGuardQ).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"other_username", "content", "created_at", "unread_count"}).
			AddRow("alice", "note to self", time.Now(), int64(0)))

	store := NewMessageStore(db)
	convs, err := store.Conversations(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, convs, 1)
	assert.Equal(t, int64(0), convs[0].UnreadCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageStore_MarkRead(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Sender first, recipient second.
	mock.ExpectExec(markReadQ).
		WithArgs(int64(2), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	store := NewMessageStore(db)
	n, err := store.MarkRead(context.Background(), 1, 2)
	require.NoError(t, err)

	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageStore_MarkRead_NothingUnread(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(markReadQ).
		WithArgs(int64(2), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewMessageStore(db)
	n, err := store.MarkRead(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Zero(t, n)
}
