package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/migchat/migchat-backend/internal/models"
	"github.com/migchat/migchat-backend/pkg/apperrors"
)

func newKeyBundleStore(t *testing.T) (*KeyBundleStore, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewKeyBundleStore(db), mock, db
}

const (
	upsertBundleQ  = `INSERT INTO user_keys .* ON CONFLICT \(user_id\) DO UPDATE`
	deletePrekeysQ = `DELETE FROM one_time_prekeys WHERE user_id = \$1`
	insertPrekeyQ  = `INSERT INTO one_time_prekeys \(user_id, key_id, public_key, used\)`
)

func TestKeyBundleStore_Publish(t *testing.T) {
	store, mock, db := newKeyBundleStore(t)
	defer db.Close()

	bundle := models.KeyBundlePayload{
		IdentityKey:           "ik",
		SignedPrekey:          "spk",
		SignedPrekeySignature: "sig",
		OneTimePrekeys:        []string{"otp0", "otp1", "otp2"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(upsertBundleQ).
		WithArgs(int64(5), "ik", "spk", "sig").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deletePrekeysQ).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	for i, key := range bundle.OneTimePrekeys {
		mock.ExpectExec(insertPrekeyQ).
			WithArgs(int64(5), int64(i), key).
			WillReturnResult(sqlmock.NewResult(int64(i+1), 1))
	}
	mock.ExpectCommit()

	require.NoError(t, store.Publish(context.Background(), 5, bundle))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKeyBundleStore_Publish_RollsBackOnFailure(t *testing.T) {
	store, mock, db := newKeyBundleStore(t)
	defer db.Close()

	bundle := models.KeyBundlePayload{
		IdentityKey:           "ik",
		SignedPrekey:          "spk",
		SignedPrekeySignature: "sig",
		OneTimePrekeys:        []string{"otp0"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(upsertBundleQ).
		WithArgs(int64(5), "ik", "spk", "sig").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deletePrekeysQ).
		WithArgs(int64(5)).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := store.Publish(context.Background(), 5, bundle)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

const (
	lookupUserQ  = `SELECT id FROM users WHERE username = \$1`
	readBundleQ  = `SELECT identity_key, signed_prekey, signed_prekey_signature\s+FROM user_keys WHERE user_id = \$1`
	readPrekeysQ = `SELECT id, user_id, key_id, public_key, used, created_at\s+FROM one_time_prekeys`
)

func TestKeyBundleStore_FetchBundleForClaim(t *testing.T) {
	store, mock, db := newKeyBundleStore(t)
	defer db.Close()

	mock.ExpectQuery(lookupUserQ).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectQuery(readBundleQ).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"identity_key", "signed_prekey", "signed_prekey_signature"}).
			AddRow("ik", "spk", "sig"))
	mock.ExpectQuery(readPrekeysQ).
		WithArgs(int64(5), claimFetchLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "key_id", "public_key", "used", "created_at"}).
			AddRow(int64(101), int64(5), int64(0), "otp0", false, time.Now()).
			AddRow(int64(102), int64(5), int64(1), "otp1", false, time.Now()))

	view, err := store.FetchBundleForClaim(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(5), view.UserID)
	assert.Equal(t, "ik", view.IdentityKey)
	require.Len(t, view.OneTimePrekeys, 2)
	assert.Equal(t, int64(101), view.OneTimePrekeys[0].ID)
	assert.Equal(t, int64(0), view.OneTimePrekeys[0].KeyID)
}

func TestKeyBundleStore_FetchBundleForClaim_UserNotFound(t *testing.T) {
	store, mock, db := newKeyBundleStore(t)
	defer db.Close()

	mock.ExpectQuery(lookupUserQ).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := store.FetchBundleForClaim(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestKeyBundleStore_FetchBundleForClaim_KeysNotFound(t *testing.T) {
	store, mock, db := newKeyBundleStore(t)
	defer db.Close()

	mock.ExpectQuery(lookupUserQ).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectQuery(readBundleQ).
		WithArgs(int64(5)).
		WillReturnError(sql.ErrNoRows)

	_, err := store.FetchBundleForClaim(context.Background(), "alice")
	assert.ErrorIs(t, err, apperrors.ErrKeysNotFound)
}

func TestKeyBundleStore_ClaimPrekey(t *testing.T) {
	store, mock, db := newKeyBundleStore(t)
	defer db.Close()

	q := `UPDATE one_time_prekeys SET used = TRUE WHERE id = \$1 AND used = FALSE`

	t.Run("wins", func(t *testing.T) {
		mock.ExpectExec(q).
			WithArgs(int64(101)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		claimed, err := store.ClaimPrekey(context.Background(), 101)
		require.NoError(t, err)
		assert.True(t, claimed)
	})

	t.Run("already claimed", func(t *testing.T) {
		mock.ExpectExec(q).
			WithArgs(int64(101)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		claimed, err := store.ClaimPrekey(context.Background(), 101)
		require.NoError(t, err)
		assert.False(t, claimed)
	})
}
