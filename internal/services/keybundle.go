package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/migchat/migchat-backend/internal/models"
	"github.com/migchat/migchat-backend/pkg/apperrors"
)

// claimFetchLimit is how many unused one-time prekeys a claim response
// carries at most.
const claimFetchLimit = 10

// KeyBundleView is everything the Key Exchange Service needs to serve a
// claim: the target's bundle row plus its oldest unused prekeys.
type KeyBundleView struct {
	UserID                int64
	IdentityKey           string
	SignedPrekey          string
	SignedPrekeySignature string
	OneTimePrekeys        []models.OneTimePrekey
}

// KeyBundleStore owns a user's published identity key, signed prekey and
// pool of one-time prekeys.
type KeyBundleStore struct {
	db *sql.DB
}

func NewKeyBundleStore(db *sql.DB) *KeyBundleStore {
	return &KeyBundleStore{db: db}
}

// Publish stores or replaces a user's key bundle. The bundle row and its
// one-time prekeys are versioned together: republishing overwrites the
// bundle, deletes every previously stored prekey for the user and
// inserts the new batch, all inside one transaction so a concurrent
// claim never observes a half-applied publish.
func (s *KeyBundleStore) Publish(ctx context.Context, userID int64, bundle models.KeyBundlePayload) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.InternalWrap("failed to begin publish transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_keys (user_id, identity_key, signed_prekey, signed_prekey_signature)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE SET
			identity_key = EXCLUDED.identity_key,
			signed_prekey = EXCLUDED.signed_prekey,
			signed_prekey_signature = EXCLUDED.signed_prekey_signature,
			created_at = NOW()`,
		userID, bundle.IdentityKey, bundle.SignedPrekey, bundle.SignedPrekeySignature,
	)
	if err != nil {
		return apperrors.InternalWrap("failed to upsert key bundle", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM one_time_prekeys WHERE user_id = $1`, userID,
	)
	if err != nil {
		return apperrors.InternalWrap("failed to invalidate old one-time prekeys", err)
	}

	for i, publicKey := range bundle.OneTimePrekeys {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO one_time_prekeys (user_id, key_id, public_key, used)
			 VALUES ($1, $2, $3, FALSE)`,
			userID, int64(i), publicKey,
		)
		if err != nil {
			return apperrors.InternalWrap("failed to insert one-time prekey", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.InternalWrap("failed to commit publish transaction", err)
	}
	return nil
}

// FetchBundleForClaim resolves username to its bundle and up to 10
// unused one-time prekeys, oldest batch ordinal first.
func (s *KeyBundleStore) FetchBundleForClaim(ctx context.Context, username string) (*KeyBundleView, error) {
	var userID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM users WHERE username = $1`, username,
	).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.InternalWrap("failed to look up user", err)
	}

	view := &KeyBundleView{UserID: userID}
	err = s.db.QueryRowContext(ctx,
		`SELECT identity_key, signed_prekey, signed_prekey_signature
		 FROM user_keys WHERE user_id = $1`,
		userID,
	).Scan(&view.IdentityKey, &view.SignedPrekey, &view.SignedPrekeySignature)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrKeysNotFound
		}
		return nil, apperrors.InternalWrap("failed to read key bundle", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, key_id, public_key, used, created_at
		 FROM one_time_prekeys
		 WHERE user_id = $1 AND used = FALSE
		 ORDER BY key_id ASC
		 LIMIT $2`,
		userID, claimFetchLimit,
	)
	if err != nil {
		return nil, apperrors.InternalWrap("failed to read one-time prekeys", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pk models.OneTimePrekey
		if err := rows.Scan(&pk.ID, &pk.UserID, &pk.KeyID, &pk.PublicKey, &pk.Used, &pk.CreatedAt); err != nil {
			return nil, apperrors.InternalWrap("failed to scan one-time prekey", err)
		}
		view.OneTimePrekeys = append(view.OneTimePrekeys, pk)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.InternalWrap("failed to read one-time prekeys", err)
	}

	return view, nil
}

// ClaimPrekey marks one prekey used. The conditional update is the
// whole concurrency story: it succeeds only if the row was still unused
// at update time, so two racing claimers can never both win the same
// row. Returns false without error when another claimer got there first.
func (s *KeyBundleStore) ClaimPrekey(ctx context.Context, prekeyID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE one_time_prekeys SET used = TRUE WHERE id = $1 AND used = FALSE`,
		prekeyID,
	)
	if err != nil {
		return false, apperrors.InternalWrap("failed to claim one-time prekey", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.InternalWrap("failed to read claim result", err)
	}
	return n == 1, nil
}
