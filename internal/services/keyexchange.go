package services

import (
	"context"

	"github.com/migchat/migchat-backend/internal/models"
	"github.com/migchat/migchat-backend/pkg/apperrors"
)

// BundleSource is the storage contract the Key Exchange Service
// orchestrates. *KeyBundleStore satisfies it; tests use an in-memory
// implementation.
type BundleSource interface {
	FetchBundleForClaim(ctx context.Context, username string) (*KeyBundleView, error)
	ClaimPrekey(ctx context.Context, prekeyID int64) (bool, error)
}

// KeyExchangeService serves key bundles to requesters, consuming exactly
// one one-time prekey per successful claim.
type KeyExchangeService struct {
	store BundleSource
}

func NewKeyExchangeService(store BundleSource) *KeyExchangeService {
	return &KeyExchangeService{store: store}
}

// ClaimBundle returns targetUsername's bundle and claims its oldest
// unused one-time prekey on behalf of requestingUserID.
//
// The claim walks the fetched candidates in ascending key_id order; a
// lost race (another requester claimed the row between fetch and update)
// moves on to the next candidate. A store failure during the claim fails
// the whole request: returning the bundle anyway could hand the same
// prekey to a second requester, which breaks the single-use guarantee.
//
// Bundle depletion is not an error; the response simply carries an empty
// prekey list alongside the identity key and signed prekey.
func (s *KeyExchangeService) ClaimBundle(ctx context.Context, requestingUserID int64, targetUsername string) (*models.KeyBundlePayload, error) {
	view, err := s.store.FetchBundleForClaim(ctx, targetUsername)
	if err != nil {
		return nil, err
	}

	prekeys := make([]string, 0, len(view.OneTimePrekeys))
	claimed := false
	for _, pk := range view.OneTimePrekeys {
		if !claimed {
			ok, err := s.store.ClaimPrekey(ctx, pk.ID)
			if err != nil {
				return nil, apperrors.InternalWrap("failed to claim one-time prekey", err)
			}
			claimed = ok
			if !ok {
				// Lost the race on this row; it belongs to another
				// requester now and must not appear in our response.
				continue
			}
		}
		prekeys = append(prekeys, pk.PublicKey)
	}

	return &models.KeyBundlePayload{
		IdentityKey:           view.IdentityKey,
		SignedPrekey:          view.SignedPrekey,
		SignedPrekeySignature: view.SignedPrekeySignature,
		OneTimePrekeys:        prekeys,
	}, nil
}
