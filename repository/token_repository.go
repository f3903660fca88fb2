package repository

import (
	"context"
	"time"

	"agent-portal/database"
)

// TokenRepository is the allow-list of live refresh token ids.
type TokenRepository interface {
	Store(ctx context.Context, tokenID, userID string, ttl time.Duration) error
	Lookup(ctx context.Context, tokenID string) (string, error)
	// Consume removes tokenID and returns its user in one step, so a token
	// can be redeemed at most once.
	Consume(ctx context.Context, tokenID string) (string, error)
	Revoke(ctx context.Context, tokenID string) error
	// RevokeUser removes every refresh token issued to userID.
	RevokeUser(ctx context.Context, userID string) error
}

type redisTokenRepo struct {
	store *database.Store
}

func NewTokenRepository(store *database.Store) TokenRepository {
	return &redisTokenRepo{store: store}
}

func userTokensKey(userID string) string {
	return database.Key("refresh", "user", userID)
}

func (r *redisTokenRepo) Store(ctx context.Context, tokenID, userID string, ttl time.Duration) error {
	if err := r.store.SetString(ctx, database.Key("refresh", tokenID), userID, ttl); err != nil {
		return err
	}
	if err := r.store.AddToIndex(ctx, userTokensKey(userID), tokenID); err != nil {
		return err
	}
	return r.store.Expire(ctx, userTokensKey(userID), ttl)
}

func (r *redisTokenRepo) Lookup(ctx context.Context, tokenID string) (string, error) {
	userID, found, err := r.store.GetString(ctx, database.Key("refresh", tokenID))
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrNotFound
	}
	return userID, nil
}

func (r *redisTokenRepo) Consume(ctx context.Context, tokenID string) (string, error) {
	userID, found, err := r.store.GetDel(ctx, database.Key("refresh", tokenID))
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrNotFound
	}
	if err := r.store.RemoveFromIndex(ctx, userTokensKey(userID), tokenID); err != nil {
		return "", err
	}
	return userID, nil
}

func (r *redisTokenRepo) Revoke(ctx context.Context, tokenID string) error {
	return r.store.Delete(ctx, database.Key("refresh", tokenID))
}

func (r *redisTokenRepo) RevokeUser(ctx context.Context, userID string) error {
	ids, err := r.store.IndexMembers(ctx, userTokensKey(userID))
	if err != nil {
		return err
	}
	keys := append(keysFor("refresh", ids), userTokensKey(userID))
	return r.store.Delete(ctx, keys...)
}

// EventLedger remembers processed webhook deliveries.
type EventLedger interface {
	// MarkProcessed returns false when the event id was already recorded.
	MarkProcessed(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

const eventLedgerTTL = 72 * time.Hour

type redisEventLedger struct {
	store *database.Store
}

func NewEventLedger(store *database.Store) EventLedger {
	return &redisEventLedger{store: store}
}

func (l *redisEventLedger) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	return l.store.SetNX(ctx, database.Key("stripe", "event", eventID), time.Now().UTC().Format(time.RFC3339), eventLedgerTTL)
}

func (l *redisEventLedger) Forget(ctx context.Context, eventID string) error {
	return l.store.Delete(ctx, database.Key("stripe", "event", eventID))
}
