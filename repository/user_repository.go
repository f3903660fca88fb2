package repository

import (
	"context"
	"fmt"
	"strings"

	"agent-portal/database"
	"agent-portal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, offset, limit int) ([]models.User, int64, error)
}

type redisUserRepo struct {
	store *database.Store
}

func NewUserRepository(store *database.Store) UserRepository {
	return &redisUserRepo{store: store}
}

func userKey(id string) string { return database.Key("user", id) }

func emailKey(email string) string {
	return database.Key("user", "email", strings.ToLower(strings.TrimSpace(email)))
}

// Create reserves the email first so concurrent registrations cannot both succeed.
func (r *redisUserRepo) Create(ctx context.Context, user *models.User) error {
	ok, err := r.store.SetNX(ctx, emailKey(user.Email), user.ID, 0)
	if err != nil {
		return fmt.Errorf("reserve email: %w", err)
	}
	if !ok {
		return ErrDuplicate
	}
	if err := r.store.SetJSON(ctx, userKey(user.ID), user, 0); err != nil {
		_ = r.store.Delete(ctx, emailKey(user.Email))
		return err
	}
	return r.store.AddToTimeline(ctx, database.Key("users"), user.ID, user.CreatedAt)
}

func (r *redisUserRepo) Update(ctx context.Context, user *models.User) error {
	return r.store.SetJSON(ctx, userKey(user.ID), user, 0)
}

func (r *redisUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	found, err := r.store.GetJSON(ctx, userKey(id), &user)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r *redisUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	id, found, err := r.store.GetString(ctx, emailKey(email))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *redisUserRepo) List(ctx context.Context, offset, limit int) ([]models.User, int64, error) {
	ids, total, err := r.store.TimelinePage(ctx, database.Key("users"), offset, limit)
	if err != nil {
		return nil, 0, err
	}
	users, err := database.LoadMany[models.User](ctx, r.store, keysFor("user", ids))
	return users, total, err
}

func keysFor(kind string, ids []string) []string {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = database.Key(kind, id)
	}
	return keys
}
