package repository

import (
	"context"
	"sort"

	"agent-portal/database"
	"agent-portal/models"
)

type PaymentRepository interface {
	Save(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	ListByUser(ctx context.Context, userID string) ([]models.Payment, error)
}

type SubscriptionRepository interface {
	Save(ctx context.Context, sub *models.Subscription) error
	FindByID(ctx context.Context, id string) (*models.Subscription, error)
	FindByAgent(ctx context.Context, agentID string) (*models.Subscription, error)
	ListByUser(ctx context.Context, userID string) ([]models.Subscription, error)
	ListAll(ctx context.Context) ([]models.Subscription, error)
}

type redisPaymentRepo struct {
	store *database.Store
}

func NewPaymentRepository(store *database.Store) PaymentRepository {
	return &redisPaymentRepo{store: store}
}

func (r *redisPaymentRepo) Save(ctx context.Context, payment *models.Payment) error {
	if err := r.store.SetJSON(ctx, database.Key("payment", payment.ID), payment, 0); err != nil {
		return err
	}
	return r.store.AddToIndex(ctx, database.Key("payments", "user", payment.UserID), payment.ID)
}

func (r *redisPaymentRepo) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	found, err := r.store.GetJSON(ctx, database.Key("payment", id), &payment)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return &payment, nil
}

func (r *redisPaymentRepo) ListByUser(ctx context.Context, userID string) ([]models.Payment, error) {
	ids, err := r.store.IndexMembers(ctx, database.Key("payments", "user", userID))
	if err != nil {
		return nil, err
	}
	payments, err := database.LoadMany[models.Payment](ctx, r.store, keysFor("payment", ids))
	if err != nil {
		return nil, err
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].CreatedAt.After(payments[j].CreatedAt) })
	return payments, nil
}

type redisSubscriptionRepo struct {
	store *database.Store
}

func NewSubscriptionRepository(store *database.Store) SubscriptionRepository {
	return &redisSubscriptionRepo{store: store}
}

func (r *redisSubscriptionRepo) Save(ctx context.Context, sub *models.Subscription) error {
	if err := r.store.SetJSON(ctx, database.Key("subscription", sub.ID), sub, 0); err != nil {
		return err
	}
	if sub.AgentID != "" {
		if err := r.store.SetString(ctx, database.Key("subscription", "agent", sub.AgentID), sub.ID, 0); err != nil {
			return err
		}
	}
	if err := r.store.AddToIndex(ctx, database.Key("subscriptions"), sub.ID); err != nil {
		return err
	}
	return r.store.AddToIndex(ctx, database.Key("subscriptions", "user", sub.UserID), sub.ID)
}

func (r *redisSubscriptionRepo) FindByID(ctx context.Context, id string) (*models.Subscription, error) {
	var sub models.Subscription
	found, err := r.store.GetJSON(ctx, database.Key("subscription", id), &sub)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return &sub, nil
}

func (r *redisSubscriptionRepo) FindByAgent(ctx context.Context, agentID string) (*models.Subscription, error) {
	id, found, err := r.store.GetString(ctx, database.Key("subscription", "agent", agentID))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *redisSubscriptionRepo) ListByUser(ctx context.Context, userID string) ([]models.Subscription, error) {
	ids, err := r.store.IndexMembers(ctx, database.Key("subscriptions", "user", userID))
	if err != nil {
		return nil, err
	}
	return database.LoadMany[models.Subscription](ctx, r.store, keysFor("subscription", ids))
}

func (r *redisSubscriptionRepo) ListAll(ctx context.Context) ([]models.Subscription, error) {
	ids, err := r.store.IndexMembers(ctx, database.Key("subscriptions"))
	if err != nil {
		return nil, err
	}
	return database.LoadMany[models.Subscription](ctx, r.store, keysFor("subscription", ids))
}
