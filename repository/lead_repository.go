package repository

import (
	"context"

	"agent-portal/database"
	"agent-portal/models"
)

type LeadRepository interface {
	Create(ctx context.Context, lead *models.Lead) error
	Update(ctx context.Context, lead *models.Lead) error
	FindByID(ctx context.Context, id string) (*models.Lead, error)
	List(ctx context.Context, offset, limit int) ([]models.Lead, int64, error)
	ListByAgent(ctx context.Context, agentID string, offset, limit int) ([]models.Lead, int64, error)
	// ClaimConversation links a Chatwoot conversation to a lead. It reports false when
	// the conversation already belongs to a lead.
	ClaimConversation(ctx context.Context, conversationID, leadID string) (bool, error)
	ReleaseConversation(ctx context.Context, conversationID string) error
}

type redisLeadRepo struct {
	store *database.Store
}

func NewLeadRepository(store *database.Store) LeadRepository {
	return &redisLeadRepo{store: store}
}

func (r *redisLeadRepo) Create(ctx context.Context, lead *models.Lead) error {
	if err := r.store.SetJSON(ctx, database.Key("lead", lead.ID), lead, 0); err != nil {
		return err
	}
	if err := r.store.AddToTimeline(ctx, database.Key("leads"), lead.ID, lead.CreatedAt); err != nil {
		return err
	}
	if lead.AgentID != "" {
		return r.store.AddToTimeline(ctx, database.Key("leads", "agent", lead.AgentID), lead.ID, lead.CreatedAt)
	}
	return nil
}

func (r *redisLeadRepo) Update(ctx context.Context, lead *models.Lead) error {
	return r.store.SetJSON(ctx, database.Key("lead", lead.ID), lead, 0)
}

func (r *redisLeadRepo) FindByID(ctx context.Context, id string) (*models.Lead, error) {
	var lead models.Lead
	found, err := r.store.GetJSON(ctx, database.Key("lead", id), &lead)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return &lead, nil
}

func (r *redisLeadRepo) List(ctx context.Context, offset, limit int) ([]models.Lead, int64, error) {
	return r.page(ctx, database.Key("leads"), offset, limit)
}

func (r *redisLeadRepo) ListByAgent(ctx context.Context, agentID string, offset, limit int) ([]models.Lead, int64, error) {
	return r.page(ctx, database.Key("leads", "agent", agentID), offset, limit)
}

func (r *redisLeadRepo) ClaimConversation(ctx context.Context, conversationID, leadID string) (bool, error) {
	return r.store.SetNX(ctx, database.Key("lead", "conversation", conversationID), leadID, 0)
}

func (r *redisLeadRepo) ReleaseConversation(ctx context.Context, conversationID string) error {
	return r.store.Delete(ctx, database.Key("lead", "conversation", conversationID))
}

func (r *redisLeadRepo) page(ctx context.Context, index string, offset, limit int) ([]models.Lead, int64, error) {
	ids, total, err := r.store.TimelinePage(ctx, index, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	leads, err := database.LoadMany[models.Lead](ctx, r.store, keysFor("lead", ids))
	return leads, total, err
}
