package repository

import (
	"context"
	"sort"

	"agent-portal/database"
	"agent-portal/models"
)

type AgentRepository interface {
	Create(ctx context.Context, agent *models.Agent) error
	Update(ctx context.Context, agent *models.Agent) error
	FindByID(ctx context.Context, id string) (*models.Agent, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Agent, error)
	ListAll(ctx context.Context) ([]models.Agent, error)
}

type redisAgentRepo struct {
	store *database.Store
}

func NewAgentRepository(store *database.Store) AgentRepository {
	return &redisAgentRepo{store: store}
}

func (r *redisAgentRepo) Create(ctx context.Context, agent *models.Agent) error {
	if err := r.store.SetJSON(ctx, database.Key("agent", agent.ID), agent, 0); err != nil {
		return err
	}
	if err := r.store.AddToIndex(ctx, database.Key("agents", "owner", agent.OwnerID), agent.ID); err != nil {
		return err
	}
	return r.store.AddToTimeline(ctx, database.Key("agents"), agent.ID, agent.CreatedAt)
}

func (r *redisAgentRepo) Update(ctx context.Context, agent *models.Agent) error {
	return r.store.SetJSON(ctx, database.Key("agent", agent.ID), agent, 0)
}

func (r *redisAgentRepo) FindByID(ctx context.Context, id string) (*models.Agent, error) {
	var agent models.Agent
	found, err := r.store.GetJSON(ctx, database.Key("agent", id), &agent)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return &agent, nil
}

func (r *redisAgentRepo) ListByOwner(ctx context.Context, ownerID string) ([]models.Agent, error) {
	ids, err := r.store.IndexMembers(ctx, database.Key("agents", "owner", ownerID))
	if err != nil {
		return nil, err
	}
	agents, err := database.LoadMany[models.Agent](ctx, r.store, keysFor("agent", ids))
	if err != nil {
		return nil, err
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].CreatedAt.After(agents[j].CreatedAt) })
	return agents, nil
}

func (r *redisAgentRepo) ListAll(ctx context.Context) ([]models.Agent, error) {
	ids, _, err := r.store.TimelinePage(ctx, database.Key("agents"), 0, 0)
	if err != nil {
		return nil, err
	}
	return database.LoadMany[models.Agent](ctx, r.store, keysFor("agent", ids))
}
