package services

import (
	"context"
	"fmt"

	"agent-portal/models"
	"agent-portal/repository"
)

type DashboardService struct {
	users    repository.UserRepository
	agents   repository.AgentRepository
	leads    repository.LeadRepository
	subs     repository.SubscriptionRepository
	currency string
}

func NewDashboardService(
	users repository.UserRepository,
	agents repository.AgentRepository,
	leads repository.LeadRepository,
	subs repository.SubscriptionRepository,
	currency string,
) *DashboardService {
	return &DashboardService{users: users, agents: agents, leads: leads, subs: subs, currency: currency}
}

func (s *DashboardService) ClientSummary(ctx context.Context, userID string) (*models.ClientSummary, error) {
	agents, err := s.agents.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}

	summary := &models.ClientSummary{
		AgentsTotal:    len(agents),
		AgentsByStatus: countBy(agents, func(a models.Agent) string { return a.Status }),
		LeadsByStatus:  map[string]int{},
	}
	for _, a := range agents {
		leads, _, err := s.leads.ListByAgent(ctx, a.ID, 0, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to list leads: %w", err)
		}
		summary.LeadsTotal += len(leads)
		for _, l := range leads {
			summary.LeadsByStatus[l.Status]++
		}
	}

	subs, err := s.subs.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	for _, sub := range subs {
		if sub.Live() {
			summary.ActiveSubscriptions++
		}
	}
	return summary, nil
}

// AdminStats computes platform totals. MRR sums the plan price of every live subscription.
func (s *DashboardService) AdminStats(ctx context.Context) (*models.AdminStats, error) {
	_, usersTotal, err := s.users.List(ctx, 0, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	agents, err := s.agents.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	leads, leadsTotal, err := s.leads.List(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	subs, err := s.subs.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	stats := &models.AdminStats{
		UsersTotal:     usersTotal,
		AgentsTotal:    len(agents),
		AgentsByStatus: countBy(agents, func(a models.Agent) string { return a.Status }),
		AgentsByPlan:   countBy(agents, func(a models.Agent) string { return a.Plan }),
		LeadsTotal:     leadsTotal,
		LeadsByStatus:  countBy(leads, func(l models.Lead) string { return l.Status }),
		Currency:       s.currency,
	}
	for _, sub := range subs {
		if !sub.Live() {
			continue
		}
		stats.ActiveSubscriptions++
		if plan, ok := models.ParsePlan(sub.Plan); ok {
			stats.MRR += plan.AmountCents
		}
	}
	return stats, nil
}
