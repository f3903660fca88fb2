package models

// ClientSummary is the dashboard view of a single customer.
type ClientSummary struct {
	AgentsTotal         int            `json:"agents_total"`
	AgentsByStatus      map[string]int `json:"agents_by_status"`
	LeadsTotal          int            `json:"leads_total"`
	LeadsByStatus       map[string]int `json:"leads_by_status"`
	ActiveSubscriptions int            `json:"active_subscriptions"`
}

// AdminStats aggregates the whole platform. MRR is in cents.
type AdminStats struct {
	UsersTotal          int64          `json:"users_total"`
	AgentsTotal         int            `json:"agents_total"`
	AgentsByStatus      map[string]int `json:"agents_by_status"`
	AgentsByPlan        map[string]int `json:"agents_by_plan"`
	LeadsTotal          int64          `json:"leads_total"`
	LeadsByStatus       map[string]int `json:"leads_by_status"`
	ActiveSubscriptions int            `json:"active_subscriptions"`
	MRR                 int64          `json:"mrr"`
	Currency            string         `json:"currency"`
}
