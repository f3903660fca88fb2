package models

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Company  string `json:"company"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type UpdateProfileRequest struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Phone   string `json:"phone"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

type CreateAgentRequest struct {
	Name                string `json:"name" binding:"required"`
	Plan                string `json:"plan" binding:"required"`
	Channel             string `json:"channel" binding:"required"`
	BusinessName        string `json:"business_name" binding:"required"`
	BusinessDescription string `json:"business_description"`
	Greeting            string `json:"greeting"`
	WorkingHours        string `json:"working_hours"`
}

type UpdateAgentRequest struct {
	Name                *string `json:"name"`
	BusinessName        *string `json:"business_name"`
	BusinessDescription *string `json:"business_description"`
	Greeting            *string `json:"greeting"`
	WorkingHours        *string `json:"working_hours"`
}

type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type RoleRequest struct {
	Role string `json:"role" binding:"required"`
}

type LeadRequest struct {
	AgentID      string `json:"agent_id"`
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Company      string `json:"company"`
	Message      string `json:"message"`
	Source       string `json:"source"`
	PlanInterest string `json:"plan_interest"`
}

type BillingRequest struct {
	AgentID string `json:"agent_id" binding:"required"`
}

// N8NCallback is posted by the provisioning workflow when it finishes.
type N8NCallback struct {
	AgentID         string `json:"agent_id" binding:"required"`
	Status          string `json:"status" binding:"required"`
	ExecutionID     string `json:"execution_id"`
	ChatwootInboxID string `json:"chatwoot_inbox_id"`
	BotSailorBotID  string `json:"botsailor_bot_id"`
	Error           string `json:"error"`
}
