package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"agent-portal/integrations"
	"agent-portal/models"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	MailWelcome          = "welcome"
	MailLeadNotification = "lead_notification"
	MailAgentActive      = "agent_active"
	MailPaymentSucceeded = "payment_succeeded"
	MailPaymentFailed    = "payment_failed"
)

type mailConfig struct {
	tmplFile string
	subject  string
}

var mailConfigs = map[string]mailConfig{
	MailWelcome:          {tmplFile: "templates/welcome.html", subject: "Bem-vindo ao Digital Agent"},
	MailLeadNotification: {tmplFile: "templates/lead_notification.html", subject: "Novo lead: %s"},
	MailAgentActive:      {tmplFile: "templates/agent_active.html", subject: "Seu agente %s está ativo"},
	MailPaymentSucceeded: {tmplFile: "templates/payment_succeeded.html", subject: "Pagamento confirmado"},
	MailPaymentFailed:    {tmplFile: "templates/payment_failed.html", subject: "Falha no pagamento"},
}

// Mailer renders transactional emails and hands them to an EmailSender.
type Mailer struct {
	sender      integrations.EmailSender
	templates   map[string]*template.Template
	frontendURL string
	adminEmail  string
	attempts    int
	backoff     time.Duration
	logger      *zap.Logger
}

func NewMailer(sender integrations.EmailSender, frontendURL, adminEmail string, logger *zap.Logger) (*Mailer, error) {
	tmpls := make(map[string]*template.Template)
	for kind, cfg := range mailConfigs {
		tmpl, err := template.ParseFS(templateFS, cfg.tmplFile)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template for %s: %w", kind, err)
		}
		tmpls[kind] = tmpl
	}
	return &Mailer{
		sender:      sender,
		templates:   tmpls,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		adminEmail:  adminEmail,
		attempts:    3,
		backoff:     time.Second,
		logger:      logger,
	}, nil
}

func (m *Mailer) SendWelcome(ctx context.Context, user *models.User) error {
	return m.send(ctx, MailWelcome, []string{user.Email}, "", map[string]any{
		"Name":        user.Name,
		"FrontendURL": m.frontendURL,
	})
}

// SendLeadNotification notifies the admin inbox and, when the lead came through an agent, its owner.
func (m *Mailer) SendLeadNotification(ctx context.Context, lead *models.Lead, agent *models.Agent, owner *models.User) error {
	var to []string
	if m.adminEmail != "" {
		to = append(to, m.adminEmail)
	}
	if owner != nil && owner.Email != "" && owner.Email != m.adminEmail {
		to = append(to, owner.Email)
	}
	if len(to) == 0 {
		m.logger.Warn("No recipient for lead notification", zap.String("lead_id", lead.ID))
		return nil
	}

	data := map[string]any{"Lead": lead, "FrontendURL": m.frontendURL}
	if agent != nil {
		data["AgentName"] = agent.Name
	}
	return m.send(ctx, MailLeadNotification, to, lead.Email, data, lead.Name)
}

func (m *Mailer) SendAgentActive(ctx context.Context, owner *models.User, agent *models.Agent) error {
	return m.send(ctx, MailAgentActive, []string{owner.Email}, "", map[string]any{
		"Name":         owner.Name,
		"AgentID":      agent.ID,
		"AgentName":    agent.Name,
		"BusinessName": agent.BusinessName,
		"Channel":      agent.Channel,
		"FrontendURL":  m.frontendURL,
	}, agent.Name)
}

func (m *Mailer) SendPaymentSucceeded(ctx context.Context, user *models.User, planID string, amount int64, currency string) error {
	return m.send(ctx, MailPaymentSucceeded, []string{user.Email}, "", m.paymentData(user, planID, amount, currency, ""))
}

func (m *Mailer) SendPaymentFailed(ctx context.Context, user *models.User, planID string, amount int64, currency, reason string) error {
	return m.send(ctx, MailPaymentFailed, []string{user.Email}, "", m.paymentData(user, planID, amount, currency, reason))
}

func (m *Mailer) paymentData(user *models.User, planID string, amount int64, currency, reason string) map[string]any {
	planName := planID
	if plan, ok := models.ParsePlan(planID); ok {
		planName = plan.Name
	}
	return map[string]any{
		"Name":        user.Name,
		"PlanName":    planName,
		"Amount":      FormatAmount(amount, currency),
		"Reason":      reason,
		"FrontendURL": m.frontendURL,
	}
}

func (m *Mailer) send(ctx context.Context, kind string, to []string, replyTo string, data map[string]any, subjectArgs ...any) error {
	cfg, ok := mailConfigs[kind]
	if !ok {
		return fmt.Errorf("unsupported email type: %s", kind)
	}

	var buf bytes.Buffer
	if err := m.templates[kind].Execute(&buf, data); err != nil {
		return fmt.Errorf("template render failed: %w", err)
	}
	subject := cfg.subject
	if len(subjectArgs) > 0 {
		subject = fmt.Sprintf(cfg.subject, subjectArgs...)
	}

	email := integrations.Email{To: to, Subject: subject, HTML: buf.String(), ReplyTo: replyTo}

	var lastErr error
	var messageID string
	for attempt := 0; attempt < m.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * m.backoff):
			}
		}

		messageID, lastErr = m.sender.Send(ctx, email)
		if lastErr == nil {
			break
		}
		m.logger.Warn("Send attempt failed",
			zap.String("email", kind),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr),
		)
	}
	if lastErr != nil {
		return fmt.Errorf("failed to send %s email: %w", kind, lastErr)
	}

	m.logger.Info("Email sent",
		zap.String("email", kind),
		zap.Int("recipients", len(to)),
		zap.String("message_id", messageID),
	)
	return nil
}

// FormatAmount renders an amount in cents for humans, e.g. "R$ 297,00".
func FormatAmount(cents int64, currency string) string {
	major, minor := cents/100, cents%100
	if minor < 0 {
		minor = -minor
	}
	if strings.EqualFold(currency, "brl") {
		return fmt.Sprintf("R$ %s,%02d", groupThousands(major, "."), minor)
	}
	return fmt.Sprintf("%s %s.%02d", strings.ToUpper(currency), groupThousands(major, ","), minor)
}

func groupThousands(n int64, sep string) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var out []string
	for len(s) > 3 {
		out = append([]string{s[len(s)-3:]}, out...)
		s = s[:len(s)-3]
	}
	out = append([]string{s}, out...)
	res := strings.Join(out, sep)
	if neg {
		return "-" + res
	}
	return res
}
