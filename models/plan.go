package models

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	PlanEssencial = "essencial"
	PlanAgenda    = "agenda"
	PlanConversao = "conversao"
)

// Plan is a subscription tier of the digital agent product.
type Plan struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	AmountCents   int64    `json:"amount"`
	Currency      string   `json:"currency"`
	Interval      string   `json:"interval"`
	Features      []string `json:"features"`
	StripePriceID string   `json:"-"`
}

var planCatalog = map[string]Plan{
	PlanEssencial: {
		ID:          PlanEssencial,
		Name:        "Essencial",
		Description: "Atendimento automático 24h com respostas sobre o seu negócio",
		AmountCents: 29700,
		Interval:    "month",
		Features:    []string{"1 canal de atendimento", "Base de conhecimento do negócio", "Captura de leads"},
	},
	PlanAgenda: {
		ID:          PlanAgenda,
		Name:        "Agenda",
		Description: "Tudo do Essencial com agendamento de horários integrado",
		AmountCents: 49700,
		Interval:    "month",
		Features:    []string{"Tudo do Essencial", "Agendamento automático", "Lembretes de compromissos"},
	},
	PlanConversao: {
		ID:          PlanConversao,
		Name:        "Conversão",
		Description: "Agente focado em vendas com qualificação e follow-up de leads",
		AmountCents: 89700,
		Interval:    "month",
		Features:    []string{"Tudo do Agenda", "Qualificação de leads", "Follow-up automático", "Integração com CRM"},
	},
}

// ParsePlan resolves a plan by id or display name, ignoring case and accents in
// either composed or decomposed form.
func ParsePlan(s string) (Plan, bool) {
	p, ok := planCatalog[foldPlanName(s)]
	return p, ok
}

func foldPlanName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return ""
	}
	return folded
}

// Plans returns the catalogue ordered by price, with Stripe price ids and currency filled in.
func Plans(priceIDs map[string]string, currency string) []Plan {
	out := make([]Plan, 0, len(planCatalog))
	for id, p := range planCatalog {
		p.StripePriceID = priceIDs[id]
		p.Currency = currency
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AmountCents < out[j].AmountCents })
	return out
}
