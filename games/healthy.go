/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Seednode/promptparty/llm"
)

const (
	healthyQuestions  = 10
	healthyMinAnswers = 8
	healthyMaxAnswer  = 300
)

var defaultHealthyQuestions = []string{
	"What is your age range (e.g., 18-24, 25-34, 35-44, 45+)?",
	"What is your sex assigned at birth?",
	"What is your typical activity level (sedentary, light, moderate, high)?",
	"Do you follow a dietary pattern (vegetarian/vegan/omnivore/other)?",
	"Any allergies or intolerances (e.g., dairy, nuts, gluten)?",
	"Your primary goal (lose/maintain/gain/energy/other)?",
	"What is your typical daily schedule and preferred meal frequency?",
	"Any cuisine preferences or foods you enjoy or avoid?",
	"Any medical conditions or medications to consider? (Optional, non-diagnostic)",
	"How many meals do you prefer at home vs outside?",
}

type healthyState struct {
	questions []string
}

type HealthyStart struct {
	Token     string   `json:"token"`
	Questions []string `json:"questions"`
}

type HealthyPlan struct {
	Plan string `json:"plan"`
}

// Healthy asks ten questions and turns the answers into a diet plan.
type Healthy struct {
	base
}

func NewHealthy(store Store, gen llm.Completer, log *zap.Logger) *Healthy {
	return &Healthy{base: newBase(store, gen, log)}
}

func healthyQuestionsPrompt() []llm.Message {
	return []llm.Message{
		llm.System(`Generate exactly 10 short, clear questions needed to draft a safe, practical diet plan. Return STRICT JSON: {"questions": string[10]}. No extra text.`),
		llm.User("JSON only."),
	}
}

func healthyPlanPrompt(questions, answers []string) []llm.Message {
	var body strings.Builder
	body.WriteString("Questions:\n")
	for i, q := range questions {
		fmt.Fprintf(&body, "Q%d. %s\n", i+1, q)
	}
	body.WriteString("\nAnswers:\n")
	for i, a := range answers {
		fmt.Fprintf(&body, "A%d. %s\n", i+1, a)
	}
	body.WriteString("\nCreate the plan now.")

	return []llm.Message{
		llm.System(`You are a careful nutrition assistant. Using the user's responses, create a practical, culturally-flexible, food-based diet plan.
Safety rules:
- Do NOT give medical advice or diagnose; add a short non-medical disclaimer.
- Avoid unsafe extremes; give ranges and substitutions for allergies/intolerances.
- Focus on whole foods, hydration, and sustainable habits.

Output format (plain text):
1) Summary (2-3 bullets)
2) Daily Targets (calorie range, protein/carb/fat ranges)
3) Sample Day (Breakfast, Snack, Lunch, Snack, Dinner)
4) 7-Day Rotation Ideas (bullet list by day with 1-2 meals each)
5) Tips & Substitutions (bullets)
6) Disclaimer (1 line)`),
		llm.User(body.String()),
	}
}

func (h *Healthy) Start(ctx context.Context) (*HealthyStart, error) {
	questions := defaultHealthyQuestions

	reply, err := ask[struct {
		Questions []string `json:"questions"`
	}](ctx, h.gen, healthyQuestionsPrompt(), 0.4, 280)

	switch {
	case err != nil:
		h.fellBack(KindHealthy, "questions", err)
	case len(reply.Questions) != healthyQuestions:
		h.fellBack(KindHealthy, "questions", fmt.Errorf("got %d questions", len(reply.Questions)))
	default:
		questions = make([]string, len(reply.Questions))
		for i, q := range reply.Questions {
			questions[i] = clip(q, 200)
		}
	}

	questions = append([]string(nil), questions...)

	token, err := h.store.Create(KindHealthy, &healthyState{questions: questions})
	if err != nil {
		return nil, err
	}

	return &HealthyStart{Token: token, Questions: questions}, nil
}

// Plan builds the diet plan. A generator failure is returned to the caller
// and the session is kept so the player can try again.
func (h *Healthy) Plan(ctx context.Context, token string, answers []string) (*HealthyPlan, error) {
	if len(answers) < healthyMinAnswers {
		return nil, invalid("Please provide at least %d answers.", healthyMinAnswers)
	}

	cleaned := make([]string, 0, len(answers))
	for _, a := range answers {
		cleaned = append(cleaned, clip(a, healthyMaxAnswer))
	}

	var out *HealthyPlan

	err := h.store.Update(token, KindHealthy, func(s *Session) (bool, error) {
		st := s.State.(*healthyState)

		plan, err := h.gen.Complete(ctx, healthyPlanPrompt(st.questions, cleaned), 0.6, 1400)
		if err != nil {
			return false, fmt.Errorf("generate plan: %w", err)
		}

		out = &HealthyPlan{Plan: plan}

		return true, nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}
