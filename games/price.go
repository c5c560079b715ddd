/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/Seednode/promptparty/llm"
)

const (
	PriceQuestions  = 10
	priceFloor      = 0.25
	priceCeiling    = 4.0
	priceBaseline   = 1.2
	priceWinBand    = 0.75
	defaultCategory = "general electronics"
)

var defaultPriceQuestions = []string{
	"Will new features significantly improve this product in 5 years?",
	"Will raw material costs rise substantially?",
	"Will competition intensify in this category?",
	"Will regulations add compliance costs?",
	"Will the brand move more upmarket (premium)?",
	"Will manufacturing become cheaper via scale or automation?",
	"Will demand grow among young consumers?",
	"Will substitutes (e.g., a new tech) reduce demand?",
	"Will after-sales/service bundles become standard?",
	"Will import/export duties increase?",
}

type priceState struct {
	product      string
	currency     string
	currentPrice float64
	questions    []string
	answers      []bool
	predicted    float64
	explanation  string
	forecasted   bool
}

type PriceStart struct {
	Token        string   `json:"token"`
	Product      string   `json:"product"`
	CurrentPrice float64  `json:"currentPrice"`
	Currency     string   `json:"currency"`
	Reason       string   `json:"reason"`
	Questions    []string `json:"questions"`
}

type PriceReveal struct {
	Win          bool    `json:"win"`
	Currency     string  `json:"currency"`
	PlayerGuess  float64 `json:"playerGuess"`
	AIPrice      float64 `json:"aiPrice"`
	Explanation  string  `json:"explanation"`
	Product      string  `json:"product"`
	CurrentPrice float64 `json:"currentPrice"`
}

// Price asks the player to guess a product's price five years out, as
// forecast by the generator from ten yes/no scenario answers.
type Price struct {
	base
}

func NewPrice(store Store, gen llm.Completer, log *zap.Logger) *Price {
	return &Price{base: newBase(store, gen, log)}
}

func productPrompt(category string) []llm.Message {
	return []llm.Message{
		llm.System(`Suggest a single popular consumer product in the given category with its realistic current street price and currency.
Return STRICT JSON:
{"product": string, "price": number, "currency": "USD"|"EUR"|"INR"|"GBP", "reason": string}
No extra text.`),
		llm.User(fmt.Sprintf("Category (optional): %s. JSON only.", category)),
	}
}

func scenarioPrompt(product string) []llm.Message {
	return []llm.Message{
		llm.System(`Write exactly 10 concise YES/NO questions about future scenarios that could move the 5-year price of the given product up or down.
Vary topics: demand, tech improvements, supply chain, regulation, competition, materials cost, macro trends, premium branding, accessories, after-sales.
Return STRICT JSON: {"questions": string[10]}. No extra text.`),
		llm.User(fmt.Sprintf("Product: %s. JSON only.", product)),
	}
}

func forecastPrompt(st *priceState) []llm.Message {
	var qa strings.Builder
	for i, q := range st.questions {
		yn := "No"
		if st.answers[i] {
			yn = "Yes"
		}
		fmt.Fprintf(&qa, "Q%d: %s\nA%d: %s\n", i+1, q, i+1, yn)
	}

	return []llm.Message{
		llm.System(`You are a cautious forecaster. Based on YES/NO answers to 10 scenarios, estimate a plausible 5-year retail price for the product.
Rules:
- Do NOT claim certainty; this is a playful estimate.
- Keep the number reasonable relative to current price and answers.
- Return STRICT JSON: {"predictedPrice": number, "explanation": string (<= 120 words)}`),
		llm.User(fmt.Sprintf("Product: %s\nCurrency: %s\nCurrent Price: %s\nAnswers (Y/N):\n%sJSON only.",
			st.product, st.currency, formatPrice(st.currentPrice), qa.String())),
	}
}

func formatPrice(p float64) string {
	return fmt.Sprintf("%g", p)
}

func fallbackPrice(currency string) float64 {
	if currency == "INR" {
		return 1999
	}
	return 49
}

// priceBounds returns the allowed forecast range for a current price.
// Integer bounds are preferred so forecasts can be whole numbers.
func priceBounds(current float64) (lo, hi float64, whole bool) {
	lo = math.Ceil(current * priceFloor)
	hi = math.Floor(current * priceCeiling)
	if lo < 1 || hi < lo {
		return current * priceFloor, current * priceCeiling, false
	}
	return lo, hi, true
}

// clampForecast bounds a generated forecast to [0.25x, 4x] of current.
func clampForecast(predicted, current float64) float64 {
	lo, hi, whole := priceBounds(current)
	if whole {
		predicted = math.Round(predicted)
	}
	return math.Min(hi, math.Max(lo, predicted))
}

func (p *Price) Start(ctx context.Context, category string) (*PriceStart, error) {
	category = clip(category, 80)
	if category == "" {
		category = defaultCategory
	}

	product, currency, reason := "Wireless Earbuds", "INR", "Popular mid-range pick"
	current := 3999.0

	suggestion, err := ask[struct {
		Product  string `json:"product"`
		Price    number `json:"price"`
		Currency string `json:"currency"`
		Reason   string `json:"reason"`
	}](ctx, p.gen, productPrompt(category), 0.6, 260)

	switch {
	case err != nil:
		p.fellBack(KindPrice, "product", err)
	case clip(suggestion.Product, 80) == "" || strings.TrimSpace(suggestion.Currency) == "":
		p.fellBack(KindPrice, "product", fmt.Errorf("incomplete product suggestion"))
	default:
		product = clip(suggestion.Product, 80)
		currency = strings.ToUpper(clip(suggestion.Currency, 8))
		reason = clip(suggestion.Reason, 120)
		if reason == "" {
			reason = "Popular pick"
		}

		if v, ok := suggestion.Price.positive(); ok {
			current = v
		} else {
			p.fellBack(KindPrice, "price", fmt.Errorf("unusable price for %q", product))
			current = fallbackPrice(currency)
		}
	}

	questions := defaultPriceQuestions

	scenarios, err := ask[struct {
		Questions []string `json:"questions"`
	}](ctx, p.gen, scenarioPrompt(product), 0.4, 320)

	switch {
	case err != nil:
		p.fellBack(KindPrice, "questions", err)
	case len(scenarios.Questions) != PriceQuestions:
		p.fellBack(KindPrice, "questions", fmt.Errorf("got %d questions", len(scenarios.Questions)))
	default:
		questions = make([]string, PriceQuestions)
		for i, q := range scenarios.Questions {
			questions[i] = clip(q, 140)
		}
	}

	questions = append([]string(nil), questions...)

	token, err := p.store.Create(KindPrice, &priceState{
		product:      product,
		currency:     currency,
		currentPrice: current,
		questions:    questions,
	})
	if err != nil {
		return nil, err
	}

	return &PriceStart{
		Token:        token,
		Product:      product,
		CurrentPrice: current,
		Currency:     currency,
		Reason:       reason,
		Questions:    questions,
	}, nil
}

// Answers records the ten yes/no answers and computes the hidden forecast.
func (p *Price) Answers(ctx context.Context, token string, answers []bool) error {
	if len(answers) != PriceQuestions {
		return invalid("Send an array of %d booleans for answers.", PriceQuestions)
	}

	return p.store.Update(token, KindPrice, func(s *Session) (bool, error) {
		st := s.State.(*priceState)

		st.answers = append([]bool(nil), answers...)

		predicted := math.Round(st.currentPrice * priceBaseline)
		explanation := "Baseline estimate with modest growth given mixed conditions."

		forecast, err := ask[struct {
			PredictedPrice number `json:"predictedPrice"`
			Explanation    string `json:"explanation"`
		}](ctx, p.gen, forecastPrompt(st), 0.5, 640)

		if err != nil {
			p.fellBack(KindPrice, "forecast", err)
		} else {
			if v, ok := forecast.PredictedPrice.positive(); ok {
				predicted = v
			} else {
				p.fellBack(KindPrice, "forecast", fmt.Errorf("unusable predicted price"))
			}
			if e := clip(forecast.Explanation, 400); e != "" {
				explanation = e
			}
		}

		st.predicted = clampForecast(predicted, st.currentPrice)
		st.explanation = explanation
		st.forecasted = true

		return false, nil
	})
}

// Guess reveals the forecast and ends the game. A guess wins when it is
// within 75% of the forecast.
func (p *Price) Guess(_ context.Context, token string, guess float64) (*PriceReveal, error) {
	if math.IsNaN(guess) || math.IsInf(guess, 0) {
		return nil, invalid("Invalid guess.")
	}

	var out *PriceReveal

	err := p.store.Update(token, KindPrice, func(s *Session) (bool, error) {
		st := s.State.(*priceState)

		if !st.forecasted {
			return false, invalid("Answer all %d questions before guessing.", PriceQuestions)
		}

		out = &PriceReveal{
			Win:          math.Abs(guess-st.predicted) <= priceWinBand*st.predicted,
			Currency:     st.currency,
			PlayerGuess:  guess,
			AIPrice:      st.predicted,
			Explanation:  st.explanation,
			Product:      st.product,
			CurrentPrice: st.currentPrice,
		}

		return true, nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}
