/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Seednode/promptparty/llm"
)

const (
	GlamCatalogSize    = 30
	GlamMinimumItems   = 12
	GlamTimeLimit      = 180
	glamDefaultBudget  = 15000
	glamMinimumBudget  = 10000
	glamUsableBatch    = 20
	glamAttempts       = 2
	glamWinScore       = 75
	glamOverBudgetNote = "Total spend exceeded the budget"
)

var genericName = regexp.MustCompile(`(?i)starter item|sample product|basic|product\s*\d+`)

var glamPenalty = decimal.NewFromFloat(0.85)

type glamState struct {
	gender string
	budget float64
	items  []Product
}

type GlamStart struct {
	Token     string    `json:"token"`
	Gender    string    `json:"gender"`
	BudgetInr float64   `json:"budgetInr"`
	Items     []Product `json:"items"`
}

type GlamScore struct {
	Done         bool     `json:"done"`
	Win          bool     `json:"win"`
	AutoFinished bool     `json:"autoFinished"`
	Score        int      `json:"score"`
	Summary      string   `json:"summary"`
	Positives    []string `json:"positives"`
	Negatives    []string `json:"negatives"`
	BudgetInr    float64  `json:"budgetInr"`
	TotalSpend   float64  `json:"totalSpend"`
	TimeTaken    float64  `json:"timeTaken"`
	Message      string   `json:"message"`
}

// Glam lets the player build a skincare kit from a generated catalog
// within a budget.
type Glam struct {
	base
}

func NewGlam(store Store, gen llm.Completer, log *zap.Logger) *Glam {
	return &Glam{base: newBase(store, gen, log)}
}

func suggestPrompt(gender string, budget float64) []llm.Message {
	return []llm.Message{
		llm.System(`Suggest 30 skincare/beauty products appropriate for the specified gender (or unisex).

Requirements:
- Market: India. Use realistic, specific product names (brand or brand-like), e.g., "DermaSoft Hydrating Cleanser", not "Starter Item".
- Currency: INR. Prices should be realistic for India (budget to mid-premium).
- Vary categories: cleanser, moisturizer, SPF/sunscreen, serum, exfoliant, toner/essence, face mask, lip care, body lotion, hair care, spot treatment, eye cream, primer, etc.
- Each item: one concise sentence (<= 15 words) describing benefit/texture/standout trait.
- Include "category" and a boolean "ecoFriendly".
- Optionally include "tags": short keywords like ["SPF50","fragrance-free","vitamin C"].

Return STRICT JSON ONLY:
{"items": [{"name": string, "price": number, "description": string, "category": string, "ecoFriendly": boolean, "tags": string[]}]}

Rules:
- No generic names like "Starter Item", "Sample Product", "Basic Moisturizer".
- No duplicate names; keep categories diverse.`),
		llm.User(fmt.Sprintf("Gender: %s\nBudgetINR: %s\nJSON only.", gender, formatPrice(budget))),
	}
}

func judgePrompt(budget float64, selected []Product, total decimal.Decimal, timeTaken float64) []llm.Message {
	var lines strings.Builder
	for i, it := range selected {
		fmt.Fprintf(&lines, "#%d %s - INR %s - %s - eco:%t\n", i+1, it.Name, formatPrice(it.Price), it.Category, it.EcoFriendly)
	}

	return []llm.Message{
		llm.System(`Score a player's beauty kit (0-100) based on:
- Budget utilization (closer to budget without exceeding is better)
- Coverage of protection & care: sunscreen/SPF, cleanser, moisturizer, serum/treatment; plus extras (lip/body/hair)
- Timing (<=180s is best; small penalty if slightly over)
- Synergy/combination (avoid redundant roles; cover AM/PM)
- Eco friendliness (higher share of ecoFriendly items gets bonus)

Output STRICT JSON:
{"score": number, "positives": string[], "negatives": string[], "summary": string}`),
		llm.User(fmt.Sprintf("BudgetINR: %s\nTimeTakenSeconds: %s\n\nSelected Items (%d):\n%s\nTotalSpend: INR %s\nJSON only.",
			formatPrice(budget), formatPrice(timeTaken), len(selected), lines.String(), total.String())),
	}
}

type suggestedItem struct {
	Name        string   `json:"name"`
	Price       number   `json:"price"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	EcoFriendly bool     `json:"ecoFriendly"`
	Tags        []string `json:"tags"`
}

// mergeCatalog keeps every usable generated item and fills the remaining
// slots from the synthetic catalog.
func mergeCatalog(generated []suggestedItem, synthetic []Product) []Product {
	items := make([]Product, GlamCatalogSize)
	seen := make(map[string]bool, GlamCatalogSize)

	for i := range GlamCatalogSize {
		fallback := synthetic[i]

		if i >= len(generated) {
			items[i] = fallback
			continue
		}

		it := generated[i]
		name := clip(it.Name, 80)
		price, ok := it.Price.positive()

		if name == "" || genericName.MatchString(name) || seen[strings.ToLower(name)] || !ok {
			items[i] = fallback
			continue
		}
		seen[strings.ToLower(name)] = true

		p := Product{
			Name:        name,
			Price:       math.Round(price),
			Description: clip(it.Description, 120),
			Category:    clip(it.Category, 40),
			EcoFriendly: it.EcoFriendly,
			Tags:        make([]string, 0, 5),
		}
		if p.Price <= 0 {
			p.Price = price
		}
		if p.Description == "" {
			p.Description = fallback.Description
		}
		if p.Category == "" {
			p.Category = "Other"
		}
		for _, t := range it.Tags {
			if len(p.Tags) == 5 {
				break
			}
			if t = clip(t, 20); t != "" {
				p.Tags = append(p.Tags, t)
			}
		}

		items[i] = p
	}

	// Backfilled names can collide with generated ones or each other.
	names := make(map[string]bool, GlamCatalogSize)
	for i := range items {
		name := items[i].Name
		for n := 2; names[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s %d", items[i].Name, n)
		}
		items[i].Name = name
		names[strings.ToLower(name)] = true
	}

	return items
}

func (g *Glam) Start(ctx context.Context, gender string, budget float64) (*GlamStart, error) {
	gender = clip(gender, 20)
	if gender == "" {
		gender = "Unisex"
	}

	if math.IsNaN(budget) || math.IsInf(budget, 0) || budget <= 0 {
		budget = glamDefaultBudget
	}
	budget = math.Max(glamMinimumBudget, math.Round(budget))

	synthetic := SyntheticCatalog(gender, budget)
	items := mergeCatalog(nil, synthetic)

	attempt := 0
	suggest := func() error {
		attempt++

		batch, err := ask[struct {
			Items []suggestedItem `json:"items"`
		}](ctx, g.gen, suggestPrompt(gender, budget), 0.5, 2000)

		if err == nil && len(batch.Items) < glamUsableBatch {
			err = fmt.Errorf("got %d items", len(batch.Items))
		}
		if err != nil {
			g.fellBack(KindGlam, fmt.Sprintf("catalog-%d", attempt), err)
			return err
		}

		items = mergeCatalog(batch.Items, synthetic)
		return nil
	}

	retries := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, glamAttempts-1), ctx)
	if err := backoff.Retry(suggest, retries); err != nil {
		g.log.Debug("serving synthetic glam catalog",
			zap.String("gender", gender),
			zap.Float64("budget", budget),
			zap.Int("attempts", attempt),
			zap.Error(err))
	}

	token, err := g.store.Create(KindGlam, &glamState{
		gender: gender,
		budget: budget,
		items:  items,
	})
	if err != nil {
		return nil, err
	}

	return &GlamStart{
		Token:     token,
		Gender:    gender,
		BudgetInr: budget,
		Items:     items,
	}, nil
}

// selection dedupes indices and drops any outside the catalog, keeping
// first-seen order.
func selection(items []Product, indices []int) []Product {
	seen := make(map[int]bool, len(indices))
	selected := make([]Product, 0, len(indices))

	for _, i := range indices {
		if i < 0 || i >= len(items) || seen[i] {
			continue
		}
		seen[i] = true
		selected = append(selected, items[i])
	}

	return selected
}

func totalSpend(selected []Product) decimal.Decimal {
	total := decimal.Zero
	for _, it := range selected {
		total = total.Add(decimal.NewFromFloat(it.Price))
	}
	return total
}

// fallbackScore rates a kit by budget use, eco share and item count.
func fallbackScore(selected []Product, total decimal.Decimal, budget float64) int {
	eco := 0
	for _, it := range selected {
		if it.EcoFriendly {
			eco++
		}
	}

	ecoShare := float64(eco) / float64(len(selected))
	spendRatio := math.Min(1, total.InexactFloat64()/math.Max(1, budget))

	return int(math.Round(60*spendRatio + 20*ecoShare + math.Min(20, float64(len(selected)))))
}

func clampScore(score int) int {
	return min(100, max(0, score))
}

// Score judges the selected kit and ends the game.
func (g *Glam) Score(ctx context.Context, token string, indices []int, timeTaken float64) (*GlamScore, error) {
	if math.IsNaN(timeTaken) || math.IsInf(timeTaken, 0) || timeTaken < 0 {
		timeTaken = 0
	}

	var out *GlamScore

	err := g.store.Update(token, KindGlam, func(s *Session) (bool, error) {
		st := s.State.(*glamState)

		selected := selection(st.items, indices)
		total := totalSpend(selected)

		out = &GlamScore{
			Done:         true,
			AutoFinished: timeTaken >= GlamTimeLimit,
			BudgetInr:    st.budget,
			TotalSpend:   total.InexactFloat64(),
			TimeTaken:    timeTaken,
			Positives:    []string{},
			Negatives:    []string{},
		}

		if len(selected) < GlamMinimumItems {
			out.Score = min(60, 5*len(selected))
			out.Summary = fmt.Sprintf("You must pick at least %d products for a complete kit.", GlamMinimumItems)
			if len(selected) > 0 {
				out.Positives = []string{"Some useful picks made"}
			}
			out.Negatives = []string{fmt.Sprintf("Picked fewer than %d products", GlamMinimumItems)}
			out.Message = fmt.Sprintf("Failed! Try again. Score %d/100", out.Score)

			return true, nil
		}

		judged, err := ask[struct {
			Score     *number  `json:"score"`
			Positives []string `json:"positives"`
			Negatives []string `json:"negatives"`
			Summary   string   `json:"summary"`
		}](ctx, g.gen, judgePrompt(st.budget, selected, total, timeTaken), 0.4, 1300)

		if err == nil && (judged.Score == nil || !judged.Score.set) {
			err = fmt.Errorf("reply had no score")
		}

		if err != nil {
			g.fellBack(KindGlam, "score", err)
			out.Score = clampScore(fallbackScore(selected, total, st.budget))
			out.Summary = "Fallback scoring applied."
		} else {
			out.Score = clampScore(int(math.Round(judged.Score.value)))
			out.Positives = capNotes(judged.Positives)
			out.Negatives = capNotes(judged.Negatives)
			out.Summary = clip(judged.Summary, 600)
			if out.Summary == "" {
				out.Summary = "No summary."
			}
		}

		if total.GreaterThan(decimal.NewFromFloat(st.budget)) {
			out.Negatives = capNotes(append([]string{glamOverBudgetNote}, out.Negatives...))
			out.Score = clampScore(int(decimal.NewFromInt(int64(out.Score)).Mul(glamPenalty).Round(0).IntPart()))
		}

		out.Win = out.Score >= glamWinScore
		if out.Win {
			out.Message = fmt.Sprintf("Great build! Score %d/100", out.Score)
		} else {
			out.Message = fmt.Sprintf("Failed! Try again. Score %d/100", out.Score)
		}

		return true, nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// capNotes keeps up to six non-empty observations.
func capNotes(notes []string) []string {
	out := make([]string, 0, 6)
	for _, n := range notes {
		if len(out) == 6 {
			break
		}
		if n = clip(n, 200); n != "" {
			out = append(out, n)
		}
	}
	return out
}
