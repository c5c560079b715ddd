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
	RiddleRounds    = 5
	RiddleSkip      = "__SKIP__"
	riddleMemory    = 100
	riddleWinScore  = 4
	riddleMaxAnswer = 6
)

// Riddle is one riddle with its accepted answers. The first answer is the
// one revealed to the player.
type Riddle struct {
	Text        string   `json:"text"`
	Answers     []string `json:"answers"`
	Hint        string   `json:"hint"`
	Explanation string   `json:"explanation"`
}

var riddleBank = []Riddle{
	{"I have keys but open no locks. I have space but no room. You can enter, but not go outside.", []string{"keyboard", "a keyboard", "computer keyboard"}, "You are probably touching one.", "Keys, a space bar and an enter key."},
	{"I have a mouth but never eat, a bed but never sleep, and I run without legs.", []string{"river", "a river", "stream"}, "Think water.", "A river has a mouth and a bed, and it runs."},
	{"The more you take, the more you leave behind.", []string{"footsteps", "steps", "footprints"}, "Walk it off.", "Every step leaves a footprint."},
	{"What has hands but cannot clap?", []string{"clock", "a clock", "watch"}, "It keeps time.", "Clocks have hands that point, not clap."},
	{"What gets wetter the more it dries?", []string{"towel", "a towel", "bath towel"}, "Found in the bathroom.", "A towel soaks up water as it dries you."},
	{"I am full of holes but still hold water.", []string{"sponge", "a sponge", "kitchen sponge"}, "Used for washing dishes.", "A sponge holds water in its holes."},
	{"What has one eye but cannot see?", []string{"needle", "a needle", "sewing needle"}, "Used for sewing.", "A needle has an eye for the thread."},
	{"What can you catch but not throw?", []string{"cold", "a cold", "the flu"}, "Achoo.", "You catch a cold, but nobody throws one."},
	{"What has a neck but no head, and wears a cap?", []string{"bottle", "a bottle", "water bottle"}, "You drink from it.", "Bottles have necks and caps."},
	{"What goes up but never comes down?", []string{"age", "your age", "my age"}, "Birthdays.", "Your age only ever increases."},
	{"I speak without a mouth and hear without ears. I come alive with the wind.", []string{"echo", "an echo", "echoes"}, "Shout in a canyon.", "An echo repeats sound back to you."},
	{"What has many teeth but cannot bite?", []string{"comb", "a comb", "zipper"}, "Used on hair.", "A comb has teeth for untangling hair."},
}

type riddleState struct {
	theme    string
	idx      int
	score    int
	hintUsed bool
	riddles  []Riddle
}

// RiddlePrompt is the current riddle as shown to the player.
type RiddlePrompt struct {
	Idx      int    `json:"idx"`
	Total    int    `json:"total"`
	Score    int    `json:"score"`
	HintUsed bool   `json:"hintUsed"`
	Riddle   string `json:"riddle"`
}

type RiddleStart struct {
	Token string `json:"token"`
	RiddlePrompt
}

type RiddleAnswer struct {
	Done        bool          `json:"done"`
	Correct     bool          `json:"correct"`
	Explanation string        `json:"explanation"`
	Next        *RiddlePrompt `json:"next,omitempty"`
	Score       int           `json:"score"`
	Total       int           `json:"total"`
	Win         bool          `json:"win"`
}

// Riddles runs five-riddle quests and avoids repeating riddle texts across
// every player and theme.
type Riddles struct {
	base
	recent *Recent
}

func NewRiddles(store Store, gen llm.Completer, log *zap.Logger) *Riddles {
	return &Riddles{
		base:   newBase(store, gen, log),
		recent: NewRecent(riddleMemory),
	}
}

func riddlePrompt(theme string, banned []string) []llm.Message {
	avoid := "(none)"
	if len(banned) > 0 {
		avoid = strings.Join(banned, "\n")
	}

	return []llm.Message{
		llm.System(`You create fair, funny, original riddles (no copyrighted lines), non-repetitive.
Return STRICT JSON only:
{"riddles": [{"text": string, "answers": string[], "hint": string, "explanation": string}]}
Rules:
- EXACTLY 5 riddles.
- text <= 140 chars; 3-6 accepted answers, lowercase; hint <= 10 words; explanation <= 20 words.
- All different from each other and from the banned list (case-insensitive).
- Keep answers short and common (e.g., "keyboard", "river").`),
		llm.User(fmt.Sprintf("Theme (optional): %s\nAvoid riddles containing any of these texts (case-insensitive):\n%s\n\nJSON only.", theme, avoid)),
	}
}

// cleanRiddle trims a generated riddle, reporting false if it is unusable.
func cleanRiddle(r Riddle) (Riddle, bool) {
	out := Riddle{
		Text:        clip(r.Text, 140),
		Hint:        clip(r.Hint, 120),
		Explanation: clip(r.Explanation, 200),
	}

	for _, a := range r.Answers {
		if len(out.Answers) == riddleMaxAnswer {
			break
		}
		if a = clip(a, 60); normalizeGuess(a) != "" {
			out.Answers = append(out.Answers, a)
		}
	}

	if out.Text == "" || len(out.Answers) == 0 || out.Hint == "" || out.Explanation == "" {
		return Riddle{}, false
	}
	return out, true
}

// normalizeGuess lower-cases s and drops everything but a-z and 0-9.
func normalizeGuess(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func matches(r Riddle, guess string) bool {
	if guess == RiddleSkip {
		return false
	}

	g := normalizeGuess(guess)
	if g == "" {
		return false
	}

	for _, a := range r.Answers {
		if normalizeGuess(a) == g {
			return true
		}
	}
	return false
}

// backfill tops riddles up from the bank, preferring ones not played lately.
func (q *Riddles) backfill(riddles []Riddle, seen map[string]bool) []Riddle {
	for _, fresh := range []bool{true, false} {
		for _, r := range riddleBank {
			if len(riddles) == RiddleRounds {
				return riddles
			}
			key := recentKey(r.Text)
			if seen[key] || (fresh && q.recent.Contains(r.Text)) {
				continue
			}
			seen[key] = true
			riddles = append(riddles, r)
		}
	}
	return riddles
}

func (q *Riddles) Start(ctx context.Context, theme string) (*RiddleStart, error) {
	theme = clip(theme, 80)
	if theme == "" {
		theme = "general"
	}

	reply, err := ask[struct {
		Riddles []Riddle `json:"riddles"`
	}](ctx, q.gen, riddlePrompt(theme, q.recent.Items()), 0.8, 1200)
	if err != nil {
		q.fellBack(KindRiddle, "riddles", err)
	}

	seen := make(map[string]bool)
	riddles := make([]Riddle, 0, RiddleRounds)
	for _, candidate := range reply.Riddles {
		if len(riddles) == RiddleRounds {
			break
		}

		r, ok := cleanRiddle(candidate)
		if !ok {
			continue
		}

		key := recentKey(r.Text)
		if seen[key] || q.recent.Contains(r.Text) {
			continue
		}
		seen[key] = true
		riddles = append(riddles, r)
	}

	if len(riddles) < RiddleRounds {
		if err == nil {
			q.fellBack(KindRiddle, "riddles", fmt.Errorf("only %d usable riddles", len(riddles)))
		}
		riddles = q.backfill(riddles, seen)
	}

	texts := make([]string, len(riddles))
	for i, r := range riddles {
		texts[i] = r.Text
	}
	q.recent.Add(texts...)

	token, err := q.store.Create(KindRiddle, &riddleState{
		theme:   theme,
		riddles: riddles,
	})
	if err != nil {
		return nil, err
	}

	return &RiddleStart{
		Token:        token,
		RiddlePrompt: riddleFor(&riddleState{riddles: riddles}),
	}, nil
}

func riddleFor(st *riddleState) RiddlePrompt {
	return RiddlePrompt{
		Idx:      st.idx + 1,
		Total:    RiddleRounds,
		Score:    st.score,
		HintUsed: st.hintUsed,
		Riddle:   st.riddles[st.idx].Text,
	}
}

// Answer checks guess against the current riddle and always reveals the
// answer. Guessing RiddleSkip passes on the riddle.
func (q *Riddles) Answer(_ context.Context, token, guess string) (*RiddleAnswer, error) {
	guess = clip(guess, 120)

	var out *RiddleAnswer

	err := q.store.Update(token, KindRiddle, func(s *Session) (bool, error) {
		st := s.State.(*riddleState)

		current := st.riddles[st.idx]
		correct := matches(current, guess)
		if correct {
			st.score++
		}
		st.idx++
		st.hintUsed = false

		out = &RiddleAnswer{
			Correct:     correct,
			Explanation: fmt.Sprintf("Answer: %s. %s", current.Answers[0], current.Explanation),
			Score:       st.score,
			Total:       RiddleRounds,
		}

		if st.idx >= RiddleRounds {
			out.Done = true
			out.Win = st.score >= riddleWinScore
			return true, nil
		}

		next := riddleFor(st)
		out.Next = &next

		return false, nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// Hint returns the current riddle's hint. Each riddle allows one hint.
func (q *Riddles) Hint(_ context.Context, token string) (string, error) {
	var hint string

	err := q.store.Update(token, KindRiddle, func(s *Session) (bool, error) {
		st := s.State.(*riddleState)

		if st.hintUsed {
			return false, invalid("Hint already used for this riddle.")
		}
		st.hintUsed = true
		hint = st.riddles[st.idx].Hint

		return false, nil
	})
	if err != nil {
		return "", err
	}

	return hint, nil
}
