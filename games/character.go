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
	CharacterRounds   = 10
	characterMemory   = 5
	characterHintFrom = 8
	characterMaxText  = 300
	defaultAnswer     = "Okay."
)

var fallbackCandidates = []string{
	"Ada Lovelace",
	"Miyamoto Musashi",
	"Hedy Lamarr",
	"Sisyphus",
	"Alan Turing",
}

type exchange struct {
	question string
	answer   string
}

type characterState struct {
	topic   string
	name    string
	rounds  int
	history []exchange
}

type CharacterStart struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// CharacterTurn is the outcome of one question. Hints holds at most one
// entry and only from round 8 on.
type CharacterTurn struct {
	Done       bool     `json:"done"`
	Win        bool     `json:"win"`
	Answer     string   `json:"answer"`
	Hints      []string `json:"hints"`
	RoundsLeft int      `json:"roundsLeft"`
	Name       string   `json:"name,omitempty"`
	Message    string   `json:"message,omitempty"`
}

type characterReply struct {
	Answer      string   `json:"answer"`
	IsGuess     bool     `json:"isGuess"`
	GuessedName string   `json:"guessedName"`
	Hints       []string `json:"hints"`
}

// Character is a 20-questions style game: the generator keeps a secret
// person or character and answers the player's questions.
type Character struct {
	base
	recent *TopicRecent
}

func NewCharacter(store Store, gen llm.Completer, log *zap.Logger) *Character {
	return &Character{
		base:   newBase(store, gen, log),
		recent: NewTopicRecent(characterMemory),
	}
}

func candidatesPrompt(topic string, exclude []string) []llm.Message {
	avoid := "(none)"
	if len(exclude) > 0 {
		avoid = strings.Join(exclude, ", ")
	}

	return []llm.Message{
		llm.System(`Return STRICT JSON {"candidates": string[]} of 5 hard-level people or fictional characters related to the topic.
Avoid these (case-insensitive): ` + avoid + `.
No other text.`),
		llm.User(fmt.Sprintf("Topic: %s. JSON only.", topic)),
	}
}

func turnPrompt(name string, history []exchange, round int, text string) []llm.Message {
	var qa strings.Builder
	for i, h := range history {
		if i > 0 {
			qa.WriteByte('\n')
		}
		fmt.Fprintf(&qa, "Q%d: %s\nA%d: %s", i+1, h.question, i+1, h.answer)
	}

	return []llm.Message{
		llm.System(fmt.Sprintf(`You are running a 20-questions style game. The secret answer is %q.
Respond to the user's message as a short yes/no style answer (<= 15 words), without revealing the name.
Detect if the user is explicitly guessing the exact name.

Return strict JSON with keys:
- answer: string
- isGuess: boolean
- guessedName: string
- hints: string[] (empty, or if round >= 8 provide 2-3 progressively stronger hints without revealing)

No extra text.`, name)),
		llm.User(fmt.Sprintf("Previous Q&A:\n%s\nCurrent Round: %d\nUser message: %s", qa.String(), round, text)),
	}
}

// Start picks a secret name for topic, avoiding the last few used.
func (c *Character) Start(ctx context.Context, topic string) (*CharacterStart, error) {
	topic = clip(topic, 80)
	if topic == "" {
		topic = "General"
	}

	memory := c.recent.For(topic)
	exclude := memory.Newest()

	candidates := fallbackCandidates

	reply, err := ask[struct {
		Candidates []string `json:"candidates"`
	}](ctx, c.gen, candidatesPrompt(topic, exclude), 0.7, 200)

	var generated []string
	for _, name := range reply.Candidates {
		if name = clip(name, 80); name != "" {
			generated = append(generated, name)
		}
	}

	switch {
	case err != nil:
		c.fellBack(KindCharacter, "candidates", err)
	case len(generated) == 0:
		c.fellBack(KindCharacter, "candidates", fmt.Errorf("no candidates returned"))
	default:
		candidates = generated
	}

	name := candidates[0]
	for _, candidate := range candidates {
		if !memory.Contains(candidate) {
			name = candidate
			break
		}
	}
	memory.Add(name)

	id, err := c.store.Create(KindCharacter, &characterState{
		topic: topic,
		name:  name,
	})
	if err != nil {
		return nil, err
	}

	return &CharacterStart{
		SessionID: id,
		Message:   fmt.Sprintf("Ask questions about the secret person or character. You have %d rounds. Natural guesses are accepted.", CharacterRounds),
	}, nil
}

// Turn sends one player line. Every call consumes a round, even when the
// generator reply is unusable.
func (c *Character) Turn(ctx context.Context, id, text string) (*CharacterTurn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalid("Ask a question or make a guess.")
	}
	if len([]rune(text)) > characterMaxText {
		return nil, invalid("Keep your message under %d characters.", characterMaxText)
	}

	var out *CharacterTurn

	err := c.store.Update(id, KindCharacter, func(s *Session) (bool, error) {
		st := s.State.(*characterState)

		reply, err := ask[characterReply](ctx, c.gen, turnPrompt(st.name, st.history, st.rounds+1, text), 0.4, 260)
		if err != nil {
			c.fellBack(KindCharacter, "turn", err)
			reply = characterReply{}
		}

		answer := strings.TrimSpace(reply.Answer)
		if answer == "" {
			answer = defaultAnswer
		}

		st.rounds++
		st.history = append(st.history, exchange{question: text, answer: answer})

		out = &CharacterTurn{
			Answer:     answer,
			Hints:      []string{},
			RoundsLeft: CharacterRounds - st.rounds,
		}

		if reply.IsGuess && sameName(reply.GuessedName, st.name) {
			out.Done = true
			out.Win = true
			out.Name = st.name
			out.Message = fmt.Sprintf("Brilliant! You figured it out: %s!", st.name)
			return true, nil
		}

		if st.rounds >= CharacterRounds {
			out.Done = true
			out.Name = st.name
			out.Message = fmt.Sprintf("Out of rounds! The character was: %s.", st.name)
			return true, nil
		}

		if st.rounds >= characterHintFrom {
			for _, hint := range reply.Hints {
				if hint = strings.TrimSpace(hint); hint != "" {
					out.Hints = []string{hint}
					break
				}
			}
		}

		return false, nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func sameName(a, b string) bool {
	a = strings.TrimSpace(a)
	return a != "" && strings.EqualFold(a, strings.TrimSpace(b))
}
