/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Seednode/promptparty/llm"
)

const (
	QuizRounds      = 5
	quizOptions     = 4
	quizMemory      = 50
	quizWinScore    = 4
	quizTimeoutPick = 0
)

// Question is one multiple-choice quiz question. AnswerIndex is 1-based.
type Question struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answerIndex"`
	Explanation string   `json:"explanation"`
}

type quizState struct {
	topic     string
	idx       int
	score     int
	questions []Question
}

// QuizPrompt is a question as shown to the player.
type QuizPrompt struct {
	Idx      int      `json:"idx"`
	Total    int      `json:"total"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type QuizStart struct {
	Token string `json:"token"`
	QuizPrompt
}

type QuizAnswer struct {
	Done        bool        `json:"done"`
	Correct     bool        `json:"correct"`
	Explanation string      `json:"explanation"`
	Next        *QuizPrompt `json:"next,omitempty"`
	Score       int         `json:"score"`
	Total       int         `json:"total"`
	Win         bool        `json:"win"`
	Message     string      `json:"message,omitempty"`
}

// Quiz runs five-question multiple-choice quizzes and avoids repeating
// questions per topic.
type Quiz struct {
	base
	recent       *TopicRecent
	placeholders atomic.Uint64
}

func NewQuiz(store Store, gen llm.Completer, log *zap.Logger) *Quiz {
	return &Quiz{
		base:   newBase(store, gen, log),
		recent: NewTopicRecent(quizMemory),
	}
}

func quizPrompt(topic string, banned []string) []llm.Message {
	avoid := "(none)"
	if len(banned) > 0 {
		lowered := make([]string, len(banned))
		for i, q := range banned {
			lowered[i] = strings.ToLower(q)
		}
		avoid = strings.Join(lowered, " | ")
	}

	return []llm.Message{
		llm.System(`Create a 5-question very hard multiple-choice quiz for the topic.
Rules:
- EXACTLY 5 questions.
- EACH question has EXACTLY 4 options.
- Indicate the correct option index (1-4).
- Avoid these questions (case-insensitive): ` + avoid + `.
- Return STRICT JSON ONLY with shape:
{"questions":[{"question":string,"options":string[4],"answerIndex":1|2|3|4,"explanation":string}]}
No extra text.`),
		llm.User(fmt.Sprintf("Topic: %s. JSON only.", topic)),
	}
}

func usableQuestion(q Question) bool {
	if strings.TrimSpace(q.Question) == "" || len(q.Options) != quizOptions {
		return false
	}
	for _, o := range q.Options {
		if strings.TrimSpace(o) == "" {
			return false
		}
	}
	return q.AnswerIndex >= 1 && q.AnswerIndex <= quizOptions
}

func (q *Quiz) placeholder(topic string) Question {
	n := q.placeholders.Add(1)

	return Question{
		Question:    fmt.Sprintf("Placeholder question #%d about %s: which option is listed first?", n, topic),
		Options:     []string{"Option A", "Option B", "Option C", "Option D"},
		AnswerIndex: 1,
		Explanation: "This is a placeholder. Start again with a clearer topic for a better quiz.",
	}
}

// Start generates a quiz for topic and returns its first question.
func (q *Quiz) Start(ctx context.Context, topic string) (*QuizStart, error) {
	topic = clip(topic, 80)
	if topic == "" {
		topic = "General"
	}

	memory := q.recent.For(topic)

	reply, err := ask[struct {
		Questions []Question `json:"questions"`
	}](ctx, q.gen, quizPrompt(topic, memory.Items()), 0.5, 1100)
	if err != nil {
		q.fellBack(KindQuiz, "questions", err)
	}

	seen := make(map[string]bool)
	questions := make([]Question, 0, QuizRounds)
	for _, candidate := range reply.Questions {
		if len(questions) == QuizRounds {
			break
		}
		if !usableQuestion(candidate) {
			continue
		}

		key := recentKey(candidate.Question)
		if seen[key] || memory.Contains(candidate.Question) {
			continue
		}
		seen[key] = true

		candidate.Question = strings.TrimSpace(candidate.Question)
		questions = append(questions, candidate)
	}

	if len(questions) < QuizRounds && err == nil {
		q.fellBack(KindQuiz, "questions", fmt.Errorf("only %d usable questions", len(questions)))
	}
	for len(questions) < QuizRounds {
		p := q.placeholder(topic)
		if memory.Contains(p.Question) {
			continue
		}
		questions = append(questions, p)
	}

	texts := make([]string, len(questions))
	for i, question := range questions {
		texts[i] = question.Question
	}
	memory.Add(texts...)

	token, err := q.store.Create(KindQuiz, &quizState{
		topic:     topic,
		questions: questions,
	})
	if err != nil {
		return nil, err
	}

	return &QuizStart{
		Token:      token,
		QuizPrompt: promptFor(questions, 0),
	}, nil
}

func promptFor(questions []Question, idx int) QuizPrompt {
	return QuizPrompt{
		Idx:      idx + 1,
		Total:    QuizRounds,
		Question: questions[idx].Question,
		Options:  questions[idx].Options,
	}
}

// Answer scores choice against the current question. A choice of 0 means
// the player ran out of time.
func (q *Quiz) Answer(_ context.Context, token string, choice int) (*QuizAnswer, error) {
	if choice < quizTimeoutPick || choice > quizOptions {
		return nil, invalid("Choice must be between 1 and %d.", quizOptions)
	}

	var out *QuizAnswer

	err := q.store.Update(token, KindQuiz, func(s *Session) (bool, error) {
		st := s.State.(*quizState)

		current := st.questions[st.idx]
		correct := choice == current.AnswerIndex
		if correct {
			st.score++
		}
		st.idx++

		out = &QuizAnswer{
			Correct:     correct,
			Explanation: current.Explanation,
			Score:       st.score,
			Total:       QuizRounds,
		}

		if st.idx >= QuizRounds {
			out.Done = true
			out.Win = st.score >= quizWinScore
			if out.Win {
				out.Message = fmt.Sprintf("Winner! You scored %d/%d", st.score, QuizRounds)
			} else {
				out.Message = fmt.Sprintf("Failed! You scored %d/%d", st.score, QuizRounds)
			}
			return true, nil
		}

		next := promptFor(st.questions, st.idx)
		out.Next = &next

		return false, nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}
