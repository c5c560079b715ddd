/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func riddleReply(t *testing.T, riddles ...Riddle) string {
	t.Helper()

	b, err := json.Marshal(map[string]any{"riddles": riddles})
	require.NoError(t, err)

	return string(b)
}

func keyboardRiddles(n int) []Riddle {
	out := make([]Riddle, n)
	for i := range out {
		out[i] = Riddle{
			Text:        fmt.Sprintf("Riddle %d: I have keys but no locks.", i+1),
			Answers:     []string{"Key-Board!", "computer keyboard"},
			Hint:        "You type on it.",
			Explanation: "Keys and a space bar.",
		}
	}
	return out
}

func TestNormalizeGuess(t *testing.T) {
	assert.Equal(t, "keyboard", normalizeGuess("Key-Board!"))
	assert.Equal(t, "keyboard", normalizeGuess("  keyboard "))
	assert.Equal(t, "a1", normalizeGuess("A 1?"))
	assert.Empty(t, normalizeGuess("!!!"))
}

func TestRiddleSkipNeverMatches(t *testing.T) {
	r := Riddle{Answers: []string{RiddleSkip, "skip"}}

	assert.False(t, matches(r, RiddleSkip))
	assert.True(t, matches(r, "SKIP"))
}

func TestRiddleFullQuest(t *testing.T) {
	gen := script(ok(riddleReply(t, keyboardRiddles(5)...)))
	store := NewMemoryStore(time.Minute)
	riddles := NewRiddles(store, gen, nil)
	ctx := context.Background()

	start, err := riddles.Start(ctx, "tech")
	require.NoError(t, err)
	assert.Equal(t, 1, start.Idx)
	assert.Equal(t, RiddleRounds, start.Total)

	guesses := []string{"keyboard", "KEY BOARD", RiddleSkip, "Computer-Keyboard", "keyboard"}
	var res *RiddleAnswer
	for i, guess := range guesses {
		res, err = riddles.Answer(ctx, start.Token, guess)
		require.NoError(t, err)
		assert.Equal(t, "Answer: Key-Board!. Keys and a space bar.", res.Explanation)
		assert.Equal(t, guess != RiddleSkip, res.Correct, "guess %d", i)
	}

	assert.True(t, res.Done)
	assert.True(t, res.Win)
	assert.Equal(t, 4, res.Score)
	assert.Zero(t, store.Len())
}

func TestRiddleHintOncePerRound(t *testing.T) {
	gen := script(ok(riddleReply(t, keyboardRiddles(5)...)))
	riddles := NewRiddles(NewMemoryStore(time.Minute), gen, nil)
	ctx := context.Background()

	start, err := riddles.Start(ctx, "")
	require.NoError(t, err)

	hint, err := riddles.Hint(ctx, start.Token)
	require.NoError(t, err)
	assert.Equal(t, "You type on it.", hint)

	_, err = riddles.Hint(ctx, start.Token)
	assert.True(t, IsValidation(err))

	res, err := riddles.Answer(ctx, start.Token, "nope")
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.False(t, res.Next.HintUsed)

	_, err = riddles.Hint(ctx, start.Token)
	assert.NoError(t, err)
}

func TestRiddleBackfillsFromBank(t *testing.T) {
	bad := Riddle{Text: "no answers", Hint: "h", Explanation: "e"}
	gen := script(ok(riddleReply(t, keyboardRiddles(2)[0], bad)))
	store := NewMemoryStore(time.Minute)
	riddles := NewRiddles(store, gen, nil)

	start, err := riddles.Start(context.Background(), "")
	require.NoError(t, err)

	s, err := store.Get(start.Token, KindRiddle)
	require.NoError(t, err)

	rounds := s.State.(*riddleState).riddles
	require.Len(t, rounds, RiddleRounds)
	assert.Equal(t, "Riddle 1: I have keys but no locks.", rounds[0].Text)
	assert.Equal(t, riddleBank[0].Text, rounds[1].Text)
}

func TestRiddleAvoidsRecentTexts(t *testing.T) {
	gen := script(
		ok(riddleReply(t, keyboardRiddles(5)...)),
		ok(riddleReply(t, keyboardRiddles(5)...)),
	)
	store := NewMemoryStore(time.Minute)
	riddles := NewRiddles(store, gen, nil)
	ctx := context.Background()

	_, err := riddles.Start(ctx, "")
	require.NoError(t, err)

	start, err := riddles.Start(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, riddleBank[0].Text, start.Riddle)
	assert.Contains(t, gen.calls[1][1].Content, "Riddle 3")
}

func TestRiddleCapsAnswers(t *testing.T) {
	r, ok := cleanRiddle(Riddle{
		Text:        "t",
		Answers:     []string{"a", "b", "", "c", "d", "e", "f", "g"},
		Hint:        "h",
		Explanation: "e",
	})
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, r.Answers)
}

func TestRiddleUnknownToken(t *testing.T) {
	riddles := NewRiddles(NewMemoryStore(time.Minute), script(), nil)

	_, err := riddles.Answer(context.Background(), "missing", "x")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = riddles.Hint(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRiddleBankIsUsable(t *testing.T) {
	for _, r := range riddleBank {
		assert.GreaterOrEqual(t, len(r.Answers), 3, r.Text)
		assert.LessOrEqual(t, len(r.Answers), riddleMaxAnswer, r.Text)

		cleaned, ok := cleanRiddle(r)
		require.True(t, ok, r.Text)
		assert.Equal(t, r, cleaned)
	}
}
