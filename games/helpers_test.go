/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Seednode/promptparty/llm"
)

var errOffline = errors.New("generator offline")

// scripted replays canned replies in order. Once the script runs out every
// call fails with errOffline.
type scripted struct {
	mu      sync.Mutex
	replies []reply
	calls   [][]llm.Message
}

type reply struct {
	text string
	err  error
}

func script(replies ...reply) *scripted {
	return &scripted{replies: replies}
}

func ok(text string) reply { return reply{text: text} }

func fail(err error) reply { return reply{err: err} }

func (s *scripted) Complete(_ context.Context, messages []llm.Message, _ float32, _ int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, messages)

	if len(s.replies) == 0 {
		return "", errOffline
	}

	r := s.replies[0]
	s.replies = s.replies[1:]

	return r.text, r.err
}

func (s *scripted) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.calls)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}
