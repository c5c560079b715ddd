/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"strings"
	"sync"
)

// Recent is a bounded, case-insensitive set that remembers insertion order.
// Once full, adding an item evicts the oldest one.
type Recent struct {
	mu    sync.Mutex
	limit int
	order []string
	keys  map[string]struct{}
}

func NewRecent(limit int) *Recent {
	return &Recent{
		limit: limit,
		keys:  make(map[string]struct{}),
	}
}

func recentKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Add records items. Re-adding a known item moves it to the newest slot.
func (r *Recent) Add(items ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		key := recentKey(item)
		if key == "" {
			continue
		}

		if _, ok := r.keys[key]; ok {
			r.removeLocked(key)
		}

		r.order = append(r.order, item)
		r.keys[key] = struct{}{}

		for len(r.order) > r.limit {
			delete(r.keys, recentKey(r.order[0]))
			r.order = r.order[1:]
		}
	}
}

func (r *Recent) removeLocked(key string) {
	for i, item := range r.order {
		if recentKey(item) == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	delete(r.keys, key)
}

func (r *Recent) Contains(item string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.keys[recentKey(item)]
	return ok
}

// Items returns the remembered items, oldest first.
func (r *Recent) Items() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.order...)
}

// Newest returns the remembered items, newest first.
func (r *Recent) Newest() []string {
	items := r.Items()
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items
}

func (r *Recent) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.order)
}

// TopicRecent keeps one Recent per topic, compared case-insensitively.
type TopicRecent struct {
	mu      sync.Mutex
	limit   int
	byTopic map[string]*Recent
}

func NewTopicRecent(limit int) *TopicRecent {
	return &TopicRecent{
		limit:   limit,
		byTopic: make(map[string]*Recent),
	}
}

func (t *TopicRecent) For(topic string) *Recent {
	key := recentKey(topic)

	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.byTopic[key]
	if !ok {
		r = NewRecent(t.limit)
		t.byTopic[key] = r
	}
	return r
}
