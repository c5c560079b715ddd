/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Seednode/promptparty/llm"
	"github.com/Seednode/promptparty/metrics"
)

// ErrMalformedReply wraps replies that do not contain the expected JSON.
var ErrMalformedReply = errors.New("malformed generator reply")

// decodeReply unmarshals the first JSON object found in raw. Models like to
// wrap JSON in code fences or chatter, so anything around the outermost
// braces is ignored.
func decodeReply(raw string, v any) error {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return fmt.Errorf("%w: no JSON object", ErrMalformedReply)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw[start : end+1])))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}

	return nil
}

// ask sends a prompt and decodes the reply into T.
func ask[T any](ctx context.Context, gen llm.Completer, prompt []llm.Message, temperature float32, maxTokens int) (T, error) {
	var out T

	raw, err := gen.Complete(ctx, prompt, temperature, maxTokens)
	if err != nil {
		return out, err
	}

	if err := decodeReply(raw, &out); err != nil {
		return out, err
	}

	return out, nil
}

// number accepts JSON numbers as well as numeric strings.
type number struct {
	value float64
	set   bool
}

func (n *number) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		n.value, n.set = f, true
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	n.value, n.set = f, true

	return nil
}

// positive returns the value if it is a finite number above zero.
func (n number) positive() (float64, bool) {
	if !n.set || math.IsNaN(n.value) || math.IsInf(n.value, 0) || n.value <= 0 {
		return 0, false
	}
	return n.value, true
}

// clip trims s and cuts it to at most n runes.
func clip(s string, n int) string {
	s = strings.TrimSpace(s)

	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}

// base carries what every game service needs.
type base struct {
	store Store
	gen   llm.Completer
	log   *zap.Logger
}

func newBase(store Store, gen llm.Completer, log *zap.Logger) base {
	if log == nil {
		log = zap.NewNop()
	}
	return base{store: store, gen: gen, log: log}
}

// fellBack records that a generated value was replaced by a built-in one.
func (b base) fellBack(game Kind, stage string, err error) {
	metrics.GeneratorFallbacks.WithLabelValues(string(game), stage).Inc()

	b.log.Warn("using fallback content",
		zap.String("game", string(game)),
		zap.String("stage", stage),
		zap.Error(err))
}
