/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"context"
	"fmt"

	"github.com/Seednode/promptparty/llm"
)

// Fortune writes short, silly predictions. It keeps no session.
type Fortune struct {
	gen llm.Completer
}

func NewFortune(gen llm.Completer) *Fortune {
	return &Fortune{gen: gen}
}

func (f *Fortune) Predict(ctx context.Context, name, birthMonth, favoritePlace string) (string, error) {
	prompt := []llm.Message{
		llm.System("You are a funny fortune teller. Create funny, positive, unique predictions in 2-3 sentences. Use the inputs naturally and add a funny object or two. Keep it light; no health, death, or lottery claims."),
		llm.User(fmt.Sprintf("Make a humorous future prediction for:\nName: %s\nBirth month: %s\nFavorite place: %s",
			clip(name, 60), clip(birthMonth, 60), clip(favoritePlace, 60))),
	}

	content, err := f.gen.Complete(ctx, prompt, 0.9, 180)
	if err != nil {
		return "", fmt.Errorf("predict future: %w", err)
	}

	return content, nil
}
