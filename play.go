/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/Seednode/promptparty/games"
	"github.com/Seednode/promptparty/llm"
)

// arcade holds one service per game, all sharing a session store.
type arcade struct {
	store     games.Store
	fortune   *games.Fortune
	quiz      *games.Quiz
	character *games.Character
	healthy   *games.Healthy
	price     *games.Price
	glam      *games.Glam
	riddles   *games.Riddles
}

func newArcade(store games.Store, gen llm.Completer, log *zap.Logger) *arcade {
	return &arcade{
		store:     store,
		fortune:   games.NewFortune(gen),
		quiz:      games.NewQuiz(store, gen, log.Named("quiz")),
		character: games.NewCharacter(store, gen, log.Named("character")),
		healthy:   games.NewHealthy(store, gen, log.Named("healthy")),
		price:     games.NewPrice(store, gen, log.Named("fpp")),
		glam:      games.NewGlam(store, gen, log.Named("glam")),
		riddles:   games.NewRiddles(store, gen, log.Named("riddle")),
	}
}

type fortuneRequest struct {
	Name          string `json:"name"`
	BirthMonth    string `json:"birthMonth"`
	FavoritePlace string `json:"favoritePlace"`
}

type topicRequest struct {
	Topic string `json:"topic"`
}

type quizAnswerRequest struct {
	Token  string `json:"token"`
	Choice int    `json:"choice"`
}

type characterTurnRequest struct {
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
}

type healthyPlanRequest struct {
	Token   string   `json:"token"`
	Answers []string `json:"answers"`
}

type priceStartRequest struct {
	Category string `json:"category"`
}

type priceAnswersRequest struct {
	Token   string `json:"token"`
	Answers []bool `json:"answers"`
}

type priceGuessRequest struct {
	Token string          `json:"token"`
	Guess json.RawMessage `json:"guess"`
}

// parseGuess accepts a JSON number or a numeric string, reporting false
// for anything else or a non-finite value.
func parseGuess(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}

		f, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

type glamStartRequest struct {
	Gender    string  `json:"gender"`
	BudgetInr float64 `json:"budgetInr"`
}

type glamScoreRequest struct {
	Token           string    `json:"token"`
	SelectedIndices []float64 `json:"selectedIndices"`
	TimeTaken       float64   `json:"timeTaken"`
}

type riddleStartRequest struct {
	Theme string `json:"theme"`
}

type riddleAnswerRequest struct {
	Token string `json:"token"`
	Guess string `json:"guess"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

// wholeIndices keeps the entries that are whole numbers.
func wholeIndices(raw []float64) []int {
	out := make([]int, 0, len(raw))
	for _, f := range raw {
		if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
			continue
		}
		out = append(out, int(f))
	}
	return out
}

func registerGames(cfg *Config, mux *httprouter.Router, a *arcade, limiter *rateLimiter) {
	post := func(path string, h httprouter.Handle) {
		mux.POST(cfg.prefix+"/api"+path, limiter.wrap(cfg, h))
	}

	post("/predict-future", apiHandler(cfg, "Fortune", func(ctx context.Context, req fortuneRequest) (any, error) {
		content, err := a.fortune.Predict(ctx, req.Name, req.BirthMonth, req.FavoritePlace)
		if err != nil {
			return nil, err
		}
		return map[string]string{"content": content}, nil
	}))

	post("/quiz/start", apiHandler(cfg, "Quiz start", func(ctx context.Context, req topicRequest) (any, error) {
		return a.quiz.Start(ctx, req.Topic)
	}))

	post("/quiz/answer", apiHandler(cfg, "Quiz answer", func(ctx context.Context, req quizAnswerRequest) (any, error) {
		return a.quiz.Answer(ctx, req.Token, req.Choice)
	}))

	post("/character/start", apiHandler(cfg, "Character start", func(ctx context.Context, req topicRequest) (any, error) {
		return a.character.Start(ctx, req.Topic)
	}))

	post("/character/turn", apiHandler(cfg, "Character turn", func(ctx context.Context, req characterTurnRequest) (any, error) {
		return a.character.Turn(ctx, req.SessionID, req.Text)
	}))

	post("/healthy/start", apiHandler(cfg, "Healthy start", func(ctx context.Context, _ struct{}) (any, error) {
		return a.healthy.Start(ctx)
	}))

	post("/healthy/plan", apiHandler(cfg, "Healthy plan", func(ctx context.Context, req healthyPlanRequest) (any, error) {
		return a.healthy.Plan(ctx, req.Token, req.Answers)
	}))

	post("/fpp/start", apiHandler(cfg, "Price start", func(ctx context.Context, req priceStartRequest) (any, error) {
		return a.price.Start(ctx, req.Category)
	}))

	post("/fpp/answers", apiHandler(cfg, "Price answers", func(ctx context.Context, req priceAnswersRequest) (any, error) {
		return nil, a.price.Answers(ctx, req.Token, req.Answers)
	}))

	post("/fpp/guess", apiHandler(cfg, "Price guess", func(ctx context.Context, req priceGuessRequest) (any, error) {
		guess, ok := parseGuess(req.Guess)
		if !ok {
			return nil, &games.ValidationError{Msg: "Invalid guess."}
		}
		return a.price.Guess(ctx, req.Token, guess)
	}))

	post("/glam/start", apiHandler(cfg, "Glam start", func(ctx context.Context, req glamStartRequest) (any, error) {
		return a.glam.Start(ctx, req.Gender, req.BudgetInr)
	}))

	post("/glam/score", apiHandler(cfg, "Glam score", func(ctx context.Context, req glamScoreRequest) (any, error) {
		return a.glam.Score(ctx, req.Token, wholeIndices(req.SelectedIndices), req.TimeTaken)
	}))

	post("/riddle/start", apiHandler(cfg, "Riddle start", func(ctx context.Context, req riddleStartRequest) (any, error) {
		return a.riddles.Start(ctx, req.Theme)
	}))

	post("/riddle/answer", apiHandler(cfg, "Riddle answer", func(ctx context.Context, req riddleAnswerRequest) (any, error) {
		return a.riddles.Answer(ctx, req.Token, req.Guess)
	}))

	post("/riddle/hint", apiHandler(cfg, "Riddle hint", func(ctx context.Context, req tokenRequest) (any, error) {
		hint, err := a.riddles.Hint(ctx, req.Token)
		if err != nil {
			return nil, err
		}
		return map[string]string{"hint": hint}, nil
	}))

	mux.GET(cfg.prefix+"/api/character/ws", limiter.wrap(cfg, serveCharacterSocket(cfg, a.character, limiter)))
}
