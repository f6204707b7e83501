package app_test

import (
	"context"
	"errors"
	"sync"

	"quizbot/internal/app"
	"quizbot/internal/domain"
)

// step is one scripted participant reaction.
type step struct {
	option  int // 1-based option number of the current prompt
	token   string
	timeout bool
}

func pick(n int) step      { return step{option: n} }
func send(tok string) step { return step{token: tok} }
func timeout() step        { return step{timeout: true} }

// scriptedChannel replays steps and records what was presented.
type scriptedChannel struct {
	mu      sync.Mutex
	steps   []step
	prompts []app.Prompt
	awaits  int
}

func newScriptedChannel(steps ...step) *scriptedChannel {
	return &scriptedChannel{steps: steps}
}

var errScriptExhausted = errors.New("script exhausted")

func (c *scriptedChannel) PresentQuestion(_ context.Context, prompt app.Prompt) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	return nil
}

func (c *scriptedChannel) AwaitSelection(ctx context.Context) (app.Selection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return app.Selection{}, err
	}
	c.awaits++
	if len(c.steps) == 0 {
		return app.Selection{}, errScriptExhausted
	}
	next := c.steps[0]
	c.steps = c.steps[1:]
	switch {
	case next.timeout:
		return app.Selection{TimedOut: true}, nil
	case next.token != "":
		return app.Selection{Token: next.token}, nil
	default:
		current := c.prompts[len(c.prompts)-1]
		return app.Selection{Token: current.Options[next.option-1].Token}, nil
	}
}

func (c *scriptedChannel) presentedTexts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	texts := make([]string, 0, len(c.prompts))
	for _, p := range c.prompts {
		texts = append(texts, p.Text)
	}
	return texts
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func threeQuestionQuiz(owner string, public bool) domain.Quiz {
	return domain.Quiz{
		Name:        "Capitals",
		Description: strPtr("European capitals"),
		Thumbnail:   strPtr("https://example.com/capitals.png"),
		Owner:       owner,
		Public:      public,
		Copyable:    true,
		Questions: []domain.Question{
			{
				Text: "Capital of France?",
				Answers: []domain.Answer{
					{Text: "Paris", IsCorrect: true},
					{Text: "Lyon"},
				},
			},
			{
				Text:              "Capital of Italy?",
				AnswerDescription: strPtr("Rome has been the capital since 1871"),
				Thumbnail:         strPtr("https://example.com/italy.png"),
				Answers: []domain.Answer{
					{Text: "Milan"},
					{Text: "Rome", IsCorrect: true},
				},
			},
			{
				Text: "Capital of Spain?",
				Answers: []domain.Answer{
					{Text: "Madrid", IsCorrect: true},
					{Text: "Seville"},
				},
			},
		},
	}
}
