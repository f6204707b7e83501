package telegram

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/telebot.v4"

	"quizbot/internal/app"
)

const answerUnique = "answer"

// chatChannel renders a play session in one chat: every question is a fresh
// message with an inline keyboard, and the previous question is deleted.
type chatChannel struct {
	sender  Sender
	chat    *telebot.Chat
	timeout time.Duration

	// deadline of the current question, shared by every await on it
	deadline   time.Time
	last       *telebot.Message
	selections chan string
}

func newChatChannel(sender Sender, chat *telebot.Chat, timeout time.Duration) *chatChannel {
	return &chatChannel{
		sender:     sender,
		chat:       chat,
		timeout:    timeout,
		selections: make(chan string, 4),
	}
}

func (c *chatChannel) PresentQuestion(_ context.Context, prompt app.Prompt) error {
	markup := &telebot.ReplyMarkup{}
	rows := make([]telebot.Row, 0, len(prompt.Options))
	for _, opt := range prompt.Options {
		rows = append(rows, markup.Row(markup.Data(opt.Label, answerUnique, opt.Token)))
	}
	markup.Inline(rows...)

	text := fmt.Sprintf("Question %d/%d\n\n%s", prompt.Number, prompt.Total, prompt.Text)
	var what interface{} = text
	if prompt.Thumbnail != "" {
		what = &telebot.Photo{File: telebot.FromURL(prompt.Thumbnail), Caption: text}
	}

	if c.last != nil {
		_ = c.sender.Delete(c.last)
	}
	msg, err := c.sender.Send(c.chat, what, markup)
	if err != nil {
		return err
	}
	c.last = msg
	c.deadline = time.Time{}
	if c.timeout > 0 {
		c.deadline = time.Now().Add(c.timeout)
	}
	return nil
}

func (c *chatChannel) AwaitSelection(ctx context.Context) (app.Selection, error) {
	var expired <-chan time.Time
	if !c.deadline.IsZero() {
		timer := time.NewTimer(time.Until(c.deadline))
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case token := <-c.selections:
		return app.Selection{Token: token}, nil
	case <-expired:
		if _, err := c.sender.Send(c.chat, "Time is up."); err != nil {
			return app.Selection{}, err
		}
		return app.Selection{TimedOut: true}, nil
	case <-ctx.Done():
		return app.Selection{}, ctx.Err()
	}
}

// deliver hands a pressed button to the session without blocking the update loop.
func (c *chatChannel) deliver(token string) bool {
	select {
	case c.selections <- token:
		return true
	default:
		return false
	}
}

// finish removes the keyboard of the last question.
func (c *chatChannel) finish() {
	if c.last != nil {
		_ = c.sender.Delete(c.last)
		c.last = nil
	}
}
