package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v4"

	"quizbot/internal/app"
	"quizbot/internal/config"
	"quizbot/internal/domain"
)

// Sender is the subset of *telebot.Bot used to talk to chats.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
	Delete(msg telebot.Editable) error
	Respond(c *telebot.Callback, resp ...*telebot.CallbackResponse) error
}

const helpText = `Commands:
/play <id> - play a quiz
/copy <id> [shell] - copy a quiz, add "shell" to skip its questions
/like <id> - like or unlike a quiz
/info <id> - show a quiz
/list [text] - newest quizzes, optionally filtered by name
/top [text] - most liked quizzes`

const usageText = "Give the quiz number, e.g. /info 12"

// Bot is the Telegram front end of the quiz service.
type Bot struct {
	tb            *telebot.Bot
	sender        Sender
	service       *app.QuizService
	answerTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	plays map[int64]*chatChannel
}

// NewTelebot connects to the Bot API with long polling.
func NewTelebot(token string, pollTimeout time.Duration) (*telebot.Bot, error) {
	tb, err := telebot.NewBot(telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: pollTimeout},
		OnError: func(err error, c telebot.Context) {
			config.Logger.WithError(err).Warn("telegram update failed")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("telebot.NewBot: %w", err)
	}
	return tb, nil
}

// New registers the quiz handlers on tb. Replies go through sender, which is
// tb itself outside of tests.
func New(tb *telebot.Bot, sender Sender, service *app.QuizService, answerTimeout time.Duration) *Bot {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bot{
		tb:            tb,
		sender:        sender,
		service:       service,
		answerTimeout: answerTimeout,
		ctx:           ctx,
		cancel:        cancel,
		plays:         make(map[int64]*chatChannel),
	}

	tb.Handle("/start", b.handleHelp)
	tb.Handle("/help", b.handleHelp)
	tb.Handle("/play", b.handlePlay)
	tb.Handle("/copy", b.handleCopy)
	tb.Handle("/like", b.handleLike)
	tb.Handle("/info", b.handleInfo)
	tb.Handle("/list", b.handleList(domain.OrderNew))
	tb.Handle("/top", b.handleList(domain.OrderPopular))
	tb.Handle(&telebot.InlineButton{Unique: answerUnique}, b.handleAnswer)
	return b
}

// Start polls for updates until ctx is done, then waits for running plays.
func (b *Bot) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		b.cancel()
		b.tb.Stop()
	}()
	config.Logger.Info("telegram bot started")
	b.tb.Start()
	b.Wait()
	return nil
}

// Wait blocks until every running play has finished.
func (b *Bot) Wait() {
	b.wg.Wait()
}

func (b *Bot) handleHelp(c telebot.Context) error {
	return b.reply(c, helpText)
}

func (b *Bot) handlePlay(c telebot.Context) error {
	quizID, ok := quizArg(c)
	if !ok {
		return b.reply(c, usageText)
	}
	userID := c.Sender().ID
	chat := c.Chat()

	b.mu.Lock()
	if _, running := b.plays[userID]; running {
		b.mu.Unlock()
		return b.reply(c, "Finish your current quiz first.")
	}
	ch := newChatChannel(b.sender, chat, b.answerTimeout)
	b.plays[userID] = ch
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			b.mu.Lock()
			delete(b.plays, userID)
			b.mu.Unlock()
		}()

		ctx := config.ContextWithFields(b.ctx, logrus.Fields{"chat_id": chat.ID})
		result, err := b.service.PlayQuiz(ctx, quizID, userKey(userID), ch)
		ch.finish()
		if err != nil {
			_, _ = b.sender.Send(chat, b.describe(ctx, err))
			return
		}
		_, _ = b.sender.Send(chat, fmt.Sprintf("Quiz finished: %d of %d correct.", result.CorrectCount, result.TotalQuestions))
	}()
	return nil
}

func (b *Bot) handleAnswer(c telebot.Context) error {
	cb := c.Callback()
	b.mu.Lock()
	ch, running := b.plays[c.Sender().ID]
	b.mu.Unlock()

	if !running {
		return b.sender.Respond(cb, &telebot.CallbackResponse{Text: "This quiz is no longer running."})
	}
	ch.deliver(strings.TrimSpace(cb.Data))
	return b.sender.Respond(cb)
}

func (b *Bot) handleCopy(c telebot.Context) error {
	quizID, ok := quizArg(c)
	if !ok {
		return b.reply(c, usageText)
	}
	includeQuestions := true
	if args := c.Args(); len(args) > 1 && strings.EqualFold(args[1], "shell") {
		includeQuestions = false
	}
	newID, err := b.service.CopyQuiz(b.ctx, quizID, includeQuestions, userKey(c.Sender().ID))
	if err != nil {
		return b.reply(c, b.describe(b.ctx, err))
	}
	return b.reply(c, fmt.Sprintf("Quiz copied. The copy is #%d.", newID))
}

func (b *Bot) handleLike(c telebot.Context) error {
	quizID, ok := quizArg(c)
	if !ok {
		return b.reply(c, usageText)
	}
	liked, err := b.service.SetLike(b.ctx, quizID, userKey(c.Sender().ID), nil)
	if err != nil {
		return b.reply(c, b.describe(b.ctx, err))
	}
	if liked {
		return b.reply(c, "Liked.")
	}
	return b.reply(c, "Like removed.")
}

func (b *Bot) handleInfo(c telebot.Context) error {
	quizID, ok := quizArg(c)
	if !ok {
		return b.reply(c, usageText)
	}
	info, err := b.service.QuizInfo(b.ctx, quizID, userKey(c.Sender().ID))
	if err != nil {
		return b.reply(c, b.describe(b.ctx, err))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "#%d %s\n", info.Quiz.ID, info.Quiz.Name)
	if info.Quiz.Description != nil {
		sb.WriteString(*info.Quiz.Description + "\n")
	}
	fmt.Fprintf(&sb, "Questions: %d\nLikes: %d", info.Questions, info.Likes)
	return b.reply(c, sb.String())
}

func (b *Bot) handleList(order domain.QuizOrder) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		query := strings.Join(c.Args(), " ")
		quizzes, err := b.service.ListQuizzes(b.ctx, userKey(c.Sender().ID), query, "", order)
		if err != nil {
			return b.reply(c, b.describe(b.ctx, err))
		}
		if len(quizzes) == 0 {
			return b.reply(c, "No quizzes found.")
		}
		lines := make([]string, 0, len(quizzes))
		for _, q := range quizzes {
			lines = append(lines, fmt.Sprintf("#%d %s", q.ID, q.Name))
		}
		return b.reply(c, strings.Join(lines, "\n"))
	}
}

func (b *Bot) reply(c telebot.Context, text string) error {
	_, err := b.sender.Send(c.Chat(), text)
	return err
}

// describe turns an error into the one message shown to the user.
func (b *Bot) describe(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "Quiz not found."
	case errors.Is(err, domain.ErrNotAuthorized):
		return "You are not allowed to do that."
	case errors.Is(err, domain.ErrSessionActive):
		return "Finish your current quiz first."
	case domain.IsValidation(err):
		return err.Error()
	case errors.Is(err, context.Canceled):
		return "The quiz was interrupted."
	default:
		config.WithContext(ctx).WithError(err).Error("telegram command failed")
		return "Something went wrong, try again later."
	}
}

// quizArg reads the quiz number from the first argument, "#12" or "12".
func quizArg(c telebot.Context) (int64, bool) {
	args := c.Args()
	if len(args) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func userKey(telegramID int64) string {
	return strconv.FormatInt(telegramID, 10)
}
