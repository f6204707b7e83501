package telegram

import (
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"gopkg.in/telebot.v4"

	"quizbot/internal/app"
	"quizbot/internal/domain"
	"quizbot/internal/infra/memory"
)

type sentMessage struct {
	id      int
	chatID  int64
	text    string
	buttons []telebot.InlineButton
}

// fakeSender records outgoing traffic instead of calling the Bot API.
type fakeSender struct {
	mu        sync.Mutex
	nextID    int
	sent      []sentMessage
	deleted   []int
	responses []string
	notify    chan sentMessage
}

func newFakeSender() *fakeSender {
	return &fakeSender{notify: make(chan sentMessage, 64)}
}

func (s *fakeSender) Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error) {
	chatID, _ := strconv.ParseInt(to.Recipient(), 10, 64)

	s.mu.Lock()
	s.nextID++
	msg := sentMessage{id: s.nextID, chatID: chatID}
	switch v := what.(type) {
	case string:
		msg.text = v
	case *telebot.Photo:
		msg.text = v.Caption
	}
	for _, opt := range opts {
		if markup, ok := opt.(*telebot.ReplyMarkup); ok {
			for _, row := range markup.InlineKeyboard {
				msg.buttons = append(msg.buttons, row...)
			}
		}
	}
	s.sent = append(s.sent, msg)
	s.mu.Unlock()

	s.notify <- msg
	return &telebot.Message{ID: msg.id, Chat: &telebot.Chat{ID: chatID}}, nil
}

func (s *fakeSender) Delete(msg telebot.Editable) error {
	id, _ := msg.MessageSig()
	n, _ := strconv.Atoi(id)
	s.mu.Lock()
	s.deleted = append(s.deleted, n)
	s.mu.Unlock()
	return nil
}

func (s *fakeSender) Respond(_ *telebot.Callback, resp ...*telebot.CallbackResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	text := ""
	if len(resp) > 0 {
		text = resp[0].Text
	}
	s.responses = append(s.responses, text)
	return nil
}

func (s *fakeSender) waitFor(t *testing.T, match func(sentMessage) bool) sentMessage {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg := <-s.notify:
			if match(msg) {
				return msg
			}
		case <-deadline:
			t.Fatalf("expected message was not sent")
		}
	}
}

func (s *fakeSender) wasDeleted(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.deleted {
		if d == id {
			return true
		}
	}
	return false
}

func withPrefix(prefix string) func(sentMessage) bool {
	return func(m sentMessage) bool { return strings.HasPrefix(m.text, prefix) }
}

type harness struct {
	tb     *telebot.Bot
	bot    *Bot
	sender *fakeSender
	repo   *memory.Repository
	update int
}

func newHarness(t *testing.T, answerTimeout time.Duration) *harness {
	t.Helper()
	tb, err := telebot.NewBot(telebot.Settings{Offline: true, Synchronous: true})
	if err != nil {
		t.Fatalf("new bot: %v", err)
	}
	repo := memory.NewRepository()
	service := app.NewQuizService(repo, app.WithSessionRegistry(memory.NewSessionRegistry()))
	sender := newFakeSender()
	return &harness{tb: tb, bot: New(tb, sender, service, answerTimeout), sender: sender, repo: repo}
}

func (h *harness) command(userID int64, text string) {
	h.update++
	h.tb.ProcessUpdate(telebot.Update{
		ID: h.update,
		Message: &telebot.Message{
			ID:     h.update,
			Text:   text,
			Sender: &telebot.User{ID: userID},
			Chat:   &telebot.Chat{ID: userID, Type: telebot.ChatPrivate},
		},
	})
}

func (h *harness) press(userID int64, button telebot.InlineButton) {
	h.update++
	h.tb.ProcessUpdate(telebot.Update{
		ID: h.update,
		Callback: &telebot.Callback{
			ID:     strconv.Itoa(h.update),
			Sender: &telebot.User{ID: userID},
			Data:   "\f" + button.Unique + "|" + button.Data,
		},
	})
}

func seedQuiz(repo *memory.Repository) domain.Quiz {
	return repo.Seed(domain.Quiz{
		Name:        "Capitals",
		Description: strPtr("European capitals"),
		Owner:       "7",
		Public:      true,
		Copyable:    true,
		Questions: []domain.Question{
			{Text: "Capital of France?", Answers: []domain.Answer{{Text: "Paris", IsCorrect: true}, {Text: "Lyon"}}},
			{Text: "Capital of Spain?", Answers: []domain.Answer{{Text: "Seville"}, {Text: "Madrid", IsCorrect: true}}},
		},
	})
}

func strPtr(s string) *string { return &s }

func TestPlayOverInlineKeyboard(t *testing.T) {
	h := newHarness(t, 5*time.Second)
	quiz := seedQuiz(h.repo)

	h.command(42, "/play "+strconv.FormatInt(quiz.ID, 10))

	first := h.sender.waitFor(t, withPrefix("Question 1/2"))
	if len(first.buttons) != 2 || first.buttons[0].Text != "1. Paris" || first.buttons[0].Unique != answerUnique {
		t.Fatalf("unexpected keyboard %+v", first.buttons)
	}
	h.press(42, first.buttons[0])

	second := h.sender.waitFor(t, withPrefix("Question 2/2"))
	// the old keyboard is still on screen until deleted; its buttons must not count
	h.press(42, first.buttons[1])
	h.press(42, second.buttons[0])

	final := h.sender.waitFor(t, withPrefix("Quiz finished"))
	if final.text != "Quiz finished: 1 of 2 correct." {
		t.Fatalf("unexpected summary %q", final.text)
	}
	h.bot.Wait()

	if !h.sender.wasDeleted(first.id) || !h.sender.wasDeleted(second.id) {
		t.Fatalf("question messages must be replaced, deleted=%v", h.sender.deleted)
	}
}

func TestStaleButtonWithoutPlay(t *testing.T) {
	h := newHarness(t, time.Second)
	h.press(42, telebot.InlineButton{Unique: answerUnique, Data: "17"})

	h.sender.mu.Lock()
	defer h.sender.mu.Unlock()
	if len(h.sender.responses) != 1 || h.sender.responses[0] != "This quiz is no longer running." {
		t.Fatalf("unexpected callback responses %v", h.sender.responses)
	}
}

func TestPlayTimeoutScoresIncorrect(t *testing.T) {
	h := newHarness(t, 30*time.Millisecond)
	quiz := seedQuiz(h.repo)

	h.command(42, "/play "+strconv.FormatInt(quiz.ID, 10))
	final := h.sender.waitFor(t, withPrefix("Quiz finished"))
	if final.text != "Quiz finished: 0 of 2 correct." {
		t.Fatalf("unexpected summary %q", final.text)
	}
	h.bot.Wait()
}

func TestForeignButtonsKeepDeadline(t *testing.T) {
	h := newHarness(t, 300*time.Millisecond)
	quiz := seedQuiz(h.repo)

	h.command(42, "/play "+strconv.FormatInt(quiz.ID, 10))
	h.sender.waitFor(t, withPrefix("Question 1/2"))
	started := time.Now()

	foreign := telebot.InlineButton{Unique: answerUnique, Data: "999999"}
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	limit := time.After(1500 * time.Millisecond)
	for timedOut := false; !timedOut; {
		select {
		case msg := <-h.sender.notify:
			timedOut = msg.text == "Time is up."
		case <-ticker.C:
			h.press(42, foreign)
		case <-limit:
			t.Fatalf("ignored buttons extended the question past %v", time.Since(started))
		}
	}

	h.bot.cancel()
	h.bot.Wait()
}

func TestSecondPlayIsRefused(t *testing.T) {
	h := newHarness(t, time.Minute)
	quiz := seedQuiz(h.repo)
	id := strconv.FormatInt(quiz.ID, 10)

	h.command(42, "/play "+id)
	h.sender.waitFor(t, withPrefix("Question 1/2"))

	h.command(42, "/play "+id)
	h.sender.waitFor(t, withPrefix("Finish your current quiz first."))

	h.bot.cancel()
	h.sender.waitFor(t, withPrefix("The quiz was interrupted."))
	h.bot.Wait()
}

func TestQuizCommands(t *testing.T) {
	h := newHarness(t, time.Second)
	quiz := seedQuiz(h.repo)
	id := strconv.FormatInt(quiz.ID, 10)
	private := h.repo.Seed(domain.Quiz{Name: "Hidden", Owner: "7"})

	h.command(42, "/copy "+id)
	copied := h.sender.waitFor(t, withPrefix("Quiz copied."))
	copyID := strings.TrimSuffix(strings.TrimPrefix(copied.text, "Quiz copied. The copy is #"), ".")

	h.command(42, "/info "+copyID)
	info := h.sender.waitFor(t, withPrefix("#"+copyID))
	if !strings.Contains(info.text, "Capitals (Copy)") || !strings.Contains(info.text, "Questions: 2") {
		t.Fatalf("unexpected info %q", info.text)
	}

	h.command(42, "/copy "+id+" shell")
	shell := h.sender.waitFor(t, withPrefix("Quiz copied."))
	shellID := strings.TrimSuffix(strings.TrimPrefix(shell.text, "Quiz copied. The copy is #"), ".")
	h.command(42, "/info "+shellID)
	if msg := h.sender.waitFor(t, withPrefix("#"+shellID)); !strings.Contains(msg.text, "Questions: 0") {
		t.Fatalf("shell copy must have no questions: %q", msg.text)
	}

	h.command(42, "/like "+id)
	h.sender.waitFor(t, withPrefix("Liked."))
	h.command(42, "/like "+id)
	h.sender.waitFor(t, withPrefix("Like removed."))

	h.command(99, "/list capitals")
	list := h.sender.waitFor(t, withPrefix("#"))
	if len(strings.Split(list.text, "\n")) != 3 {
		t.Fatalf("expected source and two copies, got %q", list.text)
	}

	h.command(42, "/info "+strconv.FormatInt(private.ID, 10))
	h.sender.waitFor(t, withPrefix("Quiz not found."))
	h.command(42, "/copy "+strconv.FormatInt(private.ID, 10))
	h.sender.waitFor(t, withPrefix("Quiz not found."))
	h.command(42, "/info")
	h.sender.waitFor(t, withPrefix(usageText))
	h.command(42, "/list nothing-matches")
	h.sender.waitFor(t, withPrefix("No quizzes found."))
}

func TestPlayUnknownQuiz(t *testing.T) {
	h := newHarness(t, time.Second)
	h.command(42, "/play 404")
	h.sender.waitFor(t, withPrefix("Quiz not found."))
	h.bot.Wait()

	h.bot.mu.Lock()
	defer h.bot.mu.Unlock()
	if len(h.bot.plays) != 0 {
		t.Fatalf("failed play must not stay registered")
	}
}
