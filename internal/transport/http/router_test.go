package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"quizbot/internal/app"
	"quizbot/internal/domain"
	"quizbot/internal/infra/memory"
)

func newTestServer(t *testing.T, answerTimeout time.Duration) (*httptest.Server, *memory.Repository) {
	t.Helper()
	repo := memory.NewRepository()
	service := app.NewQuizService(repo, app.WithSessionRegistry(memory.NewSessionRegistry()))
	server := httptest.NewServer(NewRouter(service, NewPlayHandler(service, answerTimeout)))
	t.Cleanup(server.Close)
	return server, repo
}

func doJSON(t *testing.T, server *httptest.Server, method, path, user string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		var payload errorPayload
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		t.Fatalf("expected status %d, got %d (%s)", want, resp.StatusCode, payload.Message)
	}
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t, time.Second)
	resp := doJSON(t, server, http.MethodGet, "/healthz", "", nil)
	expectStatus(t, resp, http.StatusOK)
}

func TestQuizLifecycleOverREST(t *testing.T) {
	server, _ := newTestServer(t, time.Second)

	resp := doJSON(t, server, http.MethodPost, "/quizzes", "", map[string]any{"name": "Anonymous"})
	expectStatus(t, resp, http.StatusUnauthorized)

	resp = doJSON(t, server, http.MethodPost, "/quizzes", "alice", map[string]any{"name": "Planets", "public": true, "copyable": true})
	expectStatus(t, resp, http.StatusCreated)
	var quiz domain.Quiz
	if err := json.NewDecoder(resp.Body).Decode(&quiz); err != nil {
		t.Fatalf("decode quiz: %v", err)
	}
	if quiz.ID == 0 || quiz.Owner != "alice" {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
	base := "/quizzes/" + strconv.FormatInt(quiz.ID, 10)

	resp = doJSON(t, server, http.MethodPost, base+"/questions", "alice", map[string]any{"text": "Largest planet?"})
	expectStatus(t, resp, http.StatusCreated)
	var question domain.Question
	if err := json.NewDecoder(resp.Body).Decode(&question); err != nil {
		t.Fatalf("decode question: %v", err)
	}

	answersPath := "/questions/" + strconv.FormatInt(question.ID, 10) + "/answers"
	resp = doJSON(t, server, http.MethodPost, answersPath, "alice", map[string]any{"text": "Jupiter", "isCorrect": true})
	expectStatus(t, resp, http.StatusCreated)
	resp = doJSON(t, server, http.MethodPost, answersPath, "bob", map[string]any{"text": "Mars"})
	expectStatus(t, resp, http.StatusForbidden)

	resp = doJSON(t, server, http.MethodPatch, base, "bob", map[string]any{"name": "Mine now"})
	expectStatus(t, resp, http.StatusForbidden)
	resp = doJSON(t, server, http.MethodPatch, base, "alice", map[string]any{"thumbnail": "not a url"})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = doJSON(t, server, http.MethodPut, base+"/like", "bob", nil)
	expectStatus(t, resp, http.StatusOK)
	var like map[string]bool
	if err := json.NewDecoder(resp.Body).Decode(&like); err != nil || !like["liked"] {
		t.Fatalf("expected liked=true, got %v (%v)", like, err)
	}

	resp = doJSON(t, server, http.MethodGet, base, "bob", nil)
	expectStatus(t, resp, http.StatusOK)
	var info domain.QuizInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode info: %v", err)
	}
	if info.Likes != 1 || info.Questions != 1 {
		t.Fatalf("unexpected info %+v", info)
	}

	resp = doJSON(t, server, http.MethodPost, base+"/copy", "bob", nil)
	expectStatus(t, resp, http.StatusCreated)
	var copied map[string]int64
	if err := json.NewDecoder(resp.Body).Decode(&copied); err != nil {
		t.Fatalf("decode copy: %v", err)
	}
	resp = doJSON(t, server, http.MethodGet, "/quizzes/"+strconv.FormatInt(copied["id"], 10)+"/questions", "bob", nil)
	expectStatus(t, resp, http.StatusOK)
	var questions []domain.Question
	if err := json.NewDecoder(resp.Body).Decode(&questions); err != nil {
		t.Fatalf("decode questions: %v", err)
	}
	if len(questions) != 1 || questions[0].Text != "Largest planet?" {
		t.Fatalf("unexpected copied questions %+v", questions)
	}

	resp = doJSON(t, server, http.MethodGet, "/quizzes?q=planet", "carol", nil)
	expectStatus(t, resp, http.StatusOK)
	var listed []domain.Quiz
	if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected source and copy listed, got %d", len(listed))
	}

	resp = doJSON(t, server, http.MethodDelete, base, "alice", nil)
	expectStatus(t, resp, http.StatusNoContent)
	resp = doJSON(t, server, http.MethodGet, base, "alice", nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestRequestErrors(t *testing.T) {
	server, repo := newTestServer(t, time.Second)
	private := repo.Seed(domain.Quiz{Name: "Hidden", Owner: "alice"})
	locked := repo.Seed(domain.Quiz{Name: "Locked", Owner: "alice", Public: true})

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{name: "bad id", method: http.MethodGet, path: "/quizzes/abc", want: http.StatusBadRequest},
		{name: "bad order", method: http.MethodGet, path: "/quizzes?order=oldest", want: http.StatusBadRequest},
		{name: "missing quiz", method: http.MethodGet, path: "/quizzes/9999", want: http.StatusNotFound},
		{name: "private quiz", method: http.MethodGet, path: "/quizzes/" + strconv.FormatInt(private.ID, 10), want: http.StatusNotFound},
		{name: "not copyable", method: http.MethodPost, path: "/quizzes/" + strconv.FormatInt(locked.ID, 10) + "/copy", want: http.StatusForbidden},
		{name: "bad copy flag", method: http.MethodPost, path: "/quizzes/" + strconv.FormatInt(locked.ID, 10) + "/copy?questions=maybe", want: http.StatusBadRequest},
		{name: "missing name", method: http.MethodPost, path: "/quizzes", body: map[string]any{"public": true}, want: http.StatusBadRequest},
		{name: "missing answer", method: http.MethodDelete, path: "/answers/9999", want: http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doJSON(t, server, tc.method, tc.path, "bob", tc.body)
			expectStatus(t, resp, tc.want)
		})
	}
}
