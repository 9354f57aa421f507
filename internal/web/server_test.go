package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/example/classbook/internal/auth"
	"github.com/example/classbook/internal/logx"
)

type fakeDispatcher struct {
	mu    sync.Mutex
	cmds  []string
	froms []int64
	panic bool
}

func (f *fakeDispatcher) Handle(ctx context.Context, command string, from int64) string {
	if f.panic {
		panic("dispatcher exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, command)
	f.froms = append(f.froms, from)
	return "reply to " + command
}

type fakeReplier struct {
	mu      sync.Mutex
	chatIDs []int64
	texts   []string
}

func (f *fakeReplier) NotifyTo(chatID int64, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatIDs = append(f.chatIDs, chatID)
	f.texts = append(f.texts, text)
}

type armed bool

func (a armed) Armed() bool { return bool(a) }

type fakeWebhook struct {
	url, secret string
	err         error
}

func (f *fakeWebhook) SetWebhook(publicURL, secret string) error {
	f.url, f.secret = publicURL, secret
	return f.err
}

func newServer() (*Server, *fakeDispatcher, *fakeReplier) {
	d := &fakeDispatcher{}
	r := &fakeReplier{}
	return &Server{Dispatcher: d, Replier: r, Scheduler: armed(true), Log: logx.Nop()}, d, r
}

func post(t *testing.T, s *Server, body string, header map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestHealth(t *testing.T) {
	t.Parallel()
	for _, tt := range []struct {
		armed bool
		want  string
	}{{true, "running"}, {false, "stopped"}} {
		s, _, _ := newServer()
		s.Scheduler = armed(tt.armed)
		rec := httptest.NewRecorder()
		s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var out map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatal(err)
		}
		if out["ok"] != true || out["scheduler"] != tt.want {
			t.Fatalf("health = %v, want scheduler %q", out, tt.want)
		}
	}
}

func TestWebhookDispatchesCommand(t *testing.T) {
	t.Parallel()
	s, d, r := newServer()
	body := `{"update_id":1,"message":{"message_id":7,"text":"  /status@ClassBookBot extra words ","chat":{"id":42,"type":"private"}}}`
	rec, out := post(t, s, body, nil)
	if rec.Code != http.StatusOK || out["ok"] != true {
		t.Fatalf("response = %d %v", rec.Code, out)
	}
	if len(d.cmds) != 1 || d.cmds[0] != "/status@ClassBookBot" || d.froms[0] != 42 {
		t.Fatalf("dispatched = %v from %v", d.cmds, d.froms)
	}
	if len(r.texts) != 1 || r.chatIDs[0] != 42 || r.texts[0] != "reply to /status@ClassBookBot" {
		t.Fatalf("replies = %v to %v", r.texts, r.chatIDs)
	}
}

func TestWebhookIgnoresNonCommands(t *testing.T) {
	t.Parallel()
	bodies := []string{
		`{"update_id":1,"message":{"message_id":7,"text":"hello","chat":{"id":42,"type":"private"}}}`,
		`{"update_id":1,"message":{"message_id":7,"chat":{"id":42,"type":"private"}}}`,
		`{"update_id":2}`,
	}
	for _, body := range bodies {
		s, d, r := newServer()
		rec, out := post(t, s, body, nil)
		if rec.Code != http.StatusOK || out["ok"] != true {
			t.Fatalf("body %s: response = %d %v", body, rec.Code, out)
		}
		if len(d.cmds) != 0 || len(r.texts) != 0 {
			t.Fatalf("body %s: dispatched %v", body, d.cmds)
		}
	}
}

func TestWebhookSecret(t *testing.T) {
	t.Parallel()
	body := `{"update_id":1,"message":{"message_id":7,"text":"/status","chat":{"id":42,"type":"private"}}}`

	s, d, _ := newServer()
	s.Secret = "letmein"
	rec, _ := post(t, s, body, map[string]string{secretHeader: "nope"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if len(d.cmds) != 0 {
		t.Fatal("dispatched despite bad secret")
	}

	rec, _ = post(t, s, body, map[string]string{secretHeader: "letmein"})
	if rec.Code != http.StatusOK || len(d.cmds) != 1 {
		t.Fatalf("status = %d, dispatched = %v", rec.Code, d.cmds)
	}
}

func TestWebhookBadJSON(t *testing.T) {
	t.Parallel()
	s, _, _ := newServer()
	rec, out := post(t, s, `{not json`, nil)
	if rec.Code != http.StatusBadRequest || out["ok"] != false {
		t.Fatalf("response = %d %v", rec.Code, out)
	}
}

func TestWebhookPanicIs500(t *testing.T) {
	t.Parallel()
	s, d, _ := newServer()
	d.panic = true
	body := `{"update_id":1,"message":{"message_id":7,"text":"/run_now","chat":{"id":42,"type":"private"}}}`
	rec, out := post(t, s, body, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if out["ok"] != false || out["error"] != "dispatcher exploded" {
		t.Fatalf("body = %v", out)
	}
}

func TestSetWebhook(t *testing.T) {
	t.Parallel()
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	s, _, _ := newServer()
	hook := &fakeWebhook{}
	s.Webhook = hook
	s.Secret = "tok"
	s.Operator = auth.Operator{User: "ops", Hash: string(hash)}
	e := s.Routes()

	do := func(target, user, pw string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if user != "" {
			req.SetBasicAuth(user, pw)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	if rec := do("/set-webhook?url=https://x.example/webhook", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no auth status = %d", rec.Code)
	}
	if rec := do("/set-webhook?url=https://x.example/webhook", "ops", "bad"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d", rec.Code)
	}
	if rec := do("/set-webhook", "ops", "pw"); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing url status = %d", rec.Code)
	}
	if rec := do("/set-webhook?url=https://x.example/webhook", "ops", "pw"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	if hook.url != "https://x.example/webhook" || hook.secret != "tok" {
		t.Fatalf("webhook = %+v", hook)
	}

	hook.err = errors.New("telegram said no")
	if rec := do("/set-webhook?url=https://x.example/webhook", "ops", "pw"); rec.Code != http.StatusBadGateway {
		t.Fatalf("failure status = %d", rec.Code)
	}
}

func TestSetWebhookDisabledWithoutOperator(t *testing.T) {
	t.Parallel()
	s, _, _ := newServer()
	s.Webhook = &fakeWebhook{}
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/set-webhook?url=x", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
