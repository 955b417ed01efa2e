package submit

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/coursekit/snarf/internal/config"
)

// scriptedHost answers prompts from a token->value map and counts how
// often each token was asked for.
type scriptedHost struct {
	answers     map[string]string
	inputCalls  map[string]int
	secretCalls map[string]int
	warnings    []string
}

func newScriptedHost(answers map[string]string) *scriptedHost {
	return &scriptedHost{
		answers:     answers,
		inputCalls:  make(map[string]int),
		secretCalls: make(map[string]int),
	}
}

func (h *scriptedHost) token(prompt string) string {
	return strings.TrimPrefix(prompt, "Enter ")
}

func (h *scriptedHost) Confirm(prompt string) (bool, error) { return true, nil }

func (h *scriptedHost) Input(prompt string, validate func(string) error) (string, error) {
	token := h.token(prompt)
	h.inputCalls[token]++
	return h.answers[token], nil
}

func (h *scriptedHost) InputSecret(prompt string) (string, error) {
	token := h.token(prompt)
	h.secretCalls[token]++
	return h.answers[token], nil
}

func (h *scriptedHost) Notify(msg string)            {}
func (h *scriptedHost) WarnUser(msg string)          { h.warnings = append(h.warnings, msg) }
func (h *scriptedHost) OpenBrowser(url string) error { return nil }

func openTestStore(t *testing.T) *config.Store {
	t.Helper()
	store, err := config.Open(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestResolve_LiteralPassesThrough(t *testing.T) {
	host := newScriptedHost(nil)
	r := NewResolver(host, nil)

	got, err := r.Resolve("plain value")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got != "plain value" {
		t.Errorf("Resolve() = %q", got)
	}
	if len(host.inputCalls) != 0 || len(host.secretCalls) != 0 {
		t.Error("literal value triggered a prompt")
	}
}

func TestResolve_PromptsOncePerSession(t *testing.T) {
	host := newScriptedHost(map[string]string{"user": "alice"})
	r := NewResolver(host, nil)

	for i := 0; i < 3; i++ {
		got, err := r.Resolve("${user}")
		if err != nil {
			t.Fatalf("Resolve() error: %v", err)
		}
		if got != "alice" {
			t.Errorf("Resolve() = %q, want alice", got)
		}
	}
	if host.inputCalls["user"] != 1 {
		t.Errorf("user prompted %d times, want 1", host.inputCalls["user"])
	}
}

func TestResolve_MultipleTokensInOneValue(t *testing.T) {
	host := newScriptedHost(map[string]string{"user": "alice", "course": "cs101"})
	r := NewResolver(host, nil)

	got, err := r.Resolve("${user}-${course}-final")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got != "alice-cs101-final" {
		t.Errorf("Resolve() = %q", got)
	}
}

func TestResolve_SecretTokenPromptedWithoutEchoAndNeverPersisted(t *testing.T) {
	store := openTestStore(t)
	host := newScriptedHost(map[string]string{"pw": "hunter2"})
	r := NewResolver(host, store)

	got, err := r.Resolve("${pw}")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got != "hunter2" {
		t.Errorf("Resolve() = %q", got)
	}
	if host.secretCalls["pw"] != 1 {
		t.Errorf("secret prompts = %d, want 1", host.secretCalls["pw"])
	}
	if host.inputCalls["pw"] != 0 {
		t.Error("secret token went through the echoing prompt")
	}

	if _, ok, err := store.CachedVar("pw"); err != nil || ok {
		t.Errorf("secret token was persisted (ok=%v, err=%v)", ok, err)
	}

	// Within the session the cached answer is reused.
	if _, err := r.Resolve("${pw}"); err != nil {
		t.Fatal(err)
	}
	if host.secretCalls["pw"] != 1 {
		t.Errorf("secret prompts after reuse = %d, want 1", host.secretCalls["pw"])
	}
}

func TestResolve_NonSecretTokenPersistsAcrossSessions(t *testing.T) {
	store := openTestStore(t)

	first := newScriptedHost(map[string]string{"user": "alice"})
	if _, err := NewResolver(first, store).Resolve("${user}"); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if first.inputCalls["user"] != 1 {
		t.Fatalf("first session prompts = %d, want 1", first.inputCalls["user"])
	}

	// A fresh resolver on the same store answers from persistence.
	second := newScriptedHost(nil)
	got, err := NewResolver(second, store).Resolve("${user}")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got != "alice" {
		t.Errorf("Resolve() = %q, want persisted alice", got)
	}
	if len(second.inputCalls) != 0 {
		t.Error("second session prompted despite a persisted value")
	}
}

func TestResolve_NilStoreStillResolves(t *testing.T) {
	host := newScriptedHost(map[string]string{"user": "alice"})
	got, err := NewResolver(host, nil).Resolve("login=${user}")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got != "login=alice" {
		t.Errorf("Resolve() = %q", got)
	}
}
