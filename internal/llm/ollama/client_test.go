package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"feedbackgen/internal/llm"

	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeServer is a minimal Ollama lookalike tracking per-path request counts.
type fakeServer struct {
	mu     sync.Mutex
	counts map[string]int

	versionStatus int
	showStatus    int
	pullLines     []string
	chatHandler   func(w http.ResponseWriter)
	lastChatBody  []byte
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		counts:        make(map[string]int),
		versionStatus: http.StatusOK,
		showStatus:    http.StatusOK,
	}
}

func (f *fakeServer) hits(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[path]
}

func (f *fakeServer) chatBody() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastChatBody
}

func (f *fakeServer) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.counts[r.URL.Path]++
		versionStatus := f.versionStatus
		showStatus := f.showStatus
		pullLines := f.pullLines
		chatHandler := f.chatHandler
		f.mu.Unlock()

		switch r.URL.Path {
		case "/api/version":
			w.WriteHeader(versionStatus)
			fmt.Fprint(w, `{"version":"0.5.7"}`)
		case "/api/show":
			w.WriteHeader(showStatus)
			fmt.Fprint(w, `{}`)
		case "/api/pull":
			for _, line := range pullLines {
				fmt.Fprintln(w, line)
			}
		case "/api/generate":
			fmt.Fprint(w, `{"done":true}`)
		case "/api/chat":
			body, _ := io.ReadAll(r.Body)
			f.mu.Lock()
			f.lastChatBody = body
			f.mu.Unlock()

			if chatHandler != nil {
				chatHandler(w)
				return
			}
			fmt.Fprint(w, `{"message":{"role":"assistant","content":"{\"ok\":true}"}}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func TestCompleteInitializesOnce(t *testing.T) {
	reset()
	t.Cleanup(reset)

	fake := newFakeServer()
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	var progress []string
	client := New(server.URL, "test-model", func(s string) { progress = append(progress, s) }, zap.NewNop())

	reply, err := client.Complete(context.Background(), "s", "u")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != `{"ok":true}` {
		t.Fatalf("unexpected reply: %q", reply)
	}

	if fake.hits("/api/pull") != 0 {
		t.Fatal("model is present, pull must not happen")
	}

	joined := strings.Join(progress, "\n")
	for _, want := range []string{
		"connecting to Ollama at " + server.URL,
		"checking model test-model",
		"loading model test-model into memory",
		"model ready",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing progress line %q in:\n%s", want, joined)
		}
	}

	before := len(progress)
	if _, err := client.Complete(context.Background(), "s", "u"); err != nil {
		t.Fatalf("second Complete: %v", err)
	}
	if got := fake.hits("/api/version"); got != 1 {
		t.Fatalf("expected one initialization, got %d version checks", got)
	}
	if got := fake.hits("/api/chat"); got != 2 {
		t.Fatalf("expected two chat calls, got %d", got)
	}
	if len(progress) != before {
		t.Fatalf("no progress should be reported after initialization, got %v", progress[before:])
	}
}

func TestCompleteRequestShape(t *testing.T) {
	reset()
	t.Cleanup(reset)

	fake := newFakeServer()
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	client := New(server.URL, "test-model", nil, zap.NewNop())
	if _, err := client.Complete(context.Background(), "system text", "user text"); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	var body map[string]any
	if err := json.Unmarshal(fake.chatBody(), &body); err != nil {
		t.Fatalf("decode chat body: %v", err)
	}

	if body["model"] != "test-model" {
		t.Fatalf("unexpected model: %v", body["model"])
	}
	if body["format"] != "json" {
		t.Fatalf("unexpected format: %v", body["format"])
	}
	if body["stream"] != false {
		t.Fatalf("unexpected stream: %v", body["stream"])
	}

	options, ok := body["options"].(map[string]any)
	if !ok {
		t.Fatalf("missing options: %v", body)
	}
	if options["temperature"] != 0.3 {
		t.Fatalf("unexpected temperature: %v", options["temperature"])
	}
	if options["num_predict"] != float64(4096) {
		t.Fatalf("unexpected num_predict: %v", options["num_predict"])
	}

	messages, ok := body["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("unexpected messages: %v", body["messages"])
	}
	first := messages[0].(map[string]any)
	second := messages[1].(map[string]any)
	if first["role"] != "system" || first["content"] != "system text" {
		t.Fatalf("unexpected system message: %v", first)
	}
	if second["role"] != "user" || second["content"] != "user text" {
		t.Fatalf("unexpected user message: %v", second)
	}
}

func TestCompletePullsMissingModel(t *testing.T) {
	reset()
	t.Cleanup(reset)

	fake := newFakeServer()
	fake.showStatus = http.StatusNotFound
	fake.pullLines = []string{
		`{"status":"pulling manifest"}`,
		`{"status":"pulling manifest"}`,
		`{"status":"downloading","total":200,"completed":100}`,
		`{"status":"success"}`,
	}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	var progress []string
	client := New(server.URL, "test-model", func(s string) { progress = append(progress, s) }, zap.NewNop())

	if _, err := client.Complete(context.Background(), "s", "u"); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if fake.hits("/api/pull") != 1 {
		t.Fatalf("expected one pull, got %d", fake.hits("/api/pull"))
	}

	joined := strings.Join(progress, "\n")
	if !strings.Contains(joined, "pulling model test-model") {
		t.Fatalf("missing pull announcement in:\n%s", joined)
	}
	if !strings.Contains(joined, "downloading: 50%") {
		t.Fatalf("missing percentage line in:\n%s", joined)
	}

	var manifests int
	for _, line := range progress {
		if line == "pulling manifest" {
			manifests++
		}
	}
	if manifests != 1 {
		t.Fatalf("expected repeated status lines to be deduplicated, got %d", manifests)
	}
}

func TestFailedInitializationIsRetried(t *testing.T) {
	reset()
	t.Cleanup(reset)

	fake := newFakeServer()
	fake.versionStatus = http.StatusInternalServerError
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	client := New(server.URL, "test-model", nil, zap.NewNop())

	_, err := client.Complete(context.Background(), "s", "u")
	var backendErr *llm.BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if shared.Load() != nil {
		t.Fatal("failed initialization must not be cached")
	}

	fake.mu.Lock()
	fake.versionStatus = http.StatusOK
	fake.mu.Unlock()

	if _, err := client.Complete(context.Background(), "s", "u"); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if got := fake.hits("/api/version"); got != 2 {
		t.Fatalf("expected a fresh initialization after failure, got %d version checks", got)
	}
}

func TestPullFailureSurfaces(t *testing.T) {
	reset()
	t.Cleanup(reset)

	fake := newFakeServer()
	fake.showStatus = http.StatusNotFound
	fake.pullLines = []string{
		`{"status":"pulling manifest"}`,
		`{"error":"model not found"}`,
	}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	client := New(server.URL, "test-model", nil, zap.NewNop())

	_, err := client.Complete(context.Background(), "s", "u")
	var backendErr *llm.BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if !strings.Contains(err.Error(), "model not found") {
		t.Fatalf("expected pull error message, got %q", err.Error())
	}
	if shared.Load() != nil {
		t.Fatal("failed initialization must not be cached")
	}
}

func TestChatFailureKeepsRuntime(t *testing.T) {
	reset()
	t.Cleanup(reset)

	fake := newFakeServer()
	fake.chatHandler = func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"boom"}`)
	}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	client := New(server.URL, "test-model", nil, zap.NewNop())

	_, err := client.Complete(context.Background(), "s", "u")
	var backendErr *llm.BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if backendErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", backendErr.StatusCode)
	}

	if _, err := client.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected second chat call to fail too")
	}
	if got := fake.hits("/api/version"); got != 1 {
		t.Fatalf("chat failures must not re-initialize the runtime, got %d version checks", got)
	}
}

func TestNewDefaults(t *testing.T) {
	client := New("", "", nil, nil)
	if client.endpoint != DefaultEndpoint {
		t.Fatalf("unexpected endpoint: %q", client.endpoint)
	}
	if client.Model() != DefaultModel {
		t.Fatalf("unexpected model: %q", client.Model())
	}

	client = New("http://box:11434/", "custom", nil, nil)
	if client.endpoint != "http://box:11434" {
		t.Fatalf("expected trailing slash to be trimmed, got %q", client.endpoint)
	}
	if client.Model() != "custom" {
		t.Fatalf("unexpected model: %q", client.Model())
	}
}
