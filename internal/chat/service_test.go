package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/parleyhq/parley/internal/knowledge"
	"github.com/parleyhq/parley/internal/message"
	"github.com/parleyhq/parley/internal/tools"
)

// ===== Mock Implementations =====

type mockMemory struct {
	history []message.Message

	getErr   error
	setErr   error
	syncErr  error
	clearErr error

	setCalls   int
	syncCalls  int
	clearCalls int
	lastSet    []message.Message
	lastSynced []message.Message

	cacheOK   bool
	durableOK bool
}

func (m *mockMemory) Get(_ context.Context, _ string) ([]message.Message, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.history, nil
}

func (m *mockMemory) Set(_ context.Context, _ string, msgs []message.Message) error {
	m.setCalls++
	m.lastSet = msgs
	return m.setErr
}

func (m *mockMemory) Sync(_ context.Context, _ string, fallback []message.Message) error {
	m.syncCalls++
	m.lastSynced = fallback
	return m.syncErr
}

func (m *mockMemory) Clear(_ context.Context, _ string) error {
	m.clearCalls++
	return m.clearErr
}

func (m *mockMemory) Health(_ context.Context) (bool, bool) {
	return m.cacheOK, m.durableOK
}

type mockRouter struct {
	toolset tools.Toolset
	err     error
}

func (m *mockRouter) Route(_ context.Context, _ string) (tools.Toolset, error) {
	return m.toolset, m.err
}

type mockReasoner struct {
	answer string
	err    error

	calls      int
	lastSystem []string
	lastInput  string
	lastTools  []tools.Tool
}

func (m *mockReasoner) Run(_ context.Context, system []string, history []message.Message, input string, toolset []tools.Tool) (string, []message.Message, error) {
	m.calls++
	m.lastSystem = system
	m.lastInput = input
	m.lastTools = toolset
	if m.err != nil {
		return "", nil, m.err
	}
	updated := append(append([]message.Message{}, history...),
		message.Human(input), message.AI(m.answer))
	return m.answer, updated, nil
}

type mockDescriber struct {
	description string
	err         error
	lastMIME    string
	lastBytes   int
}

func (m *mockDescriber) Describe(_ context.Context, mimeType string, data []byte) (string, error) {
	m.lastMIME = mimeType
	m.lastBytes = len(data)
	if m.err != nil {
		return "", m.err
	}
	return m.description, nil
}

type mockIngestor struct {
	err      error
	calls    int
	lastFile string
	lastText string
}

func (m *mockIngestor) Ingest(_ context.Context, _, fileName, text string) error {
	m.calls++
	m.lastFile = fileName
	m.lastText = text
	return m.err
}

type mockWiper struct {
	err   error
	calls int
}

func (m *mockWiper) DeleteNamespace(_ context.Context, _ string) error {
	m.calls++
	return m.err
}

type fixture struct {
	memory    *mockMemory
	router    *mockRouter
	reasoner  *mockReasoner
	describer *mockDescriber
	ingestor  *mockIngestor
	wiper     *mockWiper
	svc       *Service
}

func newFixture() *fixture {
	f := &fixture{
		memory:    &mockMemory{cacheOK: true, durableOK: true},
		router:    &mockRouter{},
		reasoner:  &mockReasoner{answer: "ok"},
		describer: &mockDescriber{description: "a diagram"},
		ingestor:  &mockIngestor{},
		wiper:     &mockWiper{},
	}
	f.svc = NewService(f.memory, f.router, f.reasoner, f.describer, f.ingestor, f.wiper, nil)
	f.svc.now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }
	return f
}

// ===== Tests =====

func TestHandleChat(t *testing.T) {
	f := newFixture()
	f.memory.history = []message.Message{message.Human("before"), message.AI("sure")}

	answer, err := f.svc.HandleChat(context.Background(), "hello", "", "s1")
	if err != nil {
		t.Fatalf("HandleChat() error = %v", err)
	}
	if answer != "ok" {
		t.Errorf("answer = %q", answer)
	}
	if f.memory.setCalls != 1 || f.memory.syncCalls != 1 {
		t.Errorf("set/sync calls = %d/%d, want 1/1", f.memory.setCalls, f.memory.syncCalls)
	}
	if len(f.memory.lastSet) != 4 {
		t.Errorf("committed history length = %d, want 4", len(f.memory.lastSet))
	}
}

func TestHandleChatValidation(t *testing.T) {
	f := newFixture()
	tests := []struct {
		name      string
		msg       string
		sessionID string
	}{
		{"empty message", "", "s1"},
		{"blank message", "   ", "s1"},
		{"empty session", "hi", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.HandleChat(context.Background(), tt.msg, "", tt.sessionID)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
	if f.reasoner.calls != 0 {
		t.Errorf("reasoner ran %d times on invalid input", f.reasoner.calls)
	}
}

func TestHandleChatDefaultSystemPrompt(t *testing.T) {
	f := newFixture()

	if _, err := f.svc.HandleChat(context.Background(), "hi", "", "s1"); err != nil {
		t.Fatalf("HandleChat() error = %v", err)
	}
	if len(f.reasoner.lastSystem) != 2 {
		t.Fatalf("system prompts = %d, want 2", len(f.reasoner.lastSystem))
	}
	if f.reasoner.lastSystem[0] != defaultSystemPrompt {
		t.Errorf("system[0] = %q, want default prompt", f.reasoner.lastSystem[0])
	}
	if !strings.Contains(f.reasoner.lastSystem[1], "2026-03-14 09") {
		t.Errorf("instruction missing date-hour: %q", f.reasoner.lastSystem[1])
	}
}

func TestHandleChatKnowledgeInstruction(t *testing.T) {
	f := newFixture()
	f.router.toolset = tools.Toolset{HasKnowledge: true}

	if _, err := f.svc.HandleChat(context.Background(), "hi", "", "s1"); err != nil {
		t.Fatalf("HandleChat() error = %v", err)
	}
	instr := f.reasoner.lastSystem[1]
	if !strings.Contains(instr, knowledge.SentinelNoKnowledgeBase) ||
		!strings.Contains(instr, knowledge.SentinelNoRelevantContent) {
		t.Errorf("instruction missing sentinel guidance: %q", instr)
	}

	f.router.toolset = tools.Toolset{HasKnowledge: false}
	if _, err := f.svc.HandleChat(context.Background(), "hi", "", "s1"); err != nil {
		t.Fatalf("HandleChat() error = %v", err)
	}
	if strings.Contains(f.reasoner.lastSystem[1], "retrieve_knowledge") {
		t.Errorf("instruction mentions retrieval without a knowledge base")
	}
}

func TestHandleChatMemoryFailure(t *testing.T) {
	f := newFixture()
	f.memory.getErr = errors.New("store down")

	if _, err := f.svc.HandleChat(context.Background(), "hi", "", "s1"); err == nil {
		t.Fatal("HandleChat() error = nil, want error")
	}
	if f.reasoner.calls != 0 {
		t.Error("reasoner ran despite memory failure")
	}
}

func TestHandleChatReasonerFailureSkipsCommit(t *testing.T) {
	f := newFixture()
	f.reasoner.err = errors.New("model down")

	if _, err := f.svc.HandleChat(context.Background(), "hi", "", "s1"); err == nil {
		t.Fatal("HandleChat() error = nil, want error")
	}
	if f.memory.setCalls != 0 || f.memory.syncCalls != 0 {
		t.Errorf("commit ran despite reasoner failure: set=%d sync=%d",
			f.memory.setCalls, f.memory.syncCalls)
	}

	// The session lock must be released on the error path; a second turn on
	// the same session would deadlock otherwise.
	f.reasoner.err = nil
	if _, err := f.svc.HandleChat(context.Background(), "hi again", "", "s1"); err != nil {
		t.Fatalf("turn after failure error = %v", err)
	}
}

func TestHandleChatStoreFailureKeepsAnswer(t *testing.T) {
	tests := []struct {
		name    string
		setErr  error
		syncErr error
	}{
		{"sync fails", nil, errors.New("postgres down")},
		{"set fails", errors.New("redis down"), nil},
		{"both fail", errors.New("redis down"), errors.New("postgres down")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.memory.setErr = tt.setErr
			f.memory.syncErr = tt.syncErr

			answer, err := f.svc.HandleChat(context.Background(), "hi", "", "s1")
			if err != nil {
				t.Fatalf("HandleChat() error = %v, want reasoned answer despite store failure", err)
			}
			if answer != "ok" {
				t.Errorf("answer = %q, want %q", answer, "ok")
			}
			// Sync must still run when Set failed; each path is best effort
			// on its own.
			if f.memory.syncCalls != 1 {
				t.Errorf("sync calls = %d, want 1", f.memory.syncCalls)
			}
		})
	}
}

func TestHandleChatWithImage(t *testing.T) {
	f := newFixture()

	answer, err := f.svc.HandleChatWithImage(context.Background(), "what is this", "be brief", "s1",
		Upload{FileName: "shot.png", Content: strings.NewReader("pngbytes")})
	if err != nil {
		t.Fatalf("HandleChatWithImage() error = %v", err)
	}
	if answer != "ok" {
		t.Errorf("answer = %q", answer)
	}
	if f.describer.lastMIME != "image/png" {
		t.Errorf("mime = %q, want image/png", f.describer.lastMIME)
	}
	if f.describer.lastBytes != len("pngbytes") {
		t.Errorf("describer got %d bytes", f.describer.lastBytes)
	}
	sys := f.reasoner.lastSystem[0]
	if !strings.Contains(sys, "a diagram") || !strings.Contains(sys, "be brief") {
		t.Errorf("system prompt missing description or caller prompt: %q", sys)
	}
}

func TestHandleChatWithImageBadExtension(t *testing.T) {
	f := newFixture()

	_, err := f.svc.HandleChatWithImage(context.Background(), "hi", "", "s1",
		Upload{FileName: "malware.exe", Content: strings.NewReader("x")})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestHandleChatWithImageDescriberFailure(t *testing.T) {
	f := newFixture()
	f.describer.err = errors.New("vision down")

	if _, err := f.svc.HandleChatWithImage(context.Background(), "hi", "", "s1",
		Upload{FileName: "a.jpg", Content: strings.NewReader("x")}); err == nil {
		t.Fatal("error = nil, want error")
	}
	if f.reasoner.calls != 0 {
		t.Error("reasoner ran despite describer failure")
	}
}

func TestHandleChatWithFile(t *testing.T) {
	f := newFixture()

	answer, err := f.svc.HandleChatWithFile(context.Background(), "summarize it", "", "s1",
		Upload{FileName: "notes.md", Content: strings.NewReader("# Notes\ncontent")})
	if err != nil {
		t.Fatalf("HandleChatWithFile() error = %v", err)
	}
	if answer != "ok" {
		t.Errorf("answer = %q", answer)
	}
	if f.ingestor.calls != 1 {
		t.Fatalf("ingestor called %d times, want 1", f.ingestor.calls)
	}
	if f.ingestor.lastFile != "notes.md" || !strings.Contains(f.ingestor.lastText, "# Notes") {
		t.Errorf("ingested %q / %q", f.ingestor.lastFile, f.ingestor.lastText)
	}
}

func TestHandleChatWithFileExtensions(t *testing.T) {
	f := newFixture()
	tests := []struct {
		fileName string
		want     error
	}{
		{"report.pdf", ErrUnsupportedFileType},
		{"deck.pptx", ErrUnsupportedFileType},
		{"doc.docx", ErrUnsupportedFileType},
		{"binary.exe", ErrValidation},
		{"noext", ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.fileName, func(t *testing.T) {
			_, err := f.svc.HandleChatWithFile(context.Background(), "hi", "", "s1",
				Upload{FileName: tt.fileName, Content: strings.NewReader("x")})
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
	if f.ingestor.calls != 0 {
		t.Errorf("ingestor ran %d times on rejected uploads", f.ingestor.calls)
	}
}

func TestHandleChatWithFileIngestFailure(t *testing.T) {
	f := newFixture()
	f.ingestor.err = errors.New("embedding down")

	if _, err := f.svc.HandleChatWithFile(context.Background(), "hi", "", "s1",
		Upload{FileName: "a.txt", Content: strings.NewReader("x")}); err == nil {
		t.Fatal("error = nil, want error")
	}
	if f.reasoner.calls != 0 {
		t.Error("reasoner ran despite ingest failure")
	}
}

func TestClearSession(t *testing.T) {
	f := newFixture()

	if err := f.svc.ClearSession(context.Background(), "s1"); err != nil {
		t.Fatalf("ClearSession() error = %v", err)
	}
	if f.memory.clearCalls != 1 || f.wiper.calls != 1 {
		t.Errorf("clear/wipe calls = %d/%d, want 1/1", f.memory.clearCalls, f.wiper.calls)
	}
}

func TestClearSessionWipesKnowledgeEvenOnMemoryFailure(t *testing.T) {
	f := newFixture()
	f.memory.clearErr = errors.New("redis down")

	if err := f.svc.ClearSession(context.Background(), "s1"); err == nil {
		t.Fatal("ClearSession() error = nil, want error")
	}
	if f.wiper.calls != 1 {
		t.Error("knowledge namespace not wiped after memory failure")
	}
}

func TestClearSessionValidation(t *testing.T) {
	f := newFixture()

	if err := f.svc.ClearSession(context.Background(), "  "); !errors.Is(err, ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture()
	f.memory.cacheOK = false
	f.memory.durableOK = true

	cacheOK, durableOK := f.svc.Health(context.Background())
	if cacheOK || !durableOK {
		t.Errorf("Health() = %v/%v, want false/true", cacheOK, durableOK)
	}
}
