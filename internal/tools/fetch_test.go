package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/parleyhq/parley/internal/log"
)

const testPage = `<!DOCTYPE html>
<html>
<head><title>Shipping Policy</title><style>p { color: red }</style></head>
<body>
<nav>Home | About</nav>
<script>trackVisitor();</script>
<h1>Shipping Policy</h1>
<p>Orders ship within two business days.</p>
<p>International delivery takes up to three weeks.</p>
<footer>Copyright</footer>
</body>
</html>`

func TestFetchToolExtractsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(testPage))
	}))
	defer srv.Close()

	tool := NewFetchTool(log.NewNop())

	out, err := tool.Call(context.Background(), `{"url":"`+srv.URL+`"}`)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	if !strings.Contains(out, "Orders ship within two business days.") {
		t.Errorf("output missing page text: %q", out)
	}
	if strings.Contains(out, "trackVisitor") {
		t.Errorf("output contains script content: %q", out)
	}
	if strings.Contains(out, "color: red") {
		t.Errorf("output contains style content: %q", out)
	}
}

func TestFetchToolRejectsBadURL(t *testing.T) {
	tool := NewFetchTool(log.NewNop())

	for _, input := range []string{`{"url":"ftp://example.com"}`, `{"url":"not a url at all %%%"}`} {
		out, err := tool.Call(context.Background(), input)
		if err != nil {
			t.Fatalf("Call(%q) error = %v", input, err)
		}
		if !strings.Contains(out, "Error") {
			t.Errorf("Call(%q) = %q, want an error message for the model", input, out)
		}
	}
}

func TestFetchToolNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	tool := NewFetchTool(log.NewNop())

	out, err := tool.Call(context.Background(), `{"url":"`+srv.URL+`"}`)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if !strings.Contains(out, "404") {
		t.Errorf("Call() = %q, want HTTP status in message", out)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", maxFetchChars+100)
	got := truncate(long, maxFetchChars)
	if len(got) > maxFetchChars+len("\n[truncated]") {
		t.Errorf("truncate() produced %d characters", len(got))
	}
	if !strings.HasSuffix(got, "[truncated]") {
		t.Error("truncate() missing marker")
	}

	if got := truncate("short", maxFetchChars); got != "short" {
		t.Errorf("truncate() modified a short string: %q", got)
	}
}
