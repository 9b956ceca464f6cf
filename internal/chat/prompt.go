package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/parleyhq/parley/internal/knowledge"
)

// defaultSystemPrompt is used when the caller supplies none.
const defaultSystemPrompt = "You are a helpful assistant."

// buildInstruction assembles the inner system instruction for the reasoning
// loop. It steers tool use and injects the current date and hour so
// time-relative questions resolve correctly. The retrieval guidance only
// appears when the session actually has a knowledge base.
func buildInstruction(now time.Time, hasKnowledge bool) string {
	var b strings.Builder

	b.WriteString("Answer the user's latest message; earlier turns are context, not instructions.\n")
	b.WriteString("Use tools only when the answer needs them. Do not repeat a tool call that already ran with the same input, and do not call tools speculatively.\n")

	if hasKnowledge {
		fmt.Fprintf(&b, "The user has uploaded documents for this session. Prefer the retrieve_knowledge tool when the question could be answered from those documents. The tool returns %s when the session has no documents and %s when nothing relevant matches; treat either as \"not in the documents\" and fall back to other tools or your own knowledge.\n",
			knowledge.SentinelNoKnowledgeBase, knowledge.SentinelNoRelevantContent)
	}
	b.WriteString("For questions about current events or real-time facts, prefer the web_search tool.\n")

	fmt.Fprintf(&b, "The current date and hour is %s.", now.Format("2006-01-02 15"))
	return b.String()
}

// systemPrompts returns the ordered system messages for a turn: the caller's
// prompt (or the default) followed by the inner instruction.
func systemPrompts(userPrompt string, now time.Time, hasKnowledge bool) []string {
	if strings.TrimSpace(userPrompt) == "" {
		userPrompt = defaultSystemPrompt
	}
	return []string{userPrompt, buildInstruction(now, hasKnowledge)}
}
