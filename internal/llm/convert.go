package llm

import (
	"github.com/tmc/langchaingo/llms"

	"github.com/parleyhq/parley/internal/message"
)

// roleToChatType maps storage roles to langchaingo chat message types. The
// string values happen to match, but the mapping is explicit so a change on
// either side fails loudly here instead of corrupting requests.
func roleToChatType(r message.Role) (llms.ChatMessageType, bool) {
	switch r {
	case message.RoleHuman:
		return llms.ChatMessageTypeHuman, true
	case message.RoleAI:
		return llms.ChatMessageTypeAI, true
	case message.RoleSystem:
		return llms.ChatMessageTypeSystem, true
	}
	return "", false
}

// toModelMessages builds the request message list: system instructions
// first, then the stored history, then the new user input.
func toModelMessages(system []string, history []message.Message, input string) []llms.MessageContent {
	msgs := make([]llms.MessageContent, 0, len(system)+len(history)+1)

	for _, s := range system {
		if s == "" {
			continue
		}
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, s))
	}

	for _, m := range history {
		role, ok := roleToChatType(m.Role)
		if !ok {
			continue
		}
		msgs = append(msgs, llms.TextParts(role, m.Content))
	}

	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, input))
	return msgs
}
