// Package message defines the conversation message model and the JSON codec
// shared by the session store tiers. Both the Redis cache and the Postgres
// history column hold the same encoding, so a history written by one tier can
// always be read back by the other.
package message

import (
	"encoding/json"
	"fmt"
)

// Role identifies the author of a message.
type Role string

const (
	// RoleHuman marks a message written by the end user.
	RoleHuman Role = "human"

	// RoleAI marks a message produced by the model.
	RoleAI Role = "ai"

	// RoleSystem marks an instruction message.
	RoleSystem Role = "system"
)

// valid reports whether r is one of the known roles.
func (r Role) valid() bool {
	switch r {
	case RoleHuman, RoleAI, RoleSystem:
		return true
	}
	return false
}

// Message is a single conversation turn. The JSON field names are part of the
// storage format and must not change.
type Message struct {
	Role    Role   `json:"type"`
	Content string `json:"content"`
}

// Human returns a user message.
func Human(content string) Message {
	return Message{Role: RoleHuman, Content: content}
}

// AI returns a model message.
func AI(content string) Message {
	return Message{Role: RoleAI, Content: content}
}

// System returns an instruction message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// Encode serializes a history to its storage form. A nil or empty history
// encodes to an empty JSON array, never to null.
func Encode(msgs []Message) ([]byte, error) {
	if len(msgs) == 0 {
		return []byte("[]"), nil
	}

	data, err := json.Marshal(msgs)
	if err != nil {
		return nil, fmt.Errorf("encode messages: %w", err)
	}
	return data, nil
}

// Decode parses a stored history. Entries with an unknown role are skipped
// rather than failing the whole history, so a record written by a newer
// version still loads. Malformed JSON is an error.
func Decode(data []byte) ([]Message, error) {
	if len(data) == 0 {
		return []Message{}, nil
	}

	var raw []Message
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	msgs := make([]Message, 0, len(raw))
	for _, m := range raw {
		if !m.Role.valid() {
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}
