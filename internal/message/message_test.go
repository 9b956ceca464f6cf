package message

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := []Message{
		System("You are a helpful assistant."),
		Human("hello"),
		AI("hi there"),
		Human("what's the weather?"),
	}

	data, err := Encode(original)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if len(decoded) != len(original) {
		t.Fatalf("Decode() returned %d messages, want %d", len(decoded), len(original))
	}
	for i := range original {
		if decoded[i] != original[i] {
			t.Errorf("message %d = %+v, want %+v", i, decoded[i], original[i])
		}
	}
}

func TestEncodeEmpty(t *testing.T) {
	for _, msgs := range [][]Message{nil, {}} {
		data, err := Encode(msgs)
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		if !bytes.Equal(data, []byte("[]")) {
			t.Errorf("Encode(%v) = %s, want []", msgs, data)
		}
	}
}

func TestDecodeSkipsUnknownRoles(t *testing.T) {
	data := []byte(`[
		{"type":"human","content":"hello"},
		{"type":"function","content":"ignored"},
		{"type":"ai","content":"hi"}
	]`)

	msgs, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if len(msgs) != 2 {
		t.Fatalf("Decode() returned %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != RoleHuman || msgs[1].Role != RoleAI {
		t.Errorf("Decode() kept roles %v, %v; want human, ai", msgs[0].Role, msgs[1].Role)
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "truncated", data: []byte(`[{"type":"human"`)},
		{name: "not an array", data: []byte(`{"type":"human","content":"x"}`)},
		{name: "garbage", data: []byte(`not json at all`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.data); err == nil {
				t.Error("Decode() expected error, got nil")
			}
		})
	}
}

func TestDecodeEmptyInput(t *testing.T) {
	msgs, err := Decode(nil)
	if err != nil {
		t.Fatalf("Decode(nil) error = %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("Decode(nil) returned %d messages, want 0", len(msgs))
	}
}
