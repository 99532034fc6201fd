package core

import (
	"errors"
	"testing"
)

func TestValidateCollectionName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "valid", input: "docs", wantErr: nil},
		{name: "with spaces inside", input: "my docs", wantErr: nil},
		{name: "empty", input: "", wantErr: ErrInvalidCollection},
		{name: "blank", input: "   ", wantErr: ErrInvalidCollection},
		{name: "NUL byte", input: "a\x00b", wantErr: ErrInvalidCollection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCollectionName(tt.input)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateCollectionName() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateCollectionName() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		vector  []float32
		wantErr error
	}{
		{name: "valid", id: "a", vector: []float32{1}, wantErr: nil},
		{name: "zero vector is still valid", id: "a", vector: []float32{0, 0}, wantErr: nil},
		{name: "empty id", id: "", vector: []float32{1}, wantErr: ErrInvalidRecord},
		{name: "nil vector", id: "a", vector: nil, wantErr: ErrEmptyVector},
		{name: "empty vector", id: "a", vector: []float32{}, wantErr: ErrInvalidRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecord(tt.id, tt.vector)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateRecord() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateRecord() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr error
	}{
		{name: "user", msg: UserMessage("hi"), wantErr: nil},
		{name: "system", msg: SystemMessage("be brief"), wantErr: nil},
		{name: "assistant", msg: AssistantMessage("hello"), wantErr: nil},
		{name: "unknown role", msg: Message{Role: "tool", Content: "x"}, wantErr: ErrInvalidRole},
		{name: "empty role", msg: Message{Content: "x"}, wantErr: ErrInvalidRole},
		{name: "empty content", msg: UserMessage(""), wantErr: ErrEmptyContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessage(tt.msg)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateMessage() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateMessage() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
