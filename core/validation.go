// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"strings"
)

// ValidateCollectionName checks a collection name is usable as a storage key.
// Names must be non-empty and must not contain NUL bytes.
func ValidateCollectionName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidCollection)
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: name contains NUL", ErrInvalidCollection)
	}
	return nil
}

// ValidateRecord validates the fields of a record before it is stored.
//
// Validation rules:
//   - ID must not be empty
//   - Vector must have at least one component
//
// Text may be empty; some callers store bare vectors.
func ValidateRecord(id string, vector []float32) error {
	if id == "" {
		return fmt.Errorf("%w: id is empty", ErrInvalidRecord)
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyVector)
	}
	return nil
}

// ValidateRole validates that a Role has a known value.
func ValidateRole(role Role) error {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidRole, role)
}

// ValidateMessage validates a conversation message.
func ValidateMessage(msg Message) error {
	if err := ValidateRole(msg.Role); err != nil {
		return err
	}
	if msg.Content == "" {
		return ErrEmptyContent
	}
	return nil
}
