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


package fetch

import "errors"

var (
	// ErrFetch is returned when a source cannot be retrieved.
	ErrFetch = errors.New("fetch failed")

	// ErrParse is returned when retrieved content cannot be turned into text.
	ErrParse = errors.New("parse failed")

	// ErrNoContent is returned when a source yields no text.
	ErrNoContent = errors.New("no textual content")

	// ErrUnsupportedScheme is returned for URIs the fetcher cannot handle.
	ErrUnsupportedScheme = errors.New("unsupported URI scheme")

	// ErrTooLarge is returned when a response body exceeds the configured limit.
	ErrTooLarge = errors.New("content too large")

	// ErrInvalidOption is returned when a fetcher option has an invalid value.
	ErrInvalidOption = errors.New("invalid fetcher option")
)
