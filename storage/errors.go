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


package storage

import "errors"

var (
	// ErrStorageClosed is returned by every VectorStore method after Close.
	ErrStorageClosed = errors.New("vector store is closed")

	// ErrTransactionFailed wraps a backend read or write that did not commit.
	ErrTransactionFailed = errors.New("vector store transaction failed")

	// ErrSerializationFailed wraps a stored record or vector that could not be decoded.
	ErrSerializationFailed = errors.New("record serialization failed")

	// ErrTruncatedData means an encoded record ended before all its fields were read.
	ErrTruncatedData = errors.New("truncated record data")
)
