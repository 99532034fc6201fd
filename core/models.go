package core

import (
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// String renders the ID as 16 lowercase hex digits.
func (id ID) String() string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	return hex.EncodeToString(buf[:])
}

// RecordID derives a stable record ID from a chunk's position.
// Re-ingesting the same source into the same collection yields the same IDs,
// which turns a second ingestion into an overwrite.
func RecordID(collection, source string, ordinal int) string {
	return IDFromContent(collection + "\x00" + source + "\x00" + strconv.Itoa(ordinal)).String()
}

// Chunk is a bounded piece of a source document.
type Chunk struct {
	Source  string // URI or label of the originating document
	Ordinal int    // Position within the source, starting at 0
	Text    string
	Tokens  int // Token count under the chunker's counting policy
}

// VectorRecord is a stored (id, text, vector) triple.
// Records are immutable once stored; replacing one writes a new record under the same ID.
type VectorRecord struct {
	ID         string
	Collection string
	Text       string
	Vector     []float32
	Seq        uint64    // Insertion order within the store, kept when a record is replaced
	InsertedAt time.Time // When the ID was first written
}

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a conversation.
type Message struct {
	Role    Role
	Content string
}

// SystemMessage, UserMessage and AssistantMessage are shorthand constructors.
func SystemMessage(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func UserMessage(content string) Message      { return Message{Role: RoleUser, Content: content} }
func AssistantMessage(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// SearchResult represents a search result with the full record and relevance score.
type SearchResult struct {
	Record *VectorRecord
	Score  float32
}
