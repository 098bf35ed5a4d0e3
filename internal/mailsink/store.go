package mailsink

import (
	"bytes"
	"io"
	"mime"
	"net/mail"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message is one captured delivery.
type Message struct {
	ID         string    `json:"id"`
	From       string    `json:"from"`
	To         []string  `json:"to"`
	Subject    string    `json:"subject"`
	ReplyTo    string    `json:"reply_to,omitempty"`
	Size       int       `json:"size"`
	ReceivedAt time.Time `json:"received_at"`
	Raw        string    `json:"raw,omitempty"`
}

// Store keeps the most recent captured messages in memory.
type Store struct {
	mu       sync.RWMutex
	capacity int
	messages []*Message
	now      func() time.Time
}

func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = 500
	}
	return &Store{capacity: capacity, now: time.Now}
}

// Add parses the headers of raw and records it, evicting the oldest message
// once the store is full.
func (s *Store) Add(from string, to []string, raw []byte) *Message {
	m := &Message{
		ID:         uuid.NewString(),
		From:       from,
		To:         append([]string(nil), to...),
		Size:       len(raw),
		ReceivedAt: s.now(),
		Raw:        string(raw),
	}
	if parsed, err := mail.ReadMessage(bytes.NewReader(raw)); err == nil {
		dec := new(mime.WordDecoder)
		subject := parsed.Header.Get("Subject")
		if decoded, err := dec.DecodeHeader(subject); err == nil {
			subject = decoded
		}
		m.Subject = subject
		m.ReplyTo = parsed.Header.Get("Reply-To")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
	if over := len(s.messages) - s.capacity; over > 0 {
		s.messages = append([]*Message(nil), s.messages[over:]...)
	}
	return m
}

// List returns captured messages newest first, without raw bodies.
func (s *Store) List() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, 0, len(s.messages))
	for i := len(s.messages) - 1; i >= 0; i-- {
		m := *s.messages[i]
		m.Raw = ""
		out = append(out, m)
	}
	return out
}

func (s *Store) Get(id string) (*Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.messages {
		if m.ID == id {
			c := *m
			return &c, true
		}
	}
	return nil, false
}

func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.messages)
	s.messages = nil
	return n
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

func readAll(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}
