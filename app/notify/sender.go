// Package notify delivers briefings and alerts over the outbound channels.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/lysyi3m/paleo-digest/app/feed"
)

type Audience int

const (
	// Broadcast senders deliver to one fixed destination.
	Broadcast Audience = iota
	// PerRecipient senders deliver to each registered recipient.
	PerRecipient
)

// Sender is one outbound channel. For broadcast senders the destination
// argument of Send is ignored.
type Sender interface {
	Name() string
	Audience() Audience
	// MaxLength is the longest message accepted, in runes unless the sender
	// is a LengthCounter. 0 means no limit.
	MaxLength() int
	Send(ctx context.Context, to, text string) error
}

// LengthCounter is implemented by senders whose limit is not counted in runes.
type LengthCounter interface {
	MessageLength(text string) int
}

// Deliver sends text through s, split into chunks that fit the sender's
// limit. Chunks already sent stay sent when a later one fails.
func Deliver(ctx context.Context, s Sender, to, text string) error {
	length := RuneLength
	if c, ok := s.(LengthCounter); ok {
		length = c.MessageLength
	}

	chunks := SplitFunc(text, s.MaxLength(), length)
	for i, chunk := range chunks {
		if err := s.Send(ctx, to, chunk); err != nil {
			if len(chunks) > 1 {
				return fmt.Errorf("%s chunk %d/%d: %w", s.Name(), i+1, len(chunks), err)
			}
			return fmt.Errorf("%s: %w", s.Name(), err)
		}
	}

	slog.Debug("Message delivered", "channel", s.Name(), "chunks", len(chunks))
	return nil
}

// Split cuts text into chunks of at most max runes, only at briefing
// section separators. A single section longer than max is truncated.
func Split(text string, max int) []string {
	return SplitFunc(text, max, RuneLength)
}

// SplitFunc is Split with the chunk size measured by length. length must be
// additive over runes.
func SplitFunc(text string, max int, length func(string) int) []string {
	if max <= 0 || length(text) <= max {
		return []string{text}
	}

	sep := feed.SectionSeparator
	var chunks []string
	current := ""

	for _, part := range strings.Split(text, sep) {
		candidate := part
		if current != "" {
			candidate = current + sep + part
		}

		if length(candidate) <= max {
			current = candidate
			continue
		}

		if current != "" {
			chunks = append(chunks, current)
		}
		current = truncate(part, max, length)
	}

	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

func RuneLength(s string) int {
	return utf8.RuneCountInString(s)
}

// UTF16Length counts UTF-16 code units. Characters outside the BMP, such as
// most emoji, count twice.
func UTF16Length(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

func truncate(s string, max int, length func(string) int) string {
	n := 0
	for i, r := range s {
		n += length(string(r))
		if n > max {
			return s[:i]
		}
	}
	return s
}
