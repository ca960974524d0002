package webhook

import (
	"strings"
	"unicode/utf8"

	"github.com/samvad-hq/samvad-article-summarizer/internal/domain"
)

const (
	// MinContentChars is the shortest article body accepted for summarization.
	MinContentChars = 100
	// LongContentChars is logged as a warning; such requests are still sent.
	LongContentChars = 10000
	// MaxMessageChars caps a single chat message.
	MaxMessageChars = 500
)

// ValidateArticle checks an article before it is sent for summarization.
func ValidateArticle(a domain.Article) error {
	if strings.TrimSpace(a.Content) == "" {
		return ErrContentRequired
	}
	if utf8.RuneCountInString(a.Content) < MinContentChars {
		return ErrContentTooShort
	}
	return nil
}

// ValidateMessage checks a chat message before it is sent.
func ValidateMessage(message string) error {
	if strings.TrimSpace(message) == "" {
		return ErrMessageRequired
	}
	if utf8.RuneCountInString(message) > MaxMessageChars {
		return ErrMessageTooLong
	}
	return nil
}
