package app

import (
	"context"
	"fmt"

	"github.com/samvad-hq/samvad-article-summarizer/internal/domain"
	"github.com/samvad-hq/samvad-article-summarizer/internal/storage"
	"github.com/samvad-hq/samvad-article-summarizer/pkg/webhook"
)

// ChatReply is the answer to a question plus the stored conversation so far.
type ChatReply struct {
	URL     string               `json:"url"`
	Answer  string               `json:"answer"`
	History []domain.ChatMessage `json:"history"`
}

// Chat asks a question about the page. The extracted body text is sent as
// context along with the stored history for the page URL; both turns are
// appended to that history on success.
func (s *Summarizer) Chat(ctx context.Context, src Source, message string) (ChatReply, error) {
	if err := webhook.ValidateMessage(message); err != nil {
		return ChatReply{}, err
	}

	page, err := s.load(ctx, src)
	if err != nil {
		return ChatReply{}, err
	}
	content, err := s.extractor.ExtractStructuredContent(page.Document)
	if err != nil {
		return ChatReply{}, fmt.Errorf("extract %s: %w", page.URL, err)
	}

	history, err := s.store.ChatHistory(page.URL)
	if err != nil {
		return ChatReply{}, fmt.Errorf("load chat history: %w", err)
	}

	asked := s.now()
	answer, err := s.ai.Chat(ctx, webhook.ChatRequest{
		Message: message,
		Context: content.Content,
		Title:   content.Title,
		History: history,
	})
	if err != nil {
		return ChatReply{}, fmt.Errorf("chat %s: %w", page.URL, err)
	}

	history, err = s.store.AppendChat(page.URL,
		domain.ChatMessage{Role: domain.RoleUser, Content: message, SentAt: asked},
		domain.ChatMessage{Role: domain.RoleAssistant, Content: answer, SentAt: s.now()},
	)
	if err != nil {
		s.log.WarnObj("chat history store failed", "chat_error", map[string]any{
			"url":   page.URL,
			"error": err.Error(),
		})
	}
	s.recordStats(storage.StatsDelta{ChatMessagesExchanged: 1})

	return ChatReply{URL: page.URL, Answer: answer, History: history}, nil
}

// ChatHistory returns the stored conversation for a page URL.
func (s *Summarizer) ChatHistory(pageURL string) ([]domain.ChatMessage, error) {
	return s.store.ChatHistory(pageURL)
}

// ClearChat forgets the conversation for a page URL.
func (s *Summarizer) ClearChat(pageURL string) error {
	return s.store.ClearChat(pageURL)
}
