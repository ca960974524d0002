package domain

import "time"

// ArticleMetadata is extracted independently of scoring. Fields are empty strings when absent.
type ArticleMetadata struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	PublishDate string `json:"publishDate"`
	URL         string `json:"url"`
}

// DetectionResult is the outcome of one confidence-scoring pass.
type DetectionResult struct {
	IsArticle  bool            `json:"isArticle"`
	Confidence float64         `json:"confidence"`
	Metadata   ArticleMetadata `json:"metadata"`
}

// Heading is a single h1..h6 element.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// ContentMetadata holds values derived from the extracted body text.
type ContentMetadata struct {
	WordCount         int    `json:"wordCount"`
	EstimatedReadTime int    `json:"estimatedReadTime"`
	Language          string `json:"language"`
}

// ExtractedContent is the structured extraction result.
// Content is empty when body extraction failed.
type ExtractedContent struct {
	Title    string          `json:"title"`
	Subtitle string          `json:"subtitle"`
	Content  string          `json:"content"`
	Headings []Heading       `json:"headings"`
	Metadata ContentMetadata `json:"metadata"`
}

// Article is the payload handed to the summarization webhook: extracted content
// plus the detector's metadata and confidence.
type Article struct {
	URL         string          `json:"url"`
	Title       string          `json:"title"`
	Subtitle    string          `json:"subtitle,omitempty"`
	Author      string          `json:"author,omitempty"`
	PublishDate string          `json:"publishDate,omitempty"`
	Description string          `json:"description,omitempty"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Content     string          `json:"content"`
	Headings    []Heading       `json:"headings,omitempty"`
	Metadata    ContentMetadata `json:"metadata"`
	Confidence  float64         `json:"confidence"`
}

// Summary is the webhook's answer for an article.
type Summary struct {
	Text        string         `json:"summary"`
	KeyPoints   []string       `json:"keyPoints"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn in an article Q&A conversation.
type ChatMessage struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	SentAt  time.Time `json:"sentAt"`
}

// Preferences are user settings persisted between runs.
type Preferences struct {
	Theme              string `json:"theme"`
	SummaryLength      string `json:"summaryLength"`
	AutoSummarize      bool   `json:"autoSummarize"`
	ShowWelcomeMessage bool   `json:"showWelcomeMessage"`
	MinimizedOnStartup bool   `json:"minimizedOnStartup"`
}

// DefaultPreferences returns the settings used before anything is saved.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:              "auto",
		SummaryLength:      "medium",
		AutoSummarize:      true,
		ShowWelcomeMessage: true,
		MinimizedOnStartup: false,
	}
}

// Statistics are usage counters.
type Statistics struct {
	ArticlesProcessed     int        `json:"articlesProcessed"`
	SummariesGenerated    int        `json:"summariesGenerated"`
	ChatMessagesExchanged int        `json:"chatMessagesExchanged"`
	LastUsed              *time.Time `json:"lastUsed"`
}
