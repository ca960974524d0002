// Package extractor turns an article-like document into cleaned body text and
// structured content.
package extractor

import (
	"errors"
	"math"
	"regexp"
	"strings"

	"github.com/samvad-hq/samvad-article-summarizer/internal/domain"
	"github.com/samvad-hq/samvad-article-summarizer/internal/logger"
	"github.com/samvad-hq/samvad-article-summarizer/pkg/dom"
	"github.com/samvad-hq/samvad-article-summarizer/pkg/heuristics"
)

// ErrInsufficientContent is returned when no strategy yields enough body text.
var ErrInsufficientContent = errors.New("insufficient content found")

const (
	// MaxContentLength caps the cleaned text, in characters. Truncation adds no ellipsis.
	MaxContentLength = 5000

	minContentLength   = 200
	strategyMinLength  = 300
	textBlockMinChars  = 10
	containerParaChars = 20
	flatParaChars      = 30
	minQualifyingParas = 3
	subtitleMinChars   = 5
	titleMinChars      = 5
	wordsPerMinute     = 200
	defaultLanguage    = "en"
	paragraphSeparator = "\n\n"
)

var (
	whitespaceRun = regexp.MustCompile(`[\s\v\p{Z}\x{FEFF}]+`)
	lineBreakRun  = regexp.MustCompile(`\n\s*\n\s*\n`)
)

// strategy returns candidate body text, or "" when it does not apply.
type strategy struct {
	name string
	run  func(dom.Document) string
}

// Extractor is the text extraction pipeline. It holds no per-document state.
type Extractor struct {
	table      heuristics.Table
	keywords   []string
	strategies []strategy
	log        logger.Logger
}

// New builds an Extractor over the given selector table.
func New(table heuristics.Table, log logger.Logger) *Extractor {
	e := &Extractor{
		table:    table,
		keywords: table.ExclusionKeywords(),
		log:      logger.Ensure(log),
	}
	e.strategies = []strategy{
		{name: "article_element", run: e.fromArticleElements},
		{name: "content_container", run: e.fromContentContainers},
		{name: "flat_paragraphs", run: e.fromParagraphs},
	}
	return e
}

// ExtractText runs the strategy chain and returns the cleaned body text.
func (e *Extractor) ExtractText(doc dom.Document) (string, error) {
	for _, s := range e.strategies {
		text := s.run(doc)
		if text == "" {
			continue
		}
		if dom.Len(text) < minContentLength {
			e.log.WarnObj("extracted text too short", "extraction", map[string]any{
				"url":      doc.URL(),
				"strategy": s.name,
				"length":   dom.Len(text),
			})
			return "", ErrInsufficientContent
		}
		cleaned := Clean(text)
		e.log.DebugObj("text extracted", "extraction", map[string]any{
			"url":            doc.URL(),
			"strategy":       s.name,
			"raw_length":     dom.Len(text),
			"cleaned_length": dom.Len(cleaned),
		})
		return cleaned, nil
	}

	e.log.WarnObj("no extraction strategy matched", "extraction", map[string]any{"url": doc.URL()})
	return "", ErrInsufficientContent
}

// ExtractStructuredContent bundles body text with title, subtitle, headings and
// derived metadata. When body extraction fails the returned content is still
// populated (with an empty Content) and the error wraps ErrInsufficientContent.
func (e *Extractor) ExtractStructuredContent(doc dom.Document) (domain.ExtractedContent, error) {
	text, err := e.ExtractText(doc)

	words := len(strings.Fields(text))
	lang := strings.TrimSpace(doc.Language())
	if lang == "" {
		lang = defaultLanguage
	}

	content := domain.ExtractedContent{
		Title:    e.Title(doc),
		Subtitle: dom.FirstText(doc, e.table.Subtitle, subtitleMinChars),
		Content:  text,
		Headings: e.Headings(doc),
		Metadata: domain.ContentMetadata{
			WordCount:         words,
			EstimatedReadTime: ReadTime(words),
			Language:          lang,
		},
	}
	return content, err
}

// Title returns the first title-like element longer than 5 characters, else the document title.
func (e *Extractor) Title(doc dom.Document) string {
	if t := dom.FirstText(doc, e.table.ContentTitle, titleMinChars); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Title())
}

// Headings lists every non-empty h1..h6 in document order.
func (e *Extractor) Headings(doc dom.Document) []domain.Heading {
	nodes := doc.QueryAll(e.table.Headings)
	out := make([]domain.Heading, 0, len(nodes))
	for _, n := range nodes {
		text := n.Text()
		level := n.HeadingLevel()
		if text == "" || level == 0 {
			continue
		}
		out = append(out, domain.Heading{Level: level, Text: text})
	}
	return out
}

func (e *Extractor) fromArticleElements(doc dom.Document) string {
	for _, sel := range e.table.ArticleContainers {
		for _, n := range doc.QueryAll(sel) {
			if e.withinExcludedElement(n) {
				continue
			}
			text := e.cleanElementText(n)
			if dom.Len(text) > strategyMinLength {
				return text
			}
		}
	}
	return ""
}

func (e *Extractor) fromContentContainers(doc dom.Document) string {
	for _, sel := range e.table.ContentContainers {
		for _, container := range doc.QueryAll(sel) {
			if e.withinExcludedElement(container) {
				continue
			}
			paras := container.Prune(e.table.Exclusions...).QueryAll(e.table.Paragraph)
			if len(paras) < minQualifyingParas {
				continue
			}
			text := joinTexts(paras, containerParaChars)
			if dom.Len(text) > strategyMinLength {
				return text
			}
		}
	}
	return ""
}

func (e *Extractor) fromParagraphs(doc dom.Document) string {
	var kept []dom.Node
	for _, p := range doc.QueryAll(e.table.Paragraph) {
		if e.inExcludedSection(p) {
			continue
		}
		if dom.Len(p.Text()) > flatParaChars {
			kept = append(kept, p)
		}
	}
	if len(kept) < minQualifyingParas {
		return ""
	}
	return joinTexts(kept, flatParaChars)
}

// cleanElementText prunes excluded descendants from a detached clone and joins
// the remaining text blocks.
func (e *Extractor) cleanElementText(n dom.Node) string {
	clone := n.Prune(e.table.Exclusions...)
	return joinTexts(clone.QueryAll(e.table.TextBlocks), textBlockMinChars)
}

// withinExcludedElement reports whether n or any ancestor below <body> matches
// an exclusion selector.
func (e *Extractor) withinExcludedElement(n dom.Node) bool {
	for p := n; p != nil && p.Tag() != "body"; p = p.Parent() {
		for _, sel := range e.table.Exclusions {
			if p.Matches(sel) {
				return true
			}
		}
	}
	return false
}

// inExcludedSection walks the ancestors of n up to, but not including, <body>,
// checking exclusion selectors and exclusion keywords in the class list.
func (e *Extractor) inExcludedSection(n dom.Node) bool {
	for p := n.Parent(); p != nil && p.Tag() != "body"; p = p.Parent() {
		classes := p.Classes()
		for i, sel := range e.table.Exclusions {
			if p.Matches(sel) || heuristics.ClassListContains(classes, e.keywords[i]) {
				return true
			}
		}
	}
	return false
}

func joinTexts(nodes []dom.Node, minChars int) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if text := n.Text(); dom.Len(text) > minChars {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, paragraphSeparator)
}

// Clean collapses whitespace runs to single spaces, collapses 3+ line breaks
// to two, trims, and truncates to MaxContentLength characters.
func Clean(text string) string {
	text = whitespaceRun.ReplaceAllString(text, " ")
	// No-op: whitespaceRun has already folded every newline into a space.
	text = lineBreakRun.ReplaceAllString(text, paragraphSeparator)
	text = strings.TrimSpace(text)
	return truncate(text, MaxContentLength)
}

func truncate(s string, limit int) string {
	if dom.Len(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

// ReadTime estimates minutes at 200 words per minute, rounded up.
func ReadTime(words int) int {
	if words <= 0 {
		return 0
	}
	return int(math.Ceil(float64(words) / wordsPerMinute))
}
