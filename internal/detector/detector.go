// Package detector scores how likely a document is to be an article.
package detector

import (
	"strings"

	"github.com/samvad-hq/samvad-article-summarizer/internal/domain"
	"github.com/samvad-hq/samvad-article-summarizer/internal/logger"
	"github.com/samvad-hq/samvad-article-summarizer/pkg/dom"
	"github.com/samvad-hq/samvad-article-summarizer/pkg/heuristics"
)

// ArticleThreshold is the minimum confidence classified as an article.
const ArticleThreshold = 50.0

// Signal weights. The navigation weight is subtracted.
const (
	WeightArticleElements  = 30.0
	WeightContentStructure = 25.0
	WeightMetadata         = 20.0
	WeightTextPatterns     = 15.0
	WeightNavigation       = 10.0
)

const (
	minWordCount      = 300
	minParagraphCount = 3

	containerMinChars    = 500
	significantParaChars = 50
	titleSignalMinChars  = 10
	titleMinChars        = 5
	sentenceMinChars     = 20
	minSentenceCount     = 10
	minAvgSentenceWords  = 12.0
	maxAvgSentenceWords  = 30.0
	navigationRatioLimit = 0.3

	metaTitleWeight  = 0.3
	metaAuthorWeight = 0.2
	metaDateWeight   = 0.2
	metaSchemaWeight = 0.3
)

// Breakdown holds the unweighted signal values of one scoring pass.
type Breakdown struct {
	ArticleElements   float64 `json:"article_elements"`
	ContentStructure  float64 `json:"content_structure"`
	Metadata          float64 `json:"metadata"`
	TextPatterns      float64 `json:"text_patterns"`
	NavigationPenalty float64 `json:"navigation_penalty"`
	Confidence        float64 `json:"confidence"`
}

// Detector is the confidence scorer. It holds no per-document state.
type Detector struct {
	table heuristics.Table
	log   logger.Logger
}

// New builds a Detector over the given selector table.
func New(table heuristics.Table, log logger.Logger) *Detector {
	return &Detector{table: table, log: logger.Ensure(log)}
}

// Detect scores doc and extracts its metadata.
func (d *Detector) Detect(doc dom.Document) domain.DetectionResult {
	b := d.Score(doc)
	res := domain.DetectionResult{
		IsArticle:  b.Confidence >= ArticleThreshold,
		Confidence: b.Confidence,
		Metadata:   d.ExtractMetadata(doc),
	}

	d.log.InfoObj("article detection complete", "detection", map[string]any{
		"url":        res.Metadata.URL,
		"is_article": res.IsArticle,
		"confidence": res.Confidence,
		"has_title":  res.Metadata.Title != "",
		"has_author": res.Metadata.Author != "",
	})
	return res
}

// Score evaluates every signal and combines them into a clamped confidence.
func (d *Detector) Score(doc dom.Document) Breakdown {
	b := Breakdown{
		ArticleElements:   d.ArticleElements(doc),
		ContentStructure:  d.ContentStructure(doc),
		Metadata:          d.MetadataPresence(doc),
		TextPatterns:      d.TextPatterns(doc),
		NavigationPenalty: d.NavigationPenalty(doc),
	}
	score := WeightArticleElements*b.ArticleElements +
		WeightContentStructure*b.ContentStructure +
		WeightMetadata*b.Metadata +
		WeightTextPatterns*b.TextPatterns -
		WeightNavigation*b.NavigationPenalty
	b.Confidence = clamp(score, 0, 100)

	d.log.DebugObj("confidence signals", "signals", b)
	return b
}

// ArticleElements is 1 when any candidate container holds more than 500 characters.
func (d *Detector) ArticleElements(doc dom.Document) float64 {
	for _, sel := range d.table.ArticleContainers {
		for _, n := range doc.QueryAll(sel) {
			if dom.Len(n.Text()) > containerMinChars {
				return 1
			}
		}
	}
	return 0
}

// ContentStructure is 1 when there are at least 3 significant paragraphs
// totalling at least 300 words.
func (d *Detector) ContentStructure(doc dom.Document) float64 {
	count, words := 0, 0
	for _, p := range doc.QueryAll(d.table.Paragraph) {
		text := p.Text()
		if dom.Len(text) <= significantParaChars {
			continue
		}
		count++
		words += len(strings.Fields(text))
	}
	if count >= minParagraphCount && words >= minWordCount {
		return 1
	}
	return 0
}

// MetadataPresence adds up title, author, date and schema markers; at most 1.0.
func (d *Detector) MetadataPresence(doc dom.Document) float64 {
	score := 0.0
	if n := dom.First(doc, d.table.TitleSignal); n != nil && dom.Len(n.Text()) > titleSignalMinChars {
		score += metaTitleWeight
	}
	if dom.First(doc, d.table.AuthorSignal) != nil {
		score += metaAuthorWeight
	}
	if dom.First(doc, d.table.DateSignal) != nil {
		score += metaDateWeight
	}
	if dom.First(doc, d.table.ArticleSchema) != nil {
		score += metaSchemaWeight
	}
	return score
}

// TextPatterns is 1 when the body reads like prose: at least 10 sentences
// averaging 12 to 30 words.
func (d *Detector) TextPatterns(doc dom.Document) float64 {
	fragments := strings.FieldsFunc(doc.BodyText(), func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	sentences, words := 0, 0
	for _, f := range fragments {
		f = strings.TrimSpace(f)
		if dom.Len(f) <= sentenceMinChars {
			continue
		}
		sentences++
		words += len(strings.Fields(f))
	}
	if sentences < minSentenceCount {
		return 0
	}
	avg := float64(words) / float64(sentences)
	if avg >= minAvgSentenceWords && avg <= maxAvgSentenceWords {
		return 1
	}
	return 0
}

// NavigationPenalty is 1 when navigation-like regions hold more than 30% of the body text.
func (d *Detector) NavigationPenalty(doc dom.Document) float64 {
	total := dom.Len(doc.BodyText())
	if total == 0 {
		return 0
	}
	navChars := 0
	for _, n := range doc.QueryAll(d.table.NavigationSelector()) {
		navChars += dom.Len(n.RawText())
	}
	if float64(navChars)/float64(total) > navigationRatioLimit {
		return 1
	}
	return 0
}

// ExtractMetadata reads title, author, publish date and URL best-effort.
func (d *Detector) ExtractMetadata(doc dom.Document) domain.ArticleMetadata {
	return domain.ArticleMetadata{
		Title:       firstNonEmpty(dom.FirstText(doc, d.table.Title, titleMinChars), doc.Title()),
		Author:      d.author(doc),
		PublishDate: d.publishDate(doc),
		URL:         doc.URL(),
	}
}

func (d *Detector) author(doc dom.Document) string {
	for _, sel := range d.table.Author {
		if n := dom.First(doc, sel); n != nil {
			return n.Text()
		}
	}
	return ""
}

func (d *Detector) publishDate(doc dom.Document) string {
	if n := dom.First(doc, d.table.DateTime); n != nil {
		if v, ok := n.Attr("datetime"); ok {
			return strings.TrimSpace(v)
		}
	}
	for _, sel := range d.table.Date {
		if n := dom.First(doc, sel); n != nil {
			return n.Text()
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
