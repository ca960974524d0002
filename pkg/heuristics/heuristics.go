// Package heuristics holds the selector tables used to recognise article
// containers, non-article chrome and metadata locations.
package heuristics

import (
	"strings"

	"github.com/samvad-hq/samvad-article-summarizer/pkg/cfgfile"
)

// Table is the ordered selector configuration consumed by the detector and extractor.
type Table struct {
	ArticleContainers []string `json:"article_containers" yaml:"article_containers"`
	Exclusions        []string `json:"exclusions" yaml:"exclusions"`
	ContentContainers []string `json:"content_containers" yaml:"content_containers"`
	NavigationRegions []string `json:"navigation_regions" yaml:"navigation_regions"`
	TextBlocks        string   `json:"text_blocks" yaml:"text_blocks"`
	Paragraph         string   `json:"paragraph" yaml:"paragraph"`
	Headings          string   `json:"headings" yaml:"headings"`

	TitleSignal   string   `json:"title_signal" yaml:"title_signal"`
	AuthorSignal  string   `json:"author_signal" yaml:"author_signal"`
	DateSignal    string   `json:"date_signal" yaml:"date_signal"`
	ArticleSchema string   `json:"article_schema" yaml:"article_schema"`
	Title         []string `json:"title" yaml:"title"`
	ContentTitle  []string `json:"content_title" yaml:"content_title"`
	Subtitle      []string `json:"subtitle" yaml:"subtitle"`
	Author        []string `json:"author" yaml:"author"`
	DateTime      string   `json:"datetime" yaml:"datetime"`
	Date          []string `json:"date" yaml:"date"`
}

// Default returns the built-in selector table.
func Default() Table {
	return Table{
		ArticleContainers: []string{
			"article",
			`[role="main"]`,
			".post-content",
			".entry-content",
			".article-content",
			".content",
			"main",
			".article-body",
			".post-body",
		},
		Exclusions: []string{
			"nav",
			".navigation",
			".menu",
			".sidebar",
			".comments",
			".comment",
			".advertisement",
			".ad",
			".social",
			".share",
			".related",
			".footer",
			".header",
			"script",
			"style",
			".cookie-banner",
		},
		ContentContainers: []string{
			`div[class*="content"]`,
			`div[class*="article"]`,
			`div[class*="post"]`,
		},
		NavigationRegions: []string{"nav", ".menu", ".navigation", ".sidebar"},
		TextBlocks:        "p, h1, h2, h3, h4, h5, h6, blockquote",
		Paragraph:         "p",
		Headings:          "h1, h2, h3, h4, h5, h6",

		TitleSignal:   `h1, .title, .headline, [class*="title"]`,
		AuthorSignal:  `[class*="author"], [class*="byline"], .by-author`,
		DateSignal:    `time, [class*="date"], [class*="published"]`,
		ArticleSchema: `[itemtype*="Article"]`,
		Title: []string{
			"h1",
			".title",
			".headline",
			".article-title",
			".post-title",
			`[class*="title"]`,
		},
		ContentTitle: []string{
			"h1",
			".title",
			".headline",
			".article-title",
			".post-title",
		},
		Subtitle: []string{
			".subtitle",
			".subheading",
			".article-subtitle",
			"h2:first-of-type",
		},
		Author: []string{
			`[class*="author"]`,
			`[class*="byline"]`,
			".by-author",
			`[rel="author"]`,
		},
		DateTime: "time[datetime]",
		Date: []string{
			`[class*="date"]`,
			`[class*="published"]`,
			".timestamp",
		},
	}
}

// ExclusionKeywords returns the exclusion selectors with their first '.' removed,
// used for substring checks against a node's class list.
func (t Table) ExclusionKeywords() []string {
	out := make([]string, 0, len(t.Exclusions))
	for _, sel := range t.Exclusions {
		out = append(out, strings.Replace(sel, ".", "", 1))
	}
	return out
}

// NavigationSelector joins the navigation regions into a single selector group.
func (t Table) NavigationSelector() string {
	return strings.Join(t.NavigationRegions, ", ")
}

// ClassListContains reports whether the space-joined, lower-cased class list
// contains keyword as a substring. "thread" contains "ad"; that is intended.
func ClassListContains(classes []string, keyword string) bool {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" || len(classes) == 0 {
		return false
	}
	return strings.Contains(strings.ToLower(strings.Join(classes, " ")), keyword)
}

// Load reads a YAML/JSON selector file and overlays it on Default.
// Lists or selectors left empty in the file keep their default values.
func Load(path string) (Table, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}

	var override Table
	if err := cfgfile.Read(path, "selectors file", &override); err != nil {
		return Table{}, err
	}
	return Merge(Default(), override), nil
}

// Merge overlays non-empty fields of override onto base.
func Merge(base, override Table) Table {
	out := base
	out.ArticleContainers = pickList(base.ArticleContainers, override.ArticleContainers)
	out.Exclusions = pickList(base.Exclusions, override.Exclusions)
	out.ContentContainers = pickList(base.ContentContainers, override.ContentContainers)
	out.NavigationRegions = pickList(base.NavigationRegions, override.NavigationRegions)
	out.TextBlocks = pick(base.TextBlocks, override.TextBlocks)
	out.Paragraph = pick(base.Paragraph, override.Paragraph)
	out.Headings = pick(base.Headings, override.Headings)
	out.TitleSignal = pick(base.TitleSignal, override.TitleSignal)
	out.AuthorSignal = pick(base.AuthorSignal, override.AuthorSignal)
	out.DateSignal = pick(base.DateSignal, override.DateSignal)
	out.ArticleSchema = pick(base.ArticleSchema, override.ArticleSchema)
	out.Title = pickList(base.Title, override.Title)
	out.ContentTitle = pickList(base.ContentTitle, override.ContentTitle)
	out.Subtitle = pickList(base.Subtitle, override.Subtitle)
	out.Author = pickList(base.Author, override.Author)
	out.DateTime = pick(base.DateTime, override.DateTime)
	out.Date = pickList(base.Date, override.Date)
	return out
}

func pick(base, override string) string {
	if v := strings.TrimSpace(override); v != "" {
		return v
	}
	return base
}

func pickList(base, override []string) []string {
	cleaned := make([]string, 0, len(override))
	for _, s := range override {
		if v := strings.TrimSpace(s); v != "" {
			cleaned = append(cleaned, v)
		}
	}
	if len(cleaned) == 0 {
		return append([]string(nil), base...)
	}
	return cleaned
}
