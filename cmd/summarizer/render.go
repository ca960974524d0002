package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/samvad-hq/samvad-article-summarizer/internal/app"
	"github.com/samvad-hq/samvad-article-summarizer/internal/domain"
)

// Output formats accepted by --output.
const (
	outputJSON  = "json"
	outputTable = "table"
)

const summaryColumnWidth = 100

func validOutput(format string) error {
	switch format {
	case outputJSON, outputTable:
		return nil
	default:
		return fmt.Errorf("unsupported --output %q (want json or table)", format)
	}
}

// render writes v as indented JSON, or as a table for the types that have one.
func render(w io.Writer, format string, v any) error {
	if format != outputTable {
		return printJSON(w, v)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	switch v := v.(type) {
	case domain.DetectionResult:
		detectionRows(t, v)
	case app.Result:
		t.AppendHeader(table.Row{"Field", "Value"})
		t.AppendRow(table.Row{"URL", v.URL})
		t.AppendRow(table.Row{"Outcome", v.Outcome})
		detectionRows(t, v.Detection)
		if v.Summary != nil {
			t.AppendSeparator()
			t.AppendRow(table.Row{"Summary", v.Summary.Text})
			for i, kp := range v.Summary.KeyPoints {
				t.AppendRow(table.Row{fmt.Sprintf("Key point %d", i+1), kp})
			}
		}
		t.AppendFooter(table.Row{"Published", v.Published})
		t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: summaryColumnWidth}})
	case domain.Statistics:
		t.AppendHeader(table.Row{"Counter", "Value"})
		t.AppendRow(table.Row{"Articles processed", v.ArticlesProcessed})
		t.AppendRow(table.Row{"Summaries generated", v.SummariesGenerated})
		t.AppendRow(table.Row{"Chat messages", v.ChatMessagesExchanged})
		last := "never"
		if v.LastUsed != nil {
			last = v.LastUsed.Format(time.RFC3339)
		}
		t.AppendRow(table.Row{"Last used", last})
	case domain.Preferences:
		t.AppendHeader(table.Row{"Key", "Value"})
		t.AppendRow(table.Row{"theme", v.Theme})
		t.AppendRow(table.Row{"summary_length", v.SummaryLength})
		t.AppendRow(table.Row{"auto_summarize", v.AutoSummarize})
		t.AppendRow(table.Row{"show_welcome_message", v.ShowWelcomeMessage})
		t.AppendRow(table.Row{"minimized_on_startup", v.MinimizedOnStartup})
	case []domain.ChatMessage:
		t.AppendHeader(table.Row{"#", "Role", "Message"})
		for i, m := range v {
			t.AppendRow(table.Row{i + 1, m.Role, strings.TrimSpace(m.Content)})
		}
		t.AppendFooter(table.Row{"Total", len(v), ""})
		t.SetColumnConfigs([]table.ColumnConfig{{Number: 3, WidthMax: summaryColumnWidth}})
	default:
		return printJSON(w, v)
	}

	t.Render()
	return nil
}

func detectionRows(t table.Writer, d domain.DetectionResult) {
	t.AppendRow(table.Row{"Article", d.IsArticle})
	t.AppendRow(table.Row{"Confidence", fmt.Sprintf("%.1f", d.Confidence)})
	if d.Metadata.Title != "" {
		t.AppendRow(table.Row{"Title", d.Metadata.Title})
	}
	if d.Metadata.Author != "" {
		t.AppendRow(table.Row{"Author", d.Metadata.Author})
	}
	if d.Metadata.PublishDate != "" {
		t.AppendRow(table.Row{"Published at", d.Metadata.PublishDate})
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
