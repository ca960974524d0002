package heuristics

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultTableOrdering(t *testing.T) {
	tbl := Default()
	if tbl.ArticleContainers[0] != "article" || tbl.ArticleContainers[len(tbl.ArticleContainers)-1] != ".post-body" {
		t.Fatalf("unexpected article container order: %v", tbl.ArticleContainers)
	}
	if len(tbl.Exclusions) != 16 {
		t.Fatalf("expected 16 exclusion selectors, got %d", len(tbl.Exclusions))
	}
}

func TestExclusionKeywordsStripFirstDot(t *testing.T) {
	kw := Default().ExclusionKeywords()
	if kw[0] != "nav" || kw[4] != "comments" || kw[len(kw)-1] != "cookie-banner" {
		t.Fatalf("unexpected keywords: %v", kw)
	}
}

func TestClassListContains(t *testing.T) {
	cases := []struct {
		classes []string
		keyword string
		want    bool
	}{
		{[]string{"Comments", "thread"}, "comments", true},
		{[]string{"thread"}, "ad", true},
		{[]string{"story"}, "ad", false},
		{nil, "nav", false},
		{[]string{"story"}, "", false},
	}
	for _, tc := range cases {
		if got := ClassListContains(tc.classes, tc.keyword); got != tc.want {
			t.Fatalf("ClassListContains(%v, %q) = %v, want %v", tc.classes, tc.keyword, got, tc.want)
		}
	}
}

func TestLoadYAMLOverridesOnlyGivenLists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "selectors.yaml")
	content := `
article_containers:
  - ".story-body"
  - "article"
exclusions: []
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write selectors file: %v", err)
	}

	tbl, err := Load(file)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tbl.ArticleContainers) != 2 || tbl.ArticleContainers[0] != ".story-body" {
		t.Fatalf("article containers not overridden: %v", tbl.ArticleContainers)
	}
	if len(tbl.Exclusions) != len(Default().Exclusions) {
		t.Fatalf("empty exclusions should keep defaults, got %v", tbl.Exclusions)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "selectors.json")
	if err := os.WriteFile(file, []byte(`{"subtitle": [".dek"]}`), 0o644); err != nil {
		t.Fatalf("write selectors file: %v", err)
	}
	tbl, err := Load(file)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tbl.Subtitle) != 1 || tbl.Subtitle[0] != ".dek" {
		t.Fatalf("unexpected subtitle selectors %v", tbl.Subtitle)
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "selectors.json")
	if err := os.WriteFile(file, []byte(`{not json`), 0o644); err != nil {
		t.Fatalf("write selectors file: %v", err)
	}
	if _, err := Load(file); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	tbl, err := Load("  ")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.TextBlocks != Default().TextBlocks {
		t.Fatalf("expected default table")
	}
}
