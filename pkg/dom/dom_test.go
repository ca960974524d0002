package dom

import "testing"

const fixture = `<!DOCTYPE html>
<html lang="de">
<head><title>  Page Title  </title></head>
<body>
  <div class="wrap Story">
    <h2>Sub heading</h2>
    <p id="first">  First paragraph.  </p>
    <div class="comments"><p>A comment</p></div>
  </div>
</body>
</html>`

func mustDoc(t *testing.T, html string) Document {
	t.Helper()
	doc, err := FromString(html, "https://example.com/a")
	if err != nil {
		t.Fatalf("FromString: %v", err)
	}
	return doc
}

func TestDocumentBasics(t *testing.T) {
	doc := mustDoc(t, fixture)
	if doc.Title() != "Page Title" {
		t.Fatalf("Title = %q", doc.Title())
	}
	if doc.Language() != "de" {
		t.Fatalf("Language = %q", doc.Language())
	}
	if doc.URL() != "https://example.com/a" {
		t.Fatalf("URL = %q", doc.URL())
	}
	if got := doc.QueryAll("p"); len(got) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(got))
	}
}

func TestNodeAccessors(t *testing.T) {
	doc := mustDoc(t, fixture)
	p := doc.QueryAll("#first")[0]
	if p.Text() != "First paragraph." {
		t.Fatalf("Text = %q", p.Text())
	}
	if p.RawText() == p.Text() {
		t.Fatalf("RawText should keep surrounding whitespace")
	}
	if p.Tag() != "p" || p.HeadingLevel() != 0 {
		t.Fatalf("unexpected tag/level %q/%d", p.Tag(), p.HeadingLevel())
	}
	h := doc.QueryAll("h2")[0]
	if h.HeadingLevel() != 2 {
		t.Fatalf("HeadingLevel = %d", h.HeadingLevel())
	}

	parent := p.Parent()
	if parent == nil || !parent.Matches("div.wrap") {
		t.Fatalf("expected div.wrap parent")
	}
	classes := parent.Classes()
	if len(classes) != 2 || classes[1] != "Story" {
		t.Fatalf("Classes = %v", classes)
	}

	depth := 0
	for n := p.Parent(); n != nil; n = n.Parent() {
		depth++
	}
	if depth != 3 {
		t.Fatalf("expected div, body, html ancestors, got %d", depth)
	}
}

func TestPruneLeavesSourceUntouched(t *testing.T) {
	doc := mustDoc(t, fixture)
	wrap := doc.QueryAll("div.wrap")[0]

	pruned := wrap.Prune(".comments", "")
	if got := pruned.QueryAll("p"); len(got) != 1 {
		t.Fatalf("expected comments removed from clone, got %d paragraphs", len(got))
	}
	if pruned.Parent() != nil {
		t.Fatalf("pruned clone must be detached")
	}
	if got := doc.QueryAll(".comments p"); len(got) != 1 {
		t.Fatalf("live document was mutated")
	}
	if got := wrap.QueryAll("p"); len(got) != 2 {
		t.Fatalf("source node was mutated")
	}
}

func TestInvalidSelectorMatchesNothing(t *testing.T) {
	doc := mustDoc(t, fixture)
	if got := doc.QueryAll("p[[["); len(got) != 0 {
		t.Fatalf("expected no matches for invalid selector")
	}
	if doc.QueryAll("p")[0].Matches("p[[[") {
		t.Fatalf("invalid selector should not match")
	}
}

func TestLenCountsRunes(t *testing.T) {
	if Len("héllo") != 5 {
		t.Fatalf("Len should count runes")
	}
}
