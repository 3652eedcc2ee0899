package rules

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/nao1215/a11yscan/internal/browser"
)

func parse(t *testing.T, page string) *browser.Document {
	t.Helper()
	doc, err := browser.Parse("https://example.com/", strings.NewReader(page))
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	return doc
}

func countFor(t *testing.T, rule Rule, page string) int {
	t.Helper()
	return len(rule.Evaluate(parse(t, page)))
}

// TestRules tests each built-in rule against passing and failing markup.
func TestRules(t *testing.T) {
	t.Parallel()

	const valid = `<html lang="en"><head><title>ok</title></head><body>%s</body></html>`
	page := func(body string) string { return strings.Replace(valid, "%s", body, 1) }

	testCases := []struct {
		name string
		rule Rule
		page string
		want int
	}{
		{"image without alt", newImageAlt(), page(`<img src="a.png"><img src="b.png" alt="">`), 1},
		{"image with aria-label", newImageAlt(), page(`<img src="a.png" aria-label="logo">`), 0},
		{"presentational image", newImageAlt(), page(`<img src="a.png" role="presentation">`), 0},
		{"image button without alt", newInputImageAlt(), page(`<input type="image" src="go.png"><input type="image" alt="Go">`), 1},
		{"unlabeled inputs", newLabel(), page(`<input type="text"><textarea></textarea><input type="hidden"><input type="submit">`), 2},
		{"label for", newLabel(), page(`<label for="n">Name</label><input id="n">`), 0},
		{"wrapping label", newLabel(), page(`<label>Email <input type="email"></label>`), 0},
		{"aria-labelledby", newLabel(), page(`<span id="l">Phone</span><input aria-labelledby="l">`), 0},
		{"empty label text", newLabel(), page(`<label for="n"></label><input id="n">`), 1},
		{"empty button", newButtonName(), page(`<button></button><button>Send</button><button><img alt="Search"></button>`), 1},
		{"input button without value", newButtonName(), page(`<input type="button">`), 1},
		{"empty link", newLinkName(), page(`<a href="/x"></a><a href="/y">Y</a><a name="anchor"></a>`), 1},
		{"icon link with title", newLinkName(), page(`<a href="/x" title="Home"><svg></svg></a>`), 0},
		{"untitled iframe", newFrameTitle(), page(`<iframe src="/a"></iframe><iframe src="/b" title="Map"></iframe>`), 1},
		{"duplicate ids", newDuplicateID(), page(`<p id="a"></p><p id="a"></p><p id="a"></p><p id="b"></p>`), 2},
		{"viewport disables zoom", newMetaViewport(), `<html><head><meta name="viewport" content="width=device-width, user-scalable=no"></head></html>`, 1},
		{"viewport low max scale", newMetaViewport(), `<html><head><meta name="viewport" content="width=device-width, maximum-scale=1.0"></head></html>`, 1},
		{"viewport ok", newMetaViewport(), `<html><head><meta name="viewport" content="width=device-width, initial-scale=1"></head></html>`, 0},
		{"hidden body", newARIAHiddenBody(), `<html><body aria-hidden="true"><p>x</p></body></html>`, 1},
		{"low contrast", newColorContrast(), page(`<p style="color:#777;background-color:#888">grey on grey</p>`), 1},
		{"high contrast", newColorContrast(), page(`<p style="color:#000;background:#fff">black on white</p>`), 0},
		{"large text threshold", newColorContrast(), page(`<p style="color:#767676;background:#fff;font-size:32px">big</p>`), 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := countFor(t, tc.rule, tc.page); got != tc.want {
				t.Errorf("got %d violating nodes, expected %d", got, tc.want)
			}
		})
	}
}

// TestLanguageRules tests html-has-lang and html-lang-valid together.
func TestLanguageRules(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		lang        string
		wantMissing int
		wantInvalid int
	}{
		{`lang="he"`, 0, 0},
		{`lang="en-US"`, 0, 0},
		{`xml:lang="he-IL"`, 0, 0},
		{``, 1, 0},
		{`lang="  "`, 1, 0},
		{`lang="english"`, 0, 1},
		{`lang="not a lang"`, 0, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.lang, func(t *testing.T) {
			t.Parallel()
			page := "<html " + tc.lang + "><head><title>t</title></head></html>"
			if got := countFor(t, newHTMLHasLang(), page); got != tc.wantMissing {
				t.Errorf("html-has-lang: got %d, expected %d", got, tc.wantMissing)
			}
			if got := countFor(t, newHTMLLangValid(), page); got != tc.wantInvalid {
				t.Errorf("html-lang-valid: got %d, expected %d", got, tc.wantInvalid)
			}
		})
	}
}

func TestDocumentTitle(t *testing.T) {
	t.Parallel()

	if got := countFor(t, newDocumentTitle(), `<html><head><title> </title></head></html>`); got != 1 {
		t.Errorf("blank title: got %d, expected 1", got)
	}
	if got := countFor(t, newDocumentTitle(), `<html><head><title>Home</title></head></html>`); got != 0 {
		t.Errorf("titled page: got %d, expected 0", got)
	}
}

// TestStaticEngineRun tests violation shape and ordering.
func TestStaticEngineRun(t *testing.T) {
	t.Parallel()

	doc := parse(t, `<html><body><img src="a.png"><img src="b.png"><a href="/"></a></body></html>`)
	engine := NewStaticEngine()

	violations, err := engine.Run(context.Background(), doc)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	byID := make(map[string]int)
	for i, v := range violations {
		byID[v.ID] = i
	}

	for _, id := range []string{"image-alt", "link-name", "html-has-lang", "document-title"} {
		if _, ok := byID[id]; !ok {
			t.Errorf("expected violation %q", id)
		}
	}
	if _, ok := byID["label"]; ok {
		t.Error("unexpected label violation")
	}

	img := violations[byID["image-alt"]]
	if len(img.Nodes) != 2 {
		t.Errorf("got %d image nodes, expected 2", len(img.Nodes))
	}
	if img.Impact != "critical" {
		t.Errorf("got impact %q", img.Impact)
	}
	if img.HelpURL != helpURLBase+"image-alt" {
		t.Errorf("got help URL %q", img.HelpURL)
	}
	if img.Nodes[0].Target == "" || img.Nodes[0].HTML == "" {
		t.Errorf("node missing target or HTML: %+v", img.Nodes[0])
	}
	if byID["image-alt"] > byID["link-name"] {
		t.Error("violations should follow registration order")
	}
}

func TestStaticEngineCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStaticEngine().Run(ctx, parse(t, "<html></html>"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestStaticEngineRuleIDs(t *testing.T) {
	t.Parallel()

	ids := NewStaticEngine().RuleIDs()
	if len(ids) != 13 {
		t.Errorf("got %d rules, expected 13", len(ids))
	}

	custom := NewStaticEngine(WithRules(newImageAlt()))
	custom.Register(newLinkName())
	if got := custom.RuleIDs(); len(got) != 2 || got[0] != "image-alt" || got[1] != "link-name" {
		t.Errorf("got %v", got)
	}
}

func TestContrastRatio(t *testing.T) {
	t.Parallel()

	black, _ := parseColor("#000")
	white, _ := parseColor("white")
	if got := contrastRatio(black, white); math.Abs(got-21) > 0.01 {
		t.Errorf("black/white ratio = %f, expected 21", got)
	}
	if got := contrastRatio(white, white); math.Abs(got-1) > 0.001 {
		t.Errorf("white/white ratio = %f, expected 1", got)
	}

	for _, bad := range []string{"", "#12", "rgb(1,2)", "hsl(0,0%,0%)", "#zzzzzz"} {
		if _, ok := parseColor(bad); ok {
			t.Errorf("parseColor(%q) should fail", bad)
		}
	}
	if c, ok := parseColor("rgb(255, 0, 0)"); !ok || c.r != 255 || c.g != 0 {
		t.Errorf("rgb parse failed: %+v", c)
	}
}
