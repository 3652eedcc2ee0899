package rules

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"github.com/nao1215/a11yscan/internal/browser"
)

// minZoomScale is the lowest maximum-scale that still allows enough zoom.
const minZoomScale = 2.0

// rootOnly returns the <html> element as the single offending node, or
// nothing when the document has no root.
func rootOnly(doc *browser.Document) []*browser.Element {
	if root := doc.Root(); root != nil {
		return []*browser.Element{root}
	}
	return nil
}

func pageLang(doc *browser.Document) string {
	root := doc.Root()
	if root == nil {
		return ""
	}
	if lang := strings.TrimSpace(root.Attr("lang")); lang != "" {
		return lang
	}
	return strings.TrimSpace(root.Attr("xml:lang"))
}

func newHTMLHasLang() Rule {
	return &domRule{
		id:          "html-has-lang",
		impact:      "serious",
		tags:        []string{"cat.language", "wcag2a", "wcag311"},
		help:        "<html> element must have a lang attribute",
		description: "Ensures every HTML document has a lang attribute",
		evaluate: func(doc *browser.Document) []*browser.Element {
			if pageLang(doc) != "" {
				return nil
			}
			return rootOnly(doc)
		},
	}
}

func newHTMLLangValid() Rule {
	return &domRule{
		id:          "html-lang-valid",
		impact:      "serious",
		tags:        []string{"cat.language", "wcag2a", "wcag311"},
		help:        "<html> element must have a valid value for the lang attribute",
		description: "Ensures the lang attribute of the <html> element has a valid value",
		evaluate: func(doc *browser.Document) []*browser.Element {
			lang := pageLang(doc)
			if lang == "" {
				return nil
			}
			if _, err := language.Parse(lang); err == nil {
				return nil
			}
			return rootOnly(doc)
		},
	}
}

func newDocumentTitle() Rule {
	return &domRule{
		id:          "document-title",
		impact:      "serious",
		tags:        []string{"cat.text-alternatives", "wcag2a", "wcag242"},
		help:        "Documents must have <title> element to aid in navigation",
		description: "Ensures each HTML document contains a non-empty <title> element",
		evaluate: func(doc *browser.Document) []*browser.Element {
			if doc.Title() != "" {
				return nil
			}
			return rootOnly(doc)
		},
	}
}

func newMetaViewport() Rule {
	return &domRule{
		id:          "meta-viewport",
		impact:      "critical",
		tags:        []string{"cat.sensory-and-visual-cues", "wcag2aa", "wcag144"},
		help:        "Zooming and scaling must not be disabled",
		description: "Ensures <meta name=\"viewport\"> does not disable text scaling and zooming",
		evaluate: func(doc *browser.Document) []*browser.Element {
			return doc.Filter(func(el *browser.Element) bool {
				if el.Tag() != "meta" || !strings.EqualFold(el.Attr("name"), "viewport") {
					return false
				}
				return disablesZoom(el.Attr("content"))
			})
		},
	}
}

// disablesZoom reports whether a viewport content string prevents users
// from zooming to at least minZoomScale.
func disablesZoom(content string) bool {
	for _, part := range strings.FieldsFunc(content, func(r rune) bool { return r == ',' || r == ';' }) {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.ToLower(strings.TrimSpace(value))

		switch key {
		case "user-scalable":
			if value == "no" || value == "0" {
				return true
			}
		case "maximum-scale":
			if scale, err := strconv.ParseFloat(value, 64); err == nil && scale < minZoomScale {
				return true
			}
		}
	}
	return false
}

func newDuplicateID() Rule {
	return &domRule{
		id:          "duplicate-id",
		impact:      "minor",
		tags:        []string{"cat.parsing", "wcag2a", "wcag411"},
		help:        "id attribute value must be unique",
		description: "Ensures every id attribute value is unique",
		evaluate: func(doc *browser.Document) []*browser.Element {
			seen := make(map[string]bool)
			return doc.Filter(func(el *browser.Element) bool {
				id := el.Attr("id")
				if id == "" {
					return false
				}
				if seen[id] {
					return true
				}
				seen[id] = true
				return false
			})
		},
	}
}

func newARIAHiddenBody() Rule {
	return &domRule{
		id:          "aria-hidden-body",
		impact:      "critical",
		tags:        []string{"cat.aria", "wcag2a", "wcag131", "wcag412"},
		help:        "aria-hidden=\"true\" must not be present on the document body",
		description: "Ensures aria-hidden=\"true\" is not present on the document body",
		evaluate: func(doc *browser.Document) []*browser.Element {
			body := doc.Body()
			if body == nil || !strings.EqualFold(strings.TrimSpace(body.Attr("aria-hidden")), "true") {
				return nil
			}
			return []*browser.Element{body}
		},
	}
}
