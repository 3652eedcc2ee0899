package rules

import (
	"strings"

	"github.com/nao1215/a11yscan/internal/browser"
)

// ariaName returns the name an element gets from aria-label,
// aria-labelledby or title.
func ariaName(doc *browser.Document, el *browser.Element) string {
	if v := strings.TrimSpace(el.Attr("aria-label")); v != "" {
		return v
	}
	if ids := strings.Fields(el.Attr("aria-labelledby")); len(ids) > 0 {
		var parts []string
		for _, id := range ids {
			if ref := doc.ElementByID(id); ref != nil {
				if text := ref.Text(); text != "" {
					parts = append(parts, text)
				}
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, " ")
		}
	}
	return strings.TrimSpace(el.Attr("title"))
}

// contentName returns an element's name computed from its content,
// including the alt text of contained images.
func contentName(el *browser.Element) string {
	if text := el.Text(); text != "" {
		return text
	}
	for _, img := range el.Descendants("img") {
		if alt := strings.TrimSpace(img.Attr("alt")); alt != "" {
			return alt
		}
	}
	return ""
}

func isPresentational(el *browser.Element) bool {
	role := strings.ToLower(strings.TrimSpace(el.Attr("role")))
	return role == "presentation" || role == "none"
}

func newImageAlt() Rule {
	return &domRule{
		id:          "image-alt",
		impact:      "critical",
		tags:        []string{"cat.text-alternatives", "wcag2a", "wcag111"},
		help:        "Images must have alternate text",
		description: "Ensures <img> elements have alternate text or a role of none or presentation",
		evaluate: func(doc *browser.Document) []*browser.Element {
			return doc.Filter(func(el *browser.Element) bool {
				if el.Tag() != "img" || isPresentational(el) {
					return false
				}
				if strings.EqualFold(el.Attr("aria-hidden"), "true") {
					return false
				}
				return !el.HasAttr("alt") && ariaName(doc, el) == ""
			})
		},
	}
}

func newInputImageAlt() Rule {
	return &domRule{
		id:          "input-image-alt",
		impact:      "critical",
		tags:        []string{"cat.text-alternatives", "wcag2a", "wcag111", "wcag412"},
		help:        "Image buttons must have alternate text",
		description: "Ensures <input type=\"image\"> elements have alternate text",
		evaluate: func(doc *browser.Document) []*browser.Element {
			return doc.Filter(func(el *browser.Element) bool {
				if el.Tag() != "input" || !strings.EqualFold(el.Attr("type"), "image") {
					return false
				}
				return strings.TrimSpace(el.Attr("alt")) == "" && ariaName(doc, el) == ""
			})
		},
	}
}

// unlabeledInputTypes are input types that need no label.
var unlabeledInputTypes = map[string]bool{
	"hidden": true,
	"submit": true,
	"reset":  true,
	"button": true,
	"image":  true,
}

func newLabel() Rule {
	return &domRule{
		id:          "label",
		impact:      "critical",
		tags:        []string{"cat.forms", "wcag2a", "wcag412", "wcag131"},
		help:        "Form elements must have labels",
		description: "Ensures every form element has a label",
		evaluate: func(doc *browser.Document) []*browser.Element {
			labelled := make(map[string]bool)
			for _, label := range doc.Elements("label") {
				if id := label.Attr("for"); id != "" && label.Text() != "" {
					labelled[id] = true
				}
			}

			return doc.Filter(func(el *browser.Element) bool {
				switch el.Tag() {
				case "input":
					if unlabeledInputTypes[strings.ToLower(el.Attr("type"))] {
						return false
					}
				case "select", "textarea":
				default:
					return false
				}
				if labelled[el.Attr("id")] && el.Attr("id") != "" {
					return false
				}
				if wrap := el.Closest("label"); wrap != nil && wrap.Text() != "" {
					return false
				}
				return ariaName(doc, el) == ""
			})
		},
	}
}

func newButtonName() Rule {
	return &domRule{
		id:          "button-name",
		impact:      "critical",
		tags:        []string{"cat.name-role-value", "wcag2a", "wcag412"},
		help:        "Buttons must have discernible text",
		description: "Ensures buttons have discernible text",
		evaluate: func(doc *browser.Document) []*browser.Element {
			return doc.Filter(func(el *browser.Element) bool {
				switch {
				case el.Tag() == "button":
					return contentName(el) == "" && ariaName(doc, el) == ""
				case el.Tag() == "input" && strings.EqualFold(el.Attr("type"), "button"):
					return strings.TrimSpace(el.Attr("value")) == "" && ariaName(doc, el) == ""
				default:
					return false
				}
			})
		},
	}
}

func newLinkName() Rule {
	return &domRule{
		id:          "link-name",
		impact:      "serious",
		tags:        []string{"cat.name-role-value", "wcag2a", "wcag244", "wcag412"},
		help:        "Links must have discernible text",
		description: "Ensures links have discernible text",
		evaluate: func(doc *browser.Document) []*browser.Element {
			return doc.Filter(func(el *browser.Element) bool {
				if el.Tag() != "a" || !el.HasAttr("href") {
					return false
				}
				if strings.EqualFold(el.Attr("aria-hidden"), "true") {
					return false
				}
				return contentName(el) == "" && ariaName(doc, el) == ""
			})
		},
	}
}

func newFrameTitle() Rule {
	return &domRule{
		id:          "frame-title",
		impact:      "serious",
		tags:        []string{"cat.text-alternatives", "wcag2a", "wcag412"},
		help:        "Frames must have an accessible name",
		description: "Ensures <iframe> and <frame> elements have an accessible name",
		evaluate: func(doc *browser.Document) []*browser.Element {
			return doc.Filter(func(el *browser.Element) bool {
				if el.Tag() != "iframe" && el.Tag() != "frame" {
					return false
				}
				if isPresentational(el) || strings.EqualFold(el.Attr("aria-hidden"), "true") {
					return false
				}
				return ariaName(doc, el) == ""
			})
		},
	}
}
