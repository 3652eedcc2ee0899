package rules

import (
	"math"
	"strconv"
	"strings"

	"github.com/nao1215/a11yscan/internal/browser"
)

const (
	// minContrastNormal is the WCAG AA ratio for normal-size text.
	minContrastNormal = 4.5

	// minContrastLarge is the WCAG AA ratio for large text.
	minContrastLarge = 3.0
)

type rgb struct {
	r, g, b float64
}

// namedColors covers the keywords that appear most in inline styles.
var namedColors = map[string]rgb{
	"black":  {0, 0, 0},
	"white":  {255, 255, 255},
	"red":    {255, 0, 0},
	"green":  {0, 128, 0},
	"blue":   {0, 0, 255},
	"yellow": {255, 255, 0},
	"gray":   {128, 128, 128},
	"grey":   {128, 128, 128},
	"silver": {192, 192, 192},
	"orange": {255, 165, 0},
}

// newColorContrast checks elements whose inline style sets both the text
// color and the background color. Colors inherited from style sheets are
// not resolved.
func newColorContrast() Rule {
	return &domRule{
		id:          "color-contrast",
		impact:      "serious",
		tags:        []string{"cat.color", "wcag2aa", "wcag143"},
		help:        "Elements must meet minimum color contrast ratio thresholds",
		description: "Ensures the contrast between foreground and background colors meets WCAG 2 AA thresholds",
		evaluate: func(doc *browser.Document) []*browser.Element {
			return doc.Filter(func(el *browser.Element) bool {
				style := parseInlineStyle(el.Attr("style"))
				if len(style) == 0 || el.Text() == "" {
					return false
				}
				fg, ok := parseColor(style["color"])
				if !ok {
					return false
				}
				bgValue := style["background-color"]
				if bgValue == "" {
					bgValue = style["background"]
				}
				bg, ok := parseColor(bgValue)
				if !ok {
					return false
				}

				threshold := minContrastNormal
				if isLargeText(style) {
					threshold = minContrastLarge
				}
				return contrastRatio(fg, bg) < threshold
			})
		},
	}
}

// parseInlineStyle parses a style attribute into lower-case declarations.
func parseInlineStyle(style string) map[string]string {
	out := make(map[string]string)
	for _, decl := range strings.Split(style, ";") {
		prop, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		value = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "!important")))
		if prop != "" && value != "" {
			out[prop] = value
		}
	}
	return out
}

// parseColor parses #rgb, #rrggbb, rgb() and a few named colors.
func parseColor(value string) (rgb, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return rgb{}, false
	}
	if c, ok := namedColors[value]; ok {
		return c, true
	}

	if hex, ok := strings.CutPrefix(value, "#"); ok {
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return rgb{}, false
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return rgb{}, false
		}
		return rgb{float64(v >> 16 & 0xff), float64(v >> 8 & 0xff), float64(v & 0xff)}, true
	}

	if inner, ok := strings.CutPrefix(value, "rgb("); ok {
		inner = strings.TrimSuffix(inner, ")")
		parts := strings.Split(inner, ",")
		if len(parts) != 3 {
			return rgb{}, false
		}
		var c [3]float64
		for i, p := range parts {
			n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil || n < 0 || n > 255 {
				return rgb{}, false
			}
			c[i] = n
		}
		return rgb{c[0], c[1], c[2]}, true
	}

	return rgb{}, false
}

// relativeLuminance follows the WCAG 2 definition.
func relativeLuminance(c rgb) float64 {
	channel := func(v float64) float64 {
		v /= 255
		if v <= 0.03928 {
			return v / 12.92
		}
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return 0.2126*channel(c.r) + 0.7152*channel(c.g) + 0.0722*channel(c.b)
}

// contrastRatio returns a value in [1,21].
func contrastRatio(a, b rgb) float64 {
	la, lb := relativeLuminance(a), relativeLuminance(b)
	if la < lb {
		la, lb = lb, la
	}
	return (la + 0.05) / (lb + 0.05)
}

// isLargeText reports 18pt text, or 14pt bold text.
func isLargeText(style map[string]string) bool {
	size, ok := style["font-size"]
	if !ok {
		return false
	}
	var px float64
	switch {
	case strings.HasSuffix(size, "px"):
		px, _ = strconv.ParseFloat(strings.TrimSuffix(size, "px"), 64)
	case strings.HasSuffix(size, "pt"):
		pt, _ := strconv.ParseFloat(strings.TrimSuffix(size, "pt"), 64)
		px = pt * 4 / 3
	default:
		return false
	}
	bold := style["font-weight"] == "bold" || style["font-weight"] == "700" || style["font-weight"] == "800" || style["font-weight"] == "900"
	return px >= 24 || (bold && px >= 18.66)
}
