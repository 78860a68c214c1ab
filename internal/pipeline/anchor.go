package pipeline

import (
	"image"
	"strings"

	"delivery-audit/internal/ocr"
)

// Anchor is the printed phrase the handwritten time is expected next to.
type Anchor struct {
	Phrase string
	Text   string
	Box    image.Rectangle
	Center image.Point
}

// LocateAnchor returns the first token, in detection order, that contains one
// of the phrases. Matching ignores case and surrounding whitespace. No match
// is a normal outcome reported by the bool.
func LocateAnchor(tokens []ocr.Token, phrases []string) (Anchor, bool) {
	needles := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			needles = append(needles, p)
		}
	}

	for _, tok := range tokens {
		text := strings.ToLower(strings.TrimSpace(tok.Text))
		if text == "" {
			continue
		}
		for i, needle := range needles {
			if strings.Contains(text, needle) {
				return Anchor{
					Phrase: needles[i],
					Text:   strings.TrimSpace(tok.Text),
					Box:    tok.Box,
					Center: tok.Center(),
				}, true
			}
		}
	}
	return Anchor{}, false
}
