package prompt

import "strings"

// Recognized style keys. The phrase for each key can be overridden from
// configuration; these constants only name the keys themselves.
const (
	StyleRealisticPhoto = "realistic-photo"
	StyleIllustrated    = "illustrated"
	StyleMenuCard       = "menu-card"
	StyleKidFriendly    = "kid-friendly"
)

// qualityEnhancers are appended to every prompt to bias the model toward
// usable menu thumbnails.
var qualityEnhancers = []string{
	"highly detailed",
	"appetizing",
	"vibrant colors",
	"professional food styling",
	"clean composition",
	"200x200 square format",
	"centered on plate",
}

// noTextClause always terminates the prompt so the model does not render
// captions or watermarks into the image.
const noTextClause = "Do NOT include any text, words, letters, or watermarks in the image"

// DefaultStyles returns the built-in style templates keyed by style key.
// Deployments may replace or extend these via the [[styles]] config section.
func DefaultStyles() map[string]string {
	return map[string]string{
		StyleRealisticPhoto: "professional food photography, realistic, natural lighting, appetizing, shot from above on a white school dinner plate, clean background, UK school canteen setting",
		StyleIllustrated:    "digital illustration of food, clean vector style, appetizing colors, friendly cartoon style suitable for children, on a simple plate",
		StyleMenuCard:       "professional menu card food photo, centered on plate, white background, soft studio lighting, high resolution, appetizing presentation, clean and minimal",
		StyleKidFriendly:    "colorful fun food presentation for children, bright cheerful plate, playful arrangement, appealing to kids, cartoon-style background elements",
	}
}

// Build assembles the full generation prompt from its components, joined in a
// fixed order. foodDescription must be non-empty; the caller gates on that.
// extraDetails and referenceDescription are skipped when blank. The result
// always ends with the no-text clause.
func Build(foodDescription, stylePhrase, extraDetails, referenceDescription string) string {
	parts := []string{
		"A realistic photo of " + foodDescription,
		stylePhrase,
		strings.Join(qualityEnhancers, ", "),
	}
	if details := strings.TrimSpace(extraDetails); details != "" {
		parts = append(parts, details)
	}
	if ref := strings.TrimSpace(referenceDescription); ref != "" {
		parts = append(parts, "Similar style to: "+ref)
	}
	parts = append(parts, noTextClause)
	return strings.Join(parts, ", ")
}

// Enhancers returns a copy of the fixed quality-enhancer phrases.
func Enhancers() []string {
	out := make([]string, len(qualityEnhancers))
	copy(out, qualityEnhancers)
	return out
}
