package content

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var categoryLabels = map[string]string{
	"transformacion-digital": "Transformación Digital",
	"automatizacion":         "Automatización",
	"cloud-computing":        "Cloud Computing",
	"e-commerce":             "E-commerce",
	"mobile-apps":            "Mobile Apps",
	"web-development":        "Web Development",
	"consultoria":            "Consultoría",
	"otros":                  "Otros",
}

var titleCaser = cases.Title(language.Spanish)

// CategoryLabel returns the display label of a case study category.
// Unknown slugs are title-cased with dashes as spaces.
func CategoryLabel(category string) string {
	if label, ok := categoryLabels[category]; ok {
		return label
	}
	if category == "" {
		return ""
	}
	return titleCaser.String(strings.ReplaceAll(category, "-", " "))
}

// NormalizeSlug folds a slug from a URL into the stored form: accents
// removed, lower case, whitespace and underscores turned into dashes.
func NormalizeSlug(slug string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, slug)
	if err != nil {
		folded = slug
	}
	folded = strings.ToLower(strings.TrimSpace(folded))

	return strings.Join(strings.FieldsFunc(folded, func(r rune) bool {
		return unicode.IsSpace(r) || r == '_' || r == '-'
	}), "-")
}
