package indexer

import (
	"strings"
	"unicode"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/models"
)

// Preprocess normalizes text for indexing (trim, collapse whitespace).
func Preprocess(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}

// prepareDocument returns a copy of doc with its indexed texts normalized.
func prepareDocument(doc *models.ItemDocument) *models.ItemDocument {
	out := *doc
	out.Name = Preprocess(doc.Name)
	out.Description = Preprocess(doc.Description)
	out.ManufacturerNames = preprocessAll(doc.ManufacturerNames)
	out.ModelNames = preprocessAll(doc.ModelNames)
	out.Variants = preprocessAll(doc.Variants)
	return &out
}

func preprocessAll(texts []string) []string {
	if texts == nil {
		return nil
	}
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		if t = Preprocess(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
