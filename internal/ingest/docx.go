package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// extractDOCX extracts paragraph text from a DOCX file. The library exposes
// the raw document XML, so paragraphs are split on <w:p> tags and stripped.
func extractDOCX(data []byte) (string, DocxMeta, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", DocxMeta{}, fmt.Errorf("failed to read docx: %w", err)
	}
	defer r.Close()

	xmlContent := r.Editable().GetContent()
	paragraphs := splitDOCXParagraphs(xmlContent)

	var meta DocxMeta
	if len(paragraphs) == 0 {
		meta.Warnings = append(meta.Warnings, "no text content found")
	}

	return strings.Join(paragraphs, "\n"), meta, nil
}

// splitDOCXParagraphs splits DOCX XML on <w:p> paragraph tags and strips all
// XML tags from each paragraph, returning clean text.
func splitDOCXParagraphs(xmlStr string) []string {
	parts := strings.Split(xmlStr, "<w:p")
	var paragraphs []string

	for _, part := range parts {
		cleaned := strings.TrimSpace(stripTags(part))
		if cleaned != "" {
			paragraphs = append(paragraphs, cleaned)
		}
	}
	return paragraphs
}

func stripTags(xmlStr string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range xmlStr {
		if r == '<' {
			inTag = true
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
