package ingest

import "strings"

// Category buckets a declared MIME type into one extraction branch.
type Category string

const (
	CategoryPDF         Category = "pdf"
	CategoryDocx        Category = "docx"
	CategoryText        Category = "text"
	CategoryImage       Category = "image"
	CategorySpreadsheet Category = "spreadsheet"
	CategoryOther       Category = "other"
)

// Categorize maps a MIME type to its extraction branch.
func Categorize(mimeType string) Category {
	switch {
	case mimeType == "application/pdf":
		return CategoryPDF
	case strings.Contains(mimeType, "wordprocessingml"), mimeType == "application/msword":
		return CategoryDocx
	case mimeType == "text/plain":
		return CategoryText
	case strings.HasPrefix(mimeType, "image/"):
		return CategoryImage
	case mimeType == "text/csv",
		strings.Contains(mimeType, "spreadsheetml"),
		mimeType == "application/vnd.ms-excel":
		return CategorySpreadsheet
	default:
		return CategoryOther
	}
}

// Metadata is the closed set of per-category extraction metadata. Each
// variant carries only the fields relevant to its branch.
type Metadata interface {
	Category() Category
	// Fields flattens the metadata for persistence on the File record.
	Fields() map[string]interface{}
}

type PDFMeta struct {
	Pages int
}

func (m PDFMeta) Category() Category { return CategoryPDF }
func (m PDFMeta) Fields() map[string]interface{} {
	return map[string]interface{}{"category": string(CategoryPDF), "pages": m.Pages}
}

type DocxMeta struct {
	Warnings []string
}

func (m DocxMeta) Category() Category { return CategoryDocx }
func (m DocxMeta) Fields() map[string]interface{} {
	f := map[string]interface{}{"category": string(CategoryDocx)}
	if len(m.Warnings) > 0 {
		f["warnings"] = m.Warnings
	}
	return f
}

type TextMeta struct {
	Lines int
}

func (m TextMeta) Category() Category { return CategoryText }
func (m TextMeta) Fields() map[string]interface{} {
	return map[string]interface{}{"category": string(CategoryText), "lines": m.Lines}
}

type ImageMeta struct {
	Width  int
	Height int
	Format string
}

func (m ImageMeta) Category() Category { return CategoryImage }
func (m ImageMeta) Fields() map[string]interface{} {
	return map[string]interface{}{
		"category": string(CategoryImage),
		"width":    m.Width,
		"height":   m.Height,
		"format":   m.Format,
	}
}

type SheetMeta struct {
	Sheets  []string
	Rows    int
	Columns int
	Preview string
}

func (m SheetMeta) Category() Category { return CategorySpreadsheet }
func (m SheetMeta) Fields() map[string]interface{} {
	return map[string]interface{}{
		"category": string(CategorySpreadsheet),
		"sheets":   m.Sheets,
		"rows":     m.Rows,
		"columns":  m.Columns,
		"preview":  m.Preview,
	}
}

type NoMeta struct{}

func (m NoMeta) Category() Category { return CategoryOther }
func (m NoMeta) Fields() map[string]interface{} {
	return map[string]interface{}{"category": string(CategoryOther)}
}
