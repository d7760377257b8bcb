package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"chatforge/internal/store"
)

// MaxFileSize rejects uploads before any fetch occurs.
const MaxFileSize = 10 << 20 // 10 MiB

// ErrTooLarge is returned for uploads declaring a size over MaxFileSize.
// No File record is created in that case.
var ErrTooLarge = fmt.Errorf("file exceeds %d byte limit", int64(MaxFileSize))

// FileStore is the slice of the file repository the service needs.
type FileStore interface {
	Create(ctx context.Context, f *store.File) error
	MarkCompleted(ctx context.Context, id, extractedText, cdnURL string, metadata map[string]interface{}) error
	MarkFailed(ctx context.Context, id, errMsg string) error
}

// Uploader pushes an uploaded file to the image CDN. A nil Uploader means
// the CDN is not configured and image uploads are silently skipped.
type Uploader interface {
	Upload(ctx context.Context, sourceURL string) (*UploadResult, error)
}

// UploadResult is what the CDN reports back for a stored image.
type UploadResult struct {
	URL    string
	Width  int
	Height int
	Format string
}

// Fetcher retrieves the raw bytes of an uploaded file by URL.
type Fetcher func(ctx context.Context, url string) ([]byte, error)

// Request is one upload notification from the client widget.
type Request struct {
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	FileSize int64  `json:"fileSize"`
}

// Result reports the outcome of processing one file. Err is set only for
// failed extractions; the record id is always present so the client can
// show a per-attachment badge either way.
type Result struct {
	FileID        string
	ExtractedText string
	CDNURL        string
	Metadata      Metadata
	Status        string
	Err           error
}

// Service runs the file ingestion state machine:
// processing -> completed | failed (terminal).
type Service struct {
	files    FileStore
	fetch    Fetcher
	uploader Uploader
}

func NewService(files FileStore, uploader Uploader) *Service {
	return &Service{files: files, fetch: httpFetch, uploader: uploader}
}

// NewServiceWithFetcher injects a custom fetcher (tests).
func NewServiceWithFetcher(files FileStore, uploader Uploader, fetch Fetcher) *Service {
	return &Service{files: files, fetch: fetch, uploader: uploader}
}

// Process creates the File record up front, then runs the extraction branch
// for the declared MIME type. Extraction failures are recorded on the
// record, never propagated as a transport error. Not idempotent: every call
// creates a fresh record.
func (s *Service) Process(ctx context.Context, userID string, req Request) (*Result, error) {
	if req.FileSize > MaxFileSize {
		return nil, ErrTooLarge
	}

	record := &store.File{
		UserID:       userID,
		FileName:     req.FileName,
		OriginalName: req.FileName,
		FileType:     req.FileType,
		FileSize:     req.FileSize,
		SourceURL:    req.FileURL,
	}
	if err := s.files.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("create file record: %w", err)
	}

	text, cdnURL, meta, err := s.extract(ctx, req)
	if err != nil {
		if markErr := s.files.MarkFailed(ctx, record.ID, err.Error()); markErr != nil {
			log.Printf("mark failed for %s: %v", record.ID, markErr)
		}
		return &Result{FileID: record.ID, Status: store.StatusFailed, Err: err}, nil
	}

	if markErr := s.files.MarkCompleted(ctx, record.ID, text, cdnURL, meta.Fields()); markErr != nil {
		log.Printf("mark completed for %s: %v", record.ID, markErr)
	}
	return &Result{
		FileID:        record.ID,
		ExtractedText: text,
		CDNURL:        cdnURL,
		Metadata:      meta,
		Status:        store.StatusCompleted,
	}, nil
}

func (s *Service) extract(ctx context.Context, req Request) (text, cdnURL string, meta Metadata, err error) {
	switch Categorize(req.FileType) {
	case CategoryPDF:
		data, ferr := s.fetch(ctx, req.FileURL)
		if ferr != nil {
			return "", "", nil, ferr
		}
		text, pdfMeta, perr := extractPDF(data)
		if perr != nil {
			return "", "", nil, perr
		}
		return text, "", pdfMeta, nil

	case CategoryDocx:
		data, ferr := s.fetch(ctx, req.FileURL)
		if ferr != nil {
			return "", "", nil, ferr
		}
		text, docMeta, derr := extractDOCX(data)
		if derr != nil {
			return "", "", nil, derr
		}
		return text, "", docMeta, nil

	case CategoryText:
		data, ferr := s.fetch(ctx, req.FileURL)
		if ferr != nil {
			return "", "", nil, ferr
		}
		content := string(data)
		lines := 0
		if content != "" {
			lines = strings.Count(content, "\n") + 1
		}
		return content, "", TextMeta{Lines: lines}, nil

	case CategoryImage:
		if s.uploader == nil {
			// CDN not configured: skip silently, no extraction, no failure.
			return "", "", NoMeta{}, nil
		}
		up, uerr := s.uploader.Upload(ctx, req.FileURL)
		if uerr != nil {
			return "", "", nil, uerr
		}
		return "", up.URL, ImageMeta{Width: up.Width, Height: up.Height, Format: up.Format}, nil

	case CategorySpreadsheet:
		data, ferr := s.fetch(ctx, req.FileURL)
		if ferr != nil {
			return "", "", nil, ferr
		}
		text, sheetMeta, serr := extractSpreadsheet(data, req.FileType)
		if serr != nil {
			return "", "", nil, serr
		}
		return text, "", sheetMeta, nil

	default:
		// Attachable but inert for AI context.
		return "", "", NoMeta{}, nil
	}
}

func httpFetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, MaxFileSize+1))
}
