package ingest

import (
	"context"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryUploader stores images on Cloudinary. Cloudinary can ingest a
// remote URL directly, so the service never needs the image bytes.
type CloudinaryUploader struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryUploader builds an uploader from a cloudinary:// URL.
func NewCloudinaryUploader(cloudinaryURL string) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config: %w", err)
	}
	return &CloudinaryUploader{cld: cld}, nil
}

func (u *CloudinaryUploader) Upload(ctx context.Context, sourceURL string) (*UploadResult, error) {
	resp, err := u.cld.Upload.Upload(ctx, sourceURL, uploader.UploadParams{})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	return &UploadResult{
		URL:    resp.SecureURL,
		Width:  resp.Width,
		Height: resp.Height,
		Format: resp.Format,
	}, nil
}
