// Package storage uploads images to the external image host.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const (
	FolderProducts = "products"
	FolderDesigns  = "designs"

	maxImageSize = 5 << 20
)

var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
}

// Designs are embedded in invoices, which cannot carry WebP.
var designExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

var ErrInvalidImage = errors.New("invalid image")

// ImageStore uploads file (an io.Reader, a URL or a base64 data URI) and
// returns its public URL.
type ImageStore interface {
	Upload(ctx context.Context, file interface{}, folder string) (string, error)
}

type Cloudinary struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinary(cloudName, apiKey, apiSecret string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	return &Cloudinary{cld: cld}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, file interface{}, folder string) (string, error) {
	resp, err := c.cld.Upload.Upload(ctx, file, uploader.UploadParams{Folder: folder})
	if err != nil {
		log.Printf("[UPLOAD] [ERROR] cloudinary upload to %s failed: %v", folder, err)
		return "", err
	}
	if resp.Error.Message != "" {
		log.Printf("[UPLOAD] [ERROR] cloudinary rejected upload to %s: %s", folder, resp.Error.Message)
		return "", errors.New(resp.Error.Message)
	}

	log.Printf("[UPLOAD] [INFO] uploaded %s to %s", resp.PublicID, folder)
	return resp.SecureURL, nil
}

// ValidateImage checks extension and size of a multipart upload.
func ValidateImage(file *multipart.FileHeader) error {
	return validateUpload(file, allowedExtensions)
}

// ValidateDesign is ValidateImage restricted to formats an invoice can embed.
func ValidateDesign(file *multipart.FileHeader) error {
	return validateUpload(file, designExtensions)
}

func validateUpload(file *multipart.FileHeader, extensions map[string]struct{}) error {
	extension := strings.ToLower(filepath.Ext(file.Filename))
	if extension == "" {
		return fmt.Errorf("%w: image file extension is required", ErrInvalidImage)
	}
	if _, ok := extensions[extension]; !ok {
		return fmt.Errorf("%w: unsupported image type: %s", ErrInvalidImage, extension)
	}
	if file.Size > maxImageSize {
		return fmt.Errorf("%w: image file too large (max 5MB)", ErrInvalidImage)
	}
	return nil
}

// ValidateDataURI accepts base64 data URIs carrying an image.
func ValidateDataURI(data string) error {
	data = strings.TrimSpace(data)
	if !strings.HasPrefix(data, "data:image/") || !strings.Contains(data, ";base64,") {
		return fmt.Errorf("%w: expected a base64 image data URI", ErrInvalidImage)
	}
	if strings.HasPrefix(data, "data:image/webp") {
		return fmt.Errorf("%w: unsupported image type: webp", ErrInvalidImage)
	}
	// base64 inflates by 4/3
	if len(data)*3/4 > maxImageSize {
		return fmt.Errorf("%w: image file too large (max 5MB)", ErrInvalidImage)
	}
	return nil
}

// ErrForeignImage marks an image URL outside the configured image hosts.
var ErrForeignImage = errors.New("image url not allowed")

// CheckHostedURL accepts absolute https URLs whose host is one of hosts or a
// subdomain of one. An empty hosts list allows any https host.
func CheckHostedURL(raw string, hosts []string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrForeignImage, err)
	}
	if u.Scheme != "https" || u.Hostname() == "" || u.User != nil {
		return fmt.Errorf("%w: must be an https url", ErrForeignImage)
	}
	if len(hosts) == 0 {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" && (host == h || strings.HasSuffix(host, "."+h)) {
			return nil
		}
	}
	return fmt.Errorf("%w: host %s is not an image host", ErrForeignImage, host)
}
