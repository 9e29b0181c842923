package checkout

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
)

// ValidateReceipt rejects empty, oversized and non-image uploads. Both the
// declared content type and the sniffed content must be images. An empty
// declared type is filled from the sniffed one.
func ValidateReceipt(r *domain.Receipt) error {
	if r == nil || len(r.Data) == 0 {
		return domain.ErrReceiptEmpty
	}
	if len(r.Data) > domain.MaxReceiptBytes {
		return domain.ErrReceiptTooLarge
	}

	detected := mimetype.Detect(r.Data)
	if !isImage(detected.String()) {
		return domain.ErrReceiptNotImage
	}

	if r.ContentType == "" {
		r.ContentType = detected.String()
		return nil
	}
	declared, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil || !isImage(declared) {
		return domain.ErrReceiptNotImage
	}
	return nil
}

func isImage(mediaType string) bool {
	return strings.HasPrefix(strings.ToLower(mediaType), "image/")
}
