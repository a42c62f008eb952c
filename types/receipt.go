package types

import (
	"encoding/base64"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/roamledger/roamledger/errors"
)

// ValidateReceipt checks that the receipt payload is a base64 data URI whose
// decoded content sniffs as an image. The declared media type in the URI is
// ignored; only the actual bytes count.
func ValidateReceipt(dataURI string) error {
	if dataURI == "" {
		return errors.ValidationFailed("Invalid expense", "receipt image is required")
	}
	if !strings.HasPrefix(dataURI, "data:") {
		return errors.ValidationFailed("Invalid receipt", "receipt must be a data URI")
	}
	comma := strings.IndexByte(dataURI, ',')
	if comma < 0 {
		return errors.ValidationFailed("Invalid receipt", "receipt data URI has no payload")
	}
	meta := dataURI[len("data:"):comma]
	if !strings.HasSuffix(meta, ";base64") {
		return errors.ValidationFailed("Invalid receipt", "receipt payload must be base64 encoded")
	}
	payload, err := base64.StdEncoding.DecodeString(dataURI[comma+1:])
	if err != nil {
		return errors.ValidationFailed("Invalid receipt", "receipt payload is not valid base64")
	}
	if len(payload) == 0 {
		return errors.ValidationFailed("Invalid receipt", "receipt payload is empty")
	}
	mime := mimetype.Detect(payload)
	if !strings.HasPrefix(mime.String(), "image/") {
		return errors.ValidationFailed("Invalid receipt", "receipt payload is not an image, got "+mime.String())
	}
	return nil
}

// ReceiptPayload decodes the data URI and returns the raw image bytes and the
// sniffed content type. Callers must have validated the receipt first.
func ReceiptPayload(dataURI string) ([]byte, string, error) {
	comma := strings.IndexByte(dataURI, ',')
	if comma < 0 {
		return nil, "", errors.ValidationFailed("Invalid receipt", "receipt data URI has no payload")
	}
	payload, err := base64.StdEncoding.DecodeString(dataURI[comma+1:])
	if err != nil {
		return nil, "", errors.ValidationFailed("Invalid receipt", "receipt payload is not valid base64")
	}
	return payload, mimetype.Detect(payload).String(), nil
}
