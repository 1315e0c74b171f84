// Package datauri кодирует изображения счетов в строку data:<mime>;base64,<payload>.
package datauri

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
	MIMEWEBP = "image/webp"

	// MaxImageBytes is the default upload limit for bill images (4 MiB).
	MaxImageBytes int64 = 4 << 20
)

var (
	ErrMalformed        = errors.New("data uri must have the form data:<mime>;base64,<payload>")
	ErrUnsupportedMedia = errors.New("only PNG, JPEG or WEBP images are supported")
	ErrFileTooLarge     = errors.New("file too large")
	ErrEmpty            = errors.New("image is empty")
)

var supported = map[string]struct{}{
	MIMEPNG:  {},
	MIMEJPEG: {},
	MIMEWEBP: {},
}

// URI is a decoded data URI.
type URI struct {
	MIMEType string
	Data     []byte
}

// String кодирует URI обратно в строку.
func (u URI) String() string {
	return Encode(u.MIMEType, u.Data)
}

// Encode собирает data URI из MIME-типа и содержимого.
func Encode(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Parse разбирает data URI, проверяет MIME-тип и сигнатуру изображения.
func Parse(value string) (URI, error) {
	rest, ok := strings.CutPrefix(value, "data:")
	if !ok {
		return URI{}, ErrMalformed
	}

	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return URI{}, ErrMalformed
	}

	mimeType, ok := strings.CutSuffix(header, ";base64")
	if !ok || mimeType == "" || strings.Contains(mimeType, ";") {
		return URI{}, ErrMalformed
	}

	mimeType = strings.ToLower(mimeType)
	if !Supported(mimeType) {
		return URI{}, fmt.Errorf("%w: %s", ErrUnsupportedMedia, mimeType)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return URI{}, fmt.Errorf("%w: payload is not valid base64", ErrMalformed)
	}

	if len(data) == 0 {
		return URI{}, ErrEmpty
	}

	detected := Detect(data)
	if detected != mimeType {
		return URI{}, fmt.Errorf("%w: payload is %s, declared %s", ErrUnsupportedMedia, detected, mimeType)
	}

	return URI{MIMEType: mimeType, Data: data}, nil
}

// Validate подходит как проверка формата строкового поля схемы.
func Validate(value string) error {
	_, err := Parse(value)
	return err
}

// Supported сообщает, разрешен ли MIME-тип для счетов.
func Supported(mimeType string) bool {
	_, ok := supported[mimeType]
	return ok
}

// Detect определяет MIME-тип по содержимому. Подтипы вроде APNG сводятся
// к ближайшему поддерживаемому родителю.
func Detect(data []byte) string {
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if Supported(m.String()) {
			return m.String()
		}
	}
	return detected.String()
}

// CheckSize отклоняет файл больше limit; limit <= 0 означает MaxImageBytes.
func CheckSize(size, limit int64) error {
	if limit <= 0 {
		limit = MaxImageBytes
	}

	if size > limit {
		return fmt.Errorf("%w: please upload an image smaller than %d MB", ErrFileTooLarge, limit>>20)
	}

	return nil
}

// CheckUpload проверяет загруженный файл до кодирования: сначала размер, затем тип по содержимому.
func CheckUpload(size, limit int64, data []byte) (string, error) {
	if err := CheckSize(size, limit); err != nil {
		return "", err
	}

	if len(data) == 0 {
		return "", ErrEmpty
	}

	mimeType := Detect(data)
	if !Supported(mimeType) {
		return "", fmt.Errorf("%w: got %s", ErrUnsupportedMedia, mimeType)
	}

	return mimeType, nil
}
