package utils

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
)

const (
	MAX_UPLOAD_FILE_SIZE = 10 << 20
	MAX_FILES_PER_UPLOAD = 5
)

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileTooLarge    = errors.New("file too large")
	ErrInvalidFileType = errors.New("invalid file type")
)

// DefaultAllowedUploadTypes lists content types accepted for participant documents.
var DefaultAllowedUploadTypes = []string{
	"application/pdf",
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"text/plain",
}

var extensionMap = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"text/plain":      ".txt",
}

// ValidateUpload checks size and sniffed content type of an uploaded part and returns the
// content type without parameters.
func ValidateUpload(fileHeader *multipart.FileHeader, maxSize int64, allowedTypes []string) (string, error) {
	if fileHeader.Size == 0 {
		return "", ErrEmptyFile
	}
	if maxSize > 0 && fileHeader.Size > maxSize {
		return "", fmt.Errorf("%w: %d bytes", ErrFileTooLarge, fileHeader.Size)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ValidateFileTypeFromContent(file, allowedTypes)
}

// ValidateFileTypeFromContent detects the content type from the first 512 bytes of r.
func ValidateFileTypeFromContent(r io.Reader, allowedTypes []string) (string, error) {
	buffer := make([]byte, 512)
	n, err := io.ReadFull(r, buffer)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if n == 0 {
		return "", ErrEmptyFile
	}

	contentType := http.DetectContentType(buffer[:n])
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}

	for _, t := range allowedTypes {
		if t == contentType {
			return contentType, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidFileType, contentType)
}

// GetFileExtensionFromContentType returns the file extension (with leading dot) for a known
// content type, or an empty string.
func GetFileExtensionFromContentType(contentType string) string {
	return extensionMap[contentType]
}
