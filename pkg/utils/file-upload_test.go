package utils

import (
	"bytes"
	"errors"
	"testing"
)

func TestValidateFileTypeFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    string
		wantErr error
	}{
		{"pdf", []byte("%PDF-1.7\n%binary"), "application/pdf", nil},
		{"png", []byte("\x89PNG\x0D\x0A\x1A\x0A rest of image"), "image/png", nil},
		{"plain text", []byte("consent given by phone"), "text/plain", nil},
		{"html rejected", []byte("<html><body>hi</body></html>"), "", ErrInvalidFileType},
		{"empty", []byte{}, "", ErrEmptyFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateFileTypeFromContent(bytes.NewReader(tt.content), DefaultAllowedUploadTypes)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGetFileExtensionFromContentType(t *testing.T) {
	if ext := GetFileExtensionFromContentType("application/pdf"); ext != ".pdf" {
		t.Errorf("unexpected extension %s", ext)
	}
	if ext := GetFileExtensionFromContentType("application/zip"); ext != "" {
		t.Errorf("unexpected extension %s", ext)
	}
}
