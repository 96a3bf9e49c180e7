// Package validation holds input validation helpers shared by the API
// handlers. document.go validates uploaded document files before any bytes
// reach the storage backend.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// allowedDocumentExtensions is the set of file extensions accepted for
// document uploads. Executable and script extensions are deliberately absent.
var allowedDocumentExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".xls":  true,
	".xlsx": true,
	".ppt":  true,
	".pptx": true,
	".txt":  true,
	".md":   true,
	".csv":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".zip":  true,
}

// ValidateDocumentFileName checks that a file name is safe to store: no path
// separators or traversal sequences, a non-empty base name, and an allowed
// extension.
func ValidateDocumentFileName(name string) error {
	if name == "" {
		return fmt.Errorf("file name is required")
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return fmt.Errorf("file name must not contain path separators")
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("file name must not start with a dot")
	}

	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return fmt.Errorf("file name must have an extension")
	}
	if !allowedDocumentExtensions[ext] {
		return fmt.Errorf("file extension %s is not allowed", ext)
	}
	return nil
}

// ValidateDocumentSize checks the declared upload size against the configured
// cap. Zero-byte uploads are rejected as well.
func ValidateDocumentSize(sizeBytes int64, maxUploadMB int) error {
	if sizeBytes <= 0 {
		return fmt.Errorf("file is empty")
	}
	maxBytes := int64(maxUploadMB) * 1024 * 1024
	if sizeBytes > maxBytes {
		return fmt.Errorf("file size %d bytes exceeds the %dMB upload limit", sizeBytes, maxUploadMB)
	}
	return nil
}
