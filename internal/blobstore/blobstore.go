// Package blobstore keeps uploaded spreadsheets on the local disk or in Google Cloud Storage.
package blobstore

import (
	"errors"
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const (
	fallbackFilename   = "upload"
	defaultContentType = "application/octet-stream"
)

// ErrInvalidConfig is returned when a store cannot be constructed from its settings.
var ErrInvalidConfig = errors.New("invalid blob store config")

// objectKey returns a fresh "<uuid>/<filename>" key. The filename is reduced to a safe base name.
func objectKey(filename string) string {
	return uuid.NewString() + "/" + safeFilename(filename)
}

func safeFilename(filename string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			return r
		case unicode.IsSpace(r):
			return '_'
		}
		return -1
	}, base)
	cleaned = strings.TrimLeft(cleaned, ".")
	if cleaned == "" {
		return fallbackFilename
	}
	return cleaned
}

func contentTypeOrDefault(contentType string) string {
	if strings.TrimSpace(contentType) == "" {
		return defaultContentType
	}
	return contentType
}
