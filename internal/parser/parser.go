package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/officeloom/internal/apperrors"
)

// Parser defines a document text extractor.
type Parser interface {
	CanParse(filename string) bool
	Parse(content []byte) (string, error)
}

var registry []Parser

// Register adds a parser implementation to the registry.
func Register(p Parser) {
	registry = append(registry, p)
}

// DocumentExtensions lists the upload extensions Extract accepts.
var DocumentExtensions = []string{".txt", ".md", ".markdown", ".docx", ".pdf"}

// IsDocument reports whether filename has a supported document extension.
func IsDocument(filename string) bool {
	for _, p := range registry {
		if p.CanParse(filename) {
			return true
		}
	}
	return false
}

// Extract returns the plain text of a document upload. The parser is chosen
// by the extension of filename; unknown extensions are an input error.
func Extract(data []byte, filename string) (string, error) {
	for _, p := range registry {
		if p.CanParse(filename) {
			text, err := p.Parse(data)
			if err != nil {
				return "", &apperrors.InputFormatError{Reason: "could not read " + filepath.Base(filename), Err: err}
			}
			return text, nil
		}
	}
	ext := strings.ToLower(filepath.Ext(filename))
	return "", apperrors.Inputf("unsupported document format %q (use %s)", ext, strings.Join(DocumentExtensions, ", "))
}

// ParseFile reads path from disk and extracts its text.
func ParseFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return Extract(data, path)
}

func hasExt(filename string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func init() {
	Register(textParser{})
	Register(docxParser{})
	Register(pdfParser{})
}
