// Package document extracts plain text from uploaded product documents.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MaxChars is the number of characters of document text sent to a model.
const MaxChars = 15000

// Supported file types.
const (
	TypeTXT  = "txt"
	TypePDF  = "pdf"
	TypeDOCX = "docx"
)

var (
	// ErrUnsupportedType is returned for files other than PDF, DOCX and TXT.
	ErrUnsupportedType = errors.New("unsupported document type: only PDF, DOCX and TXT are accepted")
	// ErrNoText is returned when a supported document yields no text.
	ErrNoText = errors.New("no text could be extracted from document")
)

// TypeOf infers the document type from a filename extension.
func TypeOf(filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return TypeTXT, nil
	case ".pdf":
		return TypePDF, nil
	case ".docx":
		return TypeDOCX, nil
	default:
		return "", fmt.Errorf("%w (got %q)", ErrUnsupportedType, filename)
	}
}

// Extract returns the text of a document. The type is chosen by extension.
func Extract(filename string, data []byte) (string, error) {
	typ, err := TypeOf(filename)
	if err != nil {
		return "", err
	}

	var text string
	switch typ {
	case TypeTXT:
		text = plainText(data)
	case TypePDF:
		text, err = pdfText(data)
	case TypeDOCX:
		text, err = docxText(data)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", typ, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// Truncate caps text at max characters (runes), never splitting a rune.
func Truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	n := 0
	for i := range text {
		if n == max {
			return text[:i]
		}
		n++
	}
	return text
}

func plainText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	return strings.ToValidUTF8(string(data), "")
}
