package parser

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// textParser handles plain text and Markdown; Markdown is kept verbatim.
type textParser struct{}

func (textParser) CanParse(filename string) bool {
	return hasExt(filename, ".txt", ".md", ".markdown")
}

func (textParser) Parse(content []byte) (string, error) {
	text, err := decodeText(content)
	if err != nil {
		return "", err
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n"), nil
}

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
)

// decodeText returns content as UTF-8 with any byte order mark removed.
// UTF-16 input is transcoded; invalid UTF-8 sequences are dropped.
func decodeText(content []byte) (string, error) {
	if bytes.HasPrefix(content, utf16LEBOM) || bytes.HasPrefix(content, utf16BEBOM) {
		out, _, err := transform.Bytes(unicode.BOMOverride(encoding.Nop.NewDecoder()), content)
		if err != nil {
			return "", fmt.Errorf("decode utf-16: %w", err)
		}
		return string(out), nil
	}
	content = bytes.TrimPrefix(content, utf8BOM)
	return string(bytes.ToValidUTF8(content, nil)), nil
}
