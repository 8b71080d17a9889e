package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

type docxParser struct{}

func (docxParser) CanParse(filename string) bool {
	return hasExt(filename, ".docx")
}

// Parse returns the non-empty paragraphs of word/document.xml joined by
// newlines, in document order.
func (docxParser) Parse(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", errors.New("document.xml not found in DOCX")
	}
	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	paras, err := docxParagraphs(rc)
	if err != nil {
		return "", fmt.Errorf("read document.xml: %w", err)
	}
	return strings.Join(paras, "\n"), nil
}

// docxParagraphs walks WordprocessingML collecting the text runs of each
// <w:p>. Tabs and breaks become spaces.
func docxParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		out   []string
		cur   strings.Builder
		depth int
		inT   bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "p":
				depth++
			case "t":
				inT = depth > 0
			case "tab", "br", "cr":
				if depth > 0 {
					cur.WriteByte(' ')
				}
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inT = false
			case "p":
				if depth == 0 {
					continue
				}
				depth--
				if depth == 0 {
					if p := strings.TrimSpace(cur.String()); p != "" {
						out = append(out, p)
					}
					cur.Reset()
				}
			}
		case xml.CharData:
			if inT {
				cur.Write(el)
			}
		}
	}
	return out, nil
}
