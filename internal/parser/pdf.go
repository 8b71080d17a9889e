package parser

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/text/encoding/unicode"
)

type pdfParser struct{}

func (pdfParser) CanParse(filename string) bool {
	return hasExt(filename, ".pdf")
}

// Parse returns the text of every page joined by newlines, in page order.
// Pages without a text layer contribute nothing.
func (pdfParser) Parse(content []byte) (text string, err error) {
	// pdfcpu panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(content), model.NewDefaultConfiguration())
	if err != nil {
		return "", fmt.Errorf("pdfcpu read: %w", err)
	}
	var pages []string
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
		if err != nil || r == nil {
			continue
		}
		data, err := io.ReadAll(r)
		if err != nil {
			continue
		}
		if t := contentStreamText(data); t != "" {
			pages = append(pages, t)
		}
	}
	return strings.Join(pages, "\n"), nil
}

type operandKind int

const (
	opNumber operandKind = iota
	opString
	opName
	opArray
)

type operand struct {
	kind operandKind
	num  float64
	str  []byte
	arr  []operand
}

// contentStreamText interprets the text-showing operators of a page content
// stream (Tj, TJ, ', ") and the line operators (T*, Td, TD, ET). Glyph
// mapping through font encodings is not attempted; string bytes are read as
// PDFDocEncoding, or UTF-16BE when they carry a byte order mark.
func contentStreamText(data []byte) string {
	var (
		sb    strings.Builder
		stack []operand
	)
	newline := func() {
		if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteByte('\n')
		}
	}
	space := func() {
		s := sb.String()
		if len(s) > 0 && !strings.HasSuffix(s, " ") && !strings.HasSuffix(s, "\n") {
			sb.WriteByte(' ')
		}
	}
	lastString := func() []byte {
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].kind == opString {
				return stack[i].str
			}
		}
		return nil
	}

	lx := &pdfLexer{data: data}
	for {
		tok, ok := lx.next()
		if !ok {
			break
		}
		if tok.op == "" {
			stack = append(stack, tok.val)
			continue
		}
		switch tok.op {
		case "Tj":
			sb.WriteString(decodePDFText(lastString()))
		case "'", "\"":
			newline()
			sb.WriteString(decodePDFText(lastString()))
		case "TJ":
			if n := len(stack); n > 0 && stack[n-1].kind == opArray {
				for _, el := range stack[n-1].arr {
					switch el.kind {
					case opString:
						sb.WriteString(decodePDFText(el.str))
					case opNumber:
						// Large negative kerning is a word gap.
						if el.num < -200 {
							space()
						}
					}
				}
			}
		case "T*", "ET":
			newline()
		case "Td", "TD":
			if n := len(stack); n >= 2 && stack[n-1].kind == opNumber && stack[n-1].num != 0 {
				newline()
			} else {
				space()
			}
		case "ID":
			lx.skipInlineImage()
		}
		stack = stack[:0]
	}

	var lines []string
	for _, l := range strings.Split(sb.String(), "\n") {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n")
}

func decodePDFText(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if bytes.HasPrefix(b, utf16BEBOM) {
		out, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(b)
		if err == nil {
			return string(out)
		}
	}
	var sb strings.Builder
	for _, c := range b {
		switch {
		case c == '\t' || c == '\n' || c == '\r':
			sb.WriteByte(' ')
		case c < 0x20 || c == 0x7f:
		case c < 0x80:
			sb.WriteByte(c)
		default:
			sb.WriteRune(rune(c))
		}
	}
	return sb.String()
}

type pdfToken struct {
	op  string
	val operand
}

type pdfLexer struct {
	data []byte
	pos  int
}

func isPDFSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == 0
}

func isPDFDelim(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func (lx *pdfLexer) next() (pdfToken, bool) {
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		switch {
		case isPDFSpace(c):
			lx.pos++
		case c == '%':
			for lx.pos < len(lx.data) && lx.data[lx.pos] != '\n' && lx.data[lx.pos] != '\r' {
				lx.pos++
			}
		case c == '(':
			return pdfToken{val: operand{kind: opString, str: lx.literal()}}, true
		case c == '<':
			if lx.pos+1 < len(lx.data) && lx.data[lx.pos+1] == '<' {
				lx.pos += 2
				continue
			}
			return pdfToken{val: operand{kind: opString, str: lx.hex()}}, true
		case c == '>':
			lx.pos++
		case c == '[':
			lx.pos++
			return pdfToken{val: operand{kind: opArray, arr: lx.array()}}, true
		case c == ']':
			lx.pos++
			return pdfToken{op: "]"}, true
		case c == '{' || c == '}':
			lx.pos++
		case c == '/':
			lx.pos++
			return pdfToken{val: operand{kind: opName, str: lx.word()}}, true
		default:
			w := lx.word()
			if len(w) == 0 {
				lx.pos++
				continue
			}
			if f, err := strconv.ParseFloat(string(w), 64); err == nil {
				return pdfToken{val: operand{kind: opNumber, num: f}}, true
			}
			return pdfToken{op: string(w)}, true
		}
	}
	return pdfToken{}, false
}

func (lx *pdfLexer) word() []byte {
	start := lx.pos
	for lx.pos < len(lx.data) && !isPDFSpace(lx.data[lx.pos]) && !isPDFDelim(lx.data[lx.pos]) {
		lx.pos++
	}
	return lx.data[start:lx.pos]
}

func (lx *pdfLexer) array() []operand {
	var out []operand
	for {
		tok, ok := lx.next()
		if !ok || tok.op == "]" {
			return out
		}
		if tok.op == "" {
			out = append(out, tok.val)
		}
	}
}

// literal reads a balanced (...) string starting at the opening paren.
func (lx *pdfLexer) literal() []byte {
	lx.pos++
	var out []byte
	depth := 1
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		lx.pos++
		switch c {
		case '\\':
			if lx.pos >= len(lx.data) {
				return out
			}
			e := lx.data[lx.pos]
			lx.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b', 'f':
			case '\r':
				if lx.pos < len(lx.data) && lx.data[lx.pos] == '\n' {
					lx.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for k := 0; k < 2 && lx.pos < len(lx.data) && lx.data[lx.pos] >= '0' && lx.data[lx.pos] <= '7'; k++ {
						v = v*8 + int(lx.data[lx.pos]-'0')
						lx.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return out
}

func (lx *pdfLexer) hex() []byte {
	lx.pos++
	var digits []byte
	for lx.pos < len(lx.data) && lx.data[lx.pos] != '>' {
		c := lx.data[lx.pos]
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			digits = append(digits, c)
		}
		lx.pos++
	}
	lx.pos++
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	for i := range out {
		v, _ := strconv.ParseUint(string(digits[2*i:2*i+2]), 16, 8)
		out[i] = byte(v)
	}
	return out
}

// skipInlineImage advances past binary inline image data up to EI.
func (lx *pdfLexer) skipInlineImage() {
	i := bytes.Index(lx.data[lx.pos:], []byte("EI"))
	for i >= 0 {
		end := lx.pos + i
		before := end == 0 || isPDFSpace(lx.data[end-1])
		after := end+2 >= len(lx.data) || isPDFSpace(lx.data[end+2])
		if before && after {
			lx.pos = end + 2
			return
		}
		next := bytes.Index(lx.data[end+2:], []byte("EI"))
		if next < 0 {
			break
		}
		i = end + 2 + next - lx.pos
	}
	lx.pos = len(lx.data)
}
