package document

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigDir sync.Once

// pdfText reads every page content stream and collects the strings shown by
// text operators. Glyphs are mapped byte-for-byte, which covers the simple
// Latin fonts that product sheets are usually set in.
func pdfText(data []byte) (string, error) {
	disableConfigDir.Do(api.DisableConfigDir)

	ctx, err := api.ReadContext(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return "", fmt.Errorf("failed to count pages: %w", err)
	}

	var sb strings.Builder
	for page := 1; page <= ctx.PageCount; page++ {
		r, err := pdfcpu.ExtractPageContent(ctx, page)
		if err != nil {
			return "", fmt.Errorf("failed to read page %d: %w", page, err)
		}
		if r == nil {
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("failed to read page %d: %w", page, err)
		}
		if text := strings.TrimSpace(contentText(content)); text != "" {
			sb.WriteString(text)
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}

type operand struct {
	str   string
	isStr bool
	num   float64
	isNum bool
	arr   []operand
}

// contentText interprets a page content stream and returns its shown text.
func contentText(content []byte) string {
	var (
		sb    textBuilder
		stack []operand
		arr   []operand
		inArr bool
	)
	lex := &lexer{data: content}
	for {
		tok, kind, ok := lex.next()
		if !ok {
			break
		}
		var op operand
		switch kind {
		case tokString:
			op = operand{str: tok, isStr: true}
		case tokArrayStart:
			inArr, arr = true, nil
			continue
		case tokArrayEnd:
			inArr = false
			stack = append(stack, operand{arr: arr})
			continue
		case tokOther:
			if n, err := strconv.ParseFloat(tok, 64); err == nil {
				op = operand{num: n, isNum: true}
				break
			}
			if !inArr {
				sb.apply(tok, stack)
				if tok == "ID" {
					lex.skipInlineImage()
				}
				stack = stack[:0]
			}
			continue
		default:
			continue
		}
		if inArr {
			arr = append(arr, op)
		} else {
			stack = append(stack, op)
		}
	}
	return sb.String()
}

type textBuilder struct {
	strings.Builder
}

func (b *textBuilder) apply(op string, operands []operand) {
	switch op {
	case "Tj":
		b.show(last(operands))
	case "'", "\"":
		b.newline()
		b.show(last(operands))
	case "TJ":
		for _, o := range last(operands).arr {
			switch {
			case o.isStr:
				b.WriteString(o.str)
			case o.isNum && o.num < -250:
				b.space()
			}
		}
	case "T*":
		b.newline()
	case "Td", "TD":
		if len(operands) == 2 && operands[1].num != 0 {
			b.newline()
		} else {
			b.space()
		}
	case "ET":
		b.space()
	}
}

func (b *textBuilder) show(o operand) {
	if o.isStr {
		b.WriteString(o.str)
	}
}

func (b *textBuilder) space() {
	if s := b.String(); s != "" && !strings.HasSuffix(s, " ") && !strings.HasSuffix(s, "\n") {
		b.WriteByte(' ')
	}
}

func (b *textBuilder) newline() {
	if s := b.String(); s != "" && !strings.HasSuffix(s, "\n") {
		b.WriteByte('\n')
	}
}

func last(operands []operand) operand {
	if len(operands) == 0 {
		return operand{}
	}
	return operands[len(operands)-1]
}

type tokKind int

const (
	tokOther tokKind = iota
	tokString
	tokArrayStart
	tokArrayEnd
	tokSkip
)

type lexer struct {
	data []byte
	pos  int
}

func isWhite(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isDelim(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func (l *lexer) next() (string, tokKind, bool) {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case isWhite(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		case c == '(':
			l.pos++
			return l.literal(), tokString, true
		case c == '<':
			if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
				l.pos += 2
				return "<<", tokSkip, true
			}
			l.pos++
			return l.hex(), tokString, true
		case c == '>':
			l.pos++
			if l.pos < len(l.data) && l.data[l.pos] == '>' {
				l.pos++
			}
			return ">>", tokSkip, true
		case c == '[':
			l.pos++
			return "[", tokArrayStart, true
		case c == ']':
			l.pos++
			return "]", tokArrayEnd, true
		case c == '/':
			start := l.pos
			l.pos++
			for l.pos < len(l.data) && !isWhite(l.data[l.pos]) && !isDelim(l.data[l.pos]) {
				l.pos++
			}
			return string(l.data[start:l.pos]), tokSkip, true
		case c == '{' || c == '}' || c == ')':
			l.pos++
		default:
			start := l.pos
			for l.pos < len(l.data) && !isWhite(l.data[l.pos]) && !isDelim(l.data[l.pos]) {
				l.pos++
			}
			if l.pos == start {
				l.pos++
				continue
			}
			return string(l.data[start:l.pos]), tokOther, true
		}
	}
	return "", tokOther, false
}

// literal reads a (...) string body; the opening paren is consumed.
func (l *lexer) literal() string {
	var out []byte
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return decodeBytes(out)
			}
			out = append(out, c)
		case '\\':
			if l.pos >= len(l.data) {
				break
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b', 'f':
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for k := 0; k < 2 && l.pos < len(l.data) && l.data[l.pos] >= '0' && l.data[l.pos] <= '7'; k++ {
						v = v*8 + int(l.data[l.pos]-'0')
						l.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		default:
			out = append(out, c)
		}
	}
	return decodeBytes(out)
}

// hex reads a <...> string body; the opening bracket is consumed.
func (l *lexer) hex() string {
	var digits []byte
	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		if c := l.data[l.pos]; !isWhite(c) {
			digits = append(digits, c)
		}
		l.pos++
	}
	l.pos++
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, 0, len(digits)/2)
	for i := 0; i < len(digits); i += 2 {
		v, err := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		if err != nil {
			return ""
		}
		out = append(out, byte(v))
	}
	return decodeBytes(out)
}

// skipInlineImage advances past inline image data up to the EI operator.
func (l *lexer) skipInlineImage() {
	for l.pos+2 < len(l.data) {
		if isWhite(l.data[l.pos]) && l.data[l.pos+1] == 'E' && l.data[l.pos+2] == 'I' &&
			(l.pos+3 == len(l.data) || isWhite(l.data[l.pos+3])) {
			l.pos += 3
			return
		}
		l.pos++
	}
	l.pos = len(l.data)
}

// decodeBytes maps single-byte glyph codes to runes, dropping control codes.
func decodeBytes(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		switch {
		case c == '\n' || c == '\t':
			sb.WriteByte(c)
		case c < 0x20 || c == 0x7f:
		default:
			sb.WriteRune(rune(c))
		}
	}
	return sb.String()
}
