package document

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestTypeOf(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"brochure.PDF", TypePDF, false},
		{"notes.txt", TypeTXT, false},
		{"spec.docx", TypeDOCX, false},
		{"legacy.doc", "", true},
		{"noext", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TypeOf(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedType) {
					t.Errorf("TypeOf() error = %v, want ErrUnsupportedType", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("TypeOf() = %q, %v", got, err)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	t.Run("txt with bom", func(t *testing.T) {
		got, err := Extract("a.txt", []byte("\xef\xbb\xbfSữa rửa mặt\n"))
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if got != "Sữa rửa mặt" {
			t.Errorf("Extract() = %q", got)
		}
	})

	t.Run("empty txt", func(t *testing.T) {
		if _, err := Extract("a.txt", []byte("  \n")); !errors.Is(err, ErrNoText) {
			t.Errorf("Extract() error = %v, want ErrNoText", err)
		}
	})

	t.Run("docx paragraphs", func(t *testing.T) {
		data := buildDocx(t, []string{"Fast charging", "Water resistant"})
		got, err := Extract("spec.docx", data)
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if got != "Fast charging\nWater resistant" {
			t.Errorf("Extract() = %q", got)
		}
	})

	t.Run("broken docx", func(t *testing.T) {
		if _, err := Extract("spec.docx", []byte("not a zip")); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("pdf", func(t *testing.T) {
		got, err := Extract("sheet.pdf", minimalPDF("Battery lasts two days"))
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if got != "Battery lasts two days" {
			t.Errorf("Extract() = %q", got)
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		if _, err := Extract("image.png", []byte{1}); !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("Extract() error = %v", err)
		}
	})
}

func TestContentText(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"Tj", "BT /F1 12 Tf 72 700 Td (Hello) Tj ET", "Hello"},
		{"TJ with kerning", "BT [(Hel) 20 (lo) -300 (world)] TJ ET", "Hello world"},
		{"line moves", "BT (one) Tj 0 -14 Td (two) Tj T* (three) Tj ET", "one\ntwo\nthree"},
		{"quote operator", "BT (a) Tj (b) ' ET", "a\nb"},
		{"escapes", `BT (a \(b\) \101\n) Tj ET`, "a (b) A\n"},
		{"hex", "BT <48 69> Tj ET", "Hi"},
		{"separate blocks", "BT (left) Tj ET BT (right) Tj ET", "left right"},
		{"no text", "q 1 0 0 1 0 0 cm /Im1 Do Q", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := strings.TrimRight(contentText([]byte(tt.content)), " "); got != tt.want {
				t.Errorf("contentText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContentText_Malformed(t *testing.T) {
	streams := []string{
		"BT (Hello) Tj ) ET",
		") ) )",
		"BT (a) Tj ]]} ) > ET",
		"BT (unterminated",
		"BT <4869",
		"[ (x) ) ] TJ",
	}
	for _, content := range streams {
		t.Run(content, func(t *testing.T) {
			done := make(chan string, 1)
			go func() { done <- contentText([]byte(content)) }()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatalf("contentText(%q) did not return", content)
			}
		})
	}

	if got := strings.TrimSpace(contentText([]byte("BT (Hello) Tj ) ET"))); got != "Hello" {
		t.Errorf("contentText() = %q, want %q", got, "Hello")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo", 2); got != "hé" {
		t.Errorf("Truncate() = %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate() = %q", got)
	}
	if got := Truncate("abc", 0); got != "abc" {
		t.Errorf("Truncate() = %q", got)
	}
}

func buildDocx(t *testing.T, paragraphs []string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		fmt.Fprintf(&body, "<w:p><w:r><w:t>%s</w:t></w:r></w:p>", p)
	}
	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(doc)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// minimalPDF builds a single-page PDF with an uncompressed content stream.
func minimalPDF(text string) []byte {
	content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}
