package ingest

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var pdfMagic = []byte("%PDF-")

// ExtractText returns the plain text of an uploaded resume. PDFs are
// detected by their header; anything else must be UTF-8 text.
func ExtractText(filename string, data []byte) (string, error) {
	if bytes.HasPrefix(data, pdfMagic) {
		return ExtractPDFText(bytes.NewReader(data), int64(len(data)))
	}
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return "", fmt.Errorf("%s is not a valid PDF", filename)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("unsupported resume format: upload a PDF or plain text file")
	}
	return normalizeText(string(data)), nil
}

// ExtractPDFText reads every page's text from a PDF.
func ExtractPDFText(r io.ReaderAt, size int64) (text string, err error) {
	// The pdf package panics on some malformed inputs.
	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("reading pdf: %v", p)
		}
	}()

	doc, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	plain, err := doc.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(plain, 4*MaxResumeChars)); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return normalizeText(buf.String()), nil
}

// normalizeText collapses runs of spaces and blank lines left by extraction.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, l := range lines {
		l = strings.Join(strings.Fields(l), " ")
		if l == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
