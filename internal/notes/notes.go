// Package notes reads interview notes from the file formats interviewers
// actually bring: plain text, markdown, PDF, and DOCX.
package notes

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Read loads interview notes from path, choosing the decoder by extension.
// Extensionless files count as plain text. The returned text is valid UTF-8
// and never blank.
func Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading notes: %w", err)
	}

	var text string
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case "", ".txt", ".md", ".markdown":
		text = string(bytes.ToValidUTF8(data, nil))
	case ".pdf":
		text, err = extractPDF(data)
		if err != nil {
			return "", fmt.Errorf("extracting text from %s: %w", path, err)
		}
	case ".docx":
		text, err = extractDOCX(data)
		if err != nil {
			return "", fmt.Errorf("extracting text from %s: %w", path, err)
		}
	default:
		return "", fmt.Errorf("unsupported notes format %q (use txt, md, pdf, or docx)", ext)
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("notes file %s contains no text", path)
	}

	return text, nil
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var document *zip.File
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			document = f
			break
		}
	}
	if document == nil {
		return "", errors.New("word/document.xml not found")
	}

	rc, err := document.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}

	return flattenDocumentXML(raw), nil
}

// flattenDocumentXML collects the character data of a WordprocessingML body,
// turning paragraph and line-break boundaries into newlines.
func flattenDocumentXML(raw []byte) string {
	decoder := xml.NewDecoder(bytes.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return string(raw)
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.Write(t)
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
