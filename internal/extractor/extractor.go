// Package extractor turns uploaded files into raw text for ingestion.
package extractor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ErrExtraction indicates the input file could not be read or decoded.
var ErrExtraction = errors.New("text extraction failed")

// Extractor reads supported file types and returns their plain text.
// Markdown files are flattened through the goldmark AST so formatting
// syntax does not leak into chunks; everything else is treated as UTF-8
// plain text.
type Extractor struct {
	parser goldmark.Markdown
}

// New creates an Extractor with a default goldmark parser.
func New() *Extractor {
	return &Extractor{
		parser: goldmark.New(),
	}
}

// Extract reads the file at path and returns its text content.
// Returns ErrExtraction for unreadable or non-text input. Blank output is
// not an error here; the ingestion pipeline rejects empty documents.
func (e *Extractor) Extract(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return e.ExtractMarkdown(data)
	default:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: %s is not valid UTF-8 text", ErrExtraction, filepath.Base(path))
		}
		return string(data), nil
	}
}

// ExtractMarkdown flattens markdown source to plain text, preserving
// paragraph breaks so the chunker can still find semantic boundaries.
func (e *Extractor) ExtractMarkdown(source []byte) (string, error) {
	doc := e.parser.Parser().Parse(text.NewReader(source))

	var buf strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			switch n.(type) {
			case *ast.Paragraph, *ast.Heading, *ast.ListItem, *ast.Blockquote:
				buf.WriteString("\n\n")
			}
			return ast.WalkContinue, nil
		}

		switch t := n.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.FencedCodeBlock:
			writeLines(&buf, t, source)
			buf.WriteString("\n\n")
		case *ast.CodeBlock:
			writeLines(&buf, t, source)
			buf.WriteString("\n\n")
		case *ast.CodeSpan:
			for c := t.FirstChild(); c != nil; c = c.NextSibling() {
				if seg, ok := c.(*ast.Text); ok {
					buf.Write(seg.Segment.Value(source))
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	return strings.TrimSpace(buf.String()), nil
}

func writeLines(buf *strings.Builder, n ast.Node, source []byte) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(source))
	}
}
