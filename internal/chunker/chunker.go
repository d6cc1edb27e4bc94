// Package chunker predicts how the backend splits an uploaded document into
// knowledge chunks: recursively on paragraph breaks, then line breaks, then
// spaces, packing pieces up to the knowledge's chunk size with an overlap
// between neighbours.
package chunker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudwego/eino-ext/components/document/parser/docx"
	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	"github.com/cloudwego/eino-ext/components/document/transformer/splitter/recursive"
	"github.com/cloudwego/eino/components/document/parser"
	"github.com/cloudwego/eino/schema"
)

// DefaultOverlap is the backend splitter's default chunk overlap.
const DefaultOverlap = 200

// ErrUnsupported is returned for files the backend does not accept.
var ErrUnsupported = errors.New("unsupported file type")

var separators = []string{"\n\n", "\n", " ", ""}

// Options configures splitting.
type Options struct {
	Size    int
	Overlap int
}

// ForChunkSize returns the options the backend uses for a knowledge base
// with the given chunk size.
func ForChunkSize(size int) Options {
	return Options{Size: size, Overlap: DefaultOverlap}
}

// Split splits text into chunks. An Overlap not smaller than Size is
// treated as 0.
func Split(ctx context.Context, text string, opts Options) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return splitDocs(ctx, []*schema.Document{{Content: text}}, opts)
}

// SplitFile parses a .txt, .pdf or .docx file and splits its text.
func SplitFile(ctx context.Context, path string, opts Options) ([]string, error) {
	p, err := newParser(ctx, path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	docs, err := p.Parse(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return splitDocs(ctx, docs, opts)
}

func splitDocs(ctx context.Context, docs []*schema.Document, opts Options) ([]string, error) {
	if opts.Size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", opts.Size)
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.Size {
		opts.Overlap = 0
	}

	splitter, err := recursive.NewSplitter(ctx, &recursive.Config{
		ChunkSize:   opts.Size,
		OverlapSize: opts.Overlap,
		Separators:  separators,
		KeepType:    recursive.KeepTypeNone,
	})
	if err != nil {
		return nil, fmt.Errorf("create splitter: %w", err)
	}

	out, err := splitter.Transform(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}

	chunks := make([]string, 0, len(out))
	for _, d := range out {
		if c := strings.TrimSpace(d.Content); c != "" {
			chunks = append(chunks, c)
		}
	}
	return chunks, nil
}

func newParser(ctx context.Context, path string) (parser.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		return pdf.NewPDFParser(ctx, &pdf.Config{ToPages: false})
	case ".docx":
		return docx.NewDocxParser(ctx, &docx.Config{
			IncludeHeaders: true,
			IncludeTables:  true,
		})
	case ".txt":
		return textParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
}

type textParser struct{}

func (textParser) Parse(_ context.Context, r io.Reader, _ ...parser.Option) ([]*schema.Document, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if len(b) == 0 {
		return []*schema.Document{}, nil
	}
	return []*schema.Document{{Content: string(b), MetaData: map[string]any{}}}, nil
}
