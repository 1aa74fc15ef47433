// Package compression decompresses large static assets, such as a MathJax bundle, that
// are distributed compressed.
package compression

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"path/filepath"

	"github.com/andybalholm/brotli"
)

func DecompressBrotli(compressed []byte) (string, error) {
	reader := brotli.NewReader(bytes.NewReader(compressed))

	decompressed, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to decompress: %w", err)
	}

	return string(decompressed), nil
}

func DecompressGzip(compressed []byte) (string, error) {
	reader, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return "", fmt.Errorf("failed to decompress: %w", err)
	}
	defer reader.Close()

	decompressed, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to decompress: %w", err)
	}

	return string(decompressed), nil
}

// Decompress picks the decompressor from the extension of name. Files ending in .br are
// brotli and .gz gzip. Anything else is returned as is.
func Decompress(name string, b []byte) (string, error) {
	switch filepath.Ext(name) {
	case ".br":
		return DecompressBrotli(b)
	case ".gz":
		return DecompressGzip(b)
	default:
		return string(b), nil
	}
}
