// Package invoice serves order invoices, keeping a compressed copy of every
// document fetched from the backend.
package invoice

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrNotArchived is returned by Archive.Get when no copy exists.
var ErrNotArchived = errors.New("invoice not archived")

// Archive stores invoice documents by order id.
type Archive interface {
	// Get returns the archived document, or ErrNotArchived.
	Get(ctx context.Context, orderID string) ([]byte, error)

	// Put stores a document, replacing any previous copy.
	Put(ctx context.Context, orderID string, pdf []byte) error
}

// objectName is the file or object name of an order's invoice.
func objectName(orderID string) string {
	return orderID + ".pdf.gz"
}

func compress(pdf []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(pdf); err != nil {
		return nil, fmt.Errorf("failed to compress invoice: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress invoice: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(r io.Reader) ([]byte, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer zr.Close()

	pdf, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress invoice: %w", err)
	}
	return pdf, nil
}
