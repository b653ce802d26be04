package invoice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// fileArchive implements Archive on the local file system.
type fileArchive struct {
	dir    string
	logger zerolog.Logger
}

// NewFileArchive creates an archive of gzipped documents under dir,
// creating the directory if needed.
func NewFileArchive(dir string, logger zerolog.Logger) (Archive, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create invoice directory %s: %w", dir, err)
	}
	return &fileArchive{
		dir:    dir,
		logger: logger.With().Str("component", "invoice-file-archive").Logger(),
	}, nil
}

func (a *fileArchive) Get(ctx context.Context, orderID string) ([]byte, error) {
	path := filepath.Join(a.dir, objectName(orderID))

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotArchived
		}
		a.logger.Error().Err(err).Str("file", path).Msg("failed to read invoice file")
		return nil, fmt.Errorf("failed to read invoice file %s: %w", path, err)
	}

	pdf, err := decompress(bytes.NewReader(data))
	if err != nil {
		a.logger.Error().Err(err).Str("file", path).Msg("corrupt invoice file")
		return nil, err
	}
	return pdf, nil
}

// Put writes to a temporary file first so readers never see a partial
// document.
func (a *fileArchive) Put(ctx context.Context, orderID string, pdf []byte) error {
	data, err := compress(pdf)
	if err != nil {
		return err
	}

	path := filepath.Join(a.dir, objectName(orderID))
	tmp, err := os.CreateTemp(a.dir, ".invoice-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary invoice file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write invoice file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write invoice file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to store invoice file %s: %w", path, err)
	}

	a.logger.Debug().
		Str("file", path).
		Int("size", len(pdf)).
		Int("compressed_size", len(data)).
		Msg("invoice archived")
	return nil
}
