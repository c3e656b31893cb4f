package langmodel

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// Load maps an ARPA file into memory and parses it.
func Load(path string, opts ...Option) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat model: %w", err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrBadModel, path)
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to map model: %w", err)
	}
	defer func() {
		// Best-effort unmap; the parsed model holds its own copies.
		_ = data.Unmap()
	}()

	m, err := ParseBytes(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return m, nil
}
