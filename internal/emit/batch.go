package emit

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Batch stages output files as temporaries in the output directory and
// moves them into place together on Commit. A batch that is aborted (or
// never committed) leaves the directory as it was.
type Batch struct {
	dir     string
	pending []staged
}

type staged struct {
	name string
	temp string
}

// NewBatch prepares dir, creating it when missing.
func NewBatch(dir string) (*Batch, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Batch{dir: dir}, nil
}

// Dir returns the output directory.
func (b *Batch) Dir() string {
	return b.dir
}

// Write stages name with the content produced by write.
func (b *Batch) Write(name string, write func(w io.Writer) error) error {
	f, err := os.CreateTemp(b.dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	temp := f.Name()

	bw := bufio.NewWriter(f)
	err = write(bw)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(temp, 0o644)
	}
	if err != nil {
		os.Remove(temp)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	b.pending = append(b.pending, staged{name: name, temp: temp})
	return nil
}

// WriteBytes stages name with fixed content.
func (b *Batch) WriteBytes(name string, data []byte) error {
	return b.Write(name, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// Commit renames every staged file to its final name.
func (b *Batch) Commit() error {
	for i, s := range b.pending {
		if err := os.Rename(s.temp, filepath.Join(b.dir, s.name)); err != nil {
			b.pending = b.pending[i:]
			b.Abort()
			return fmt.Errorf("failed to move %s into place: %w", s.name, err)
		}
	}
	b.pending = nil
	return nil
}

// Abort removes all staged files.
func (b *Batch) Abort() {
	for _, s := range b.pending {
		os.Remove(s.temp)
	}
	b.pending = nil
}

// Files returns the final names of the staged files.
func (b *Batch) Files() []string {
	names := make([]string, len(b.pending))
	for i, s := range b.pending {
		names[i] = s.name
	}
	return names
}
