package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kirillkom/paper-grader/internal/core/domain"
)

const DefaultInputDir = "./papers"

// Storage is the answer-sheet directory. Listing is non-recursive and keeps
// the order the filesystem reports entries in.
type Storage struct {
	basePath string
}

func New(basePath string) *Storage {
	if basePath == "" {
		basePath = DefaultInputDir
	}
	return &Storage{basePath: basePath}
}

func (s *Storage) Dir() string {
	return s.basePath
}

func (s *Storage) Check(_ context.Context) error {
	info, err := os.Stat(s.basePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("input directory %s does not exist", s.basePath)
		}
		return fmt.Errorf("stat input directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("input path %s is not a directory", s.basePath)
	}
	f, err := os.Open(s.basePath)
	if err != nil {
		return fmt.Errorf("open input directory: %w", err)
	}
	return f.Close()
}

func (s *Storage) List(ctx context.Context) ([]domain.InputItem, error) {
	f, err := os.Open(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("open input directory: %w", err)
	}
	defer f.Close()

	// (*os.File).ReadDir does not sort, unlike os.ReadDir.
	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	items := make([]domain.InputItem, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !domain.IsImageFile(entry.Name()) {
			continue
		}
		items = append(items, domain.InputItem{
			Index: len(items),
			Name:  entry.Name(),
			Path:  filepath.Join(s.basePath, entry.Name()),
		})
	}
	return items, nil
}

func (s *Storage) Read(_ context.Context, item domain.InputItem) ([]byte, error) {
	path := item.Path
	if path == "" {
		path = filepath.Join(s.basePath, item.Name)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

// WriteFile replaces path atomically: data goes to a sibling temp file that is
// renamed over the target, so readers never observe a partial document.
func WriteFile(path string, data io.Reader) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
