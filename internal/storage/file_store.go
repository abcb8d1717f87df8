// internal/storage/file_store.go
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// FileStore はカード画像の保存先を抽象化します。
// 保存名はベース名のみで扱い、フルパスは外に出しません。
type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader) error
	Remove(ctx context.Context, name string) error
	List(ctx context.Context) ([]string, error)
}

// diskStore はローカルディスクの1ディレクトリにフラットに保存する実装です
type diskStore struct {
	root   string
	logger *slog.Logger
}

func NewDiskStore(root string, logger *slog.Logger) (FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("diskStore: failed to create media dir %s: %w", root, err)
	}
	return &diskStore{root: root, logger: logger}, nil
}

func (s *diskStore) Save(ctx context.Context, name string, r io.Reader) error {
	// パス区切りを含む名前は受け付けない
	if name == "" || name != filepath.Base(name) {
		return fmt.Errorf("diskStore.Save: invalid file name %q", name)
	}

	path := filepath.Join(s.root, name)
	f, err := os.Create(path)
	if err != nil {
		s.logger.Error("Error creating media file", "name", name, "error", err)
		return fmt.Errorf("diskStore.Save: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		s.logger.Error("Error writing media file", "name", name, "error", err)
		return fmt.Errorf("diskStore.Save: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("diskStore.Save: %w", err)
	}
	return nil
}

func (s *diskStore) Remove(ctx context.Context, name string) error {
	if name == "" || name != filepath.Base(name) {
		return fmt.Errorf("diskStore.Remove: invalid file name %q", name)
	}
	if err := os.Remove(filepath.Join(s.root, name)); err != nil {
		return fmt.Errorf("diskStore.Remove: %w", err)
	}
	return nil
}

func (s *diskStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("diskStore.List: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}
