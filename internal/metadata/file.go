package metadata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore serves metadata documents from a base directory.
type FileStore struct {
	baseDir     string
	defaultName string
}

func NewFileStore(baseDir, defaultName string) (*FileStore, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("metadata base directory is required")
	}
	if strings.TrimSpace(defaultName) == "" {
		return nil, fmt.Errorf("metadata default document name is required")
	}
	return &FileStore{
		baseDir:     strings.TrimSpace(baseDir),
		defaultName: strings.TrimSpace(defaultName),
	}, nil
}

func (s *FileStore) Load(_ context.Context, name string) (string, error) {
	cleaned, err := s.resolveName(name)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(s.baseDir, cleaned)

	raw, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("metadata document %q: %w", cleaned, ErrNotFound)
		}
		return "", fmt.Errorf("read metadata document %q: %w", cleaned, err)
	}
	content := string(raw)
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("metadata document %q is empty", cleaned)
	}
	return content, nil
}

func (s *FileStore) resolveName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = s.defaultName
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || cleaned == "." || cleaned == ".." {
		return "", fmt.Errorf("invalid metadata document name: %q", name)
	}
	return cleaned, nil
}
