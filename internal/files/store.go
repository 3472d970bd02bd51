package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gridexport/internal/exporter"
)

// maxNameAttempts bounds the search for a free file name
const maxNameAttempts = 1000

// Store writes export artifacts into a directory
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates a store rooted at dir. The directory is created on the
// first write.
func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		dir:    dir,
		logger: logger.With(slog.String("component", "artifact_store")),
	}
}

// Dir returns the output directory
func (s *Store) Dir() string {
	return s.dir
}

// Write stores the artifact under its file name, adding a numeric suffix
// when that name is taken, and returns the final path.
func (s *Store) Write(artifact *exporter.Artifact) (string, error) {
	if artifact == nil {
		return "", fmt.Errorf("nil artifact")
	}
	name := filepath.Base(artifact.FileName)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "", fmt.Errorf("invalid artifact file name %q", artifact.FileName)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".export-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(artifact.Data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close artifact: %w", err)
	}

	path, err := s.claim(name, tmpPath)
	if err != nil {
		return "", err
	}

	s.logger.Info("artifact written",
		slog.String("path", path),
		slog.Int("size_bytes", len(artifact.Data)))
	return path, nil
}

// claim links the temp file to the first free name. Link fails when the
// target exists, so two concurrent writers never take the same name.
func (s *Store) claim(name, tmpPath string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 0; i < maxNameAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = stem + "-" + strconv.Itoa(i) + ext
		}
		path := filepath.Join(s.dir, candidate)

		err := os.Link(tmpPath, path)
		if err == nil {
			return path, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("failed to store artifact %s: %w", candidate, err)
		}
	}
	return "", fmt.Errorf("no free file name for %s after %d attempts", name, maxNameAttempts)
}

// Read returns the content of a stored artifact by file name
func (s *Store) Read(name string) ([]byte, error) {
	if name != filepath.Base(name) {
		return nil, fmt.Errorf("invalid artifact name %q", name)
	}
	return os.ReadFile(filepath.Join(s.dir, name))
}
