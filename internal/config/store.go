package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/teemow/mcp-calendar/internal/errs"
)

// Store updates single entries of a .env file in place, leaving every other
// line untouched.
type Store struct {
	path string
}

// NewStore returns a Store for the file at path. The file does not have to exist.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultEnvFile
	}
	return &Store{path: path}
}

// Path returns the file the store writes to.
func (s *Store) Path() string {
	return s.path
}

// SetRefreshToken persists token as the stored refresh token.
func (s *Store) SetRefreshToken(token string) error {
	if token == "" {
		return errs.New(errs.Configuration, "refusing to store an empty refresh token")
	}
	return s.Set(KeyRefreshToken, token)
}

// Set writes key=value. The first existing line for key is replaced where it
// stands and any later duplicates are dropped; otherwise the entry is
// appended. The file keeps its permissions, and a new file is created 0600.
func (s *Store) Set(key, value string) error {
	entry, err := s.encodeEntry(key, value)
	if err != nil {
		return err
	}

	content, mode, err := s.read()
	if err != nil {
		return err
	}

	if err := s.write(replaceEntry(content, key, entry), mode); err != nil {
		return errs.Wrap(errs.Configuration, fmt.Sprintf("failed to write %s: %v", s.path, err), err)
	}
	return nil
}

// encodeEntry renders key="value" with backslashes and double quotes escaped.
// The entry is parsed back and rejected unless it yields value unchanged.
func (s *Store) encodeEntry(key, value string) (string, error) {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(value)
	entry := key + `="` + escaped + `"`

	parsed, err := godotenv.Unmarshal(entry)
	if err != nil {
		return "", errs.Wrap(errs.Configuration, fmt.Sprintf("failed to encode %s", key), err)
	}
	if parsed[key] != value {
		return "", errs.New(errs.Configuration, fmt.Sprintf("%s cannot be written to %s without changing its value", key, s.path))
	}
	return entry, nil
}

func (s *Store) read() (string, fs.FileMode, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", 0o600, nil
	}
	if err != nil {
		return "", 0, errs.Wrap(errs.Configuration, fmt.Sprintf("failed to stat %s: %v", s.path, err), err)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", 0, errs.Wrap(errs.Configuration, fmt.Sprintf("failed to read %s: %v", s.path, err), err)
	}
	return string(data), info.Mode().Perm(), nil
}

// write replaces the file through a rename so a crash never leaves it half written.
func (s *Store) write(content string, mode fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close() //nolint:errcheck
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}

func replaceEntry(content, key, entry string) string {
	if content == "" {
		return entry + "\n"
	}

	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines)+1)
	replaced := false
	for _, line := range lines {
		if !isEntryFor(line, key) {
			out = append(out, line)
			continue
		}
		if !replaced {
			out = append(out, entry)
			replaced = true
		}
	}

	if !replaced {
		if out[len(out)-1] == "" {
			out[len(out)-1] = entry
		} else {
			out = append(out, entry)
		}
		out = append(out, "")
	}
	return strings.Join(out, "\n")
}

func isEntryFor(line, key string) bool {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimPrefix(trimmed, "export ")
	name, _, found := strings.Cut(trimmed, "=")
	return found && strings.TrimSpace(name) == key
}
