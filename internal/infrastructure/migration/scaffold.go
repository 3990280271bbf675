package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Pair is a scaffolded up/down migration file pair. Versions use the
// 20060102150405 timestamp format so lexical order matches creation order.
type Pair struct {
	Version  string
	Slug     string
	UpPath   string
	DownPath string
}

// Base returns the shared file name without the .up.sql/.down.sql suffix.
func (p Pair) Base() string {
	return p.Version + "_" + p.Slug
}

// Scaffold writes an empty up/down migration pair into dir, creating the
// directory if needed.
func Scaffold(dir, name string) (*Pair, error) {
	slug := slugify(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create migrations directory: %w", err)
	}

	now := time.Now()
	p := &Pair{
		Version: now.Format("20060102150405"),
		Slug:    slug,
	}
	p.UpPath = filepath.Join(dir, p.Base()+".up.sql")
	p.DownPath = filepath.Join(dir, p.Base()+".down.sql")

	up := fmt.Sprintf("-- %s\n-- created %s\n\n-- schema changes\n\n", name, now.Format(time.RFC3339))
	down := fmt.Sprintf("-- revert %s\n\n-- rollback statements\n\n", name)

	if err := os.WriteFile(p.UpPath, []byte(up), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", p.UpPath, err)
	}
	if err := os.WriteFile(p.DownPath, []byte(down), 0o644); err != nil {
		_ = os.Remove(p.UpPath)
		return nil, fmt.Errorf("write %s: %w", p.DownPath, err)
	}
	return p, nil
}

// slugify lowercases a migration name and collapses everything that is
// not [a-z0-9] into single underscores.
func slugify(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			pendingSep = true
		}
	}
	return b.String()
}

// List returns the base names of the migration pairs in dir, sorted by
// version. A missing directory is treated as empty.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var bases []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		base, ok := strings.CutSuffix(entry.Name(), ".up.sql")
		if !ok {
			continue
		}
		bases = append(bases, base)
	}
	sort.Strings(bases)
	return bases, nil
}
