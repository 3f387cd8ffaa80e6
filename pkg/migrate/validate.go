package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

var migrationFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks every .sql file in dir: the filename carries a unique
// version and the body has both goose Up and Down sections, Up first. All
// problems are reported together.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var errs error
	versions := make(map[string]string, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".sql" {
			continue
		}
		match := migrationFileRe.FindStringSubmatch(name)
		if match == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: filename must be YYYYMMDDHHMMSS_name.sql", name))
			continue
		}
		if prev, dup := versions[match[1]]; dup {
			errs = multierr.Append(errs, fmt.Errorf("%s: version %s already used by %s", name, match[1], prev))
		}
		versions[match[1]] = name

		body, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		errs = multierr.Append(errs, checkSections(name, string(body)))
	}
	return errs
}

func checkSections(name, body string) error {
	up := strings.Index(body, "-- +goose Up")
	down := strings.Index(body, "-- +goose Down")
	switch {
	case up < 0:
		return fmt.Errorf("%s: missing -- +goose Up", name)
	case down < 0:
		return fmt.Errorf("%s: missing -- +goose Down", name)
	case down < up:
		return fmt.Errorf("%s: Down section precedes Up", name)
	}
	return nil
}
