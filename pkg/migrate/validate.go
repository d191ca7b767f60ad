package migrate

import (
	"fmt"
	"io/fs"
	"regexp"
	"strings"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// dialectOnly lists constructs that work on one backend but not the other.
// Every migration runs against both the remote and the local store.
var dialectOnly = []string{"JSONB", "SERIAL", "TIMESTAMPTZ", "::", "AUTOINCREMENT", "NOW()", "ILIKE"}

// ValidateDir validates the migrations in dir, or the embedded set when dir is empty.
func ValidateDir(dir string) error {
	return Validate(Source(dir))
}

// Validate checks file names, unique versions, goose markers and that the SQL
// avoids backend specific syntax.
func Validate(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	seen := map[string]string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, ok := seen[m[1]]; ok {
			return fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name)
		}
		seen[m[1]] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %q: %w", name, err)
		}
		if err := checkBody(name, string(body)); err != nil {
			return err
		}
	}
	return nil
}

func checkBody(name, txt string) error {
	if !strings.Contains(txt, "-- +goose Up") {
		return fmt.Errorf("migration %q missing \"-- +goose Up\"", name)
	}
	if !strings.Contains(txt, "-- +goose Down") {
		return fmt.Errorf("migration %q missing \"-- +goose Down\"", name)
	}
	for i, line := range strings.Split(txt, "\n") {
		code := line
		if idx := strings.Index(code, "--"); idx >= 0 {
			code = code[:idx]
		}
		upper := strings.ToUpper(code)
		for _, token := range dialectOnly {
			if strings.Contains(upper, token) {
				return fmt.Errorf("migration %q line %d uses %s, which only one backend accepts", name, i+1, token)
			}
		}
	}
	return nil
}
