package migrate

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

const (
	annotationUp        = "-- +goose Up"
	annotationDown      = "-- +goose Down"
	annotationStmtBegin = "-- +goose StatementBegin"
	annotationStmtEnd   = "-- +goose StatementEnd"
	annotationNoTx      = "-- +goose NO TRANSACTION"
	annotationEnvSubOn  = "-- +goose ENVSUB ON"
	annotationEnvSubOff = "-- +goose ENVSUB OFF"
	goosePrefix         = "-- +goose "
)

// ValidateDir checks the migrations under dir. See ValidateFS.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	return ValidateFS(os.DirFS(dir))
}

// ValidateFS checks every .sql file at the root of fsys: the
// YYYYMMDDHHMMSS_name.sql filename, unique versions, one Up section followed
// by one Down section, and StatementBegin/End blocks that open and close
// inside the same section. Goose would only report most of these at deploy
// time, against the production database.
func ValidateFS(fsys fs.FS) error {
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

		if err := validateFile(fsys, name); err != nil {
			return fmt.Errorf("migration %q: %w", name, err)
		}
	}
	return nil
}

func validateFile(fsys fs.FS, name string) error {
	f, err := fsys.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	var (
		section string
		inStmt  bool
		lineNo  int
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, goosePrefix) {
			continue
		}
		switch line {
		case annotationUp:
			if section != "" {
				return fmt.Errorf("line %d: Up must be the first section", lineNo)
			}
			section = "up"
		case annotationDown:
			if section != "up" {
				return fmt.Errorf("line %d: Down must follow Up", lineNo)
			}
			if inStmt {
				return fmt.Errorf("line %d: StatementBegin in Up is never closed", lineNo)
			}
			section = "down"
		case annotationStmtBegin:
			if section == "" {
				return fmt.Errorf("line %d: StatementBegin outside a section", lineNo)
			}
			if inStmt {
				return fmt.Errorf("line %d: nested StatementBegin", lineNo)
			}
			inStmt = true
		case annotationStmtEnd:
			if !inStmt {
				return fmt.Errorf("line %d: StatementEnd without StatementBegin", lineNo)
			}
			inStmt = false
		case annotationNoTx, annotationEnvSubOn, annotationEnvSubOff:
		default:
			return fmt.Errorf("line %d: unknown goose annotation %q", lineNo, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	switch {
	case section == "":
		return fmt.Errorf("missing %q", annotationUp)
	case section == "up":
		return fmt.Errorf("missing %q", annotationDown)
	case inStmt:
		return fmt.Errorf("StatementBegin in Down is never closed")
	}
	return nil
}
