// Package migrations embeds the SQL schema migrations and validates their
// naming, pairing, and sequence so a broken migration set fails fast at
// startup instead of halfway through a deploy.
package migrations

import (
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
)

//go:embed *.sql
var embeddedFiles embed.FS

// Migration filename regex: 001_migration_name.up.sql or 001_migration_name.down.sql
var filenameRegex = regexp.MustCompile(`^(\d{3})_([a-zA-Z0-9_]+)\.(up|down)\.sql$`)

// Info contains parsed information about a migration file.
type Info struct {
	Sequence  int
	Name      string
	Direction string // "up" or "down"
	Filename  string
	Checksum  string
}

// Files returns the embedded migration file system. All migrations are
// embedded at build time, enabling zero-config deployment without external
// file dependencies.
func Files() fs.FS {
	return embeddedFiles
}

// List returns all embedded migration files that conform to the strict naming
// standard, sorted lexicographically. Invalid filenames are rejected to
// enforce consistency and prevent operational mistakes.
func List() ([]string, error) {
	entries, err := fs.ReadDir(embeddedFiles, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	var files []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if filenameRegex.MatchString(entry.Name()) {
			files = append(files, entry.Name())
		}
	}

	// Lexicographic sort works with the zero-padded naming standard
	sort.Strings(files)

	return files, nil
}

// Validate performs comprehensive validation of the embedded migration set:
// filename format, up/down pairing, and gap-free sequence starting at 001.
func Validate() error {
	files, err := List()
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no embedded migration files found")
	}

	infos := make([]*Info, 0, len(files))

	for _, file := range files {
		info, err := parseFilename(file)
		if err != nil {
			return fmt.Errorf("filename validation failed for %s: %w", file, err)
		}

		content, err := fs.ReadFile(embeddedFiles, file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		info.Checksum = checksum(content)
		infos = append(infos, info)
	}

	if err := validatePairing(infos); err != nil {
		return err
	}

	return validateSequence(infos)
}

// parseFilename parses a migration filename and extracts its components.
func parseFilename(filename string) (*Info, error) {
	matches := filenameRegex.FindStringSubmatch(filename)
	if len(matches) != 4 {
		return nil, fmt.Errorf(
			"invalid migration filename format: %s (expected: 001_name.up.sql or 001_name.down.sql)", filename,
		)
	}

	sequence, err := strconv.Atoi(matches[1])
	if err != nil {
		return nil, fmt.Errorf("invalid sequence number in filename %s: %w", filename, err)
	}

	return &Info{
		Sequence:  sequence,
		Name:      matches[2],
		Direction: matches[3],
		Filename:  filename,
	}, nil
}

// validatePairing ensures that every up migration has a corresponding down migration.
func validatePairing(infos []*Info) error {
	pairs := make(map[string]map[string]bool) // sequence_name -> direction -> present

	for _, info := range infos {
		key := fmt.Sprintf("%03d_%s", info.Sequence, info.Name)
		if pairs[key] == nil {
			pairs[key] = make(map[string]bool)
		}

		pairs[key][info.Direction] = true
	}

	for key, directions := range pairs {
		if !directions["up"] {
			return fmt.Errorf("orphaned down migration: missing up migration for %s", key)
		}

		if !directions["down"] {
			return fmt.Errorf("orphaned up migration: missing down migration for %s", key)
		}
	}

	return nil
}

// validateSequence ensures there are no gaps in the migration sequence.
func validateSequence(infos []*Info) error {
	seen := make(map[int]bool)
	for _, info := range infos {
		seen[info.Sequence] = true
	}

	sequences := make([]int, 0, len(seen))
	for seq := range seen {
		sequences = append(sequences, seq)
	}

	sort.Ints(sequences)

	if len(sequences) == 0 {
		return nil
	}

	if sequences[0] != 1 {
		return fmt.Errorf("migration sequence should start with 001, but found %03d", sequences[0])
	}

	for i := 1; i < len(sequences); i++ {
		if sequences[i] != sequences[i-1]+1 {
			return fmt.Errorf("gap in migration sequence: expected %03d, found %03d", sequences[i-1]+1, sequences[i])
		}
	}

	return nil
}

// checksum calculates the SHA256 checksum of migration content.
func checksum(content []byte) string {
	hash := sha256.Sum256(content)

	return fmt.Sprintf("%x", hash)
}
