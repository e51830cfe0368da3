package access

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	. "outpass-control/internal/config"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Student roster import. Registrar exports are tab-delimited CSV, usually
// UTF-16 with a BOM.

// RosterDefinition names the columns of a known roster export format.
type RosterDefinition struct {
	RegistrationField string
	NameField         string
	EmailField        string
	DeptField         string
	AdvisorField      string

	// Optional columns. An index of -1 means not present.
	PhoneField string

	Label string
}

// Known roster export layouts. Registrars rename columns between
// releases, so each layout is tried in order.
var RosterDefinitions = []RosterDefinition{
	{
		RegistrationField: "REGISTRATION NO",
		NameField:         "STUDENT NAME",
		EmailField:        "E-MAIL",
		DeptField:         "DEPARTMENT CODE",
		AdvisorField:      "ADVISOR",
		PhoneField:        "PHONE",
		Label:             "standard",
	},
	{
		RegistrationField: "REG_NO",
		NameField:         "NAME",
		EmailField:        "EMAIL",
		DeptField:         "DEPT",
		AdvisorField:      "ADVISOR_USERNAME",
		PhoneField:        "MOBILE",
		Label:             "legacy",
	},
}

// RosterEntry is one student row from a roster file.
type RosterEntry struct {
	RegistrationNo  string
	FullName        string
	Email           string
	Phone           string
	DeptCode        string
	AdvisorUsername string
}

// ParseRosterFile reads a roster export and returns its student rows.
// Rows missing a registration number or name are skipped with a warning
// rather than failing the whole import.
func ParseRosterFile(path string) ([]RosterEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open roster file: %w", err)
	}
	defer f.Close()

	reader, err := rosterReader(f)
	if err != nil {
		return nil, err
	}

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read roster header: %w", err)
	}

	def, index, err := matchDefinition(headers)
	if err != nil {
		return nil, err
	}

	var entries []RosterEntry
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading roster: %w", err)
		}
		line++

		entry := RosterEntry{
			RegistrationNo:  field(record, index[def.RegistrationField]),
			FullName:        field(record, index[def.NameField]),
			Email:           field(record, index[def.EmailField]),
			Phone:           field(record, index[def.PhoneField]),
			DeptCode:        field(record, index[def.DeptField]),
			AdvisorUsername: field(record, index[def.AdvisorField]),
		}
		if entry.RegistrationNo == "" || entry.FullName == "" {
			slog.Warn("Skipping incomplete roster row", "file", path, "line", line)
			continue
		}
		if entry.Email != "" {
			if err := ValidEmail(entry.Email); err != nil {
				slog.Warn("Skipping roster row with bad email", "file", path, "line", line, "email", entry.Email)
				continue
			}
		}
		entries = append(entries, entry)
	}

	slog.Info("Roster file parsed", "file", path, "layout", def.Label, "students", len(entries))
	return entries, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// rosterReader wraps the file in a CSV reader, decoding UTF-16 when the
// file starts with a BOM.
func rosterReader(f *os.File) (*csv.Reader, error) {
	bom := make([]byte, 2)
	n, err := f.Read(bom)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read BOM: %w", err)
	}

	var reader *csv.Reader
	if n == 2 && (bom[0] == 0xFE && bom[1] == 0xFF || bom[0] == 0xFF && bom[1] == 0xFE) {
		utf16bom := unicode.BOMOverride(unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder())
		utf16Reader := transform.NewReader(io.MultiReader(
			// Prepend BOM bytes back to stream
			strings.NewReader(string(bom)),
			f,
		), utf16bom)
		reader = csv.NewReader(utf16Reader)
	} else {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("failed to seek file: %w", err)
		}
		reader = csv.NewReader(f)
	}

	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = 0
	return reader, nil
}

// matchDefinition finds the first layout whose required columns are all
// present, returning it with a header name to index map.
func matchDefinition(headers []string) (RosterDefinition, map[string]int, error) {
	index := make(map[string]int)
	for i, h := range headers {
		index[strings.TrimSpace(strings.ToUpper(h))] = i
	}
	// Optional columns resolve to -1 when absent.
	lookup := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		return -1
	}

	for _, def := range RosterDefinitions {
		required := []string{def.RegistrationField, def.NameField, def.EmailField, def.DeptField}
		found := true
		for _, name := range required {
			if lookup(name) == -1 {
				found = false
				break
			}
		}
		if found {
			resolved := map[string]int{
				def.RegistrationField: lookup(def.RegistrationField),
				def.NameField:         lookup(def.NameField),
				def.EmailField:        lookup(def.EmailField),
				def.DeptField:         lookup(def.DeptField),
				def.AdvisorField:      lookup(def.AdvisorField),
				def.PhoneField:        lookup(def.PhoneField),
			}
			return def, resolved, nil
		}
	}
	return RosterDefinition{}, nil, fmt.Errorf("roster file missing required columns")
}

// ScanRosterFolder lists roster CSV files under the configured folder.
func ScanRosterFolder(cfg *Config) ([]string, error) {
	var files []string
	root := cfg.RosterFolder

	if !filepath.IsAbs(root) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("unable to get current working directory: %w", err)
		}
		root = filepath.Join(cwd, root)
	}

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("roster folder does not exist: %s", root)
		}
		return nil, fmt.Errorf("error checking roster folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("roster folder is not a directory: %s", root)
	}

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(strings.ToLower(info.Name()), ".csv") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
