package access

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const rosterSample = "REGISTRATION NO\tSTUDENT NAME\tE-MAIL\tDEPARTMENT CODE\tADVISOR\tPHONE\n" +
	"REG001\tAlice Example\talice@example.edu\tCSE\tadvisor1\t555-0101\n" +
	"REG002\tBob Example\tbob@example.edu\tCSE\tadvisor1\t\n" +
	"\tNo Registration\tskip@example.edu\tCSE\tadvisor1\t\n" +
	"REG003\tBad Email\tnot-an-email\tCSE\tadvisor1\t\n"

func writeRoster(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseRosterFileUTF8(t *testing.T) {
	path := writeRoster(t, "roster.csv", []byte(rosterSample))

	entries, err := ParseRosterFile(path)
	if err != nil {
		t.Fatalf("ParseRosterFile failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].RegistrationNo != "REG001" || entries[0].FullName != "Alice Example" {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if entries[0].DeptCode != "CSE" || entries[0].AdvisorUsername != "advisor1" {
		t.Errorf("department or advisor not parsed: %+v", entries[0])
	}
	if entries[0].Phone != "555-0101" {
		t.Errorf("phone not parsed: %q", entries[0].Phone)
	}
}

func TestParseRosterFileUTF16(t *testing.T) {
	// Registrar exports are UTF-16LE with a BOM.
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	data, _, err := transform.Bytes(enc, []byte(rosterSample))
	if err != nil {
		t.Fatal(err)
	}
	path := writeRoster(t, "roster-utf16.csv", data)

	entries, err := ParseRosterFile(path)
	if err != nil {
		t.Fatalf("ParseRosterFile failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[1].RegistrationNo != "REG002" {
		t.Errorf("unexpected second entry: %+v", entries[1])
	}
}

func TestParseRosterFileLegacyLayout(t *testing.T) {
	sample := "REG_NO\tNAME\tEMAIL\tDEPT\tADVISOR_USERNAME\n" +
		"REG010\tCarol Example\tcarol@example.edu\tECE\tadvisor2\n"
	path := writeRoster(t, "legacy.csv", []byte(sample))

	entries, err := ParseRosterFile(path)
	if err != nil {
		t.Fatalf("ParseRosterFile failed: %v", err)
	}
	if len(entries) != 1 || entries[0].DeptCode != "ECE" {
		t.Fatalf("legacy layout not parsed: %+v", entries)
	}
}

func TestParseRosterFileRejectsUnknownLayout(t *testing.T) {
	path := writeRoster(t, "bad.csv", []byte("FOO\tBAR\nx\ty\n"))
	if _, err := ParseRosterFile(path); err == nil {
		t.Fatal("expected error for unknown column layout")
	}
}
