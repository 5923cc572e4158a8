// Package pkg provides tests for the disc image workflows
package pkg

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Nisto/extractors/pkg/disc"
	"github.com/Nisto/extractors/pkg/disc/disctest"
	"gopkg.in/yaml.v3"
)

var testFiles = []disctest.File{
	{Path: "SYSTEM.CNF", Data: []byte("BOOT2 = cdrom0:\\SLPM_620.53;1\n")},
	{Path: "SLPM_620.53", Data: bytes.Repeat([]byte{0x7F, 'E', 'L', 'F'}, 700)},
	{Path: "DATA/SOUND/WE5.CAT", Data: bytes.Repeat([]byte("0123456789ABCDEF"), 400)},
	{Path: "MOVIE/INTRO.STR", Data: bytes.Repeat([]byte{0xC3}, 5000), Form2: true},
}

// writeTestImage builds an image and stores it in a temporary directory
func writeTestImage(t *testing.T, layout disctest.Layout) (string, *disctest.Image) {
	t.Helper()
	built := disctest.Build(layout, testFiles)
	path := filepath.Join(t.TempDir(), "game.bin")
	if err := os.WriteFile(path, built.Data, 0o644); err != nil {
		t.Fatalf("Failed to write test image: %v", err)
	}
	return path, built
}

func TestDiscProcessor_Dump(t *testing.T) {
	layouts := []struct {
		name   string
		layout disctest.Layout
	}{
		{"cooked", disctest.Cooked},
		{"raw XA", disctest.RawXA},
	}

	for _, tc := range layouts {
		t.Run(tc.name, func(t *testing.T) {
			imagePath, _ := writeTestImage(t, tc.layout)
			outputDir := t.TempDir()

			summary, err := NewDiscProcessor(disc.Options{}).Dump(imagePath, outputDir)
			if err != nil {
				t.Fatalf("Dump() failed: %v", err)
			}
			if summary.Files != len(testFiles) {
				t.Errorf("Dump() extracted %d files, want %d", summary.Files, len(testFiles))
			}

			var total int64
			for _, f := range testFiles {
				total += int64(len(f.Data))
				got, err := os.ReadFile(filepath.Join(outputDir, filepath.FromSlash(f.Path)))
				if err != nil {
					t.Errorf("Failed to read extracted %s: %v", f.Path, err)
					continue
				}
				if !bytes.Equal(got, f.Data) {
					t.Errorf("extracted %s differs from the original", f.Path)
				}
			}
			if summary.Bytes != total {
				t.Errorf("Dump() wrote %d bytes, want %d", summary.Bytes, total)
			}
		})
	}
}

func TestDiscProcessor_ListText(t *testing.T) {
	imagePath, _ := writeTestImage(t, disctest.RawMode1)

	var out bytes.Buffer
	if err := NewDiscProcessor(disc.Options{}).List(imagePath, &out, "text"); err != nil {
		t.Fatalf("List() failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != len(testFiles)+1 {
		t.Fatalf("List() printed %d lines, want %d:\n%s", len(lines), len(testFiles)+1, out.String())
	}
	if !strings.HasPrefix(lines[0], "ID") {
		t.Errorf("List() header = %q", lines[0])
	}
	for _, f := range testFiles {
		if !strings.Contains(out.String(), "/"+f.Path) {
			t.Errorf("List() output is missing %s", f.Path)
		}
	}
	if !strings.Contains(lines[1], "0000") {
		t.Errorf("first listing line = %q, want ID 0000", lines[1])
	}
}

func TestDiscProcessor_ListYAML(t *testing.T) {
	imagePath, built := writeTestImage(t, disctest.RawXA)

	var out bytes.Buffer
	if err := NewDiscProcessor(disc.Options{}).List(imagePath, &out, "yaml"); err != nil {
		t.Fatalf("List() failed: %v", err)
	}

	var listing Listing
	if err := yaml.Unmarshal(out.Bytes(), &listing); err != nil {
		t.Fatalf("List() output is not valid YAML: %v", err)
	}
	if listing.Image != "game.bin" {
		t.Errorf("Image = %q, want %q", listing.Image, "game.bin")
	}
	if listing.Volume != "TESTDISC" {
		t.Errorf("Volume = %q, want %q", listing.Volume, "TESTDISC")
	}
	if len(listing.Files) != len(testFiles) {
		t.Fatalf("listing has %d files, want %d", len(listing.Files), len(testFiles))
	}

	for _, f := range listing.Files {
		placement, ok := built.Files[strings.TrimPrefix(f.Path, "/")]
		if !ok {
			t.Errorf("listing has unexpected file %q", f.Path)
			continue
		}
		if f.LBA != placement.LBA || f.Size != placement.Size {
			t.Errorf("%s = LBA %d size %d, want LBA %d size %d", f.Path, f.LBA, f.Size, placement.LBA, placement.Size)
		}
		if f.Sectors != (f.Size+2047)/2048 {
			t.Errorf("%s sectors = %d for %d bytes", f.Path, f.Sectors, f.Size)
		}
	}
}

func TestDiscProcessor_ListInvalidFormat(t *testing.T) {
	imagePath, _ := writeTestImage(t, disctest.Cooked)

	var out bytes.Buffer
	if err := NewDiscProcessor(disc.Options{}).List(imagePath, &out, "xml"); err == nil {
		t.Error("List() with unknown format should fail")
	}
}

func TestDiscProcessor_Info(t *testing.T) {
	imagePath, _ := writeTestImage(t, disctest.RawXA)

	var out bytes.Buffer
	if err := NewDiscProcessor(disc.Options{}).Info(imagePath, &out); err != nil {
		t.Fatalf("Info() failed: %v", err)
	}

	for _, want := range []string{"raw XA", "TESTDISC", "PLAYSTATION", "Files:"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Info() output is missing %q:\n%s", want, out.String())
		}
	}
}

func TestDiscProcessor_Cat(t *testing.T) {
	imagePath, _ := writeTestImage(t, disctest.RawMode2)
	processor := NewDiscProcessor(disc.Options{})

	var out bytes.Buffer
	if err := processor.Cat(imagePath, "./DATA/SOUND/WE5.CAT", &out); err != nil {
		t.Fatalf("Cat() failed: %v", err)
	}
	if !bytes.Equal(out.Bytes(), testFiles[2].Data) {
		t.Error("Cat() output differs from the original file")
	}

	err := processor.Cat(imagePath, "/DATA/MISSING.BIN", &out)
	if !errors.Is(err, disc.ErrPathNotFound) {
		t.Errorf("Cat() error = %v, want %v", err, disc.ErrPathNotFound)
	}
}

func TestDiscProcessor_Extract(t *testing.T) {
	imagePath, built := writeTestImage(t, disctest.RawXA)

	outputFile := filepath.Join(t.TempDir(), "out", "part.bin")
	lba := built.Files["DATA/SOUND/WE5.CAT"].LBA
	if err := NewDiscProcessor(disc.Options{}).Extract(imagePath, lba, 16, 100, outputFile); err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}

	got, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatalf("Failed to read extracted range: %v", err)
	}
	if !bytes.Equal(got, testFiles[2].Data[16:116]) {
		t.Error("Extract() wrote the wrong range")
	}
}

func TestDiscProcessor_OpenErrors(t *testing.T) {
	processor := NewDiscProcessor(disc.Options{})

	garbage := filepath.Join(t.TempDir(), "garbage.bin")
	if err := os.WriteFile(garbage, bytes.Repeat([]byte{0x11}, 64*1024), 0o644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	_, err := processor.Dump(garbage, t.TempDir())
	if !errors.Is(err, disc.ErrUnrecognizedFormat) {
		t.Errorf("Dump() error = %v, want %v", err, disc.ErrUnrecognizedFormat)
	}

	var out bytes.Buffer
	if err := processor.Info(filepath.Join(t.TempDir(), "missing.iso"), &out); err == nil {
		t.Error("Info() on a missing image should fail")
	}
}

func TestSafeOutputPath(t *testing.T) {
	base := filepath.Join("out", "dir")

	testCases := []struct {
		name     string
		discPath string
		expected string
		wantErr  bool
	}{
		{"plain", "DATA/A.BIN", filepath.Join(base, "DATA", "A.BIN"), false},
		{"leading slash", "/DATA/A.BIN", filepath.Join(base, "DATA", "A.BIN"), false},
		{"leading dot slash", "./A.BIN", filepath.Join(base, "A.BIN"), false},
		{"parent component", "../A.BIN", "", true},
		{"nested parent", "DATA/../../A.BIN", "", true},
		{"empty component", "DATA//A.BIN", "", true},
		{"backslash", `DATA\A.BIN`, "", true},
		{"control character", "A\x07.BIN", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := safeOutputPath(base, tc.discPath)
			if tc.wantErr {
				if err == nil {
					t.Errorf("safeOutputPath(%q) = %q, want error", tc.discPath, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("safeOutputPath(%q) failed: %v", tc.discPath, err)
			}
			if got != tc.expected {
				t.Errorf("safeOutputPath(%q) = %q, want %q", tc.discPath, got, tc.expected)
			}
		})
	}
}
