package common

import (
	"errors"
	"testing"
)

func TestLBAToMSF(t *testing.T) {
	testCases := []struct {
		lba      uint32
		expected string
	}{
		{0, "00:02:00"},
		{16, "00:02:16"},
		{74, "00:02:74"},
		{75, "00:03:00"},
		{4350, "01:00:00"},
		{70566, "15:42:66"},
	}

	for _, tc := range testCases {
		if got := LBAToMSF(tc.lba); got != tc.expected {
			t.Errorf("LBAToMSF(%d) = %q, want %q", tc.lba, got, tc.expected)
		}
	}
}

func TestGetSizeInSectors(t *testing.T) {
	testCases := []struct {
		size     uint32
		expected uint32
	}{
		{0, 0},
		{1, 1},
		{2048, 1},
		{2049, 2},
		{0xFFFFFFFF, 0x200000},
	}

	for _, tc := range testCases {
		if got := GetSizeInSectors(tc.size); got != tc.expected {
			t.Errorf("GetSizeInSectors(%d) = %d, want %d", tc.size, got, tc.expected)
		}
	}
}

func TestIsValidBCDMSF(t *testing.T) {
	testCases := []struct {
		name                  string
		minute, second, frame byte
		expected              bool
	}{
		{"lead-in", 0x00, 0x02, 0x00, true},
		{"maximum", 0x99, 0x59, 0x74, true},
		{"minute ones above 9", 0x0A, 0x00, 0x00, false},
		{"minute tens above 9", 0xA0, 0x00, 0x00, false},
		{"second 60", 0x00, 0x60, 0x00, false},
		{"second ones above 9", 0x00, 0x1A, 0x00, false},
		{"frame 75", 0x00, 0x00, 0x75, false},
		{"frame 80", 0x00, 0x00, 0x80, false},
		{"frame 69", 0x00, 0x00, 0x69, true},
		{"binary frame", 0x00, 0x00, 0x4B, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsValidBCDMSF(tc.minute, tc.second, tc.frame); got != tc.expected {
				t.Errorf("IsValidBCDMSF(%02X, %02X, %02X) = %v, want %v",
					tc.minute, tc.second, tc.frame, got, tc.expected)
			}
		})
	}
}

func TestBCDMSFString(t *testing.T) {
	if got := BCDMSFString(0x15, 0x42, 0x66); got != "15:42:66" {
		t.Errorf("BCDMSFString() = %q, want %q", got, "15:42:66")
	}
	if got := BCDToInt(0x59); got != 59 {
		t.Errorf("BCDToInt(0x59) = %d, want 59", got)
	}
}

func TestNormalizeIdentifier(t *testing.T) {
	testCases := []struct {
		name     string
		raw      []byte
		expected string
	}{
		{"self", []byte{0x00}, "."},
		{"parent", []byte{0x01}, ".."},
		{"versioned file", []byte("SYSTEM.CNF;1"), "SYSTEM.CNF"},
		{"directory", []byte("DATA"), "DATA"},
		{"dot in name", []byte("SLPM_620.53;1"), "SLPM_620.53"},
		{"two bytes starting with zero", []byte{0x00, 'A'}, "\x00A"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeIdentifier(tc.raw, nil)
			if err != nil {
				t.Fatalf("NormalizeIdentifier() failed: %v", err)
			}
			if got != tc.expected {
				t.Errorf("NormalizeIdentifier(%q) = %q, want %q", tc.raw, got, tc.expected)
			}
		})
	}
}

func TestNormalizeIdentifier_DecodeError(t *testing.T) {
	decodeErr := errors.New("bad byte")
	_, err := NormalizeIdentifier([]byte("A;1"), func([]byte) (string, error) { return "", decodeErr })
	if !errors.Is(err, decodeErr) {
		t.Errorf("NormalizeIdentifier() error = %v, want %v", err, decodeErr)
	}
}

func TestCleanFileName(t *testing.T) {
	testCases := map[string]string{
		"FILE.EXT;1": "FILE.EXT",
		"FILE.EXT":   "FILE.EXT",
		"A;B;1":      "A;B",
		";1":         "",
	}
	for input, expected := range testCases {
		if got := CleanFileName(input); got != expected {
			t.Errorf("CleanFileName(%q) = %q, want %q", input, got, expected)
		}
	}
}

func TestIsSpecialDirEntry(t *testing.T) {
	for _, name := range []string{".", ".."} {
		if !IsSpecialDirEntry(name) {
			t.Errorf("IsSpecialDirEntry(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"", "...", ".A", "DATA"} {
		if IsSpecialDirEntry(name) {
			t.Errorf("IsSpecialDirEntry(%q) = true, want false", name)
		}
	}
}
