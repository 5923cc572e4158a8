package common

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// ReadBytesAt reads exactly count bytes at offset. A short read is reported
// as io.ErrUnexpectedEOF.
func ReadBytesAt(reader io.ReaderAt, offset int64, count int) ([]byte, error) {
	buffer := make([]byte, count)
	if _, err := ReadFullAt(reader, buffer, offset); err != nil {
		return nil, err
	}
	return buffer, nil
}

// ReadFullAt fills buffer from offset and returns how many bytes arrived.
// A short read is reported as io.ErrUnexpectedEOF.
func ReadFullAt(reader io.ReaderAt, buffer []byte, offset int64) (int, error) {
	n, err := reader.ReadAt(buffer, offset)
	if n == len(buffer) {
		return n, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return n, fmt.Errorf("expected to read %d bytes, got %d: %w", len(buffer), n, io.ErrUnexpectedEOF)
	}
	return n, err
}

// ReadRegionAt reads up to count bytes at offset and returns what was
// available. Running into the end of the input is not an error.
func ReadRegionAt(reader io.ReaderAt, offset int64, count int) ([]byte, error) {
	buffer := make([]byte, count)
	n, err := reader.ReadAt(buffer, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buffer[:n], nil
}

// IsValidFileName checks if a single path component is safe to create on
// the host filesystem
func IsValidFileName(fileName string) bool {
	if len(fileName) == 0 || len(fileName) > 255 {
		return false
	}
	if IsSpecialDirEntry(fileName) {
		return false
	}

	// Check for obvious binary data corruption
	if HasTooManyNullBytes(fileName) || HasControlCharacterSpam(fileName) {
		return false
	}

	for _, r := range fileName {
		if r == unicode.ReplacementChar || unicode.IsControl(r) {
			return false
		}
		if strings.ContainsRune(`<>:"|?*\/`, r) {
			return false
		}
	}

	return true
}

// HasTooManyNullBytes detects if string has suspicious amount of null bytes
func HasTooManyNullBytes(s string) bool {
	if len(s) < 10 {
		return false
	}

	nullCount := strings.Count(s, "\x00")

	// If more than 20% are null bytes, likely corrupted
	return float64(nullCount)/float64(len(s)) > 0.2
}

// HasControlCharacterSpam detects patterns of repeated control characters
func HasControlCharacterSpam(s string) bool {
	if len(s) < 5 {
		return false
	}

	controlCount := 0
	for _, b := range []byte(s) {
		if b < 0x20 && b != 0x00 && b != 0x01 {
			controlCount++
		}
	}

	// If more than 30% are control characters, likely corrupted
	return float64(controlCount)/float64(len(s)) > 0.3
}
