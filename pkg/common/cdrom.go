// Package common provides common utilities for CD-ROM operations.
// This file contains functions for MSF conversion, BCD timestamps and
// ISO9660 identifier handling.
package common

import (
	"fmt"
	"strings"
)

// LogicalBlockSize is the size of an ISO9660 logical block
const LogicalBlockSize = 2048

// LBAToMSF converts LBA (Logical Block Address) to MSF (Minutes:Seconds:Frames) format
// LBA to MSF conversion: LBA + 150 (pregap)
func LBAToMSF(lba uint32) string {
	totalFrames := lba + 150

	minutes := totalFrames / (60 * 75)
	seconds := (totalFrames % (60 * 75)) / 75
	frames := totalFrames % 75

	return fmt.Sprintf("%02d:%02d:%02d", minutes, seconds, frames)
}

// GetSizeInSectors calculates the number of logical blocks needed for a given size in bytes
func GetSizeInSectors(sizeBytes uint32) uint32 {
	return uint32((uint64(sizeBytes) + LogicalBlockSize - 1) / LogicalBlockSize)
}

// IsValidBCD reports whether both nibbles of b are decimal digits and the
// tens nibble does not exceed maxTens.
func IsValidBCD(b byte, maxTens byte) bool {
	tens, ones := b>>4, b&0x0F
	return tens <= maxTens && tens <= 9 && ones <= 9
}

// IsValidBCDMSF validates a raw sector address. Minutes may be 00-99,
// seconds 00-59 and frames 00-74.
func IsValidBCDMSF(minute, second, frame byte) bool {
	if !IsValidBCD(minute, 9) || !IsValidBCD(second, 5) || !IsValidBCD(frame, 7) {
		return false
	}
	if frame>>4 == 7 && frame&0x0F > 4 {
		return false
	}
	return true
}

// BCDToInt decodes a single packed BCD byte
func BCDToInt(b byte) int {
	return int(b>>4)*10 + int(b&0x0F)
}

// BCDMSFString formats a BCD encoded sector address as MM:SS:FF
func BCDMSFString(minute, second, frame byte) string {
	return fmt.Sprintf("%02d:%02d:%02d", BCDToInt(minute), BCDToInt(second), BCDToInt(frame))
}

// NormalizeIdentifier turns a raw ISO9660 file identifier into a name.
// The single bytes 0x00 and 0x01 are the "." and ".." entries, any other
// identifier loses its ";version" suffix. decode converts the identifier
// bytes to a string; nil means the bytes are taken as-is.
func NormalizeIdentifier(raw []byte, decode func([]byte) (string, error)) (string, error) {
	if len(raw) == 1 {
		switch raw[0] {
		case 0x00:
			return ".", nil
		case 0x01:
			return "..", nil
		}
	}

	name := string(raw)
	if decode != nil {
		decoded, err := decode(raw)
		if err != nil {
			return "", fmt.Errorf("failed to decode identifier %q: %w", raw, err)
		}
		name = decoded
	}

	return CleanFileName(name), nil
}

// CleanFileName removes the version suffix from ISO9660 file names
// (e.g., "FILE.EXT;1" -> "FILE.EXT"). Everything after the last ';' goes.
func CleanFileName(fileName string) string {
	if idx := strings.LastIndex(fileName, ";"); idx != -1 {
		return fileName[:idx]
	}
	return fileName
}

// IsSpecialDirEntry checks if a normalized directory entry is "." or ".."
func IsSpecialDirEntry(fileName string) bool {
	return fileName == "." || fileName == ".."
}
