// Package disc reads files out of ISO9660 optical disc images.
// This file contains the on-disc layout: sector framing constants and
// decoders for the raw sector header, the CD-ROM XA sub-header, the
// Primary Volume Descriptor and directory records.
package disc

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/Nisto/extractors/pkg/common"
)

// Sector size constants
const (
	CookedSectorSize = 2048 // User data only (.iso)
	RawSectorSize    = 2352 // Full CD sector (.bin)

	Mode1DataSize = 2048 // User data of a Mode 1 sector
	Mode2DataSize = 2336 // User data of a Mode 2 (formless) sector
	Form1DataSize = 2048 // User data of an XA Mode 2 Form 1 sector
	Form2DataSize = 2324 // User data of an XA Mode 2 Form 2 sector

	// VolumeDescriptorLBA is where the Primary Volume Descriptor lives
	VolumeDescriptorLBA = 16
)

// Offsets within a raw sector
const (
	syncSize          = 12
	rawAddressOffset  = 0x0C // minute, second, frame (BCD)
	rawModeOffset     = 0x0F
	rawHeaderSize     = 0x10
	rawUserDataOffset = 0x10 // Mode 1 / formless Mode 2
	xaSubHeaderOffset = 0x10
	xaSubHeaderSize   = 8
	xaUserDataOffset  = 0x18

	mode1UserDataEnd = rawUserDataOffset + Mode1DataSize // 0x810
	mode2UserDataEnd = rawUserDataOffset + Mode2DataSize // 0x930
	form1UserDataEnd = xaUserDataOffset + Form1DataSize  // 0x818
	form2UserDataEnd = xaUserDataOffset + Form2DataSize  // 0x92C

	xaSubModeForm2 = 0b100000
)

// Offsets within the Primary Volume Descriptor and directory records
const (
	pvdSize             = 2048
	pvdRootRecordOffset = 0x9C
	rootRecordSize      = 34

	drLengthOffset     = 0x00
	drLBAOffset        = 0x02
	drSizeOffset       = 0x0A
	drFlagsOffset      = 0x19
	drNameLengthOffset = 0x20
	drNameOffset       = 0x21

	drFlagDirectory = 0x02
)

var (
	syncPattern = []byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00}
	pvdMarker   = []byte{0x01, 'C', 'D', '0', '0', '1'}
)

// RawSectorHeader is the sync pattern and header of a 2352-byte sector
type RawSectorHeader struct {
	Sync   [12]byte
	Minute byte // BCD
	Second byte // BCD
	Frame  byte // BCD
	Mode   byte
}

// DecodeRawSectorHeader decodes the 16-byte header at buf[off:].
func DecodeRawSectorHeader(buf []byte, off int) (RawSectorHeader, bool) {
	var h RawSectorHeader
	if off < 0 || len(buf)-off < rawHeaderSize {
		return h, false
	}
	copy(h.Sync[:], buf[off:off+syncSize])
	h.Minute = buf[off+rawAddressOffset]
	h.Second = buf[off+rawAddressOffset+1]
	h.Frame = buf[off+rawAddressOffset+2]
	h.Mode = buf[off+rawModeOffset]
	return h, true
}

// Valid reports whether the header looks like a real raw sector: the sync
// pattern matches, the address is a valid BCD timestamp and the mode is 0-2.
func (h RawSectorHeader) Valid() bool {
	if !bytes.Equal(h.Sync[:], syncPattern) {
		return false
	}
	if !common.IsValidBCDMSF(h.Minute, h.Second, h.Frame) {
		return false
	}
	return h.Mode <= 2
}

// MSF returns the sector address as MM:SS:FF
func (h RawSectorHeader) MSF() string {
	return common.BCDMSFString(h.Minute, h.Second, h.Frame)
}

// XASubHeader is the CD-ROM XA sub-header. The four bytes are stored twice;
// only the first copy is decoded.
type XASubHeader struct {
	File       byte
	Channel    byte
	SubMode    byte
	CodingInfo byte
}

// DecodeXASubHeader decodes the sub-header at buf[off:].
func DecodeXASubHeader(buf []byte, off int) (XASubHeader, bool) {
	if off < 0 || len(buf)-off < 4 {
		return XASubHeader{}, false
	}
	return XASubHeader{
		File:       buf[off],
		Channel:    buf[off+1],
		SubMode:    buf[off+2],
		CodingInfo: buf[off+3],
	}, true
}

// Form returns 1 or 2
func (h XASubHeader) Form() int {
	if h.SubMode&xaSubModeForm2 != 0 {
		return 2
	}
	return 1
}

// UserData returns the size and end offset of the sector's user data
func (h XASubHeader) UserData() (size, end int) {
	if h.Form() == 2 {
		return Form2DataSize, form2UserDataEnd
	}
	return Form1DataSize, form1UserDataEnd
}

// PrimaryVolumeDescriptor holds the PVD fields needed to locate files
type PrimaryVolumeDescriptor struct {
	Type             byte
	Identifier       string // "CD001"
	Version          byte
	SystemID         string
	VolumeID         string
	VolumeSpaceSize  uint32
	LogicalBlockSize uint16
	Root             DirectoryRecord
}

// IsPrimaryVolumeDescriptor checks size and the "\x01CD001" marker
func IsPrimaryVolumeDescriptor(buf []byte) bool {
	return len(buf) == pvdSize && bytes.Equal(buf[:len(pvdMarker)], pvdMarker)
}

// DecodePrimaryVolumeDescriptor decodes a 2048-byte PVD
func DecodePrimaryVolumeDescriptor(buf []byte) (PrimaryVolumeDescriptor, error) {
	var pvd PrimaryVolumeDescriptor
	if !IsPrimaryVolumeDescriptor(buf) {
		return pvd, malformed("primary volume descriptor", 0, "missing CD001 marker or wrong size %d", len(buf))
	}

	pvd.Type = buf[0]
	pvd.Identifier = string(buf[1:6])
	pvd.Version = buf[6]
	pvd.SystemID = strings.TrimRight(string(buf[8:40]), " \x00")
	pvd.VolumeID = strings.TrimRight(string(buf[40:72]), " \x00")
	pvd.VolumeSpaceSize = binary.LittleEndian.Uint32(buf[80:84])
	pvd.LogicalBlockSize = binary.LittleEndian.Uint16(buf[128:130])

	root := buf[pvdRootRecordOffset : pvdRootRecordOffset+rootRecordSize]
	record, err := DecodeDirectoryRecord(root, 0, nil)
	if err != nil {
		return pvd, err
	}
	if !record.IsDir {
		return pvd, malformed("root directory record", pvdRootRecordOffset, "directory flag not set")
	}
	pvd.Root = record

	return pvd, nil
}

// DirectoryRecord is a decoded ISO9660 directory record
type DirectoryRecord struct {
	Length byte   `yaml:"-"`
	LBA    uint32 `yaml:"lba"`
	Size   uint32 `yaml:"size"`
	Flags  byte   `yaml:"-"`
	IsDir  bool   `yaml:"dir,omitempty"`
	Name   string `yaml:"name"`
}

// DecodeDirectoryRecord decodes the record starting at buf[off]. The
// record must fit inside buf. decode converts identifier bytes; nil keeps
// them as-is.
func DecodeDirectoryRecord(buf []byte, off int, decode func([]byte) (string, error)) (DirectoryRecord, error) {
	var r DirectoryRecord
	if off < 0 || off >= len(buf) {
		return r, malformed("directory record", off, "offset outside of buffer (%d bytes)", len(buf))
	}

	length := int(buf[off+drLengthOffset])
	if length <= drNameOffset {
		return r, malformed("directory record", off, "record length %d too short", length)
	}
	if off+length > len(buf) {
		return r, malformed("directory record", off, "record length %d exceeds remaining %d bytes", length, len(buf)-off)
	}

	rec := buf[off : off+length]
	nameLength := int(rec[drNameLengthOffset])
	if nameLength == 0 {
		return r, malformed("directory record", off, "empty file identifier")
	}
	if drNameOffset+nameLength > length {
		return r, malformed("directory record", off, "name length %d exceeds record length %d", nameLength, length)
	}

	name, err := common.NormalizeIdentifier(rec[drNameOffset:drNameOffset+nameLength], decode)
	if err != nil {
		return r, malformed("directory record", off, "%v", err)
	}

	r.Length = byte(length)
	r.LBA = binary.LittleEndian.Uint32(rec[drLBAOffset : drLBAOffset+4])
	r.Size = binary.LittleEndian.Uint32(rec[drSizeOffset : drSizeOffset+4])
	r.Flags = rec[drFlagsOffset]
	r.IsDir = r.Flags&drFlagDirectory != 0
	r.Name = name

	return r, nil
}
