package disc

import (
	"fmt"
	"io"

	"github.com/Nisto/extractors/pkg/common"
)

// Mode identifies how logical blocks are framed inside the image
type Mode int

const (
	// Cooked images hold 2048-byte logical blocks back to back
	Cooked Mode = iota
	// Raw images hold 2352-byte Mode 1 or formless Mode 2 sectors
	Raw
	// RawXA images hold 2352-byte CD-ROM XA sectors mixing Form 1 and Form 2
	RawXA
)

func (m Mode) String() string {
	switch m {
	case Cooked:
		return "cooked"
	case Raw:
		return "raw"
	case RawXA:
		return "raw XA"
	default:
		return "unknown"
	}
}

// Geometry describes where user data sits inside each physical sector.
// For RawXA images UserDataSize and UserDataEnd are zero: they depend on
// the Form of every single sector and are derived by the Stream.
type Geometry struct {
	Mode          Mode
	SectorSize    int
	UserDataStart int
	UserDataSize  int
	UserDataEnd   int
}

// IsRaw reports whether sectors carry sync, header and EDC/ECC bytes
func (g Geometry) IsRaw() bool {
	return g.Mode == Raw || g.Mode == RawXA
}

// IsXA reports whether sectors carry an XA sub-header
func (g Geometry) IsXA() bool {
	return g.Mode == RawXA
}

func (g Geometry) String() string {
	if g.IsXA() {
		return fmt.Sprintf("%s, %d-byte sectors, user data from 0x%X (Form 1/2 per sector)",
			g.Mode, g.SectorSize, g.UserDataStart)
	}
	return fmt.Sprintf("%s, %d-byte sectors, user data 0x%X-0x%X (%d bytes)",
		g.Mode, g.SectorSize, g.UserDataStart, g.UserDataEnd, g.UserDataSize)
}

// probeInput holds the two regions the probes look at: physical sector 16
// of a raw image and logical block 16 of a cooked one.
type probeInput struct {
	raw    []byte
	cooked []byte
}

// geometryProbe tries one candidate layout
type geometryProbe struct {
	name  string
	check func(in probeInput) (Geometry, bool)
}

// geometryProbes is tried in order; the first match wins.
var geometryProbes = []geometryProbe{
	{name: "raw", check: probeRaw},
	{name: "raw XA", check: probeRawXA},
	{name: "cooked", check: probeCooked},
}

func probeRaw(in probeInput) (Geometry, bool) {
	header, ok := DecodeRawSectorHeader(in.raw, 0)
	if !ok || !header.Valid() {
		return Geometry{}, false
	}
	if len(in.raw) < mode1UserDataEnd || !IsPrimaryVolumeDescriptor(in.raw[rawUserDataOffset:mode1UserDataEnd]) {
		return Geometry{}, false
	}

	g := Geometry{Mode: Raw, SectorSize: RawSectorSize, UserDataStart: rawUserDataOffset}
	switch header.Mode {
	case 1:
		g.UserDataSize, g.UserDataEnd = Mode1DataSize, mode1UserDataEnd
	case 2:
		g.UserDataSize, g.UserDataEnd = Mode2DataSize, mode2UserDataEnd
	default:
		common.LogWarn(common.WarnUnknownSectorMode, header.Mode)
		return Geometry{}, false
	}
	return g, true
}

func probeRawXA(in probeInput) (Geometry, bool) {
	header, ok := DecodeRawSectorHeader(in.raw, 0)
	if !ok || !header.Valid() {
		return Geometry{}, false
	}
	if len(in.raw) < form1UserDataEnd || !IsPrimaryVolumeDescriptor(in.raw[xaUserDataOffset:form1UserDataEnd]) {
		return Geometry{}, false
	}
	return Geometry{Mode: RawXA, SectorSize: RawSectorSize, UserDataStart: xaUserDataOffset}, true
}

func probeCooked(in probeInput) (Geometry, bool) {
	if !IsPrimaryVolumeDescriptor(in.cooked) {
		return Geometry{}, false
	}
	return Geometry{
		Mode:          Cooked,
		SectorSize:    CookedSectorSize,
		UserDataStart: 0,
		UserDataSize:  CookedSectorSize,
		UserDataEnd:   CookedSectorSize,
	}, true
}

// DetectGeometry probes the image for its sector framing. It fails with
// ErrUnrecognizedFormat when no candidate layout holds a Primary Volume
// Descriptor at sector 16.
func DetectGeometry(r io.ReaderAt) (Geometry, error) {
	raw, err := common.ReadRegionAt(r, VolumeDescriptorLBA*RawSectorSize, RawSectorSize)
	if err != nil {
		return Geometry{}, &IOError{Op: "read raw sector 16", Offset: VolumeDescriptorLBA * RawSectorSize, Err: err}
	}
	cooked, err := common.ReadRegionAt(r, VolumeDescriptorLBA*CookedSectorSize, CookedSectorSize)
	if err != nil {
		return Geometry{}, &IOError{Op: "read logical block 16", Offset: VolumeDescriptorLBA * CookedSectorSize, Err: err}
	}

	in := probeInput{raw: raw, cooked: cooked}
	for _, probe := range geometryProbes {
		g, ok := probe.check(in)
		common.LogDebug(common.DebugGeometryProbe, probe.name, ok)
		if ok {
			common.LogDebug(common.DebugGeometrySelect, g)
			return g, nil
		}
	}

	return Geometry{}, ErrUnrecognizedFormat
}
