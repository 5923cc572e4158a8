package disc

import (
	"errors"
	"fmt"
	"io"

	"github.com/Nisto/extractors/pkg/common"
)

// Stream is a cursor over the user data of an image. It hides sector
// framing from callers: positions are given as logical sector plus byte
// offset, and reads return user data only.
//
// A Stream owns its position. It is not safe for concurrent use; open one
// Image per goroutine instead.
type Stream struct {
	r        io.ReaderAt
	geometry Geometry
	pos      int64 // physical byte offset in the image

	// active user data bounds; re-derived per sector for XA images
	userSize int
	userEnd  int
	form     int
}

// NewStream creates a stream positioned at the start of the image
func NewStream(r io.ReaderAt, g Geometry) *Stream {
	return &Stream{
		r:        r,
		geometry: g,
		userSize: g.UserDataSize,
		userEnd:  g.UserDataEnd,
	}
}

// Geometry returns the sector layout the stream works with
func (s *Stream) Geometry() Geometry {
	return s.geometry
}

// Position returns the current physical byte offset in the image
func (s *Stream) Position() int64 {
	return s.pos
}

// Seek positions the cursor offset bytes of user data past the start of
// the given logical sector. On XA images the offset is walked sector by
// sector, since each sector's Form decides how much user data it holds.
func (s *Stream) Seek(sector int64, offset int64) error {
	if sector < 0 || offset < 0 {
		return fmt.Errorf("invalid seek to sector %d offset %d", sector, offset)
	}

	size := int64(s.geometry.SectorSize)
	start := int64(s.geometry.UserDataStart)

	switch s.geometry.Mode {
	case RawXA:
		pos := sector * size
		for offset > 0 {
			if err := s.loadForm(pos); err != nil {
				return err
			}
			if offset >= int64(s.userSize) {
				offset -= int64(s.userSize)
				pos += size
			} else {
				pos += start + offset
				offset = 0
			}
		}
		s.pos = pos

	case Raw:
		if offset > 0 {
			userSize := int64(s.geometry.UserDataSize)
			sector += offset / userSize
			s.pos = sector*size + start + offset%userSize
		} else {
			s.pos = sector * size
		}

	default:
		s.pos = sector*size + offset
	}

	return nil
}

// ReadUserData returns exactly n bytes of user data from the cursor
func (s *Stream) ReadUserData(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("invalid read size %d", n)
	}
	buf := make([]byte, n)
	if _, err := s.readInto(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Read implements io.Reader. It fills p unless the image ends first; a
// read at the end of the image returns io.EOF.
func (s *Stream) Read(p []byte) (int, error) {
	n, err := s.readInto(p)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		if n == 0 {
			return 0, io.EOF
		}
		return n, nil
	}
	return n, err
}

// readInto fills p exactly. On failure it returns the user data bytes
// read so far and leaves the cursor after them.
func (s *Stream) readInto(p []byte) (int, error) {
	if !s.geometry.IsRaw() {
		offset := s.pos
		n, err := common.ReadFullAt(s.r, p, offset)
		s.pos += int64(n)
		if err != nil {
			return n, &IOError{Op: "read user data", Offset: offset, Err: err}
		}
		return n, nil
	}

	size := int64(s.geometry.SectorSize)
	start := s.geometry.UserDataStart
	done := 0

	for done < len(p) {
		sectorStart := s.pos - s.pos%size
		within := int(s.pos - sectorStart)

		// The Form is taken from the sub-header of every sector entered,
		// including the first one of this read.
		if s.geometry.IsXA() {
			if err := s.loadForm(sectorStart); err != nil {
				return done, err
			}
		}

		if within < start {
			within = start
		}
		if within >= s.userEnd {
			s.pos = sectorStart + size
			continue
		}

		take := s.userEnd - within
		if take > len(p)-done {
			take = len(p) - done
		}

		offset := sectorStart + int64(within)
		n, err := common.ReadFullAt(s.r, p[done:done+take], offset)
		done += n
		if err != nil {
			s.pos = offset + int64(n)
			return done, &IOError{Op: "read user data", Offset: offset, Err: err}
		}

		if within+take == s.userEnd {
			s.pos = sectorStart + size
		} else {
			s.pos = offset + int64(take)
		}
	}

	return done, nil
}

// loadForm reads the XA sub-header of the sector at sectorStart and
// updates the active user data bounds.
func (s *Stream) loadForm(sectorStart int64) error {
	offset := sectorStart + xaSubHeaderOffset
	buf, err := common.ReadBytesAt(s.r, offset, xaSubHeaderSize)
	if err != nil {
		return &IOError{Op: "read XA sub-header", Offset: offset, Err: err}
	}

	sub, _ := DecodeXASubHeader(buf, 0)
	if form := sub.Form(); form != s.form {
		common.LogDebug(common.DebugXAFormChange, sectorStart/int64(s.geometry.SectorSize), form)
		s.form = form
	}
	s.userSize, s.userEnd = sub.UserData()

	return nil
}
