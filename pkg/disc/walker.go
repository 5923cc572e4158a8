package disc

import (
	"github.com/Nisto/extractors/pkg/common"
)

// Entry is a file found while walking the directory tree. Path is relative
// to the root, uses "/" as separator and has no leading prefix.
type Entry struct {
	Path   string          `yaml:"path"`
	Record DirectoryRecord `yaml:",inline"`
}

// pendingDir is a directory waiting to be read
type pendingDir struct {
	path   string
	record DirectoryRecord
}

// Walker reads directories through a Stream
type Walker struct {
	stream    *Stream
	decode    func([]byte) (string, error)
	imageSize int64
}

// NewWalker creates a walker. decode converts identifier bytes, nil keeps
// them as-is. Directory extents ending past imageSize are rejected; 0
// disables the check.
func NewWalker(stream *Stream, decode func([]byte) (string, error), imageSize int64) *Walker {
	return &Walker{stream: stream, decode: decode, imageSize: imageSize}
}

// Walk visits every directory reachable from root and returns all files
// in traversal order: the files of a directory come first, then the full
// subtree of each subdirectory in the order the subdirectories appear.
func (w *Walker) Walk(root DirectoryRecord) ([]Entry, error) {
	var entries []Entry
	visited := map[uint32]bool{}
	stack := []pendingDir{{path: "", record: root}}

	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[dir.record.LBA] {
			return nil, malformed("directory "+displayPath(dir.path), 0,
				"LBA %d already visited (directory cycle)", dir.record.LBA)
		}
		visited[dir.record.LBA] = true

		files, subdirs, err := w.readDirectory(dir)
		if err != nil {
			return nil, err
		}
		entries = append(entries, files...)

		// push in reverse so the first subdirectory is walked first
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}

	return entries, nil
}

// readDirectory reads one directory extent and splits its records into
// files and subdirectories.
func (w *Walker) readDirectory(dir pendingDir) ([]Entry, []pendingDir, error) {
	common.LogDebug(common.DebugDirectoryRead, displayPath(dir.path), dir.record.LBA, dir.record.Size)

	if err := w.checkExtent(dir); err != nil {
		return nil, nil, err
	}
	if err := w.stream.Seek(int64(dir.record.LBA), 0); err != nil {
		return nil, nil, err
	}
	size, err := common.SafeInt64ToInt(int64(dir.record.Size))
	if err != nil {
		return nil, nil, malformed("directory "+displayPath(dir.path), 0, "%v", err)
	}
	buf, err := w.stream.ReadUserData(size)
	if err != nil {
		return nil, nil, err
	}

	records, err := ParseDirectory(buf, w.decode)
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		common.LogWarn(common.WarnEmptyDirectory, displayPath(dir.path))
	}

	var files []Entry
	var subdirs []pendingDir
	for _, record := range records {
		switch {
		case common.IsSpecialDirEntry(record.Name):
			continue
		case record.IsDir:
			subdirs = append(subdirs, pendingDir{path: joinPath(dir.path, record.Name), record: record})
		default:
			entry := Entry{Path: joinPath(dir.path, record.Name), Record: record}
			common.LogDebug(common.DebugFileRegistered, entry.Path, record.LBA, common.LBAToMSF(record.LBA), record.Size)
			files = append(files, entry)
		}
	}

	return files, subdirs, nil
}

// checkExtent makes sure the sectors holding a directory exist before its
// extent is allocated and read
func (w *Walker) checkExtent(dir pendingDir) error {
	if w.imageSize <= 0 {
		return nil
	}

	g := w.stream.Geometry()
	perSector := int64(common.LogicalBlockSize)
	if g.Mode == Raw {
		perSector = int64(g.UserDataSize)
	}
	sectors := (int64(dir.record.Size) + perSector - 1) / perSector
	end := (int64(dir.record.LBA) + sectors) * int64(g.SectorSize)

	if end > w.imageSize {
		return malformed("directory "+displayPath(dir.path), 0,
			"extent at LBA %d with %d bytes ends at byte %d, past the image (%d bytes)",
			dir.record.LBA, dir.record.Size, end, w.imageSize)
	}
	return nil
}

// ParseDirectory decodes all records of a directory extent. A zero length
// byte ends the records of the current 2048-byte block; records never
// cross a block boundary.
func ParseDirectory(buf []byte, decode func([]byte) (string, error)) ([]DirectoryRecord, error) {
	var records []DirectoryRecord

	for blockStart := 0; blockStart < len(buf); blockStart += common.LogicalBlockSize {
		blockEnd := blockStart + common.LogicalBlockSize
		if blockEnd > len(buf) {
			blockEnd = len(buf)
		}
		block := buf[:blockEnd]

		for off := blockStart; off < blockEnd && buf[off] != 0; {
			record, err := DecodeDirectoryRecord(block, off, decode)
			if err != nil {
				return nil, err
			}
			records = append(records, record)
			off += int(record.Length)
		}
	}

	return records, nil
}

func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func displayPath(p string) string {
	return "/" + p
}
