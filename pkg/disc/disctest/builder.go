// Package disctest builds small ISO9660 disc images in memory for tests.
package disctest

import (
	"encoding/binary"
	"sort"
	"strings"
)

// Layout selects the sector framing of a built image
type Layout int

const (
	Cooked   Layout = iota // 2048-byte blocks
	RawMode1               // 2352-byte Mode 1 sectors
	RawMode2               // 2352-byte formless Mode 2 sectors
	RawXA                  // 2352-byte CD-ROM XA sectors
)

const (
	blockSize     = 2048
	rawSectorSize = 2352
	firstDirLBA   = 18

	subModeData  = 0x08
	subModeForm2 = 0x20
)

// File is a file to place on the disc. Path uses "/" separators and no
// version suffix. Form2 files are stored in XA Form 2 sectors.
type File struct {
	Path  string
	Data  []byte
	Form2 bool
}

// Placement is where a file or directory ended up
type Placement struct {
	LBA  uint32
	Size uint32
}

// Image is a built disc image
type Image struct {
	Data       []byte
	Files      map[string]Placement // keyed by path without prefix
	Dirs       map[string]Placement // "" is the root
	SectorSize int
}

type dirNode struct {
	path     string
	name     string
	children []*dirNode
	order    []interface{} // children and files in insertion order
	parent   *dirNode
	lba      uint32
	size     uint32
}

type fileNode struct {
	name  string
	path  string
	file  File
	lba   uint32
	count uint32
}

type sector struct {
	data  []byte
	form2 bool
}

// Build creates an image holding files. Directory records are written in
// the order paths first appear in files.
func Build(layout Layout, files []File) *Image {
	root := &dirNode{}
	dirs := map[string]*dirNode{"": root}
	var fileNodes []*fileNode

	for _, f := range files {
		parts := strings.Split(f.Path, "/")
		parent := root
		for i := 0; i < len(parts)-1; i++ {
			p := strings.Join(parts[:i+1], "/")
			d, ok := dirs[p]
			if !ok {
				d = &dirNode{path: p, name: parts[i], parent: parent}
				dirs[p] = d
				parent.children = append(parent.children, d)
				parent.order = append(parent.order, d)
			}
			parent = d
		}
		fn := &fileNode{name: parts[len(parts)-1], path: f.Path, file: f}
		parent.order = append(parent.order, fn)
		fileNodes = append(fileNodes, fn)
	}

	// directories first, depth-first, then file data
	lba := uint32(firstDirLBA)
	var dirOrder []*dirNode
	var visit func(d *dirNode)
	visit = func(d *dirNode) {
		dirOrder = append(dirOrder, d)
		d.lba = lba
		d.size = uint32(packedBlocks(recordLengths(d)) * blockSize)
		lba += d.size / blockSize
		for _, c := range d.children {
			visit(c)
		}
	}
	visit(root)

	for _, fn := range fileNodes {
		capacity := userCapacity(layout, fn.file.Form2)
		fn.lba = lba
		fn.count = uint32((len(fn.file.Data) + capacity - 1) / capacity)
		lba += fn.count
	}

	sectors := make([]sector, lba)
	sectors[16] = sector{data: primaryVolumeDescriptor(root, lba)}
	sectors[17] = sector{data: terminator()}

	for _, d := range dirOrder {
		data := serializeDirectory(d)
		for i := 0; i < len(data)/blockSize; i++ {
			sectors[int(d.lba)+i] = sector{data: data[i*blockSize : (i+1)*blockSize]}
		}
	}
	for _, fn := range fileNodes {
		capacity := userCapacity(layout, fn.file.Form2)
		data := fn.file.Data
		for i := uint32(0); i < fn.count; i++ {
			end := int(i+1) * capacity
			if end > len(data) {
				end = len(data)
			}
			sectors[fn.lba+i] = sector{data: data[int(i)*capacity : end], form2: fn.file.Form2 && layout == RawXA}
		}
	}

	img := &Image{
		Files:      map[string]Placement{},
		Dirs:       map[string]Placement{},
		SectorSize: blockSize,
	}
	if layout != Cooked {
		img.SectorSize = rawSectorSize
	}
	for _, fn := range fileNodes {
		img.Files[fn.path] = Placement{LBA: fn.lba, Size: uint32(len(fn.file.Data))}
	}
	for p, d := range dirs {
		img.Dirs[p] = Placement{LBA: d.lba, Size: d.size}
	}

	for i, s := range sectors {
		img.Data = append(img.Data, FrameSector(layout, uint32(i), s.data, s.form2)...)
	}

	return img
}

func userCapacity(layout Layout, form2 bool) int {
	switch layout {
	case RawMode2:
		return 2336
	case RawXA:
		if form2 {
			return 2324
		}
	}
	return blockSize
}

// FrameSector wraps user data into one physical sector of the layout
func FrameSector(layout Layout, lba uint32, data []byte, form2 bool) []byte {
	if layout == Cooked {
		out := make([]byte, blockSize)
		copy(out, data)
		return out
	}

	out := make([]byte, rawSectorSize)
	copy(out, SyncPattern)
	m, s, f := MSF(lba)
	out[0x0C], out[0x0D], out[0x0E] = m, s, f

	switch layout {
	case RawMode1:
		out[0x0F] = 1
		copy(out[0x10:0x810], data)
	case RawMode2:
		out[0x0F] = 2
		copy(out[0x10:0x930], data)
	case RawXA:
		out[0x0F] = 2
		sub := byte(subModeData)
		if form2 {
			sub = subModeForm2
		}
		copy(out[0x10:0x18], []byte{0, 0, sub, 0, 0, 0, sub, 0})
		if form2 {
			copy(out[0x18:0x92C], data)
		} else {
			copy(out[0x18:0x818], data)
		}
	}
	return out
}

// SyncPattern starts every raw sector
var SyncPattern = []byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00}

// MSF returns the BCD address of lba, including the 150-sector pregap
func MSF(lba uint32) (byte, byte, byte) {
	frames := lba + 150
	toBCD := func(v uint32) byte { return byte((v/10)<<4 | v%10) }
	return toBCD(frames / (60 * 75)), toBCD(frames / 75 % 60), toBCD(frames % 75)
}

func primaryVolumeDescriptor(root *dirNode, totalSectors uint32) []byte {
	pvd := make([]byte, blockSize)
	pvd[0] = 0x01
	copy(pvd[1:6], "CD001")
	pvd[6] = 0x01
	copy(pvd[8:40], padded("PLAYSTATION", 32))
	copy(pvd[40:72], padded("TESTDISC", 32))
	putBoth32(pvd[80:88], totalSectors)
	binary.LittleEndian.PutUint16(pvd[128:130], blockSize)
	binary.BigEndian.PutUint16(pvd[130:132], blockSize)
	copy(pvd[0x9C:0xBE], record([]byte{0x00}, root.lba, root.size, true))
	pvd[881] = 0x01
	return pvd
}

func terminator() []byte {
	t := make([]byte, blockSize)
	t[0] = 0xFF
	copy(t[1:6], "CD001")
	t[6] = 0x01
	return t
}

func padded(s string, n int) []byte {
	b := []byte(strings.Repeat(" ", n))
	copy(b, s)
	return b
}

func putBoth32(b []byte, v uint32) {
	binary.LittleEndian.PutUint32(b[0:4], v)
	binary.BigEndian.PutUint32(b[4:8], v)
}

// record encodes a directory record
func record(name []byte, lba, size uint32, dir bool) []byte {
	length := 33 + len(name)
	if length%2 != 0 {
		length++
	}
	r := make([]byte, length)
	r[0] = byte(length)
	putBoth32(r[2:10], lba)
	putBoth32(r[10:18], size)
	if dir {
		r[25] = 0x02
	}
	binary.LittleEndian.PutUint16(r[28:30], 1)
	binary.BigEndian.PutUint16(r[30:32], 1)
	r[32] = byte(len(name))
	copy(r[33:], name)
	return r
}

// Record exposes the directory record encoder to tests
func Record(name []byte, lba, size uint32, dir bool) []byte {
	return record(name, lba, size, dir)
}

func recordName(item interface{}) ([]byte, bool) {
	switch v := item.(type) {
	case *dirNode:
		return []byte(v.name), true
	case *fileNode:
		return []byte(v.name + ";1"), false
	}
	return nil, false
}

func recordLengths(d *dirNode) []int {
	lengths := []int{34, 34}
	for _, item := range d.order {
		name, _ := recordName(item)
		l := 33 + len(name)
		if l%2 != 0 {
			l++
		}
		lengths = append(lengths, l)
	}
	return lengths
}

// packedBlocks counts the blocks needed when records may not cross a
// block boundary
func packedBlocks(lengths []int) int {
	blocks, used := 1, 0
	for _, l := range lengths {
		if used+l > blockSize {
			blocks++
			used = 0
		}
		used += l
	}
	return blocks
}

func serializeDirectory(d *dirNode) []byte {
	parent := d.parent
	if parent == nil {
		parent = d
	}

	records := [][]byte{
		record([]byte{0x00}, d.lba, d.size, true),
		record([]byte{0x01}, parent.lba, parent.size, true),
	}
	for _, item := range d.order {
		name, isDir := recordName(item)
		if isDir {
			c := item.(*dirNode)
			records = append(records, record(name, c.lba, c.size, true))
		} else {
			f := item.(*fileNode)
			records = append(records, record(name, f.lba, uint32(len(f.file.Data)), false))
		}
	}

	out := make([]byte, d.size)
	off := 0
	for _, r := range records {
		if off%blockSize+len(r) > blockSize {
			off = (off/blockSize + 1) * blockSize
		}
		copy(out[off:], r)
		off += len(r)
	}
	return out
}

// Paths returns the file paths of the image, sorted
func (img *Image) Paths() []string {
	paths := make([]string, 0, len(img.Files))
	for p := range img.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// UserData returns the user data region of physical sector lba, as the
// reference the stream output is compared against
func (img *Image) UserData(layout Layout, lba uint32) []byte {
	if layout == Cooked {
		off := int(lba) * blockSize
		return img.Data[off : off+blockSize]
	}
	s := img.Data[int(lba)*rawSectorSize : int(lba+1)*rawSectorSize]
	switch layout {
	case RawMode1:
		return s[0x10:0x810]
	case RawMode2:
		return s[0x10:0x930]
	}
	if s[0x12]&subModeForm2 != 0 {
		return s[0x18:0x92C]
	}
	return s[0x18:0x818]
}
