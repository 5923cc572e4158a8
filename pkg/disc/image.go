package disc

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Nisto/extractors/pkg/common"
)

// ExtractChunkSize bounds each read of ExtractRange. It never exceeds one
// logical block so Form changes on XA images are picked up per chunk.
const ExtractChunkSize = common.LogicalBlockSize

// Options tune how an image is opened
type Options struct {
	// Charset used to decode file identifiers, see common.IdentifierDecoder.
	Charset string
}

// Image is an opened disc image: its geometry, its volume descriptor, the
// file table and the stream used for extraction.
type Image struct {
	closer io.Closer
	stream *Stream
	volume PrimaryVolumeDescriptor
	table  *PathTable
	size   int64
}

// Open opens a disc image file, detects its geometry and reads the whole
// directory tree
func Open(filename string) (*Image, error) {
	return OpenWithOptions(filename, Options{})
}

// OpenWithOptions is Open with explicit options
func OpenWithOptions(filename string, opts Options) (*Image, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, &IOError{Op: "open " + filename, Err: err}
	}

	fileInfo, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, &IOError{Op: "stat " + filename, Err: err}
	}

	img, err := NewImage(file, fileInfo.Size(), opts)
	if err != nil {
		file.Close()
		return nil, err
	}
	img.closer = file

	return img, nil
}

// NewImage reads an image from r. size bounds the directory extents read
// while walking; when it is 0 it is taken from r if r has a Size method.
func NewImage(r io.ReaderAt, size int64, opts Options) (*Image, error) {
	if sized, ok := r.(interface{ Size() int64 }); ok && size <= 0 {
		size = sized.Size()
	}

	decode, err := common.IdentifierDecoder(opts.Charset)
	if err != nil {
		return nil, err
	}

	geometry, err := DetectGeometry(r)
	if err != nil {
		return nil, common.FormatError(common.ErrFailedToDetectGeometry, err)
	}

	stream := NewStream(r, geometry)
	if err := stream.Seek(VolumeDescriptorLBA, 0); err != nil {
		return nil, common.FormatError(common.ErrFailedToReadVolume, err)
	}
	buf, err := stream.ReadUserData(pvdSize)
	if err != nil {
		return nil, common.FormatError(common.ErrFailedToReadVolume, err)
	}
	volume, err := DecodePrimaryVolumeDescriptor(buf)
	if err != nil {
		return nil, common.FormatError(common.ErrFailedToReadVolume, err)
	}

	entries, err := NewWalker(stream, decode, size).Walk(volume.Root)
	if err != nil {
		return nil, common.FormatError(common.ErrFailedToWalkDirectories, err)
	}

	table := NewPathTable()
	table.Merge(entries)

	return &Image{
		stream: stream,
		volume: volume,
		table:  table,
		size:   size,
	}, nil
}

// Close releases the underlying file
func (img *Image) Close() error {
	if img.closer != nil {
		return img.closer.Close()
	}
	return nil
}

// Geometry returns the detected sector layout
func (img *Image) Geometry() Geometry {
	return img.stream.Geometry()
}

// Volume returns the Primary Volume Descriptor
func (img *Image) Volume() PrimaryVolumeDescriptor {
	return img.volume
}

// Size returns the size of the image in bytes, if known
func (img *Image) Size() int64 {
	return img.size
}

// Stream returns the image's user data cursor for callers reading at fixed
// sector offsets. It is shared with the extraction methods.
func (img *Image) Stream() *Stream {
	return img.stream
}

// Files returns every file in directory traversal order
func (img *Image) Files() []Entry {
	return img.table.Entries()
}

// Resolve looks up a file by path. "a/b", "/a/b" and "./a/b" are accepted.
func (img *Image) Resolve(path string) (DirectoryRecord, error) {
	return img.table.Resolve(path)
}

// ReadFile returns the contents of the file at path
func (img *Image) ReadFile(path string) ([]byte, error) {
	record, err := img.Resolve(path)
	if err != nil {
		return nil, err
	}
	if err := img.stream.Seek(int64(record.LBA), 0); err != nil {
		return nil, err
	}
	size, err := common.SafeInt64ToInt(int64(record.Size))
	if err != nil {
		return nil, err
	}
	return img.stream.ReadUserData(size)
}

// ExtractRange copies size bytes of user data starting at lba to w
func (img *Image) ExtractRange(lba uint32, size int64, w io.Writer) error {
	return img.ExtractRangeAt(lba, 0, size, w)
}

// ExtractRangeAt copies size bytes of user data starting offset bytes into
// lba to w, in chunks of at most ExtractChunkSize.
func (img *Image) ExtractRangeAt(lba uint32, offset, size int64, w io.Writer) error {
	if size < 0 {
		return fmt.Errorf("invalid extraction size %d", size)
	}
	common.LogDebug(common.DebugRangeExtraction, lba, offset, size)

	if err := img.stream.Seek(int64(lba), offset); err != nil {
		return err
	}

	buf := make([]byte, ExtractChunkSize)
	written := int64(0)
	for written < size {
		chunk := int64(len(buf))
		if remaining := size - written; remaining < chunk {
			chunk = remaining
		}

		n, err := img.stream.readInto(buf[:chunk])
		if err != nil {
			return err
		}
		if _, err := w.Write(buf[:n]); err != nil {
			return &IOError{Op: "write extracted data", Offset: written, Err: err}
		}
		written += int64(n)
	}

	return nil
}

// ExtractToFile writes size bytes starting at lba to outputPath, creating
// its parent directory. A size of 0 produces an empty file.
func (img *Image) ExtractToFile(lba uint32, size int64, outputPath string) error {
	return img.ExtractRangeToFile(lba, 0, size, outputPath)
}

// ExtractRangeToFile is ExtractToFile starting offset bytes into lba. The
// output file is removed if extraction fails.
func (img *Image) ExtractRangeToFile(lba uint32, offset, size int64, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("%s %s: %w", common.ErrFailedToCreateOutputDir, dir, err)
	}

	outFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("%s %s: %w", common.ErrFailedToCreateOutputFile, outputPath, err)
	}

	if err := img.ExtractRangeAt(lba, offset, size, outFile); err != nil {
		outFile.Close()
		os.Remove(outputPath)
		return fmt.Errorf("%s %s: %w", common.ErrFailedToExtractFile, outputPath, err)
	}

	if err := outFile.Close(); err != nil {
		return &IOError{Op: "close " + outputPath, Err: err}
	}
	return nil
}
