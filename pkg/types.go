// Package pkg provides the disc image workflows behind the command line:
// inspecting images, dumping their file systems and running extraction plans.
package pkg

import "io"

// ExtractionPlan lists byte ranges to copy out of a disc image. It is
// loaded from YAML.
type ExtractionPlan struct {
	Entries []PlanEntry `yaml:"entries"`
}

// PlanEntry is one range of an extraction plan. A range starts either at
// a file on the disc (Path) or at a raw logical block (LBA).
type PlanEntry struct {
	Path   string `yaml:"path,omitempty"`
	LBA    *int64 `yaml:"lba,omitempty"`
	Offset int64  `yaml:"offset,omitempty"`
	Size   *int64 `yaml:"size,omitempty"`
	Output string `yaml:"output"`
}

// ListingEntry describes one file of a disc listing
type ListingEntry struct {
	ID      string `yaml:"id"`
	Path    string `yaml:"path"`
	LBA     uint32 `yaml:"lba"`
	MSF     string `yaml:"msf"`
	Size    uint32 `yaml:"size"`
	Sectors uint32 `yaml:"sectors"`
}

// Listing is the YAML form of a disc listing
type Listing struct {
	Image    string         `yaml:"image"`
	Geometry string         `yaml:"geometry"`
	Volume   string         `yaml:"volume"`
	Files    []ListingEntry `yaml:"files"`
}

// ExtractionSummary reports what an extraction wrote
type ExtractionSummary struct {
	Files int
	Bytes int64
}

// ImageInspector reports on disc images without writing files
type ImageInspector interface {
	Info(inputFile string, w io.Writer) error
	List(inputFile string, w io.Writer, format string) error
}

// ImageExtractor copies data out of disc images
type ImageExtractor interface {
	Dump(inputFile, outputDir string) (*ExtractionSummary, error)
	Cat(inputFile, path string, w io.Writer) error
	Extract(inputFile string, lba uint32, offset, size int64, outputFile string) error
	RunPlan(inputFile, planFile, outputDir string) (*ExtractionSummary, error)
}

// ImageProcessor combines inspection and extraction
type ImageProcessor interface {
	ImageInspector
	ImageExtractor
}
