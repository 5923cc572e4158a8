package pkg

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/Nisto/extractors/pkg/common"
	"github.com/Nisto/extractors/pkg/disc"
	"gopkg.in/yaml.v3"
)

// DiscProcessor implements ImageProcessor on top of the disc package
type DiscProcessor struct {
	Options disc.Options
}

// NewDiscProcessor creates a processor opening images with opts
func NewDiscProcessor(opts disc.Options) *DiscProcessor {
	return &DiscProcessor{Options: opts}
}

var _ ImageProcessor = (*DiscProcessor)(nil)

func (p *DiscProcessor) open(inputFile string) (*disc.Image, error) {
	img, err := disc.OpenWithOptions(inputFile, p.Options)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", common.ErrFailedToOpenImage, inputFile, err)
	}
	common.LogDebug(common.InfoImageOpened, inputFile, img.Geometry(), len(img.Files()))
	return img, nil
}

// Info writes the geometry and volume details of an image
func (p *DiscProcessor) Info(inputFile string, w io.Writer) error {
	img, err := p.open(inputFile)
	if err != nil {
		return err
	}
	defer img.Close()

	volume := img.Volume()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Image:\t%s\n", inputFile)
	fmt.Fprintf(tw, "Image size:\t%d bytes\n", img.Size())
	fmt.Fprintf(tw, "Geometry:\t%s\n", img.Geometry())
	fmt.Fprintf(tw, "System ID:\t%s\n", volume.SystemID)
	fmt.Fprintf(tw, "Volume ID:\t%s\n", volume.VolumeID)
	fmt.Fprintf(tw, "Volume size:\t%d blocks\n", volume.VolumeSpaceSize)
	fmt.Fprintf(tw, "Block size:\t%d bytes\n", volume.LogicalBlockSize)
	fmt.Fprintf(tw, "Root directory:\tLBA %d, %d bytes\n", volume.Root.LBA, volume.Root.Size)
	fmt.Fprintf(tw, "Files:\t%d\n", len(img.Files()))
	return tw.Flush()
}

// List writes every file of the image. format is "text" or "yaml".
func (p *DiscProcessor) List(inputFile string, w io.Writer, format string) error {
	img, err := p.open(inputFile)
	if err != nil {
		return err
	}
	defer img.Close()

	listing := buildListing(inputFile, img)

	switch strings.ToLower(format) {
	case "", "text":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tMSF\tLBA\tSIZE\tPATH")
		for _, f := range listing.Files {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", f.ID, f.MSF, f.LBA, f.Size, f.Path)
		}
		return tw.Flush()

	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(listing); err != nil {
			return fmt.Errorf("failed to encode listing: %w", err)
		}
		return encoder.Close()

	default:
		return fmt.Errorf("unsupported listing format %q; valid formats are: text, yaml", format)
	}
}

func buildListing(inputFile string, img *disc.Image) Listing {
	files := img.Files()
	listing := Listing{
		Image:    filepath.Base(inputFile),
		Geometry: img.Geometry().String(),
		Volume:   img.Volume().VolumeID,
		Files:    make([]ListingEntry, 0, len(files)),
	}
	for i, f := range files {
		listing.Files = append(listing.Files, ListingEntry{
			ID:      fmt.Sprintf("%04X", i),
			Path:    "/" + f.Path,
			LBA:     f.Record.LBA,
			MSF:     common.LBAToMSF(f.Record.LBA),
			Size:    f.Record.Size,
			Sectors: common.GetSizeInSectors(f.Record.Size),
		})
	}
	return listing
}

// Dump extracts every file of the image below outputDir, keeping the
// directory structure of the disc
func (p *DiscProcessor) Dump(inputFile, outputDir string) (*ExtractionSummary, error) {
	img, err := p.open(inputFile)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	summary := &ExtractionSummary{}
	for _, f := range img.Files() {
		outputPath, err := safeOutputPath(outputDir, f.Path)
		if err != nil {
			return summary, err
		}
		if err := img.ExtractToFile(f.Record.LBA, int64(f.Record.Size), outputPath); err != nil {
			return summary, err
		}
		common.LogDebug(common.InfoFileExtracted, f.Path)
		summary.Files++
		summary.Bytes += int64(f.Record.Size)
	}

	common.LogInfo(common.InfoExtractionResult, summary.Files, summary.Bytes, outputDir)
	return summary, nil
}

// Cat writes the contents of one file to w
func (p *DiscProcessor) Cat(inputFile, path string, w io.Writer) error {
	img, err := p.open(inputFile)
	if err != nil {
		return err
	}
	defer img.Close()

	record, err := img.Resolve(path)
	if err != nil {
		return err
	}
	return img.ExtractRange(record.LBA, int64(record.Size), w)
}

// Extract copies a raw range of user data to outputFile
func (p *DiscProcessor) Extract(inputFile string, lba uint32, offset, size int64, outputFile string) error {
	img, err := p.open(inputFile)
	if err != nil {
		return err
	}
	defer img.Close()

	return img.ExtractRangeToFile(lba, offset, size, outputFile)
}

// safeOutputPath joins a disc path below outputDir, rejecting components
// that could escape it or cannot be created
func safeOutputPath(outputDir, discPath string) (string, error) {
	parts := strings.Split(strings.TrimPrefix(strings.TrimPrefix(discPath, "./"), "/"), "/")
	for _, part := range parts {
		if !common.IsValidFileName(part) {
			return "", fmt.Errorf("%s: %q", common.ErrUnsafeOutputPath, discPath)
		}
	}
	return filepath.Join(append([]string{outputDir}, parts...)...), nil
}
