package pkg

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Nisto/extractors/pkg/common"
	"github.com/Nisto/extractors/pkg/disc"
	"gopkg.in/yaml.v3"
)

// plannedRange is a plan entry resolved against an image
type plannedRange struct {
	lba    uint32
	offset int64
	size   int64
	output string
}

// LoadPlan decodes an extraction plan and checks each entry on its own.
// Paths are only resolved once the plan runs against an image.
func LoadPlan(reader io.Reader) (*ExtractionPlan, error) {
	var plan ExtractionPlan

	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)
	if err := decoder.Decode(&plan); err != nil && !errors.Is(err, io.EOF) {
		return nil, common.FormatError(common.ErrFailedToParsePlan, err)
	}

	for i, entry := range plan.Entries {
		if err := entry.validate(); err != nil {
			return nil, fmt.Errorf("%s: entry %d: %w", common.ErrFailedToParsePlan, i, err)
		}
	}

	return &plan, nil
}

// LoadPlanFile reads a plan from disk
func LoadPlanFile(planFile string) (*ExtractionPlan, error) {
	file, err := os.Open(planFile)
	if err != nil {
		return nil, common.FormatError(common.ErrFailedToReadPlan, err)
	}
	defer file.Close()

	return LoadPlan(file)
}

func (e PlanEntry) validate() error {
	if e.Output == "" {
		return fmt.Errorf("missing output")
	}
	if (e.Path == "") == (e.LBA == nil) {
		return fmt.Errorf("exactly one of path and lba is required")
	}
	if e.LBA != nil {
		if _, err := common.SafeInt64ToUint32(*e.LBA); err != nil {
			return fmt.Errorf("invalid lba: %w", err)
		}
		if e.Size == nil {
			return fmt.Errorf("size is required with lba")
		}
	}
	if e.Offset < 0 {
		return fmt.Errorf("negative offset %d", e.Offset)
	}
	if e.Size != nil && *e.Size < 0 {
		return fmt.Errorf("negative size %d", *e.Size)
	}
	return nil
}

// resolve turns an entry into a range of the image. Entries naming a path
// default to the rest of the file past Offset.
func (e PlanEntry) resolve(img *disc.Image) (plannedRange, error) {
	r := plannedRange{offset: e.Offset, output: e.Output}

	if e.LBA != nil {
		lba, err := common.SafeInt64ToUint32(*e.LBA)
		if err != nil {
			return r, err
		}
		r.lba = lba
		r.size = *e.Size
		return r, nil
	}

	record, err := img.Resolve(e.Path)
	if err != nil {
		return r, err
	}
	fileSize := int64(record.Size)
	if e.Offset > fileSize {
		return r, fmt.Errorf("offset %d past the end of %s (%d bytes)", e.Offset, e.Path, fileSize)
	}

	r.lba = record.LBA
	r.size = fileSize - e.Offset
	if e.Size != nil {
		if *e.Size > fileSize-e.Offset {
			return r, fmt.Errorf("range %d+%d past the end of %s (%d bytes)", e.Offset, *e.Size, e.Path, fileSize)
		}
		r.size = *e.Size
	}
	return r, nil
}

// RunPlan extracts every entry of planFile from inputFile below outputDir.
// All entries are resolved before anything is written.
func (p *DiscProcessor) RunPlan(inputFile, planFile, outputDir string) (*ExtractionSummary, error) {
	plan, err := LoadPlanFile(planFile)
	if err != nil {
		return nil, err
	}
	common.LogInfo(common.InfoPlanLoaded, len(plan.Entries))

	img, err := p.open(inputFile)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	return runPlan(img, plan, outputDir)
}

func runPlan(img *disc.Image, plan *ExtractionPlan, outputDir string) (*ExtractionSummary, error) {
	ranges := make([]plannedRange, 0, len(plan.Entries))
	for i, entry := range plan.Entries {
		r, err := entry.resolve(img)
		if err != nil {
			return nil, fmt.Errorf("plan entry %d: %w", i, err)
		}
		outputPath, err := safeOutputPath(outputDir, r.output)
		if err != nil {
			return nil, fmt.Errorf("plan entry %d: %w", i, err)
		}
		r.output = outputPath
		ranges = append(ranges, r)
	}

	summary := &ExtractionSummary{}
	for i, r := range ranges {
		common.LogDebug(common.DebugPlanEntry, i, r.lba, r.offset, r.size, r.output)
		if err := img.ExtractRangeToFile(r.lba, r.offset, r.size, r.output); err != nil {
			return summary, fmt.Errorf("plan entry %d: %w", i, err)
		}
		summary.Files++
		summary.Bytes += r.size
	}

	common.LogInfo(common.InfoExtractionResult, summary.Files, summary.Bytes, outputDir)
	return summary, nil
}
