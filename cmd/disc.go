// Package cmd provides command-line interface for disc image processing.
// This file contains commands for inspecting disc images and extracting
// files or raw user data ranges from them.
package cmd

import (
	"fmt"
	"strconv"

	"github.com/Nisto/extractors/pkg/common"
	"github.com/spf13/cobra"
)

// discCmd represents the parent command for all disc image operations.
var discCmd = &cobra.Command{
	Use:   "disc",
	Short: "Process CD-ROM, CD-ROM XA and DVD image files",
	Long: `Process optical disc images (.iso, .bin).

Commands:
  info      Show the detected sector geometry and volume details
  ls        List every file of the ISO9660 file system
  dump      Extract every file, keeping the directory structure
  cat       Write one file to standard output
  extract   Copy a raw range of user data starting at a logical block
  plan      Run a YAML extraction plan

Examples:
  extractors disc info game.bin
  extractors disc dump game.bin ./output/`,
}

// discInfoCmd shows geometry and volume details
var discInfoCmd = &cobra.Command{
	Use:   "info [image]",
	Short: "Show geometry and volume details of a disc image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return newProcessor().Info(args[0], cmd.OutOrStdout())
	},
}

// discListCmd lists the files of the image
var discListCmd = &cobra.Command{
	Use:   "ls [image]",
	Short: "List the files of a disc image",
	Long: `List the files of a disc image.

For each file the listing shows:
  - ID (4-digit hex, in directory traversal order)
  - MSF (Minutes:Seconds:Frames)
  - LBA (Logical Block Address)
  - Size in bytes
  - Path within the disc

Example:
  extractors disc ls game.bin
  extractors disc ls --format yaml game.bin > files.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return fmt.Errorf("error getting format flag: %w", err)
		}
		return newProcessor().List(args[0], cmd.OutOrStdout(), format)
	},
}

// discDumpCmd extracts every file of the image
var discDumpCmd = &cobra.Command{
	Use:   "dump [image] [output_directory]",
	Short: "Extract all files from a disc image",
	Long: `Extract all files from a disc image.

The sector layout (cooked, raw or raw CD-ROM XA) is detected automatically,
the ISO9660 directory tree is walked and every file is written below the
output directory, keeping the original directory structure.

Example:
  extractors disc dump game.bin ./output/
  extractors disc dump -v game.bin ./output/`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		inputFile := args[0]
		outputDir := args[1]

		fmt.Fprintf(cmd.OutOrStdout(), "Processing disc image: %s\n", inputFile)
		fmt.Fprintf(cmd.OutOrStdout(), "Output directory: %s\n", outputDir)

		summary, err := newProcessor().Dump(inputFile, outputDir)
		if err != nil {
			return fmt.Errorf("failed to process disc image: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Extracted %d files (%d bytes)\n", summary.Files, summary.Bytes)
		return nil
	},
}

// discCatCmd writes one file to stdout
var discCatCmd = &cobra.Command{
	Use:   "cat [image] [path]",
	Short: "Write a file of a disc image to standard output",
	Long: `Write a file of a disc image to standard output.

The path may be given as "DIR/FILE.BIN", "/DIR/FILE.BIN" or "./DIR/FILE.BIN",
without the ";1" version suffix.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return newProcessor().Cat(args[0], args[1], cmd.OutOrStdout())
	},
}

// discExtractCmd copies a raw user data range
var discExtractCmd = &cobra.Command{
	Use:   "extract [image] [lba] [size] [output_file]",
	Short: "Copy a range of user data starting at a logical block",
	Long: `Copy size bytes of user data starting at a logical block address.

Sector framing is skipped, so the output holds user data only. On CD-ROM XA
images Form 2 sectors contribute 2324 bytes each, Form 1 sectors 2048.
Numbers may be given in decimal or with a 0x prefix.

Example:
  extractors disc extract game.bin 70566 0x800 sd.bin
  extractors disc extract --offset 16 game.bin 24 64 header.bin`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		lba, err := strconv.ParseUint(args[1], 0, 32)
		if err != nil {
			return fmt.Errorf("invalid lba %q: %w", args[1], err)
		}
		size, err := strconv.ParseInt(args[2], 0, 64)
		if err != nil {
			return fmt.Errorf("invalid size %q: %w", args[2], err)
		}
		offset, err := cmd.Flags().GetInt64("offset")
		if err != nil {
			return fmt.Errorf("error getting offset flag: %w", err)
		}

		if err := newProcessor().Extract(args[0], uint32(lba), offset, size, args[3]); err != nil {
			return err
		}
		common.LogInfo(common.InfoFileExtracted, args[3])
		return nil
	},
}

// discPlanCmd runs an extraction plan
var discPlanCmd = &cobra.Command{
	Use:   "plan [image] [plan.yaml] [output_directory]",
	Short: "Extract the ranges listed in a YAML plan",
	Long: `Extract the ranges listed in a YAML extraction plan.

Each entry starts either at a file of the disc (path) or at a logical block
(lba). An optional offset skips bytes of user data, size defaults to the rest
of the file for path entries and is required for lba entries.

Example plan:
  entries:
    - path: /SLPM_620.53
      output: exe/SLPM_620.53
    - path: /DATA/SOUND/WE5.CAT
      offset: 4096
      size: 1024
      output: sound/we5_part.bin
    - lba: 70566
      size: 51200
      output: sound/SD_0000.BD

Example:
  extractors disc plan game.bin plan.yaml ./output/`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := newProcessor().RunPlan(args[0], args[1], args[2])
		if err != nil {
			return fmt.Errorf("failed to run extraction plan: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Extracted %d ranges (%d bytes)\n", summary.Files, summary.Bytes)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(discCmd)

	discCmd.AddCommand(discInfoCmd)
	discCmd.AddCommand(discListCmd)
	discCmd.AddCommand(discDumpCmd)
	discCmd.AddCommand(discCatCmd)
	discCmd.AddCommand(discExtractCmd)
	discCmd.AddCommand(discPlanCmd)

	discListCmd.Flags().StringP("format", "f", "text", "Output format: text or yaml")
	discExtractCmd.Flags().Int64("offset", 0, "Bytes of user data to skip past the start of the block")
}
