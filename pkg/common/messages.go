package common

import (
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Global variable to control debug output
var VerboseMode bool = false

// SetVerboseMode enables or disables verbose/debug output
func SetVerboseMode(verbose bool) {
	VerboseMode = verbose
	if verbose {
		log.SetLevel(log.DebugLevel)
	} else if log.GetLevel() >= log.DebugLevel {
		log.SetLevel(log.InfoLevel)
	}
}

// ConfigureLogging sets up the logrus backend. format is "text" or "json",
// level is any level logrus understands; an empty level keeps the current one.
func ConfigureLogging(out io.Writer, level, format string) error {
	if out != nil {
		log.SetOutput(out)
	}

	switch strings.ToLower(format) {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("invalid log format: '%s'; valid formats are: text, json", format)
	}

	if level != "" {
		l, err := log.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("invalid log level: '%s'; valid levels are: panic, "+
				"fatal, error, warn, info, debug, trace", level)
		}
		log.SetLevel(l)
		VerboseMode = l >= log.DebugLevel
	}

	return nil
}

// Error messages
const (
	ErrFailedToOpenImage        = "failed to open disc image"
	ErrFailedToDetectGeometry   = "failed to detect sector geometry"
	ErrFailedToReadVolume       = "failed to read primary volume descriptor"
	ErrFailedToWalkDirectories  = "failed to walk directory tree"
	ErrFailedToReadPlan         = "failed to read extraction plan"
	ErrFailedToParsePlan        = "failed to parse extraction plan"
	ErrFailedToCreateOutputFile = "failed to create output file"
	ErrFailedToCreateOutputDir  = "failed to create output directory"
	ErrFailedToExtractFile      = "failed to extract file"
	ErrUnsafeOutputPath         = "refusing to write outside of output directory"
)

// Info messages
const (
	InfoImageOpened      = "Opened %s: %s, %d files"
	InfoFileExtracted    = "Extracted: %s"
	InfoExtractionResult = "Extracted %d files (%d bytes) to: %s"
	InfoPlanLoaded       = "Loaded extraction plan with %d entries"
)

// Debug messages
const (
	DebugGeometryProbe   = "Geometry probe %s: %v"
	DebugGeometrySelect  = "Selected geometry: %s"
	DebugDirectoryRead   = "Reading directory %q (LBA: %d, Size: %d)"
	DebugFileRegistered  = "Registered %s (LBA: %d, MSF: %s, Size: %d)"
	DebugXAFormChange    = "Sector %d switched to XA Form %d"
	DebugPlanEntry       = "Plan entry %d: LBA %d, offset %d, size %d -> %s"
	DebugRangeExtraction = "Extracting LBA %d, offset %d, %d bytes"
)

// Warning messages
const (
	WarnUnknownSectorMode = "Raw sector declares mode %d, skipping probe"
	WarnEmptyDirectory    = "Directory %q has no records"
)

// LogInfo logs an informational message
func LogInfo(message string, args ...interface{}) {
	if len(args) > 0 {
		log.Infof(message, args...)
	} else {
		log.Info(message)
	}
}

// LogWarn logs a warning message
func LogWarn(message string, args ...interface{}) {
	if len(args) > 0 {
		log.Warnf(message, args...)
	} else {
		log.Warn(message)
	}
}

// LogError logs an error message
func LogError(message string, args ...interface{}) {
	if len(args) > 0 {
		log.Errorf(message, args...)
	} else {
		log.Error(message)
	}
}

// LogDebug logs a debug message (only if VerboseMode is enabled)
func LogDebug(message string, args ...interface{}) {
	if !VerboseMode {
		return
	}
	if len(args) > 0 {
		log.Debugf(message, args...)
	} else {
		log.Debug(message)
	}
}

// FormatError creates a formatted error with additional context
func FormatError(baseMessage string, details interface{}) error {
	if err, ok := details.(error); ok {
		return fmt.Errorf("%s: %w", baseMessage, err)
	}
	return fmt.Errorf("%s: %v", baseMessage, details)
}
