// Package cmd provides command-line interface functionality for extractors.
// extractors reads files out of CD-ROM, CD-ROM XA and DVD images, whatever
// sector framing the image was captured with.
package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/Nisto/extractors/pkg"
	"github.com/Nisto/extractors/pkg/common"
	"github.com/Nisto/extractors/pkg/disc"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	configErr error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "extractors",
	Short: "Extract files from optical disc images",
	Long: `extractors - read files out of CD-ROM, CD-ROM XA and DVD images.

Cooked (.iso, 2048-byte sectors), raw (.bin, 2352-byte Mode 1/Mode 2 sectors)
and raw CD-ROM XA images mixing Form 1 and Form 2 sectors are detected
automatically.

Examples:
  extractors disc info game.bin
  extractors disc ls --format yaml game.bin
  extractors disc dump game.bin ./output/
  extractors disc cat game.bin /SLPM_620.53 > exe.elf
  extractors disc extract --offset 4 game.bin 70566 2048 sd.bin
  extractors disc plan game.bin plan.yaml ./output/

Settings can also be given in extractors.yaml or as EXTRACTORS_* environment
variables (e.g. EXTRACTORS_CHARSET=shift-jis).

Use 'extractors [command] --help' for more information about a command.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configErr != nil {
			return configErr
		}
		if err := common.ConfigureLogging(os.Stderr, viper.GetString("log-level"), viper.GetString("log-format")); err != nil {
			return err
		}
		if viper.GetBool("verbose") {
			common.SetVerboseMode(true)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main() and serves as the entry point for command execution.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./extractors.yaml or ~/.config/extractors/extractors.yaml)")
	flags.BoolP("verbose", "v", false, "Enable verbose output (show debug messages)")
	flags.String("log-level", "", "log level: panic, fatal, error, warn, info, debug, trace")
	flags.String("log-format", "text", "log format: text or json")
	flags.String("charset", "ascii", "charset of file identifiers: "+strings.Join(common.CharsetNames(), ", "))

	// every setting except the config path itself can come from the config file
	flags.VisitAll(func(flag *pflag.Flag) {
		if flag.Name == "config" {
			return
		}
		if err := viper.BindPFlag(flag.Name, flag); err != nil {
			panic(err)
		}
	})
}

// initConfig reads the config file and environment variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("extractors")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "extractors"))
		}
	}

	viper.SetEnvPrefix("EXTRACTORS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			configErr = err
		}
	}
}

// newProcessor creates a disc processor from the current settings
func newProcessor() *pkg.DiscProcessor {
	return pkg.NewDiscProcessor(disc.Options{Charset: viper.GetString("charset")})
}
