/*
Copyright © 2023 dimas maulana dimasmaulana0305@gmail.com
*/
package cmd

import (
	"os"

	"github.com/dimasma0305/ctfscrape/function/log"
	"github.com/dimasma0305/ctfscrape/function/manifest"
	"github.com/spf13/cobra"
)

var version = "1.0.0"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "ctfscrape",
	Version: version,
	Short:   "Download CTF challenges and their files from various platforms.",
	Long: `ctfscrape fetches challenge descriptions and attachments from CTFd, picoCTF, rCTF,
Mellivora and plain html challenge pages, and lays them out as category/challenge folders.
Interrupted runs resume where they stopped.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Enable debug mode if flag is set
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			log.SetDebugMode(true)
			log.Debug("Debug mode enabled")
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(exitFailure)
	}
}

func init() {
	manifest.Version = version
	// Add debug flag to root command
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
}
