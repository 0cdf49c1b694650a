/*
Copyright © 2023 dimas maulana dimasmaulana0305@gmail.com
*/
package cmd

import (
	"os"

	"github.com/dimasma0305/ctfscrape/function/scraper"
	"github.com/spf13/cobra"
)

var ctfdFlag scrapeCmdFlags

// ctfdCmd represents the ctfd command
var ctfdCmd = &cobra.Command{
	Use:   "ctfd [url]",
	Short: "Download ctfd challenges from url",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runScrape(cmd, args, &ctfdFlag, scraper.CTFd))
	},
}

func init() {
	rootCmd.AddCommand(ctfdCmd)
	addScrapeFlags(ctfdCmd, &ctfdFlag)
	ctfdCmd.Flags().StringVarP(&ctfdFlag.username, "username", "s", "", "Username")
	ctfdCmd.Flags().StringVarP(&ctfdFlag.password, "password", "p", "", "Password")
}
