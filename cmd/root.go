package cmd

import (
	"github.com/spf13/cobra"
)

// Version is the release version, overridden at build time with -ldflags.
var Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "hx-warden",
	Short: "Hx-Warden - Passive HTTP Security Scanner",
	Long: `Hx-Warden sits in front of your browser or target as an HTTP proxy and
passively reports insecure headers, cookies, CORS policies, outdated
JavaScript libraries, dangerous DOM sinks and exposed credentials.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
