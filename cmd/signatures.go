package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nxneeraj/hx-warden/pkg/output"
	"github.com/nxneeraj/hx-warden/pkg/signatures"
)

var signaturesCmd = &cobra.Command{
	Use:   "signatures",
	Short: "List the known JavaScript library signatures",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printSignatures(cmd.OutOrStdout(), signatures.Default())
	},
}

func init() {
	rootCmd.AddCommand(signaturesCmd)
}

func printSignatures(w io.Writer, table *signatures.Table) {
	for _, sig := range table.All() {
		fmt.Fprintf(w, "%-12s %-14s latest %-8s %s\n",
			output.ColorCyan(sig.Key), sig.Name, sig.LatestVersion, sig.AdvisoryURL)
	}
	fmt.Fprintf(w, "%d signatures\n", table.Len())
}
