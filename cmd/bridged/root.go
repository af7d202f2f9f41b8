// Command bridged runs the CDP relay, Tab Controller, and Site Adapter
// Framework behind a small cobra CLI (grounded on the teacher's
// cmd/nebo/root.go).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bridged",
		Short: "Relay browser automation requests to site adapters over CDP",
		Long: `bridged exposes a CDP relay and a Tab Controller so an external
caller can open a tab on a supported AI chat site, submit a prompt, and read
back the page once the response settles.`,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a bridge.yaml config file")

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(profilesCmd())
	cmd.AddCommand(doctorCmd())
	return cmd
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
