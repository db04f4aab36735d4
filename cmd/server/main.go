// Command server runs the configuration API for a file-driven reverse proxy and
// offers offline validate and backup commands against the same configuration tree.
//
// Usage:
//
//	proxy-config-guard serve
//	proxy-config-guard validate --dir /etc/proxy/dynamic
//	proxy-config-guard backup list
//	proxy-config-guard backup restore 20250101T120000.000000000Z
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"proxy-config-guard/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "proxy-config-guard",
	Short: "Validated, audited, reversible edits to reverse-proxy dynamic configuration",
	Long: `proxy-config-guard owns the dynamic configuration directory of a file-watching
reverse proxy. Every change is validated, throttled per actor, preceded by a
snapshot of the whole tree, written atomically and audited.

Configuration is read from the environment and an optional .env file.`,
	Version:       config.AppVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
