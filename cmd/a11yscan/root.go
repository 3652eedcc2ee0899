package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for a11yscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "a11yscan",
		Short: "Accessibility compliance scanner for Israeli websites",
		Long: `a11yscan checks web pages against IS 5568 or WCAG 2.2 AA.

Each scan combines an automated rule engine with interactive checks
(keyboard reachability, skip links, focus visibility, form error handling
and the accessibility statement), scores the page from 0 to 100, and
classifies the legal exposure from LOW to CRITICAL.

Automated testing covers about 75% of the requirements. The remaining 25%
needs a manual audit.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .a11yscan in current or home directory)")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
