package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simobern/base"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of base",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "base version %s\n", strings.TrimSpace(base.Version))
			return err
		},
	}
}
