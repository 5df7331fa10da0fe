package main

import (
	"fmt"

	"github.com/kubev2v/transcription-api/pkg/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		v := version.Get()
		if v.GitCommit != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", v.ServiceName, v.GitVersion, v.GitCommit)
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", v.ServiceName, v.GitVersion)
	},
}
