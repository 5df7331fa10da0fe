package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "transcription-api",
	Short: "Speech to text transcription service",
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}
