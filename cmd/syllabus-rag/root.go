package main

import (
	"github.com/spf13/cobra"
)

func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "syllabus-rag",
		Short: "Ask questions about uploaded syllabus PDFs",
		Long: `Admins upload a syllabus PDF per branch and academic year; it is chunked,
embedded and stored as an index in object storage. Users pick a branch and
year and ask questions answered from that syllabus.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	addPersistentFlags(rootCmd)
	rootCmd.AddCommand(
		NewAdminCmd(),
		NewChatCmd(),
		NewIngestCmd(),
		NewAskCmd(),
		NewRegistryCmd(),
	)
	return rootCmd
}

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "Path to YAML config file (default ./config.yaml or ~/.config/syllabus-rag/config.yaml)")
	cmd.PersistentFlags().String("env-file", ".env", "Environment file holding credentials")
}
