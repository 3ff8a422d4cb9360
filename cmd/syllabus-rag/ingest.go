package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"syllabus-rag/internal/config"
	"syllabus-rag/internal/domain"
)

func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file.pdf>",
		Short: "Index a syllabus PDF",
		Long:  `Extract, chunk and embed a syllabus PDF and upload the index for a branch and year.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}
	cmd.Flags().StringP("branch", "b", "", "Branch, e.g. CSE")
	cmd.Flags().StringP("year", "y", "", "Academic year, e.g. 2023-24")
	_ = cmd.MarkFlagRequired("branch")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, config.RoleAdmin, logToStderr)
	if err != nil {
		return err
	}
	defer a.Close()

	target, err := targetFromFlags(cmd)
	if err != nil {
		return err
	}
	ui := a.cfg.App.UI
	if !slices.Contains(ui.Branches, target.Branch) {
		return fmt.Errorf("unknown branch %q (choose one of %s)", target.Branch, strings.Join(ui.Branches, ", "))
	}
	if !slices.Contains(ui.Years, target.Year) {
		return fmt.Errorf("unknown year %q (choose one of %s)", target.Year, strings.Join(ui.Years, ", "))
	}

	res, err := a.ingester().IngestFile(cmd.Context(), args[0], target)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Uploaded & indexed %s: %d chunks under %s\n", res.Target, res.Chunks, res.Prefix)
	if res.Summary != "" {
		fmt.Fprintf(out, "Summary: %s\n", res.Summary)
	}
	return nil
}

func targetFromFlags(cmd *cobra.Command) (domain.Target, error) {
	branch, _ := cmd.Flags().GetString("branch")
	year, _ := cmd.Flags().GetString("year")
	t := domain.Target{Branch: strings.TrimSpace(branch), Year: strings.TrimSpace(year)}
	return t, t.Validate()
}
