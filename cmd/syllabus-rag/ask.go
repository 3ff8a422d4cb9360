package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"syllabus-rag/internal/config"
)

func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from a syllabus",
		Long:  `Retrieve the matching syllabus chunks for a branch and year and answer the question from them.`,
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}
	cmd.Flags().StringP("branch", "b", "", "Branch, e.g. CSE")
	cmd.Flags().StringP("year", "y", "", "Academic year, e.g. 2023-24")
	cmd.Flags().Bool("sources", false, "Print the retrieved chunks")
	_ = cmd.MarkFlagRequired("branch")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	target, err := targetFromFlags(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cmd, config.RoleChat, logToStderr)
	if err != nil {
		return err
	}
	defer a.Close()

	ans, err := a.answerer().Ask(cmd.Context(), target, strings.Join(args, " "))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ans.Text)
	if showSources, _ := cmd.Flags().GetBool("sources"); showSources {
		for i, r := range ans.Sources {
			fmt.Fprintf(out, "\n[%d] chunk %d  score=%.4f\n%s\n", i+1, r.Chunk.Index, r.Score, r.Chunk.Text)
		}
	}
	return nil
}
