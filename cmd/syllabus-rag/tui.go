package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"syllabus-rag/internal/config"
	"syllabus-rag/internal/tui"
)

func NewAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "admin",
		Short: "Open the upload screen",
		Long:  `Interactive screen for uploading a syllabus PDF for a branch and academic year.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, config.RoleAdmin, logToFile)
			if err != nil {
				return err
			}
			defer a.Close()

			ui := a.cfg.App.UI
			m := tui.NewAdmin(cmd.Context(), a.ingester(), ui.Branches, ui.Years)
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}

func NewChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Open the question screen",
		Long:  `Interactive screen for asking questions about an uploaded syllabus.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, config.RoleChat, logToFile)
			if err != nil {
				return err
			}
			defer a.Close()

			m := tui.NewChat(cmd.Context(), a.answerer(), a.registry)
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}
