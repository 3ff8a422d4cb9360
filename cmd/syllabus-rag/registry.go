package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"syllabus-rag/internal/config"
)

func NewRegistryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "List the uploaded branches and years",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, config.RoleRegistry, logToStderr)
			if err != nil {
				return err
			}
			defer a.Close()

			reg, err := a.registry.Fetch(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch registry: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				data, err := reg.Encode()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			if len(reg.Branches()) == 0 {
				fmt.Fprintln(out, "No syllabus has been uploaded yet.")
				return nil
			}
			for _, b := range reg.Branches() {
				years := reg.Years(b)
				if len(years) == 0 {
					fmt.Fprintf(out, "%s: (none)\n", b)
					continue
				}
				fmt.Fprintf(out, "%s: %s\n", b, strings.Join(years, ", "))
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print the raw registry document")
	return cmd
}
