package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"wbgrab/internal/preflight"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Report the availability of external tools and directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			rows := make([][]string, 0, 4)
			for _, status := range preflight.SystemDeps(cfg) {
				state := "missing"
				if status.Available {
					state = "ok"
				} else if status.Optional {
					state = "missing (optional)"
				}
				detail := status.Detail
				if detail == "" {
					detail = status.Command
				}
				rows = append(rows, []string{status.Name, state, detail, status.Description})
			}
			fmt.Fprintln(out, renderTable([]string{"Tool", "State", "Detail", "Purpose"}, rows))

			dirRows := [][]string{
				directoryRow("Workspace", cfg.Paths.WorkspaceDir),
				directoryRow("Downloads", cfg.Paths.DownloadsDir),
			}
			fmt.Fprintln(out, renderTable([]string{"Directory", "State", "Detail"}, dirRows))
			return nil
		},
	}
}

func directoryRow(name, path string) []string {
	result := preflight.CheckDirectoryAccess(name, path)
	state := "error"
	if result.Passed {
		state = "ok"
	}
	return []string{name, state, result.Detail}
}
