package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/membuf/trace"
)

var replayCmd = &cobra.Command{
	Use:   "replay <trace>",
	Short: "Replay a recorded session and report divergences",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadManifest()
		if err != nil {
			return err
		}
		s, err := trace.ReadFile(args[0])
		if err != nil {
			return err
		}
		report, err := trace.Replay(s, m.VMConfig())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "session %s (%s, recorded %s)\n", s.ID, s.Source, s.Started.Format("2006-01-02 15:04:05"))
		for _, d := range report.Divergences {
			fmt.Fprintf(out, "  %s\n", d)
		}
		fmt.Fprintf(out, "%d calls, %d snapshots, %d divergences\n", report.Calls, report.Snapshots, len(report.Divergences))
		if !report.OK() {
			return fmt.Errorf("replay of %s diverged", args[0])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
}
