package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazu/membuf/script"
	"github.com/chazu/membuf/trace"
	"github.com/chazu/membuf/vm"
)

var (
	runTrace    string
	runCompress bool
)

var runCmd = &cobra.Command{
	Use:   "run <file.mbs>",
	Short: "Run a MemBuf script",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadManifest()
		if err != nil {
			return err
		}
		filename := args[0]
		source, err := os.ReadFile(filename)
		if err != nil {
			return err
		}

		machine := vm.NewVMWithConfig(m.VMConfig())
		runner := script.NewRunner(machine, cmd.OutOrStdout())

		tracePath := runTrace
		compress := runCompress
		if tracePath == "" {
			tracePath = m.TracePath()
			compress = compress || m.Trace.Compress
		}
		var rec *trace.Recorder
		if tracePath != "" {
			rec = trace.NewRecorder(machine, filename)
			runner.Record(rec)
		}

		stats, runErr := runner.RunSource(filename, string(source))
		if rec != nil {
			runner.Finish(strings.Count(string(source), "\n") + 1)
			if err := trace.WriteFile(tracePath, rec.Session(), compress); err != nil {
				return fmt.Errorf("writing trace: %w", err)
			}
		}
		if runErr != nil {
			return fmt.Errorf("%s: %w", filename, runErr)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d statements, %d calls, %d expectations passed\n",
			filename, stats.Statements, stats.Calls, stats.Expectations)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runTrace, "trace", "", "record the session to this file")
	runCmd.Flags().BoolVar(&runCompress, "compress", false, "zstd compress the recorded session")
	rootCmd.AddCommand(runCmd)
}
