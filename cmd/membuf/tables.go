package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chazu/membuf/vm"
)

var methodsCmd = &cobra.Command{
	Use:   "methods",
	Short: "List MemBuf methods with their IDs and arities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		machine := vm.NewVM()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tMETHOD\tARGS")
		for _, m := range machine.MemBuf.Methods() {
			fmt.Fprintf(w, "%d\t%s\t%d\n", m.ID, m.Name, m.Arity)
		}
		return w.Flush()
	},
}

var errorsCmd = &cobra.Command{
	Use:   "errors",
	Short: "List the MemBuf error catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "%s\n", vm.MemBufErrors.Path)
		for ord := 0; ord < vm.MemBufErrors.Len(); ord++ {
			fmt.Fprintf(w, "%d\t%s\t%s\n", ord, vm.MemBufErrors.Name(ord), vm.MemBufErrors.Template(ord))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(methodsCmd)
	rootCmd.AddCommand(errorsCmd)
}
