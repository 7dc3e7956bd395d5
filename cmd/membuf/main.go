// membuf CLI - runs MemBuf scripts, replays recorded sessions and lists
// the MemBuf method and error tables.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/membuf/manifest"
)

var (
	rootVerbose int
	rootConfig  string
)

var rootCmd = &cobra.Command{
	Use:   "membuf",
	Short: "Run and replay MemBuf scripts",
	Long: `membuf drives the MemBuf byte buffer type of the embedded VM from
small scripts. Engine settings come from membuf.toml, found by walking up
from the current directory unless --config names a file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadManifest()
		if err != nil {
			return err
		}
		verbosity := m.Log.Verbosity
		if cmd.Flags().Changed("verbose") {
			verbosity = rootVerbose
		}
		commonlog.Configure(verbosity, m.LogPath())
		return nil
	},
}

// loadManifest returns the configuration named by --config, the nearest
// membuf.toml, or the defaults.
func loadManifest() (*manifest.Manifest, error) {
	if rootConfig != "" {
		return manifest.LoadFile(rootConfig)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	m, err := manifest.FindAndLoad(wd)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = manifest.Default()
	}
	return m, nil
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&rootVerbose, "verbose", "v", "increase log verbosity (repeatable)")
	rootCmd.PersistentFlags().StringVar(&rootConfig, "config", "", "path to a membuf.toml file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
