package main

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "chainviz",
		Short: "Explore blockchain address graphs with a live force layout",
		Long: `chainviz starts from a seed subgraph and merges more of the address graph
each time an expandable node is clicked. Nodes are placed by a force
simulation that reheats whenever the graph grows.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCmd(opts),
		newTUICmd(opts),
		newLayoutCmd(opts),
	)
	return cmd
}
