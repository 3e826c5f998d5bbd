package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// laser-admin is a minimal administrative CLI: spec.md §6 names it only as
// an external interface ("lists services, creates placeholder config,
// prints tables"), not a behavior to implement in full, so it talks to no
// running node and simply demonstrates the exit-code contract (0 success,
// 1 failure).
func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "laser-admin",
	Short: "Minimal administrative CLI for a Laser cluster",
}

func init() {
	rootCmd.AddCommand(servicesCmd)
	rootCmd.AddCommand(initConfigCmd)
}

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List the (database, table) shards this admin CLI knows about",
	RunE: func(cmd *cobra.Command, args []string) error {
		// No control-plane connection is in scope; this prints the static
		// placeholder shard list a real deployment would instead fetch.
		rows := [][2]string{{"app_db", "default"}}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DATABASE\tTABLE")
		for _, row := range rows {
			fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
		}
		return w.Flush()
	},
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config PATH",
	Short: "Write a placeholder TableConfigList YAML fixture to PATH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		placeholder := map[string]interface{}{
			"version": 1,
			"tables": map[string]interface{}{
				"default": map[string]interface{}{
					"table": "default",
					"engine_options": map[string]interface{}{
						"block_cache_gb":        1,
						"write_buffer_gb":       1,
						"shard_bits":            4,
						"high_pri_pool_ratio":   0.1,
						"strict_capacity_limit": false,
					},
				},
			},
		}
		data, err := yaml.Marshal(placeholder)
		if err != nil {
			return fmt.Errorf("marshal placeholder config: %w", err)
		}
		if err := os.WriteFile(args[0], data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", args[0], err)
		}
		fmt.Printf("wrote placeholder config to %s\n", args[0])
		return nil
	},
}
