package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"gosuda.org/shmcam/internal/registry"
)

var registerCmd = &cobra.Command{
	Use:   "register <id> <name>",
	Short: "Register a device name for a channel in the device file",
	Long: `Register writes a device name into the YAML device file that stands in
for the system registry on hosts without one.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid channel id %q: %w", args[0], err)
		}
		path := cfg.Registry
		if path == "" {
			path = registry.DefaultFilePath()
		}
		if err := (registry.File{Path: path}).Register(id, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %q (%s)\n", registry.Key(id), args[1], path)
		return nil
	},
}
