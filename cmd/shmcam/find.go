package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gosuda.org/shmcam"
)

var findCmd = &cobra.Command{
	Use:   "find <device>",
	Short: "Print the channel id of a registered device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := shmcam.NewLocator(deviceRegistry()).Find(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}
