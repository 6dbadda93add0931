package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rmdirCmd = &cobra.Command{
	Use:   "rmdir <path>",
	Short: "Remove a remote directory, recursively if it is not empty",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer func() { _ = c.Quit() }()

		if err := c.RemoveDir(args[0]); err != nil {
			return fmt.Errorf("rmdir %s: %w", args[0], err)
		}
		return nil
	},
}
