package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <path>",
	Short: "Create a remote directory, including missing parents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer func() { _ = c.Quit() }()

		if err := c.MakeDir(args[0]); err != nil {
			return fmt.Errorf("mkdir %s: %w", args[0], err)
		}
		return nil
	},
}
