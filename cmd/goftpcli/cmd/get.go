package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <remote> <local>",
	Short: "Download a remote file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer func() { _ = c.Quit() }()

		if err := c.RetrieveTo(args[0], args[1]); err != nil {
			return fmt.Errorf("get %s: %w", args[0], err)
		}
		return nil
	},
}
