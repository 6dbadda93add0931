package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var putCmd = &cobra.Command{
	Use:   "put <local> <remote>",
	Short: "Upload a local file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer func() { _ = c.Quit() }()

		if err := c.StoreFrom(args[1], args[0]); err != nil {
			return fmt.Errorf("put %s: %w", args[0], err)
		}
		return nil
	},
}
