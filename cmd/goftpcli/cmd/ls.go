package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a remote directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}

		c, err := dial()
		if err != nil {
			return err
		}
		defer func() { _ = c.Quit() }()

		entries, err := c.List(dir)
		if err != nil {
			return fmt.Errorf("list %s: %w", dir, err)
		}

		for _, e := range entries {
			fmt.Printf("%-4s %10d %s\n", e.Type, e.Size, e.Name)
		}
		return nil
	},
}
