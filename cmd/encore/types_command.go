package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTypesCommand(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the import types the daemon accepts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				ImportTypes []string `json:"importTypes"`
			}
			if err := c.getJSON("/api/v1/status", &resp); err != nil {
				return err
			}
			for _, importType := range resp.ImportTypes {
				fmt.Println(importType)
			}
			return nil
		},
	}
}
