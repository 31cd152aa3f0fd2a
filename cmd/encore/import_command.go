package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type submitResponse struct {
	ImportID string `json:"importID"`
	PollURL  string `json:"pollURL"`
}

func newImportCommand(c *client) *cobra.Command {
	var importType string
	var playtype string
	var direct bool
	var wait bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Submit a score file to the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp submitResponse
			if direct {
				body, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				if err := c.postJSON("/api/v1/import/direct", body, &resp); err != nil {
					return err
				}
			} else {
				if importType == "" {
					return fmt.Errorf("--type is required for file imports")
				}
				if err := c.uploadFile("/api/v1/import/file", args[0], importType, playtype, &resp); err != nil {
					return err
				}
			}

			fmt.Printf("import submitted: %s\n", resp.ImportID)
			if !wait {
				fmt.Printf("poll with: encore status %s\n", resp.ImportID)
				return nil
			}
			return pollUntilDone(c, resp.ImportID, 2*time.Second)
		},
	}

	cmd.Flags().StringVarP(&importType, "type", "t", "", "Import type (e.g. file/batch-manual)")
	cmd.Flags().StringVarP(&playtype, "playtype", "p", "", "Playtype for formats that need one (e.g. SP)")
	cmd.Flags().BoolVar(&direct, "direct", false, "Send the file body to the direct batch-manual endpoint")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Poll until the import finishes")

	return cmd
}
