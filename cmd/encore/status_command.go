package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// pollResponse mirrors the daemon's poll surface.
type pollResponse struct {
	Status     string          `json:"status"`
	Done       int             `json:"done"`
	Total      int             `json:"total"`
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Import     *importDocument `json:"import"`
}

func newStatusCommand(c *client) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "status <importID>",
		Short: "Show the status of an import",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if wait {
				return pollUntilDone(c, args[0], 2*time.Second)
			}
			var resp pollResponse
			if err := c.getJSON("/api/v1/imports/"+args[0]+"/poll-status", &resp); err != nil {
				return err
			}
			printPoll(&resp)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Poll until the import finishes")
	return cmd
}

func pollUntilDone(c *client, importID string, interval time.Duration) error {
	for {
		var resp pollResponse
		if err := c.getJSON("/api/v1/imports/"+importID+"/poll-status", &resp); err != nil {
			return err
		}
		printPoll(&resp)
		if resp.Status != "ongoing" {
			if resp.Status == "failed" {
				return fmt.Errorf("import failed: %s", resp.Message)
			}
			return nil
		}
		time.Sleep(interval)
	}
}

func printPoll(resp *pollResponse) {
	switch resp.Status {
	case "ongoing":
		if resp.Total > 0 {
			fmt.Printf("ongoing: %d/%d records converted\n", resp.Done, resp.Total)
		} else {
			fmt.Println("ongoing")
		}
	case "failed":
		fmt.Printf("failed (%d): %s\n", resp.StatusCode, resp.Message)
	case "completed":
		fmt.Println("completed")
		if resp.Import != nil {
			printImportSummary(resp.Import)
		}
	default:
		fmt.Println(resp.Status)
	}
}
