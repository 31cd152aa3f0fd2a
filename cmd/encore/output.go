package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
)

// importDocument is the subset of the daemon's import record the CLI
// renders.
type importDocument struct {
	ImportID        string `json:"importID"`
	Game            string `json:"game"`
	ImportType      string `json:"importType"`
	ScoreIDs        []string
	CreatedSessions []struct {
		SessionID string `json:"sessionID"`
		Type      string `json:"type"`
	} `json:"createdSessions"`
	Errors []struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"errors"`
	ClassDeltas []struct {
		Set string  `json:"set"`
		Old *string `json:"old"`
		New string  `json:"new"`
	} `json:"classDeltas"`
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	if isatty.IsTerminal(os.Stdout.Fd()) {
		t.SetStyle(table.StyleRounded)
	} else {
		t.SetStyle(table.StyleDefault)
	}
	return t
}

func printImportSummary(doc *importDocument) {
	t := newTable()
	t.AppendRows([]table.Row{
		{"import", doc.ImportID},
		{"game", doc.Game},
		{"type", doc.ImportType},
		{"scores imported", len(doc.ScoreIDs)},
		{"records failed", len(doc.Errors)},
		{"sessions touched", len(doc.CreatedSessions)},
	})
	t.Render()

	for _, delta := range doc.ClassDeltas {
		if delta.Old != nil {
			fmt.Printf("class up: %s %s -> %s\n", delta.Set, *delta.Old, delta.New)
		} else {
			fmt.Printf("class achieved: %s %s\n", delta.Set, delta.New)
		}
	}
	for _, importError := range doc.Errors {
		fmt.Printf("skipped (%s): %s\n", importError.Type, importError.Message)
	}
}
