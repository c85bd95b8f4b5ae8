package main

import (
	"context"

	"github.com/spf13/cobra"
)

type trackingState struct {
	LastSaved    int64 `json:"lastSaved"`
	LastModified int64 `json:"lastModified"`
}

var lastSavedCmd = &cobra.Command{
	Use:   "last-saved <resource> <id>",
	Short: "Print the change tracking timestamps of a record",
	Long: `Print the unix millisecond timestamps of the last confirmed save and the last
local change of a record. Fixtures are injected without a save, so a freshly loaded
record reports lastSaved 0. Unknown ids report 0 as well.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		s, err := openSession(context.Background())
		if err != nil {
			fatal("Failed to open store", err)
		}
		resource, id := args[0], args[1]

		var out trackingState
		if out.LastSaved, err = s.store.LastSaved(resource, id); err != nil {
			fatal("Failed to read lastSaved", err)
		}
		if out.LastModified, err = s.store.LastModified(resource, id); err != nil {
			fatal("Failed to read lastModified", err)
		}
		printJSON(out)
	},
}

func init() {
	rootCmd.AddCommand(lastSavedCmd)
}
