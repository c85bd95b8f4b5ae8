package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aretw0/datastore/pkg/core"
)

var updateNoCache bool

// updateResult shows the record together with its change tracking state.
type updateResult struct {
	Record    *core.Record    `json:"record"`
	LastSaved int64           `json:"lastSaved"`
	Previous  core.Attributes `json:"previous,omitempty"`
}

var updateCmd = &cobra.Command{
	Use:   "update <resource> <id> <json>",
	Short: "Update a record through the adapter",
	Long: `Run the update pipeline for one record, send the attributes to the memory
adapter and merge the response into the store.`,
	Args: cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s, err := openSession(ctx)
		if err != nil {
			fatal("Failed to open store", err)
		}
		attrs, err := parseObject("json", args[2])
		if err != nil {
			fatal("Invalid attributes", err)
		}
		resource, id := args[0], args[1]
		rec, err := s.store.Update(ctx, resource, id, core.Attributes(attrs), core.WithCacheResponse(!updateNoCache))
		if err != nil {
			fatal("Failed to update record", err)
		}

		out := updateResult{Record: rec}
		if !updateNoCache {
			if out.LastSaved, err = s.store.LastSaved(resource, id); err != nil {
				fatal("Failed to read lastSaved", err)
			}
			if out.Previous, err = s.store.Previous(resource, id); err != nil {
				fatal("Failed to read previous attributes", err)
			}
		}
		printJSON(out)
		s.logMetrics()
	},
}

func init() {
	updateCmd.Flags().BoolVar(&updateNoCache, "no-cache", false, "Return the response without caching it")
	rootCmd.AddCommand(updateCmd)
}
