package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aretw0/datastore/pkg/core"
)

var updateAllWhere string

var updateAllCmd = &cobra.Command{
	Use:   "update-all <resource> <json>",
	Short: "Update every record matching a query",
	Long: `Send one bulk update to the memory adapter and merge every returned item
into the store. Without --where every record is updated.

Example:
  datastore update-all post '{"age": 27}' --where '{"age": {"==": 33}}'`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s, err := openSession(ctx)
		if err != nil {
			fatal("Failed to open store", err)
		}
		attrs, err := parseObject("json", args[1])
		if err != nil {
			fatal("Invalid attributes", err)
		}
		params, err := whereParams(updateAllWhere)
		if err != nil {
			fatal("Invalid query", err)
		}
		recs, err := s.store.UpdateAll(ctx, args[0], core.Attributes(attrs), params)
		if err != nil {
			fatal("Failed to update records", err)
		}
		printJSON(recs)
		s.logMetrics()
	},
}

// whereParams wraps a JSON where clause into query params.
func whereParams(raw string) (core.Params, error) {
	where, err := parseObject("where", raw)
	if err != nil || where == nil {
		return nil, err
	}
	return core.Params{"query": map[string]any{"where": where}}, nil
}

func init() {
	updateAllCmd.Flags().StringVarP(&updateAllWhere, "where", "w", "", "JSON where clause")
	rootCmd.AddCommand(updateAllCmd)
}
