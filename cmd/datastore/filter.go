package main

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	filterWhere string
	filterLimit int
)

var filterCmd = &cobra.Command{
	Use:   "filter <resource>",
	Short: "List cached records matching a query",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s, err := openSession(context.Background())
		if err != nil {
			fatal("Failed to open store", err)
		}
		params, err := whereParams(filterWhere)
		if err != nil {
			fatal("Invalid query", err)
		}
		if filterLimit > 0 {
			query := map[string]any{"limit": filterLimit}
			if params != nil {
				query["where"] = params["query"].(map[string]any)["where"]
			}
			params = map[string]any{"query": query}
		}
		recs, err := s.store.Filter(args[0], params)
		if err != nil {
			fatal("Failed to filter records", err)
		}
		printJSON(recs)
	},
}

func init() {
	filterCmd.Flags().StringVarP(&filterWhere, "where", "w", "", "JSON where clause")
	filterCmd.Flags().IntVar(&filterLimit, "limit", 0, "Maximum number of records")
	rootCmd.AddCommand(filterCmd)
}
