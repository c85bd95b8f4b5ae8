package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aretw0/datastore/pkg/core"
)

var injectCmd = &cobra.Command{
	Use:   "inject <resource> <json>",
	Short: "Inject a record into the store",
	Long: `Merge a JSON object into the cached record with the same primary key,
creating it if it does not exist. No adapter is called.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s, err := openSession(ctx)
		if err != nil {
			fatal("Failed to open store", err)
		}
		attrs, err := parseObject("json", args[1])
		if err != nil {
			fatal("Invalid record", err)
		}
		rec, err := s.store.Inject(ctx, args[0], core.Attributes(attrs))
		if err != nil {
			fatal("Failed to inject record", err)
		}
		printJSON(rec)
	},
}

func init() {
	rootCmd.AddCommand(injectCmd)
}
