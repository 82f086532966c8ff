package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"difendimi.live/intake/common/logger"
	"difendimi.live/intake/core/config"
	"difendimi.live/intake/internal/service"
	"difendimi.live/intake/internal/store"
)

var casesFlags struct {
	limit int32
}

var casesCmd = &cobra.Command{
	Use:   "cases",
	Short: "List recent cases",
	RunE:  runCases,
}

func init() {
	casesCmd.Flags().Int32Var(&casesFlags.limit, "limit", 20, "Number of cases to list")
}

func runCases(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := bootstrap(config.ServiceTypeAdmin)
	if err != nil {
		return err
	}
	database, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	stores := store.NewStores(database.Queries())
	cases, err := service.NewCaseService(stores.Cases(), stores.Reports(), nil, nil).List(ctx, casesFlags.limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSCORE\tREPORT\tTEXT")
	for _, c := range cases {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n",
			c.ID, c.CreatedAt.Format("2006-01-02 15:04"), c.CompletenessScore, c.ReportState,
			logger.Truncate(c.OriginalText, 60))
	}
	return tw.Flush()
}
