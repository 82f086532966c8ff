package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"difendimi.live/intake/common/id"
	"difendimi.live/intake/core/config"
	"difendimi.live/intake/internal/service"
	"difendimi.live/intake/internal/store"
)

var requeueCmd = &cobra.Command{
	Use:   "requeue <case-id>",
	Short: "Publish a stored case to the report worker again",
	Args:  cobra.ExactArgs(1),
	RunE:  runRequeue,
}

func runRequeue(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	caseID, err := id.Parse(args[0])
	if err != nil {
		return err
	}

	cfg, err := bootstrap(config.ServiceTypeAdmin)
	if err != nil {
		return err
	}
	database, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	producer, err := openProducer(ctx, cfg)
	if err != nil {
		return err
	}
	defer producer.Close()

	stores := store.NewStores(database.Queries())
	svc := service.NewCaseService(stores.Cases(), stores.Reports(), service.NewTxRunner(database), producer)
	if err := svc.Requeue(ctx, caseID); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Case %d queued for report generation.\n", caseID)
	return nil
}
