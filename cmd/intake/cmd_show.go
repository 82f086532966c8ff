package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"difendimi.live/intake/common/id"
	"difendimi.live/intake/core/config"
	"difendimi.live/intake/internal/http/dto"
	"difendimi.live/intake/internal/service"
	"difendimi.live/intake/internal/store"
)

var showFlags struct {
	report bool
}

var showCmd = &cobra.Command{
	Use:   "show <case-id>",
	Short: "Print a stored case as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showFlags.report, "report", false, "Print the generated report instead of the case")
}

func runShow(cmd *cobra.Command, args []string) error {
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

	stores := store.NewStores(database.Queries())
	svc := service.NewCaseService(stores.Cases(), stores.Reports(), nil, nil)

	if showFlags.report {
		r, err := svc.Report(ctx, caseID)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no report for case %d yet", caseID)
		}
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), dto.ReportFromModel(r))
	}

	c, err := svc.Get(ctx, caseID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("case %d not found", caseID)
	}
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), dto.CaseFromModel(c))
}
