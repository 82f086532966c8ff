package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"difendimi.live/intake/core/config"
	"difendimi.live/intake/internal/intake"
	"difendimi.live/intake/internal/model"
	"difendimi.live/intake/internal/oracle"
	"difendimi.live/intake/internal/queue"
	"difendimi.live/intake/internal/service"
	"difendimi.live/intake/internal/store"
)

const (
	storeMemory   = "memory"
	storePostgres = "postgres"

	cmdQuit  = "/esci"
	cmdRetry = "/riprova"
)

const openingPrompt = "Raccontaci cosa è successo. Scrivi /esci per uscire."

var chatFlags struct {
	store   string
	publish bool
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run an intake conversation in the terminal",
	RunE:  runChat,
}

func init() {
	f := chatCmd.Flags()
	f.StringVar(&chatFlags.store, "store", storeMemory, "Case store: memory or postgres")
	f.BoolVar(&chatFlags.publish, "publish", false, "Hand the finalized case to the report worker (postgres only)")
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := bootstrap(config.ServiceTypeCLI)
	if err != nil {
		return err
	}

	completeness, err := oracle.FromConfig(cfg.Oracle, cfg.OracleLLM)
	if err != nil {
		return err
	}

	var cases intake.CaseCreator
	var producer queue.Producer
	switch chatFlags.store {
	case storeMemory:
		if chatFlags.publish {
			return errors.New("--publish needs --store=postgres")
		}
		cases = store.NewMemoryCaseStore()
	case storePostgres:
		database, err := openDB(ctx, cfg)
		if err != nil {
			return err
		}
		defer database.Close()
		cases = store.NewStores(database.Queries()).Cases()

		if chatFlags.publish {
			producer, err = openProducer(ctx, cfg)
			if err != nil {
				return err
			}
			defer producer.Close()
		}
	default:
		return fmt.Errorf("unknown store %q", chatFlags.store)
	}

	loop := intake.New(completeness, cases, intake.Options{
		OracleTimeout:   cfg.Oracle.Timeout,
		Acknowledgement: cfg.Intake.Acknowledgement,
	})
	svc := service.NewIntakeService(store.NewMemorySessionStore(), loop, producer)

	return chat(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), svc)
}

// chat drives one session from in to out until the case is stored, the user
// quits or input ends.
func chat(ctx context.Context, in io.Reader, out io.Writer, svc service.IntakeService) error {
	sess, err := svc.Start(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, openingPrompt)
	var last model.ErrorReason
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		var res model.LoopOutcome
		switch line {
		case cmdQuit:
			fmt.Fprintln(out, "Sessione chiusa.")
			return nil
		case cmdRetry:
			res, err = retry(ctx, svc, sess.ID, last)
		default:
			res, err = svc.Submit(ctx, sess.ID, line)
		}
		if err != nil {
			return err
		}

		last = res.Reason
		if done := render(out, res); done {
			return nil
		}
	}
}

// retry repeats the step that failed last: the store write after a
// persistence failure, otherwise the oracle call.
func retry(ctx context.Context, svc service.IntakeService, sessionID string, last model.ErrorReason) (model.LoopOutcome, error) {
	if last == model.ReasonPersistenceFailed {
		return svc.RetryPersistence(ctx, sessionID)
	}
	return svc.RetryAssessment(ctx, sessionID)
}

// render prints one outcome and reports whether the session is over.
func render(out io.Writer, res model.LoopOutcome) bool {
	switch res.Kind {
	case model.OutcomeContinue:
		fmt.Fprintf(out, "\n%s\n", res.QuestionText)
		if score := res.Conversation.CompletenessScore; score != nil {
			fmt.Fprintf(out, "(completezza %d%%)\n", *score)
		}
		return false
	case model.OutcomeFinalized:
		if res.QuestionText != "" {
			fmt.Fprintf(out, "\n%s\n", res.QuestionText)
		}
		fmt.Fprintf(out, "Caso registrato con id %d.\n", res.CaseID)
		return true
	}

	switch res.Reason {
	case model.ReasonEmptyInput:
		fmt.Fprintln(out, "Scrivi qualcosa prima di inviare.")
	case model.ReasonOracleUnreachable:
		fmt.Fprintf(out, "Il servizio di valutazione non risponde. Scrivi %s per riprovare.\n", cmdRetry)
	case model.ReasonOracleMalformed:
		fmt.Fprintf(out, "Risposta non valida dal servizio di valutazione. Scrivi %s o aggiungi dettagli.\n", cmdRetry)
	case model.ReasonPersistenceFailed:
		fmt.Fprintf(out, "Non è stato possibile salvare il caso. Scrivi %s per riprovare.\n", cmdRetry)
	case model.ReasonConversationClosed:
		fmt.Fprintln(out, "La conversazione è già conclusa.")
		return true
	case model.ReasonNothingToPersist:
		fmt.Fprintln(out, "Non c'è nessun caso da salvare.")
	case model.ReasonNothingToRetry:
		fmt.Fprintln(out, "Non c'è nulla da riprovare.")
	default:
		fmt.Fprintf(out, "Errore: %s\n", res.Reason)
	}
	return false
}
