package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/embedsave/internal/ir"
	"github.com/roach88/embedsave/internal/store"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	DB    string // journal database path (required)
	Model string // only exchanges whose root is this model
	Token string // only reconciliations of this correlation token
}

// JournalEntry is one exchange with the reconciliations it produced.
type JournalEntry struct {
	Exchange        ir.Exchange         `json:"exchange"`
	Reconciliations []ir.Reconciliation `json:"reconciliations"`
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List journaled save exchanges",
		Long: `List the save requests, responses and reconciliations recorded in a
journal database, in seq order.

Examples:
  embedsave journal --db journal.db
  embedsave journal --db journal.db --model artist
  embedsave journal --db journal.db --token token-2 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "journal database path (required)")
	cmd.Flags().StringVar(&opts.Model, "model", "", "only show exchanges for this root model")
	cmd.Flags().StringVar(&opts.Token, "token", "", "only show reconciliations of this correlation token")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runJournal(ctx context.Context, opts *JournalOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	// Open creates missing databases; a journal that does not exist yet is
	// a usage error here.
	if _, err := os.Stat(opts.DB); os.IsNotExist(err) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("journal not found: %s", opts.DB), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("journal not found: %s", opts.DB))
	}

	journal, err := store.Open(opts.DB)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer journal.Close()

	if opts.Token != "" {
		recs, err := journal.ReadReconciliationsForToken(ctx, opts.Token)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		return outputTokenHistory(formatter, opts.Token, recs)
	}

	entries, err := readJournal(ctx, journal, opts.Model)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	formatter.VerboseLog("Read %d exchange(s) from %s", len(entries), opts.DB)

	if formatter.JSON() {
		return formatter.Success(entries)
	}
	outputJournalText(formatter, entries)
	return nil
}

// readJournal loads exchanges for model ("" for all) and their
// reconciliations.
func readJournal(ctx context.Context, journal *store.Store, model string) ([]JournalEntry, error) {
	exchanges, err := journal.ReadExchanges(ctx, model)
	if err != nil {
		return nil, err
	}

	entries := make([]JournalEntry, 0, len(exchanges))
	for _, ex := range exchanges {
		recs, err := journal.ReadReconciliations(ctx, ex.ID)
		if err != nil {
			return nil, fmt.Errorf("exchange %s: %w", ex.ID, err)
		}
		if recs == nil {
			recs = []ir.Reconciliation{}
		}
		entries = append(entries, JournalEntry{Exchange: ex, Reconciliations: recs})
	}
	return entries, nil
}

func outputJournalText(formatter *OutputFormatter, entries []JournalEntry) {
	w := formatter.Writer
	if len(entries) == 0 {
		fmt.Fprintln(w, "No exchanges found.")
		return
	}

	for _, e := range entries {
		ex := e.Exchange
		status := "pending"
		if ex.Response != nil {
			status = "completed"
		}
		fmt.Fprintf(w, "[%d] %s %s %s (%s)\n", ex.Seq, ex.Model, ex.Token, shortID(ex.ID), status)
		for _, r := range e.Reconciliations {
			fmt.Fprintf(w, "  [%d] %s %s → %s\n", r.Seq, r.Model, r.Token, r.RecordID)
		}
	}
	fmt.Fprintf(w, "\n%d exchange(s)\n", len(entries))
}

func outputTokenHistory(formatter *OutputFormatter, token string, recs []ir.Reconciliation) error {
	if formatter.JSON() {
		if recs == nil {
			recs = []ir.Reconciliation{}
		}
		return formatter.Success(recs)
	}

	w := formatter.Writer
	if len(recs) == 0 {
		fmt.Fprintf(w, "No reconciliations for %s.\n", token)
		return nil
	}
	for _, r := range recs {
		fmt.Fprintf(w, "[%d] %s %s → %s (exchange %s)\n", r.Seq, r.Model, r.Token, r.RecordID, shortID(r.ExchangeID))
	}
	return nil
}

// shortID abbreviates a content-addressed id for display.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
