package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/roach88/embedsave/internal/compiler"
	"github.com/roach88/embedsave/internal/ir"
	"github.com/roach88/embedsave/internal/normalizer"
	"github.com/roach88/embedsave/internal/records"
	"github.com/roach88/embedsave/internal/serializer"
	"github.com/roach88/embedsave/internal/store"
	"github.com/roach88/embedsave/internal/testutil"
)

// Clock hands out journal seq numbers.
type Clock interface {
	Next() int64
}

// Harness holds the state of one scenario execution.
type Harness struct {
	schema  *ir.Schema
	records *records.Store
	journal *store.Store
	clock   Clock
	logger  *slog.Logger
}

type config struct {
	journal *store.Store
	logger  *slog.Logger
}

// Option configures Run.
type Option func(*config)

// WithJournal journals into j instead of a fresh in-memory database.
// Seq numbers continue after j's last entry.
func WithJournal(j *store.Store) Option {
	return func(c *config) {
		c.journal = j
	}
}

// WithLogger sets the logger passed to every component.
// Defaults to discarding logs.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// Run executes a scenario and returns the result.
//
// Errors in the scenario itself (schema, fixtures, malformed response)
// are returned as errors; failed assertions are reported in the result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := config{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}
	ctx := context.Background()

	schema, err := CompileSchema(scenario)
	if err != nil {
		return nil, err
	}
	for _, w := range compiler.AnalyzeEmbedCycles(schema) {
		cfg.logger.Info("embed cycle", "scenario", scenario.Name, "message", w.Message)
	}

	h := &Harness{
		schema: schema,
		records: records.New(schema,
			records.WithTokenGenerator(testutil.NewSequenceTokenGenerator("token")),
			records.WithLogger(cfg.logger),
		),
		journal: cfg.journal,
		logger:  cfg.logger,
	}

	if h.journal == nil {
		journal, err := store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
		}
		defer journal.Close()
		h.journal = journal
		h.clock = testutil.NewDeterministicClock()
	} else {
		last, err := h.journal.LastSeq(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read journal position: %w", err)
		}
		h.clock = store.NewClockAt(last)
	}

	result := NewResult()
	result.Store = h.records

	if err := h.buildRecords(scenario.Records, result); err != nil {
		return nil, fmt.Errorf("failed to build records: %w", err)
	}

	if scenario.Serialize != nil {
		if err := h.save(ctx, scenario, result); err != nil {
			return nil, fmt.Errorf("failed to save: %w", err)
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// CompileSchema compiles and validates the scenario's inline schema and
// spec files as one schema.
func CompileSchema(scenario *Scenario) (*ir.Schema, error) {
	var srcs []compiler.Source
	for _, path := range scenario.Specs {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read spec %s: %w", path, err)
		}
		srcs = append(srcs, compiler.Source{Filename: path, Data: data})
	}
	if scenario.Schema != "" {
		srcs = append(srcs, compiler.Source{Filename: scenario.Name + ".cue", Data: []byte(scenario.Schema)})
	}

	schema, err := compiler.CompileSources(srcs...)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	if verrs := compiler.Validate(schema); len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i, v := range verrs {
			msgs[i] = v.Error()
		}
		return nil, fmt.Errorf("invalid schema:\n  %s", strings.Join(msgs, "\n  "))
	}
	return schema, nil
}

// buildRecords creates every fixture, then links them, so relationships
// may point at records declared later.
func (h *Harness) buildRecords(fixtures []RecordFixture, result *Result) error {
	for _, f := range fixtures {
		attrs := ir.Attributes(f.Attributes)

		var (
			rec *records.Record
			err error
		)
		if f.ID != "" {
			rec, err = h.records.Load(f.Type, f.ID, attrs)
		} else {
			rec, err = h.records.CreateRecord(f.Type, attrs)
		}
		if err != nil {
			return fmt.Errorf("record %s: %w", f.Ref, err)
		}
		result.Records[f.Ref] = rec
	}

	for _, f := range fixtures {
		rec := result.Records[f.Ref]

		for _, field := range sortedKeys(f.BelongsTo) {
			if err := h.records.SetBelongsTo(rec, field, result.Records[f.BelongsTo[field]]); err != nil {
				return fmt.Errorf("record %s: %w", f.Ref, err)
			}
		}
		for _, field := range sortedKeys(f.HasMany) {
			targets := make([]*records.Record, 0, len(f.HasMany[field]))
			for _, ref := range f.HasMany[field] {
				targets = append(targets, result.Records[ref])
			}
			if err := h.records.AddToHasMany(rec, field, targets...); err != nil {
				return fmt.Errorf("record %s: %w", f.Ref, err)
			}
		}
		for _, field := range f.Unloaded {
			if err := h.records.MarkUnloaded(rec, field); err != nil {
				return fmt.Errorf("record %s: %w", f.Ref, err)
			}
		}
	}
	return nil
}

// save serializes the root, journals the exchange and, when the scenario
// scripts a response, normalizes it and completes the save.
func (h *Harness) save(ctx context.Context, scenario *Scenario, result *Result) error {
	step := scenario.Serialize
	root := result.Records[step.Root]

	var opts []serializer.SerializeOption
	if step.IncludeID {
		opts = append(opts, serializer.IncludeID())
	}
	ser := serializer.New(h.schema, h.records, serializer.WithLogger(h.logger))
	result.Request = ser.Serialize(root, opts...)

	ex, err := store.NewExchange(root.Type(), root.Token(), result.Request, h.clock.Next())
	if err != nil {
		return err
	}
	if err := h.journal.WriteExchange(ctx, ex); err != nil {
		return err
	}
	result.ExchangeID = ex.ID

	if scenario.Response != nil {
		if err := h.complete(ctx, scenario, root, ex.ID, result); err != nil {
			return err
		}
	}

	result.Reconciliations, err = h.journal.ReadReconciliations(ctx, ex.ID)
	return err
}

// complete feeds the scripted response through the normalizer, then
// finishes the save of the root record.
func (h *Harness) complete(ctx context.Context, scenario *Scenario, root *records.Record, exchangeID string, result *Result) error {
	response, err := buildResponse(scenario.Response, result.Records)
	if err != nil {
		return fmt.Errorf("response: %w", err)
	}
	if err := h.journal.WriteResponse(ctx, exchangeID, response); err != nil {
		return err
	}

	var journalErr error
	n := normalizer.New(h.records,
		normalizer.WithLogger(h.logger),
		normalizer.WithObserver(func(ev normalizer.ReconcileEvent) {
			if journalErr == nil {
				journalErr = h.journalReconciliation(ctx, exchangeID, ev.Model, ev.Token, ev.ID)
			}
		}),
	)

	wasNew := root.IsNew()
	out, err := n.NormalizeSaveResponse(response)
	if err != nil {
		return err
	}
	if journalErr != nil {
		return journalErr
	}
	result.Response = out

	if out.Data != nil {
		if err := h.records.DidSaveRecord(root, out.Data); err != nil {
			return fmt.Errorf("complete save of %s: %w", root.Token(), err)
		}
		if wasNew {
			if err := h.journalReconciliation(ctx, exchangeID, root.Type(), root.Token(), root.ID()); err != nil {
				return err
			}
		}
	}

	if scenario.Push {
		if _, err := h.records.Push(out); err != nil {
			return fmt.Errorf("push: %w", err)
		}
	}
	return nil
}

func (h *Harness) journalReconciliation(ctx context.Context, exchangeID, model, token, id string) error {
	_, _, err := h.journal.WriteReconciliation(ctx, ir.Reconciliation{
		ExchangeID: exchangeID,
		Seq:        h.clock.Next(),
		Model:      model,
		Token:      token,
		RecordID:   id,
	})
	return err
}

// buildResponse substitutes token placeholders and decodes the result as
// a wire document.
func buildResponse(raw map[string]any, refs map[string]*records.Record) (*ir.Document, error) {
	resolved, err := resolvePlaceholders(raw, refs)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(resolved)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return ir.ParseDocument(data)
}

var errUnknownRef = errors.New("unknown ref")

func resolvePlaceholders(v any, refs map[string]*records.Record) (any, error) {
	switch val := v.(type) {
	case string:
		ref, ok := strings.CutPrefix(val, TokenPlaceholder)
		if !ok {
			return val, nil
		}
		rec := refs[ref]
		if rec == nil {
			return nil, fmt.Errorf("%s%s: %w", TokenPlaceholder, ref, errUnknownRef)
		}
		return rec.Token(), nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			r, err := resolvePlaceholders(elem, refs)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			r, err := resolvePlaceholders(elem, refs)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	default:
		return v, nil
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
