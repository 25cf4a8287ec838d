package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/FaYMan2/terdel/pkg/errors"
	"github.com/FaYMan2/terdel/pkg/observability"
	"github.com/FaYMan2/terdel/pkg/schema"
	"github.com/FaYMan2/terdel/pkg/source"
)

// Raw holds everything [Load] read from a source.
type Raw struct {
	TableNames  []string                      `json:"table_names"`
	Columns     map[string][]schema.RawColumn `json:"columns"`
	Constraints []schema.Constraint           `json:"constraints"`

	// Failed maps a table to the error its column fetch returned. Such
	// tables are absent from Columns.
	Failed map[string]error `json:"-"`
}

// LoadOptions configures [Load].
type LoadOptions struct {
	// Concurrency bounds per-table column fetches. Zero means
	// DefaultConcurrency.
	Concurrency int

	// Label identifies the source in observability events.
	Label string
}

// Load reads the raw catalog from src.
//
// Table names and constraints are fetched concurrently. Once both are in,
// every table's columns are fetched with at most opts.Concurrency requests
// in flight. A failing per-table fetch is recorded in Raw.Failed and the
// load continues; a failing name or constraint fetch fails the whole load.
// A source without tables yields an empty Raw.
func Load(ctx context.Context, src source.Source, opts LoadOptions) (raw Raw, err error) {
	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, opts.Label)
	start := time.Now()
	defer func() {
		hooks.OnLoadComplete(ctx, opts.Label, len(raw.Columns), len(raw.Failed), time.Since(start), err)
	}()

	var names []string
	var constraints []schema.Constraint

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := src.TableNames(gctx)
		if errors.Is(err, errors.ErrCodeNotFound) {
			return nil
		}
		names = n
		return err
	})
	g.Go(func() error {
		c, err := src.Constraints(gctx)
		constraints = c
		return err
	})
	if err := g.Wait(); err != nil {
		return Raw{}, err
	}

	raw = Raw{
		TableNames:  names,
		Columns:     make(map[string][]schema.RawColumn, len(names)),
		Constraints: constraints,
		Failed:      map[string]error{},
	}
	if raw.TableNames == nil {
		raw.TableNames = []string{}
	}
	if raw.Constraints == nil {
		raw.Constraints = []schema.Constraint{}
	}
	if len(names) == 0 {
		return raw, nil
	}

	cols := make([][]schema.RawColumn, len(names))
	errs := make([]error, len(names))

	fg := new(errgroup.Group)
	fg.SetLimit(limit)
	for i, name := range names {
		fg.Go(func() error {
			if ctx.Err() != nil {
				errs[i] = ctx.Err()
				return nil
			}
			cols[i], errs[i] = src.Columns(ctx, name)
			return nil
		})
	}
	_ = fg.Wait()

	if err := ctx.Err(); err != nil {
		return Raw{}, err
	}
	for i, name := range names {
		if errs[i] != nil {
			raw.Failed[name] = errs[i]
			continue
		}
		if _, dup := raw.Columns[name]; !dup {
			raw.Columns[name] = cols[i]
		}
	}
	return raw, nil
}

// Assemble merges raw into normalized tables. Tables whose fetch failed are
// reported with the fetch error.
func (raw Raw) Assemble(ctx context.Context) schema.Result {
	start := time.Now()
	res := schema.Assemble(raw.TableNames, raw.Columns, raw.Constraints)
	for i, f := range res.Failed {
		if err, ok := raw.Failed[f.Table]; ok {
			res.Failed[i].Err = err
		}
	}
	observability.Pipeline().OnAssemble(ctx, len(res.Tables), len(res.Failed), time.Since(start))
	return res
}
