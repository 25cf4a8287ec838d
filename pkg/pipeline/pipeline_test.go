package pipeline

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/FaYMan2/terdel/pkg/cache"
	terrors "github.com/FaYMan2/terdel/pkg/errors"
	"github.com/FaYMan2/terdel/pkg/layout"
	"github.com/FaYMan2/terdel/pkg/render"
	"github.com/FaYMan2/terdel/pkg/schema"
	"github.com/FaYMan2/terdel/pkg/source"
)

func ptr(s string) *string { return &s }

func shop() *source.Static {
	return &source.Static{
		Names: []string{"customers", "orders", "order_items"},
		ColumnsByTable: map[string][]schema.RawColumn{
			"customers": {
				{Name: "id", DataType: "integer", DefaultValue: ptr("nextval('customers_id_seq'::regclass)")},
				{Name: "email", DataType: "text"},
			},
			"orders": {
				{Name: "id", DataType: "integer"},
				{Name: "customer_id", DataType: "integer"},
			},
			"order_items": {
				{Name: "order_id", DataType: "integer"},
				{Name: "sku", DataType: "text"},
			},
		},
		AllConstraints: []schema.Constraint{
			{SourceTable: "customers", SourceColumn: "id", Type: schema.ConstraintPrimaryKey},
			{SourceTable: "orders", SourceColumn: "id", Type: schema.ConstraintPrimaryKey},
			{SourceTable: "orders", SourceColumn: "customer_id", Type: schema.ConstraintForeignKey, TargetTable: ptr("customers"), TargetColumn: ptr("id")},
			{SourceTable: "order_items", SourceColumn: "order_id", Type: schema.ConstraintForeignKey, TargetTable: ptr("orders"), TargetColumn: ptr("id")},
		},
	}
}

// faultySource fails selected calls and counts concurrent column fetches.
type faultySource struct {
	*source.Static
	namesErr       error
	constraintsErr error
	columnErrs     map[string]error

	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *faultySource) TableNames(ctx context.Context) ([]string, error) {
	if f.namesErr != nil {
		return nil, f.namesErr
	}
	return f.Static.TableNames(ctx)
}

func (f *faultySource) Constraints(ctx context.Context) ([]schema.Constraint, error) {
	if f.constraintsErr != nil {
		return nil, f.constraintsErr
	}
	return f.Static.Constraints(ctx)
}

func (f *faultySource) Columns(ctx context.Context, table string) ([]schema.RawColumn, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	if err := f.columnErrs[table]; err != nil {
		return nil, err
	}
	return f.Static.Columns(ctx, table)
}

// memCache is an in-memory cache.Cache that counts operations.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[key]
	return d, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	m.sets++
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memCache) Close() error { return nil }

func quietLogger() *log.Logger { return log.New(io.Discard) }

// =============================================================================
// Options
// =============================================================================

func TestOptionsDefaults(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error: %v", err)
	}
	if opts.Schema != DefaultSchema {
		t.Errorf("Schema = %q, want %q", opts.Schema, DefaultSchema)
	}
	if opts.Layout != layout.DefaultConfig() {
		t.Errorf("Layout = %+v", opts.Layout)
	}
	if opts.Concurrency != DefaultConcurrency {
		t.Errorf("Concurrency = %d", opts.Concurrency)
	}
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"negative concurrency", Options{Concurrency: -1}},
		{"too much concurrency", Options{Concurrency: MaxConcurrency + 1}},
		{"negative ttl", Options{TTL: -time.Second}},
		{"zero y step", Options{Layout: layout.Config{XStep: 100}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !terrors.Is(err, terrors.ErrCodeInvalidInput) {
				t.Errorf("ValidateAndSetDefaults() = %v, want INVALID_INPUT", err)
			}
		})
	}
}

// =============================================================================
// Load
// =============================================================================

func TestLoad(t *testing.T) {
	raw, err := Load(context.Background(), shop(), LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(raw.TableNames) != 3 || len(raw.Columns) != 3 || len(raw.Constraints) != 4 {
		t.Errorf("Load() = %d names, %d column lists, %d constraints",
			len(raw.TableNames), len(raw.Columns), len(raw.Constraints))
	}
	if len(raw.Failed) != 0 {
		t.Errorf("Failed = %v", raw.Failed)
	}
}

func TestLoadEmptySource(t *testing.T) {
	raw, err := Load(context.Background(), &source.Static{}, LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(raw.TableNames) != 0 || len(raw.Columns) != 0 {
		t.Errorf("Load() = %+v, want empty", raw)
	}
	if raw.TableNames == nil || raw.Constraints == nil {
		t.Error("empty load should not have nil slices")
	}
}

func TestLoadFatalErrors(t *testing.T) {
	boom := errors.New("boom")

	if _, err := Load(context.Background(), &faultySource{Static: shop(), namesErr: boom}, LoadOptions{}); !errors.Is(err, boom) {
		t.Errorf("names failure: Load() = %v, want %v", err, boom)
	}
	if _, err := Load(context.Background(), &faultySource{Static: shop(), constraintsErr: boom}, LoadOptions{}); !errors.Is(err, boom) {
		t.Errorf("constraints failure: Load() = %v, want %v", err, boom)
	}
}

func TestLoadPerTableFailure(t *testing.T) {
	boom := terrors.New(terrors.ErrCodeDatabase, "permission denied")
	src := &faultySource{Static: shop(), columnErrs: map[string]error{"orders": boom}}

	raw, err := Load(context.Background(), src, LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if _, ok := raw.Columns["orders"]; ok {
		t.Error("failed table should be absent from Columns")
	}
	if raw.Failed["orders"] != boom {
		t.Errorf("Failed[orders] = %v, want %v", raw.Failed["orders"], boom)
	}

	res := raw.Assemble(context.Background())
	if len(res.Tables) != 2 {
		t.Errorf("Assemble() tables = %d, want 2", len(res.Tables))
	}
	if len(res.Failed) != 1 || res.Failed[0].Table != "orders" || !errors.Is(res.Failed[0], boom) {
		t.Errorf("Assemble() failed = %+v", res.Failed)
	}
}

func TestLoadConcurrencyLimit(t *testing.T) {
	s := &source.Static{ColumnsByTable: map[string][]schema.RawColumn{}}
	for i := range 20 {
		name := "t" + string(rune('a'+i))
		s.Names = append(s.Names, name)
		s.ColumnsByTable[name] = nil
	}
	src := &faultySource{Static: s}

	if _, err := Load(context.Background(), src, LoadOptions{Concurrency: 3}); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if p := src.peak.Load(); p > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", p)
	}
}

func TestLoadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Load(ctx, &faultySource{Static: shop()}, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() = %v, want context.Canceled", err)
	}
}

// =============================================================================
// Runner
// =============================================================================

func TestRunnerBuild(t *testing.T) {
	r := NewRunner(shop(), nil, nil, quietLogger())

	d, hit, err := r.Build(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if hit {
		t.Error("NullCache should never hit")
	}
	if d.Schema != "public" || len(d.Tables) != 3 || len(d.Edges) != 2 {
		t.Errorf("Build() = schema %q, %d tables, %d edges", d.Schema, len(d.Tables), len(d.Edges))
	}
	if err := d.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	want := map[string]layout.Position{
		"orders":      {X: 0, Y: 0},
		"customers":   {X: 500, Y: 0},
		"order_items": {X: 0, Y: 300},
	}
	for name, p := range want {
		if d.Positions[name] != p {
			t.Errorf("Positions[%s] = %v, want %v", name, d.Positions[name], p)
		}
	}

	id, _ := d.Tables[0].Column("id")
	if !id.IsPrimary || !id.IsIdentity {
		t.Errorf("customers.id = %+v", id)
	}
}

func TestRunnerBuildCaches(t *testing.T) {
	c := newMemCache()
	r := NewRunner(shop(), c, nil, quietLogger())
	ctx := context.Background()

	first, hit, err := r.Build(ctx, Options{})
	if err != nil || hit {
		t.Fatalf("first Build() = hit %v, err %v", hit, err)
	}

	second, hit, err := r.Build(ctx, Options{})
	if err != nil || !hit {
		t.Fatalf("second Build() = hit %v, err %v", hit, err)
	}
	if len(second.Tables) != len(first.Tables) || second.Positions["customers"] != first.Positions["customers"] {
		t.Error("cached diagram differs from the built one")
	}

	if _, hit, _ := r.Build(ctx, Options{Refresh: true}); hit {
		t.Error("Refresh should bypass the cache")
	}
	if _, hit, _ := r.Build(ctx, Options{Layout: layout.Config{XStep: 100, YStep: 100}}); hit {
		t.Error("different layout settings should miss")
	}
}

func TestRunnerBuildSkipsCacheOnFailures(t *testing.T) {
	c := newMemCache()
	src := &faultySource{Static: shop(), columnErrs: map[string]error{"orders": errors.New("boom")}}
	r := NewRunner(src, c, nil, quietLogger())

	d, _, err := r.Build(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(d.Failed) != 1 || d.Failed[0].Table != "orders" || d.Failed[0].Error != "boom" {
		t.Errorf("Failed = %+v", d.Failed)
	}
	if c.sets != 0 {
		t.Errorf("cache sets = %d, want 0", c.sets)
	}
}

func TestRunnerBuildInvalidOptions(t *testing.T) {
	r := NewRunner(shop(), nil, nil, quietLogger())
	if _, _, err := r.Build(context.Background(), Options{Concurrency: -5}); err == nil {
		t.Error("Build() should reject invalid options")
	}
}

func TestRunnerBuildLoadError(t *testing.T) {
	r := NewRunner(&faultySource{Static: shop(), namesErr: errors.New("down")}, nil, nil, quietLogger())
	_, _, err := r.Build(context.Background(), Options{})
	if err == nil || !strings.Contains(err.Error(), "load: down") {
		t.Errorf("Build() = %v", err)
	}
}

func TestRunnerRenderCaches(t *testing.T) {
	c := newMemCache()
	r := NewRunner(shop(), c, cache.NewScopedKeyer(nil, "test:"), quietLogger())
	ctx := context.Background()

	d, _, err := r.Build(ctx, Options{})
	if err != nil {
		t.Fatal(err)
	}
	sets := c.sets

	out, err := r.Render(ctx, d, render.FormatDOT, render.Options{})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.HasPrefix(string(out), "digraph schema {") {
		t.Errorf("Render() = %q", out)
	}
	if c.sets != sets+1 {
		t.Errorf("Render() should store the artifact")
	}

	again, err := r.Render(ctx, d, render.FormatDOT, render.Options{})
	if err != nil || string(again) != string(out) {
		t.Errorf("cached Render() = %q, %v", again, err)
	}
	if c.sets != sets+1 {
		t.Error("second Render() should be served from the cache")
	}
}

func TestRunnerRenderUnknownFormat(t *testing.T) {
	r := NewRunner(shop(), nil, nil, quietLogger())
	d, _, _ := r.Build(context.Background(), Options{})
	if _, err := r.Render(context.Background(), d, render.Format("gif"), render.Options{}); err == nil {
		t.Error("Render() should reject unknown formats")
	}
}

func TestRunnerClose(t *testing.T) {
	r := NewRunner(shop(), nil, nil, nil)
	if err := r.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}
