package cli

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/FaYMan2/terdel/pkg/diagram"
	"github.com/FaYMan2/terdel/pkg/layout"
	"github.com/FaYMan2/terdel/pkg/pipeline"
	"github.com/FaYMan2/terdel/pkg/render"
	"github.com/FaYMan2/terdel/pkg/schema"
	"github.com/FaYMan2/terdel/pkg/server"
	"github.com/FaYMan2/terdel/pkg/source"
)

// captureStdout redirects command output into a buffer for the test.
func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := stdout
	var buf bytes.Buffer
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

func ptr(s string) *string { return &s }

// staticBackend serves a fixed catalog through the API.
type staticBackend struct{ *source.Static }

func (staticBackend) Version(context.Context) (string, error) { return "PostgreSQL 16.2", nil }
func (staticBackend) TableData(context.Context, string, int) ([]map[string]any, error) {
	return []map[string]any{}, nil
}
func (staticBackend) InsertRow(context.Context, string, map[string]any) (map[string]any, error) {
	return map[string]any{}, nil
}
func (staticBackend) Close() error { return nil }

func shopCatalog() *source.Static {
	return &source.Static{
		Names: []string{"customers", "orders"},
		ColumnsByTable: map[string][]schema.RawColumn{
			"customers": {
				{Name: "id", DataType: "integer", DefaultValue: ptr("nextval('customers_id_seq'::regclass)"), Order: 1},
				{Name: "email", DataType: "character varying(255)", Order: 2},
			},
			"orders": {
				{Name: "id", DataType: "integer", Order: 1},
				{Name: "customer_id", DataType: "integer", Order: 2},
			},
		},
		AllConstraints: []schema.Constraint{
			{SourceTable: "customers", SourceColumn: "id", Type: schema.ConstraintPrimaryKey},
			{SourceTable: "orders", SourceColumn: "id", Type: schema.ConstraintPrimaryKey},
			{SourceTable: "orders", SourceColumn: "customer_id", Type: schema.ConstraintForeignKey, TargetTable: ptr("customers"), TargetColumn: ptr("id")},
		},
	}
}

// startAPI serves the shop catalog and returns its base URL.
func startAPI(t *testing.T) string {
	t.Helper()
	backend := staticBackend{shopCatalog()}
	logger := log.New(io.Discard)
	srv := server.New(backend, pipeline.NewRunner(backend, nil, nil, logger), logger, server.Options{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

// execute runs the root command with an isolated cache directory.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("TERDEL_CACHE", "file")
	if os.Getenv("TERDEL_CACHE_DIR") == "" {
		t.Setenv("TERDEL_CACHE_DIR", t.TempDir())
	}
	out := captureStdout(t)

	c := New(io.Discard, log.InfoLevel)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := New(io.Discard, log.InfoLevel).RootCommand()

	var got []string
	for _, cmd := range root.Commands() {
		got = append(got, cmd.Name())
	}
	for _, want := range []string{"serve", "diagram", "render", "tables", "explore", "cache", "completion"} {
		found := false
		for _, name := range got {
			if name == want {
				found = true
			}
		}
		if !found {
			t.Errorf("missing subcommand %q in %v", want, got)
		}
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		input   string
		want    []render.Format
		wantErr bool
	}{
		{"", []render.Format{render.FormatSVG}, false},
		{"svg", []render.Format{render.FormatSVG}, false},
		{"svg, dot,mmd", []render.Format{render.FormatSVG, render.FormatDOT, render.FormatMermaid}, false},
		{"png,png", []render.Format{render.FormatPNG}, false},
		{"svg,jpeg", nil, true},
	}

	for _, tt := range tests {
		got, err := parseFormats(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseFormats(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseFormats(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		output, input, want string
	}{
		{"", "shop.json", "shop"},
		{"", "dir/shop.json", "dir/shop"},
		{"out.svg", "shop.json", "out"},
		{"out.mmd", "shop.json", "out"},
		{"out/schema", "shop.json", "out/schema"},
	}
	for _, tt := range tests {
		if got := basePath(tt.output, tt.input); got != tt.want {
			t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
		}
	}
}

func TestOutputPath(t *testing.T) {
	single := renderOpts{output: "erd.svg", formats: []render.Format{render.FormatSVG}}
	if got := outputPath(single, "shop.json", render.FormatSVG); got != "erd.svg" {
		t.Errorf("single format = %q, want erd.svg", got)
	}

	multi := renderOpts{output: "erd.svg", formats: []render.Format{render.FormatSVG, render.FormatMermaid}}
	if got := outputPath(multi, "shop.json", render.FormatMermaid); got != "erd.mmd" {
		t.Errorf("multiple formats = %q, want erd.mmd", got)
	}
}

func TestKeyMarkers(t *testing.T) {
	tests := []struct {
		col  schema.Column
		want string
	}{
		{schema.Column{IsPrimary: true, IsIdentity: true}, "PK ID"},
		{schema.Column{IsForeignKey: true, TargetTable: ptr("a"), TargetColumn: ptr("id")}, "FK NN"},
		{schema.Column{IsUnique: true, IsNullable: true}, "UQ"},
		{schema.Column{IsNullable: true}, ""},
	}
	for _, tt := range tests {
		if got := keyMarkers(tt.col); got != tt.want {
			t.Errorf("keyMarkers(%+v) = %q, want %q", tt.col, got, tt.want)
		}
	}
}

func TestFilterTables(t *testing.T) {
	tables := []schema.Table{{Name: "a"}, {Name: "b"}, {Name: "c"}}

	if got := filterTables(tables, nil); len(got) != 3 {
		t.Errorf("filterTables(nil) = %d tables, want 3", len(got))
	}
	got := filterTables(tables, []string{"c", "a", "missing"})
	if len(got) != 2 || got[0].Name != "a" || got[1].Name != "c" {
		t.Errorf("filterTables() = %v, want [a c]", got)
	}
}

func TestDiagramAndRenderCommands(t *testing.T) {
	api := startAPI(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "shop.json")

	out, err := execute(t, "diagram", "--api", api, "-o", file)
	if err != nil {
		t.Fatalf("diagram: %v", err)
	}
	if !strings.Contains(out, "2 tables") || !strings.Contains(out, "1 foreign keys") {
		t.Errorf("diagram output missing stats: %q", out)
	}

	d, err := diagram.ReadFile(file)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := map[string]layout.Position{"orders": {X: 0, Y: 0}, "customers": {X: 500, Y: 0}}
	if !reflect.DeepEqual(d.Positions, want) {
		t.Errorf("Positions = %v, want %v", d.Positions, want)
	}

	base := filepath.Join(dir, "out", "shop")
	if _, err := execute(t, "render", file, "-f", "dot,mermaid", "-o", base); err != nil {
		t.Fatalf("render: %v", err)
	}
	dot, err := os.ReadFile(base + ".dot")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(dot), `"orders":"customer_id":e -> "customers":"id":w`) {
		t.Errorf("dot output missing edge:\n%s", dot)
	}
	mmd, err := os.ReadFile(base + ".mmd")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(mmd), "erDiagram") {
		t.Errorf("mermaid output = %q", mmd)
	}
}

func TestDiagramCommandCachesBuilds(t *testing.T) {
	api := startAPI(t)
	t.Setenv("TERDEL_CACHE_DIR", t.TempDir())
	file := filepath.Join(t.TempDir(), "shop.json")

	if _, err := execute(t, "diagram", "--api", api, "-o", file); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "diagram", "--api", api, "-o", file)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, iconCached) {
		t.Errorf("second build should be cached: %q", out)
	}

	out, err = execute(t, "diagram", "--api", api, "-o", file, "--refresh")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, iconFresh) {
		t.Errorf("--refresh should rebuild: %q", out)
	}

	out, err = execute(t, "cache", "clear")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Cleared") {
		t.Errorf("cache clear output = %q", out)
	}
	out, _ = execute(t, "cache", "clear")
	if !strings.Contains(out, "Cache is empty") {
		t.Errorf("second cache clear output = %q", out)
	}
}

func TestDiagramCommandStdout(t *testing.T) {
	api := startAPI(t)
	out, err := execute(t, "diagram", "--api", api, "-o", "-", "--no-cache", "--x-step", "100")
	if err != nil {
		t.Fatal(err)
	}
	d, err := diagram.Unmarshal([]byte(out))
	if err != nil {
		t.Fatalf("stdout is not a diagram: %v\n%s", err, out)
	}
	if d.Positions["customers"] != (layout.Position{X: 100, Y: 0}) {
		t.Errorf("customers = %v, want (100,0)", d.Positions["customers"])
	}
}

func TestTablesCommand(t *testing.T) {
	api := startAPI(t)

	out, err := execute(t, "tables", "--api", api, "--columns")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"customers", "orders", "customers.id", "PK ID"} {
		if !strings.Contains(out, want) {
			t.Errorf("tables output missing %q:\n%s", want, out)
		}
	}

	if _, err := execute(t, "tables", "--api", api, "ghost"); err == nil {
		t.Error("expected error for unknown table filter")
	}
}

func TestSourceRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := execute(t, "tables"); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("tables without a source = %v, want DATABASE_URL hint", err)
	}
}

func TestCachePathCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TERDEL_CACHE_DIR", dir)

	out, err := execute(t, "cache", "path")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != dir {
		t.Errorf("cache path = %q, want %q", out, dir)
	}
}

func TestCompletionCommand(t *testing.T) {
	out, err := execute(t, "completion", "bash")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "terdel") {
		t.Error("bash completion should mention terdel")
	}
	if _, err := execute(t, "completion", "tcsh"); err == nil {
		t.Error("expected error for unsupported shell")
	}
}

func TestDisplayAddr(t *testing.T) {
	if got := displayAddr(":8080"); got != "localhost:8080" {
		t.Errorf("displayAddr(:8080) = %q", got)
	}
	if got := displayAddr("0.0.0.0:9000"); got != "0.0.0.0:9000" {
		t.Errorf("displayAddr(0.0.0.0:9000) = %q", got)
	}
}

// =============================================================================
// Explore Model
// =============================================================================

func exploreDiagram() *diagram.Diagram {
	res := schema.Assemble(
		[]string{"orders", "customers", "audit"},
		map[string][]schema.RawColumn{
			"orders":    shopCatalog().ColumnsByTable["orders"],
			"customers": shopCatalog().ColumnsByTable["customers"],
			"audit":     {{Name: "id", DataType: "bigint", Order: 1}},
		},
		shopCatalog().AllConstraints,
	)
	cfg := layout.DefaultConfig()
	return diagram.New("public", res, layout.Compute(res.Tables, cfg), cfg)
}

func press(m ExploreModel, keys ...string) ExploreModel {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(ExploreModel)
	}
	return m
}

func TestExploreNavigation(t *testing.T) {
	m := NewExploreModel(exploreDiagram())

	m = press(m, "down", "down", "down")
	if m.Cursor != 2 {
		t.Errorf("Cursor = %d, want 2 (clamped)", m.Cursor)
	}
	m = press(m, "k", "k", "k")
	if m.Cursor != 0 {
		t.Errorf("Cursor = %d, want 0", m.Cursor)
	}

	if !strings.Contains(m.View(), "Tables in public") {
		t.Errorf("table view:\n%s", m.View())
	}
}

func TestExploreFollowForeignKey(t *testing.T) {
	m := NewExploreModel(exploreDiagram())

	// orders is the first table; open it and select customer_id.
	m = press(m, "enter", "down")
	if !m.Open || m.Column != 1 {
		t.Fatalf("Open = %v, Column = %d", m.Open, m.Column)
	}

	m = press(m, "enter")
	if got := m.Diagram.Tables[m.Cursor].Name; got != "customers" {
		t.Fatalf("followed to %q, want customers", got)
	}
	view := m.View()
	if !strings.Contains(view, "orders "+iconArrow+" customers") {
		t.Errorf("breadcrumb missing:\n%s", view)
	}
	if !strings.Contains(view, "Referenced by: orders.customer_id") {
		t.Errorf("incoming references missing:\n%s", view)
	}

	// Following a non key column does nothing.
	m = press(m, "enter")
	if got := m.Diagram.Tables[m.Cursor].Name; got != "customers" {
		t.Errorf("moved to %q on a plain column", got)
	}

	m = press(m, "esc")
	if got := m.Diagram.Tables[m.Cursor].Name; got != "orders" || !m.Open {
		t.Errorf("back = %q open=%v, want orders column view", got, m.Open)
	}
	m = press(m, "esc")
	if m.Open {
		t.Error("second esc should return to the table list")
	}
}

func TestExploreQuit(t *testing.T) {
	m := NewExploreModel(exploreDiagram())
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should return a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestExploreWindowResize(t *testing.T) {
	m := NewExploreModel(exploreDiagram())
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 8})
	if got := next.(ExploreModel).Height; got != 5 {
		t.Errorf("Height = %d, want 5", got)
	}
}
