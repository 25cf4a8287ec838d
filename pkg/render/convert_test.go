package render

import (
	"context"
	"os/exec"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"svg", FormatSVG, false},
		{"SVG", FormatSVG, false},
		{".gv", FormatDOT, false},
		{"mmd", FormatMermaid, false},
		{"mermaid", FormatMermaid, false},
		{"pdf", FormatPDF, false},
		{"png", FormatPNG, false},
		{"jpeg", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestFormatExt(t *testing.T) {
	if FormatMermaid.Ext() != ".mmd" || FormatSVG.Ext() != ".svg" {
		t.Errorf("Ext() = %s, %s", FormatMermaid.Ext(), FormatSVG.Ext())
	}
}

func TestToPDFWithoutRsvg(t *testing.T) {
	if _, err := exec.LookPath("rsvg-convert"); err == nil {
		t.Skip("rsvg-convert installed")
	}
	_, err := ToPDF(context.Background(), []byte("<svg/>"))
	if err == nil || !strings.Contains(err.Error(), "librsvg") {
		t.Errorf("ToPDF() error = %v, want install hint", err)
	}
}

func TestToPNG(t *testing.T) {
	if _, err := exec.LookPath("rsvg-convert"); err != nil {
		t.Skip("rsvg-convert not installed")
	}
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"><rect width="10" height="10"/></svg>`)
	png, err := ToPNG(context.Background(), svg, 2)
	if err != nil {
		t.Fatalf("ToPNG() error: %v", err)
	}
	if len(png) < 8 || string(png[1:4]) != "PNG" {
		t.Errorf("ToPNG() did not return a PNG")
	}
}
