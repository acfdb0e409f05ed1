// Package render turns a dashboard.Dataset into files: a self-contained
// HTML page, or the dataset itself as JSON or YAML.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/KjellKod/quest/pkg/dashboard"
)

// Format names an output format.
type Format string

const (
	FormatHTML Format = "html"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Formats lists every supported format.
var Formats = []Format{FormatHTML, FormatJSON, FormatYAML}

// ParseFormat accepts a format name case-insensitively; "yml" means yaml.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatHTML, nil
	case FormatHTML, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown format %q (want html, json or yaml)", s)
}

// DefaultOutput is where each format is written when no path is given.
func (f Format) DefaultOutput() string {
	switch f {
	case FormatJSON:
		return "docs/dashboard/dashboard-data.json"
	case FormatYAML:
		return "docs/dashboard/dashboard-data.yaml"
	}
	return "docs/dashboard/index.html"
}

// Renderer writes a dataset in one format.
type Renderer interface {
	Render(w io.Writer, ds *dashboard.Dataset) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(w io.Writer, ds *dashboard.Dataset) error

func (f RendererFunc) Render(w io.Writer, ds *dashboard.Dataset) error {
	return f(w, ds)
}

// New returns the renderer for format. opts only affects HTML.
func New(format Format, opts HTMLOptions) (Renderer, error) {
	switch format {
	case FormatHTML:
		return NewHTML(opts)
	case FormatJSON:
		return RendererFunc(JSON), nil
	case FormatYAML:
		return RendererFunc(YAML), nil
	}
	return nil, fmt.Errorf("unknown format %q", format)
}
