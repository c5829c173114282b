package render

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
)

// Format is an export encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatSVG  Format = "svg"
)

// ExportOptions controls Export
type ExportOptions struct {
	Format Format
	Pretty bool
	Width  float64
	Height float64
}

// Export writes f to w in the requested format
func Export(w io.Writer, f Frame, opts ExportOptions) error {
	switch opts.Format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		if opts.Pretty {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(f)
	case FormatSVG:
		if opts.Width <= 0 || opts.Height <= 0 {
			return fmt.Errorf("svg export needs a positive viewport, got %gx%g", opts.Width, opts.Height)
		}
		return svgTemplate.Execute(w, svgData{Frame: f, Width: opts.Width, Height: opts.Height})
	default:
		return fmt.Errorf("unsupported export format %q", opts.Format)
	}
}

type svgData struct {
	Frame
	Width  float64
	Height float64
}

var svgTemplate = template.Must(template.New("frame").Parse(`<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="{{.Height}}">
<defs><marker id="arrow" viewBox="0 -5 10 10" refX="35" refY="0" markerWidth="6" markerHeight="6" orient="auto"><path d="M0,-5L10,0L0,5"></path></marker></defs>
<g class="links">{{range .Links}}
<line class="link" marker-end="url(#arrow)" stroke="#999" stroke-dasharray="3, 3" x1="{{.X1}}" y1="{{.Y1}}" x2="{{.X2}}" y2="{{.Y2}}"></line>{{end}}
</g>
<g class="link-labels">{{range .Links}}
<text class="linktext" dy="-0.5em" x="{{.LabelX}}" y="{{.LabelY}}" font-family="sans-serif">{{.Label}}</text>{{end}}
</g>
<g class="nodes">{{range .Nodes}}
<circle cx="{{.X}}" cy="{{.Y}}" r="{{.Radius}}" fill="{{.Color}}"></circle>{{end}}
</g>
<g class="node-labels">{{range $n := .Nodes}}{{range .Labels}}
<text text-anchor="middle" x="{{$n.X}}" y="{{$n.Y}}" dy="{{.DY}}" font-size="11px" font-family="sans-serif">{{.Text}}</text>{{end}}{{end}}
</g>
</svg>
`))
