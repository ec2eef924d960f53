package export

import "fmt"

// Renderer turns a table into a downloadable document.
type Renderer interface {
	Render(t Table) ([]byte, error)
	ContentType() string
	Extension() string
}

// RendererFor returns the renderer registered for a format name.
func RendererFor(format string) (Renderer, error) {
	switch format {
	case "csv":
		return CSVRenderer{}, nil
	case "pdf":
		return PDFRenderer{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
