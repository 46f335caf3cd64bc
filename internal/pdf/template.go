// Package pdf generates, validates, and stamps the PDFs the service
// handles.
package pdf

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog/log"
)

// Color scheme shared by generated documents.
var (
	colorPrimary   = [3]int{24, 49, 83}    // Deep navy
	colorAccent    = [3]int{41, 128, 185}  // Blue
	colorTextDark  = [3]int{40, 44, 52}    // Body text
	colorTextMuted = [3]int{120, 130, 140} // Muted text
	colorRule      = [3]int{205, 210, 216} // Hairlines
)

// TemplateSource provides the pledge template PDF. It prefers the file at
// path (so deployments can ship their own artwork) and falls back to a
// generated document. Reload is hooked to the template watcher.
type TemplateSource struct {
	path string

	mu    sync.RWMutex
	cache []byte
}

// NewTemplateSource creates a source for the given template path.
func NewTemplateSource(path string) *TemplateSource {
	return &TemplateSource{path: path}
}

// Bytes returns the template PDF, loading or generating it on first use.
func (t *TemplateSource) Bytes() ([]byte, error) {
	t.mu.RLock()
	cached := t.cache
	t.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cache != nil {
		return t.cache, nil
	}

	if t.path != "" {
		if data, err := os.ReadFile(t.path); err == nil {
			t.cache = data
			return data, nil
		}
	}

	data, err := GeneratePledgeTemplate()
	if err != nil {
		return nil, err
	}
	t.cache = data
	log.Debug().Str("path", t.path).Msg("Pledge template generated (no file on disk)")
	return data, nil
}

// Reload drops the cached template so the next Bytes call re-reads disk.
func (t *TemplateSource) Reload() {
	t.mu.Lock()
	t.cache = nil
	t.mu.Unlock()
}

// GeneratePledgeTemplate renders the supporter pledge document. Layout
// uses PDF points so the signature area lines up with the stamp
// coordinates used by the payment webhook (77, 638 from the bottom-left
// of an A4 page).
func GeneratePledgeTemplate() ([]byte, error) {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(64, 64, 64)
	pdf.SetAutoPageBreak(true, 64)
	pdf.AddPage()

	pageWidth, pageHeight := pdf.GetPageSize()

	// Top accent bar
	pdf.SetFillColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
	pdf.Rect(0, 0, pageWidth, 14, "F")

	pdf.SetY(72)
	pdf.SetFont("Helvetica", "B", 30)
	pdf.SetTextColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
	pdf.CellFormat(0, 34, "SIGNET", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.CellFormat(0, 16, "Founding Supporter Pledge", "", 1, "C", false, 0, "")

	pdf.SetY(150)
	pdf.SetFont("Helvetica", "", 12)
	pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
	pledge := "By signing below, I pledge my support for open, verifiable " +
		"digital signatures. I believe agreements should be transparent, " +
		"auditable, and owned by the people who make them."
	pdf.MultiCell(pageWidth-128, 18, pledge, "", "L", false)

	// Signature area. An A4 page is 842pt tall; the stamp lands at 638pt
	// from the bottom edge, i.e. 204pt from the top.
	sigTop := pageHeight - 638.0
	pdf.SetDrawColor(colorRule[0], colorRule[1], colorRule[2])
	pdf.SetLineWidth(0.8)
	pdf.Line(72, sigTop+56, 320, sigTop+56)

	pdf.SetXY(72, sigTop+62)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.CellFormat(0, 12, "Signature", "", 1, "L", false, 0, "")

	// Footer
	pdf.SetY(pageHeight - 96)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.CellFormat(0, 12, fmt.Sprintf("Issued %s", time.Now().Format("January 2, 2006")), "", 1, "C", false, 0, "")
	pdf.SetTextColor(colorAccent[0], colorAccent[1], colorAccent[2])
	pdf.CellFormat(0, 12, "signet", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pledge template: %w", err)
	}
	return buf.Bytes(), nil
}
