package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/signetapp/signet/internal/models"
)

// CertificateInput carries everything the completion certificate renders.
type CertificateInput struct {
	Document   *models.Document
	Recipients []models.Recipient
	Events     []models.AuditEvent
	SealedAt   time.Time
}

// GenerateCertificate renders the audit certificate appended to a
// completed document's download. It lists every recipient and the full
// audit trail in chronological order.
func GenerateCertificate(in CertificateInput) ([]byte, error) {
	if in.Document == nil {
		return nil, fmt.Errorf("certificate requires a document")
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(56, 56, 56)
	pdf.SetAutoPageBreak(true, 56)
	pdf.AddPage()

	pageWidth, _ := pdf.GetPageSize()
	usable := pageWidth - 112

	pdf.SetFillColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
	pdf.Rect(0, 0, pageWidth, 14, "F")

	pdf.SetY(64)
	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetTextColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
	pdf.CellFormat(0, 26, "Certificate of Completion", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.CellFormat(0, 16, fmt.Sprintf("Sealed %s", in.SealedAt.UTC().Format("2006-01-02 15:04:05 MST")), "", 1, "L", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
	pdf.CellFormat(0, 18, in.Document.Title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.CellFormat(0, 14, fmt.Sprintf("Document ID: %d", in.Document.ID), "", 1, "L", false, 0, "")
	pdf.Ln(14)

	// Recipients table
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
	pdf.CellFormat(0, 18, "Parties", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(240, 243, 246)
	pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
	pdf.CellFormat(usable*0.28, 16, "Name", "1", 0, "L", true, 0, "")
	pdf.CellFormat(usable*0.34, 16, "Email", "1", 0, "L", true, 0, "")
	pdf.CellFormat(usable*0.18, 16, "Role", "1", 0, "L", true, 0, "")
	pdf.CellFormat(usable*0.20, 16, "Status", "1", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, r := range in.Recipients {
		pdf.CellFormat(usable*0.28, 15, r.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(usable*0.34, 15, r.Email, "1", 0, "L", false, 0, "")
		pdf.CellFormat(usable*0.18, 15, string(r.Role), "1", 0, "L", false, 0, "")
		pdf.CellFormat(usable*0.20, 15, string(r.Status), "1", 1, "L", false, 0, "")
	}
	pdf.Ln(16)

	// Audit trail
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
	pdf.CellFormat(0, 18, "Audit Trail", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(240, 243, 246)
	pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
	pdf.CellFormat(usable*0.26, 16, "Time (UTC)", "1", 0, "L", true, 0, "")
	pdf.CellFormat(usable*0.28, 16, "Action", "1", 0, "L", true, 0, "")
	pdf.CellFormat(usable*0.46, 16, "Detail", "1", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, ev := range in.Events {
		pdf.CellFormat(usable*0.26, 15, ev.CreatedAt.UTC().Format("2006-01-02 15:04:05"), "1", 0, "L", false, 0, "")
		pdf.CellFormat(usable*0.28, 15, ev.Action, "1", 0, "L", false, 0, "")
		pdf.CellFormat(usable*0.46, 15, ev.Detail, "1", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return buf.Bytes(), nil
}
