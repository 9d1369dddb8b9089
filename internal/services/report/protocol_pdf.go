package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"

	"github.com/xelth-com/protocolos/internal/models"
)

// Photo is an image embedded in the report.
type Photo struct {
	Role string
	Data []byte
	Type string // "JPG" or "PNG"
}

// ImageType maps a content type to the gofpdf image type, "" if unsupported.
func ImageType(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return "JPG"
	case "image/png":
		return "PNG"
	}
	return ""
}

var statusLabels = map[string]string{
	models.StatusOpen:       "Aberto",
	models.StatusInProgress: "Em andamento",
	models.StatusClosed:     "Encerrado",
}

var roleLabels = map[string]string{
	"nota":    "Nota fiscal",
	"produto": "Produto",
	"avaria":  "Avaria",
}

// ProtocolPDF renders a one-page A4 summary of p with its photos and a QR
// code pointing at link.
func ProtocolPDF(p *models.Protocol, photos []Photo, link string, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	qrPng, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR: %w", err)
	}
	qrOpts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	pdf.RegisterImageOptionsReader("qr", qrOpts, bytes.NewReader(qrPng))
	pdf.ImageOptions("qr", 165, 12, 30, 30, false, qrOpts, 0, link)

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(145, 9, tr("Protocolo "+p.Number), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(145, 6, tr("Status: "+statusLabel(p.Status)), "", 1, "L", false, 0, "")
	pdf.Ln(8)

	rows := [][2]string{
		{"Unidade", p.UnitCode},
		{"PDV", strings.TrimSpace(p.PdvCode + " " + p.PdvName)},
		{"Motorista", p.DriverName},
		{"Motivo", p.Reason},
		{"Produto", strings.TrimSpace(p.ProductCode + " " + p.ProductName)},
		{"Quantidade", formatQuantity(p.Quantity)},
		{"Aberto em", p.CreatedAt.In(loc).Format("02/01/2006 15:04")},
	}
	if p.ValidatedAt != nil {
		rows = append(rows, [2]string{"Validado", p.ValidatedBy + " em " + p.ValidatedAt.In(loc).Format("02/01/2006 15:04")})
	}
	if p.ClosedAt != nil {
		rows = append(rows, [2]string{"Encerrado", p.ClosedBy + " em " + p.ClosedAt.In(loc).Format("02/01/2006 15:04")})
	}
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(35, 7, tr(r[0]), "B", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(145, 7, tr(r[1]), "B", 1, "L", false, 0, "")
	}
	if p.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(180, 7, tr("Observações"), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(180, 5, tr(p.Notes), "", "L", false)
	}

	if len(photos) > 0 {
		pdf.Ln(6)
		const w, gap = 56.0, 6.0
		y := pdf.GetY()
		for i, ph := range photos {
			name := fmt.Sprintf("photo_%d", i)
			opts := gofpdf.ImageOptions{ImageType: ph.Type, ReadDpi: true}
			info := pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(ph.Data))
			if info == nil || pdf.Err() {
				return nil, fmt.Errorf("photo %s: %w", ph.Role, pdf.Error())
			}
			x := 15 + float64(i%3)*(w+gap)
			pdf.SetXY(x, y)
			pdf.SetFont("Arial", "B", 9)
			pdf.CellFormat(w, 6, tr(roleLabel(ph.Role)), "", 0, "C", false, 0, "")
			pdf.ImageOptions(name, x, y+7, w, 0, false, opts, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func statusLabel(s string) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return s
}

func roleLabel(r string) string {
	if l, ok := roleLabels[r]; ok {
		return l
	}
	return r
}

func formatQuantity(q float64) string {
	if q == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", q), "0"), ".")
}
