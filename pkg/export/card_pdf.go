package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// CardData carries the fields printed on a student identity card.
type CardData struct {
	NISN           string
	FullName       string
	BirthPlace     string
	BirthDate      time.Time
	FullAddress    string
	QRCode         string
	PreviousSchool string
	IssuedAt       time.Time
}

// CardPDF renders student identity cards in ID-1 landscape format.
type CardPDF struct {
	schoolName string
}

// NewCardPDF constructs a card renderer with the issuing school name.
func NewCardPDF(schoolName string) *CardPDF {
	if schoolName == "" {
		schoolName = "STUDENT IDENTITY CARD"
	}
	return &CardPDF{schoolName: schoolName}
}

// Render produces the PDF bytes for a single card.
func (r *CardPDF) Render(card CardData) ([]byte, error) {
	if card.NISN == "" || card.FullName == "" {
		return nil, fmt.Errorf("card requires nisn and full name")
	}

	// 85.6 x 54 mm, the ID-1 card size.
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "mm",
		Size:    gofpdf.SizeType{Wd: 85.6, Ht: 54},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(0, 5, strings.ToUpper(r.schoolName), "", 1, "C", false, 0, "")
	pdf.SetLineWidth(0.3)
	pdf.Line(4, 10, 81.6, 10)
	pdf.Ln(2)

	pdf.SetFont("Arial", "B", 8)
	pdf.CellFormat(0, 4, card.FullName, "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 7)
	writeRow := func(label, value string) {
		pdf.CellFormat(22, 3.6, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 3.6, ": "+value, "", 1, "L", false, 0, "")
	}
	writeRow("NISN", card.NISN)
	writeRow("Birth", fmt.Sprintf("%s, %s", card.BirthPlace, card.BirthDate.Format("02 Jan 2006")))
	writeRow("Address", truncate(card.FullAddress, 48))
	if card.PreviousSchool != "" {
		writeRow("Prev. school", truncate(card.PreviousSchool, 40))
	}

	pdf.Ln(1)
	pdf.SetFont("Courier", "", 6)
	pdf.CellFormat(0, 3.2, "QR "+card.QRCode, "", 1, "L", false, 0, "")

	issued := card.IssuedAt
	if issued.IsZero() {
		issued = time.Now()
	}
	pdf.SetFont("Arial", "I", 5.5)
	pdf.SetY(-8)
	pdf.CellFormat(0, 3, "Issued "+issued.Format("2006-01-02"), "", 0, "R", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render card pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
