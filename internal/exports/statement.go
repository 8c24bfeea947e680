package exports

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"partpay/financing-portal/financing-portal-backend/internal/financing"
)

// StatementGenerator renders a financing contract statement as PDF.
type StatementGenerator struct {
	options StatementOptions
}

// StatementOptions configures statement rendering.
type StatementOptions struct {
	Title       string   `json:"title"`
	DateFormat  string   `json:"date_format"`
	HeaderColor pdfColor `json:"header_color"`
	FontFamily  string   `json:"font_family"`
	Decimals    uint8    `json:"decimals"`
}

type pdfColor struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// DefaultStatementOptions returns the portal's standard statement layout.
func DefaultStatementOptions() StatementOptions {
	return StatementOptions{
		Title:       "Equipment Financing Statement",
		DateFormat:  "2006-01-02",
		HeaderColor: pdfColor{R: 68, G: 114, B: 196},
		FontFamily:  "Arial",
		Decimals:    6,
	}
}

// NewStatementGenerator creates a statement generator.
func NewStatementGenerator(options StatementOptions) *StatementGenerator {
	return &StatementGenerator{options: options}
}

// Generate renders the contract statement and writes the PDF to w.
func (g *StatementGenerator) Generate(contract *financing.Contract, equipment *financing.Equipment, status *financing.ContractStatus, w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	g.addTitle(pdf)
	g.addGeneratedDate(pdf)
	pdf.Ln(6)

	g.addSection(pdf, "Contract", [][2]string{
		{"Contract ID", contract.ID.String()},
		{"Equipment", equipment.Name},
		{"Borrower ID", contract.BorrowerID.String()},
		{"Payee", fmt.Sprintf("%s (%s)", contract.PayeeID, contract.PayeeType)},
		{"Start Date", g.formatUnix(contract.StartDate)},
		{"End Date", g.formatUnix(contract.EndDate)},
		{"Installments", fmt.Sprintf("%d of %d paid", contract.PaidInstallments, contract.InstallmentCount)},
		{"Cadence", string(contract.Frequency)},
	})

	rows := [][2]string{
		{"Total Due", g.formatAmount(status.TotalDue)},
		{"Amount Paid", g.formatAmount(contract.AmountPaid)},
		{"Remaining", g.formatAmount(status.RemainingAmount)},
		{"Deposit", g.formatAmount(contract.Deposit)},
	}
	if contract.IsInsured && contract.InsurancePremium != nil {
		rows = append(rows, [2]string{"Insurance Premium", g.formatAmount(*contract.InsurancePremium)})
	}
	g.addSection(pdf, "Balance", rows)

	g.addSection(pdf, "Standing", [][2]string{
		{"Progress", fmt.Sprintf("%d%%", status.Progress)},
		{"Next Payment Due", g.formatUnix(status.NextPaymentDue)},
		{"Overdue", yesNo(status.IsPaymentOverdue)},
		{"Completed", yesNo(contract.IsCompleted)},
		{"Defaulted", yesNo(contract.IsDefaulted)},
	})

	return pdf.Output(w)
}

func (g *StatementGenerator) addTitle(pdf *gofpdf.Fpdf) {
	pdf.SetFont(g.options.FontFamily, "B", 16)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 10, g.options.Title, "", 1, "C", false, 0, "")
}

func (g *StatementGenerator) addGeneratedDate(pdf *gofpdf.Fpdf) {
	pdf.SetFont(g.options.FontFamily, "", 9)
	pdf.SetTextColor(128, 128, 128)
	dateStr := fmt.Sprintf("Generated: %s", time.Now().UTC().Format(g.options.DateFormat))
	pdf.CellFormat(0, 6, dateStr, "", 1, "R", false, 0, "")
}

// addSection renders a titled two-column key/value block.
func (g *StatementGenerator) addSection(pdf *gofpdf.Fpdf, title string, rows [][2]string) {
	c := g.options.HeaderColor
	pdf.SetFont(g.options.FontFamily, "B", 11)
	pdf.SetFillColor(c.R, c.G, c.B)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(0, 8, title, "1", 1, "L", true, 0, "")

	pdf.SetTextColor(0, 0, 0)
	fill := false
	for _, row := range rows {
		if fill {
			pdf.SetFillColor(242, 242, 242)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		pdf.SetFont(g.options.FontFamily, "B", 10)
		pdf.CellFormat(60, 7, row[0], "1", 0, "L", true, 0, "")
		pdf.SetFont(g.options.FontFamily, "", 10)
		pdf.CellFormat(0, 7, row[1], "1", 1, "L", true, 0, "")
		fill = !fill
	}
	pdf.Ln(5)
}

// formatAmount converts base units to a decimal string using the
// stablecoin's precision.
func (g *StatementGenerator) formatAmount(amount uint64) string {
	if g.options.Decimals == 0 {
		return fmt.Sprintf("%d", amount)
	}
	divisor := uint64(1)
	for i := uint8(0); i < g.options.Decimals; i++ {
		divisor *= 10
	}
	return fmt.Sprintf("%d.%0*d", amount/divisor, g.options.Decimals, amount%divisor)
}

func (g *StatementGenerator) formatUnix(ts int64) string {
	if ts == 0 {
		return "-"
	}
	return time.Unix(ts, 0).UTC().Format(g.options.DateFormat)
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
