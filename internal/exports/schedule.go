package exports

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"partpay/financing-portal/financing-portal-backend/internal/financing"
)

// ScheduleExporter writes a contract's installment schedule as an
// Excel workbook.
type ScheduleExporter struct {
	options ScheduleOptions
}

// ScheduleOptions configures the workbook layout.
type ScheduleOptions struct {
	SheetName    string `json:"sheet_name"`
	FreezeHeader bool   `json:"freeze_header"`
	AutoFilter   bool   `json:"auto_filter"`
	DateFormat   string `json:"date_format"`
	Decimals     uint8  `json:"decimals"`
}

// DefaultScheduleOptions returns the portal's standard schedule layout.
func DefaultScheduleOptions() ScheduleOptions {
	return ScheduleOptions{
		SheetName:    "Schedule",
		FreezeHeader: true,
		AutoFilter:   true,
		DateFormat:   "2006-01-02",
		Decimals:     6,
	}
}

// NewScheduleExporter creates a schedule exporter.
func NewScheduleExporter(options ScheduleOptions) *ScheduleExporter {
	return &ScheduleExporter{options: options}
}

type scheduleRow struct {
	number  int
	label   string
	dueDate int64
	amount  uint64
	paid    bool
}

// Export writes the schedule workbook for the contract to w. Due dates
// are projected from the contract start at its payment cadence; the
// deposit is the first installment.
func (e *ScheduleExporter) Export(contract *financing.Contract, w io.Writer) error {
	file := excelize.NewFile()
	defer file.Close()

	sheet := e.options.SheetName
	file.SetSheetName("Sheet1", sheet)

	if err := e.writeHeader(file, sheet); err != nil {
		return err
	}

	rows := buildScheduleRows(contract)
	for i, row := range rows {
		rowIdx := i + 2
		values := []interface{}{
			row.number,
			row.label,
			time.Unix(row.dueDate, 0).UTC().Format(e.options.DateFormat),
			e.formatAmount(row.amount),
			paidLabel(row.paid),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowIdx)
			file.SetCellValue(sheet, cell, value)
		}
	}

	if e.options.AutoFilter {
		lastCell, _ := excelize.CoordinatesToCellName(5, len(rows)+1)
		file.AutoFilter(sheet, "A1:"+lastCell, nil)
	}

	return file.Write(w)
}

func (e *ScheduleExporter) writeHeader(file *excelize.File, sheet string) error {
	headers := []string{"#", "Installment", "Due Date", "Amount", "Status"}

	styleID, err := file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		file.SetCellValue(sheet, cell, header)
		file.SetCellStyle(sheet, cell, cell, styleID)
	}

	if e.options.FreezeHeader {
		file.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}
	return nil
}

// buildScheduleRows projects the repayment plan: the deposit up front,
// then the financed balance split evenly across the remaining
// installments with the rounding remainder on the last one.
func buildScheduleRows(contract *financing.Contract) []scheduleRow {
	rows := []scheduleRow{{
		number:  1,
		label:   "Deposit",
		dueDate: contract.StartDate,
		amount:  contract.Deposit,
		paid:    contract.PaidInstallments >= 1,
	}}

	count := int(contract.InstallmentCount)
	if count == 0 {
		return rows
	}

	financed := contract.TotalAmount - contract.Deposit
	base := financed / uint64(count)
	freq := contract.FrequencySeconds()

	for i := 1; i <= count; i++ {
		amount := base
		if i == count {
			amount = financed - base*uint64(count-1)
		}
		rows = append(rows, scheduleRow{
			number:  i + 1,
			label:   fmt.Sprintf("Installment %d", i),
			dueDate: contract.StartDate + int64(i)*freq,
			amount:  amount,
			paid:    int(contract.PaidInstallments) >= i+1,
		})
	}
	return rows
}

func (e *ScheduleExporter) formatAmount(amount uint64) string {
	if e.options.Decimals == 0 {
		return fmt.Sprintf("%d", amount)
	}
	divisor := uint64(1)
	for i := uint8(0); i < e.options.Decimals; i++ {
		divisor *= 10
	}
	return fmt.Sprintf("%d.%0*d", amount/divisor, e.options.Decimals, amount%divisor)
}

func paidLabel(paid bool) string {
	if paid {
		return "Paid"
	}
	return "Upcoming"
}
