package collection

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ReportLine is a detail line in export order with its synthesized label and machine-group edges.
type ReportLine struct {
	View       DetailView
	Label      string
	GroupSize  int
	GroupStart bool
	GroupEnd   bool
}

// PeriodTotals are the amounts derived from a period and its lines.
type PeriodTotals struct {
	CashWithdrawn     decimal.Decimal
	CashBox           decimal.Decimal
	ManualPayouts     decimal.Decimal
	ManualAdjustments decimal.Decimal
	Gross             decimal.Decimal
	EstimatedTax      decimal.Decimal
	FinalTax          decimal.Decimal
	Net               decimal.Decimal
	Global            decimal.Decimal
}

// PeriodReport is a period with its venue name, ordered lines and totals.
type PeriodReport struct {
	Period    Period
	VenueName string
	DayCount  int64
	Lines     []ReportLine
	Totals    PeriodTotals
}

// BuildReport orders lines so every multi-row machine is contiguous (multi-row machines first, then single
// rows, each by machine name; seats by number) and derives the period totals.
func BuildReport(period Period, venueName string, views []DetailView) PeriodReport {
	groupSizes := make(map[uint]int, len(views))
	for _, view := range views {
		groupSizes[view.Line.MachineID]++
	}

	ordered := make([]DetailView, len(views))
	copy(ordered, views)
	sort.SliceStable(ordered, func(left, right int) bool {
		leftView, rightView := ordered[left], ordered[right]
		leftGrouped := groupSizes[leftView.Line.MachineID] > 1
		rightGrouped := groupSizes[rightView.Line.MachineID] > 1
		if leftGrouped != rightGrouped {
			return leftGrouped
		}
		leftName, rightName := strings.ToUpper(leftView.MachineName), strings.ToUpper(rightView.MachineName)
		if leftName != rightName {
			return leftName < rightName
		}
		if leftView.Line.MachineID != rightView.Line.MachineID {
			return leftView.Line.MachineID < rightView.Line.MachineID
		}
		if leftView.SeatNumber != rightView.SeatNumber {
			return leftView.SeatNumber < rightView.SeatNumber
		}
		return leftView.Line.ID < rightView.Line.ID
	})

	lines := make([]ReportLine, len(ordered))
	for index, view := range ordered {
		size := groupSizes[view.Line.MachineID]
		lines[index] = ReportLine{
			View:      view,
			Label:     SynthesizeLabel(view, size),
			GroupSize: size,
		}
		if size > 1 {
			lines[index].GroupStart = index == 0 || ordered[index-1].Line.MachineID != view.Line.MachineID
			lines[index].GroupEnd = index == len(ordered)-1 || ordered[index+1].Line.MachineID != view.Line.MachineID
		}
	}

	return PeriodReport{
		Period:    period,
		VenueName: venueName,
		DayCount:  period.DayCount(),
		Lines:     lines,
		Totals:    computeTotals(period, ordered),
	}
}

func computeTotals(period Period, views []DetailView) PeriodTotals {
	totals := PeriodTotals{}
	for _, view := range views {
		line := view.Line
		totals.CashWithdrawn = totals.CashWithdrawn.Add(line.CashWithdrawn)
		totals.CashBox = totals.CashBox.Add(line.CashBox)
		totals.ManualPayouts = totals.ManualPayouts.Add(line.ManualPayout)
		totals.ManualAdjustments = totals.ManualAdjustments.Add(line.ManualAdjustment)
		totals.Gross = totals.Gross.Add(line.Gross())
		totals.EstimatedTax = totals.EstimatedTax.Add(line.EstimatedTax)
		totals.FinalTax = totals.FinalTax.Add(line.FinalTax)
	}
	totals.Net = totals.Gross.Sub(totals.FinalTax)
	totals.Global = totals.Gross.Sub(period.ReportedTax).Add(period.Deposits).Add(period.OtherAdjustments)
	return totals
}

// DetailLines extracts the lines of a report in export order.
func (report PeriodReport) DetailLines() []DetailLine {
	lines := make([]DetailLine, len(report.Lines))
	for index, reportLine := range report.Lines {
		lines[index] = reportLine.View.Line
	}
	return lines
}
