package collection

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const hoursPerDay = 24 * time.Hour

// RateSource names where a resolved weekly rate came from.
type RateSource string

const (
	RateSourceSeat    RateSource = "seat"
	RateSourceMachine RateSource = "machine"
	RateSourceType    RateSource = "type"
	RateSourceNone    RateSource = "none"
)

// WeeklyRate is a resolved rate with a human-readable note of its source.
type WeeklyRate struct {
	Amount decimal.Decimal
	Source RateSource
	Note   string
}

// ResolveWeeklyRate picks the first positive rate among the seat's own rate, the machine override and the
// machine type default (scaled by the seat count when the type says so). Zero means no tax is due.
func ResolveWeeklyRate(view SeatView) WeeklyRate {
	if view.Seat.WeeklyRate.IsPositive() {
		return WeeklyRate{Amount: view.Seat.WeeklyRate, Source: RateSourceSeat, Note: rateNoteSeat}
	}
	if view.Machine.OverrideWeeklyRate.Valid && view.Machine.OverrideWeeklyRate.Decimal.IsPositive() {
		return WeeklyRate{Amount: view.Machine.OverrideWeeklyRate.Decimal, Source: RateSourceMachine, Note: rateNoteOverride}
	}
	typeRate := view.MachineType.DefaultWeeklyRate
	if typeRate.IsPositive() {
		note := fmt.Sprintf(rateNoteType, view.MachineType.Name)
		if view.MachineType.RatePerSeat && view.SeatCount > 1 {
			typeRate = typeRate.Mul(decimal.NewFromInt(int64(view.SeatCount)))
			note += fmt.Sprintf(rateNotePerSeat, view.SeatCount)
		}
		return WeeklyRate{Amount: typeRate, Source: RateSourceType, Note: note}
	}
	return WeeklyRate{Amount: decimal.Zero, Source: RateSourceNone, Note: rateNoteNone}
}

// DayCount returns the whole days between start and end. Negative differences clamp to zero.
func DayCount(start time.Time, end time.Time) int64 {
	days := int64(end.Sub(start) / hoursPerDay)
	if days < 0 {
		return 0
	}
	return days
}

// Prorate converts a weekly rate into the amount owed for dayCount days.
func (cfg Config) Prorate(weeklyRate decimal.Decimal, dayCount int64) decimal.Decimal {
	if dayCount <= 0 || !weeklyRate.IsPositive() {
		return decimal.Zero
	}
	return weeklyRate.
		Mul(decimal.NewFromInt(dayCount)).
		Div(decimal.NewFromInt(cfg.DaysPerWeek)).
		Round(cfg.MoneyScale)
}
