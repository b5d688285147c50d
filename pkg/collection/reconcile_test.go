package collection

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDistributeVarianceMatchesReportedTotal(test *testing.T) {
	test.Parallel()
	config := DefaultConfig()
	lines := []DetailLine{
		{ID: 1, EstimatedTax: mustDecimal(test, "33.33")},
		{ID: 2, EstimatedTax: mustDecimal(test, "33.33")},
		{ID: 3, EstimatedTax: mustDecimal(test, "33.34")},
		{ID: 4, EstimatedTax: mustDecimal(test, "12.07")},
		{ID: 5, EstimatedTax: mustDecimal(test, "0")},
	}
	reported := mustDecimal(test, "150")

	settled := config.DistributeVariance(reported, lines)

	tolerance := mustDecimal(test, "0.0001").Mul(decimal.NewFromInt(int64(len(lines))))
	if gap := SumFinalTax(settled).Sub(reported).Abs(); gap.GreaterThan(tolerance) {
		test.Fatalf("final tax sum %s differs from reported %s by %s", SumFinalTax(settled), reported, gap)
	}
	if !settled[4].VarianceShare.IsZero() {
		test.Fatalf("expected zero share for a zero estimate, got %s", settled[4].VarianceShare)
	}
	for _, line := range settled {
		if line.VarianceShare.Exponent() < -4 {
			test.Fatalf("expected shares rounded to 4 places, got %s", line.VarianceShare)
		}
	}
}

func TestDistributeVarianceKeepsManualAdjustment(test *testing.T) {
	test.Parallel()
	config := DefaultConfig()
	lines := []DetailLine{
		{ID: 1, EstimatedTax: mustDecimal(test, "60"), ManualAdjustment: mustDecimal(test, "5")},
		{ID: 2, EstimatedTax: mustDecimal(test, "40")},
	}

	settled := config.DistributeVariance(mustDecimal(test, "110"), lines)

	assertDecimal(test, "first share", "6", settled[0].VarianceShare)
	assertDecimal(test, "first final", "71", settled[0].FinalTax)
	assertDecimal(test, "second share", "4", settled[1].VarianceShare)
	assertDecimal(test, "second final", "44", settled[1].FinalTax)
}

func TestDistributeVarianceDegenerateEstimates(test *testing.T) {
	test.Parallel()
	config := DefaultConfig()
	lines := []DetailLine{{ID: 1}, {ID: 2, ManualAdjustment: mustDecimal(test, "2.5")}}

	settled := config.DistributeVariance(mustDecimal(test, "500"), lines)

	for _, line := range settled {
		if !line.VarianceShare.IsZero() {
			test.Fatalf("expected zero share, got %s on line %d", line.VarianceShare, line.ID)
		}
	}
	assertDecimal(test, "final with adjustment", "2.5", settled[1].FinalTax)
}

func TestDistributeVarianceToleranceAcrossManyLines(test *testing.T) {
	test.Parallel()
	config := DefaultConfig()
	lines := make([]DetailLine, 97)
	for index := range lines {
		lines[index] = DetailLine{ID: uint(index + 1), EstimatedTax: config.Prorate(decimal.NewFromInt(int64(13+index)), 9)}
	}
	reported := mustDecimal(test, "1234.56")

	settled := config.DistributeVariance(reported, lines)

	tolerance := mustDecimal(test, "0.0001").Mul(decimal.NewFromInt(int64(len(lines))))
	if gap := SumFinalTax(settled).Sub(reported).Abs(); gap.GreaterThan(tolerance) {
		test.Fatalf("rounding residue %s exceeds %s", gap, tolerance)
	}
}
