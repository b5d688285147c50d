package collection

import "github.com/shopspring/decimal"

// DistributeVariance spreads the gap between the reported total and the summed estimates across lines in
// proportion to each line's estimate, then settles every line's final tax. When the estimates sum to zero
// the variance is not distributed and every share is zero.
func (cfg Config) DistributeVariance(reportedTax decimal.Decimal, lines []DetailLine) []DetailLine {
	totalEstimated := decimal.Zero
	for _, line := range lines {
		totalEstimated = totalEstimated.Add(line.EstimatedTax)
	}
	variance := reportedTax.Sub(totalEstimated)

	settled := make([]DetailLine, len(lines))
	for index, line := range lines {
		share := decimal.Zero
		if !totalEstimated.IsZero() {
			share = variance.Mul(line.EstimatedTax).Div(totalEstimated).Round(cfg.VarianceScale)
		}
		line.VarianceShare = share
		line.settleFinalTax()
		settled[index] = line
	}
	return settled
}

// SumFinalTax adds up the final tax of every line.
func SumFinalTax(lines []DetailLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.FinalTax)
	}
	return total
}
