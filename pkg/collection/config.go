package collection

import "fmt"

const (
	defaultMoneyScale    int32 = 2
	defaultVarianceScale int32 = 4
	defaultDaysPerWeek   int64 = 7
)

// Config holds the engine settings passed to NewService.
type Config struct {
	// MoneyScale is the number of decimal places kept for estimated taxes.
	MoneyScale int32
	// VarianceScale is the number of decimal places kept for variance shares.
	VarianceScale int32
	// DaysPerWeek converts weekly rates into daily rates.
	DaysPerWeek int64
	// ExcludedLabelKeywords are spreadsheet header words never offered as unmapped labels.
	ExcludedLabelKeywords []string
}

// DefaultConfig returns the settings used in production.
func DefaultConfig() Config {
	return Config{
		MoneyScale:    defaultMoneyScale,
		VarianceScale: defaultVarianceScale,
		DaysPerWeek:   defaultDaysPerWeek,
		ExcludedLabelKeywords: []string{
			"MAQUINA", "MÁQUINA", "MAQUINAS", "MÁQUINAS",
			"TOTAL", "TOTALES", "SUBTOTAL",
			"IMPUESTOS", "TASA", "TASAS", "DPS", "DEPOSITOS", "DEPÓSITOS",
			"RETIRADA", "CAJON", "CAJÓN", "PAGO", "PAGOS", "AJUSTE", "AJUSTES",
			"BRUTO", "NETO", "OTROS", "SALON", "SALÓN", "FECHA", "DIAS", "DÍAS",
		},
	}
}

func (cfg Config) validate() error {
	if cfg.MoneyScale < 0 {
		return fmt.Errorf("%w: money scale must not be negative", ErrInvalidServiceConfig)
	}
	if cfg.VarianceScale < 0 {
		return fmt.Errorf("%w: variance scale must not be negative", ErrInvalidServiceConfig)
	}
	if cfg.DaysPerWeek <= 0 {
		return fmt.Errorf("%w: days per week must be positive", ErrInvalidServiceConfig)
	}
	return nil
}
