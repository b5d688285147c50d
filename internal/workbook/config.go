package workbook

import (
	"errors"
	"fmt"
	"strings"
)

const (
	defaultSheetName     = "RECAUDACION"
	defaultVersionMarker = "VERSION 1.0"
	versionToken         = "VERSION"
)

// ErrInvalidConfig is returned by NewCodec for unusable settings.
var ErrInvalidConfig = errors.New("invalid workbook config")

// Config controls how workbooks are written and recognised.
type Config struct {
	// SheetName names the single sheet of exported workbooks. Imports fall back to the first sheet.
	SheetName string
	// VersionMarker is written to D3 and must contain the VERSION token so re-imports detect the layout.
	VersionMarker string
	// ProtectionPassword optionally guards the locked cells of exported workbooks.
	ProtectionPassword string
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{SheetName: defaultSheetName, VersionMarker: defaultVersionMarker}
}

func (cfg *Config) normalize() error {
	cfg.SheetName = strings.TrimSpace(cfg.SheetName)
	if cfg.SheetName == "" {
		cfg.SheetName = defaultSheetName
	}
	cfg.VersionMarker = strings.TrimSpace(cfg.VersionMarker)
	if cfg.VersionMarker == "" {
		cfg.VersionMarker = defaultVersionMarker
	}
	if !strings.Contains(cfg.VersionMarker, versionToken) {
		return fmt.Errorf("%w: version marker %q must contain %q", ErrInvalidConfig, cfg.VersionMarker, versionToken)
	}
	return nil
}
