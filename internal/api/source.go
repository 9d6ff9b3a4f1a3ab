package api

import (
	"context"
	"fmt"
	"time"

	"github.com/smokyabdulrahman/salah-times/internal/geo"
)

// Source retrieves a raw multi-day table for one location.
type Source interface {
	Name() string
	FetchTable(ctx context.Context, loc geo.Location, now time.Time) (*Table, error)
}

// Source names accepted by NewSource.
const (
	SourceYabiladi = "yabiladi"
	SourceAladhan  = "aladhan"
)

// Sources lists the valid source names.
var Sources = []string{SourceYabiladi, SourceAladhan}

// NewSource builds the named source. method and school only apply to
// Al Adhan; negative values leave the choice to the API.
func NewSource(name string, method, school int) (Source, error) {
	switch name {
	case "", SourceYabiladi:
		return NewYabiladiSource(), nil
	case SourceAladhan:
		return NewAladhanSource(method, school), nil
	default:
		return nil, fmt.Errorf("unknown source %q (valid: %v)", name, Sources)
	}
}
