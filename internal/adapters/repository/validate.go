package repository

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/okian/swatrank/internal/domain/model"
)

// NormalizeName trims a display name and collapses inner whitespace.
func NormalizeName(name string) (string, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "", ErrInvalidName
	}
	return name, nil
}

// ValidateValue rejects measurements that cannot be ranked. A nil value is
// an absence and always valid.
func ValidateValue(value *float64) error {
	if value == nil {
		return nil
	}
	v := *value
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: not a finite number", ErrInvalidValue)
	}
	if v < 0 {
		return fmt.Errorf("%w: %v is negative", ErrInvalidValue, v)
	}
	return nil
}

func sortByStage(ms []model.Measurement) {
	slices.SortFunc(ms, func(a, b model.Measurement) int {
		return strings.Compare(a.StageID, b.StageID)
	})
}
