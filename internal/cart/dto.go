package cart

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/ventech/storefront-backend/pkg/types"
)

// ItemInput is one submitted cart line.
type ItemInput struct {
	ProductID        uuid.UUID               `json:"product_id" validate:"required"`
	Quantity         Quantity                `json:"quantity"`
	SelectedVariants types.VariantSelections `json:"selected_variants,omitempty"`
}

// Quantity accepts a JSON number, a numeric string, or anything else. Values
// that do not parse to a positive count become 1.
type Quantity int

// Int returns the coerced count, never less than 1.
func (q Quantity) Int() int {
	if q < 1 {
		return 1
	}
	return int(q)
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	*q = Quantity(coerceQuantity(data))
	return nil
}

func coerceQuantity(data []byte) int {
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 1
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 1
		}
		raw = []byte(strings.TrimSpace(s))
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 1 || f > math.MaxInt32 {
		return 1
	}
	return int(f)
}
