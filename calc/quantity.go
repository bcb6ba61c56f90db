package calc

import "encoding/json"

// Quantity is a magnitude in coherent SI units together with its
// dimension. A scalar is a one-element value with Array unset; every
// element of an array shares the dimension.
type Quantity struct {
	Values []float64
	Array  bool
	Dim    Dimension
}

func scalarQuantity(v float64, dim Dimension) Quantity {
	return Quantity{Values: []float64{v}, Dim: dim}
}

func arrayQuantity(values []float64, dim Dimension) Quantity {
	return Quantity{Values: values, Array: true, Dim: dim}
}

// Scalar returns the value of a non-array quantity.
func (q Quantity) Scalar() (float64, bool) {
	if q.Array || len(q.Values) != 1 {
		return 0, false
	}
	return q.Values[0], true
}

func (q Quantity) Len() int {
	return len(q.Values)
}

func (q Quantity) withValues(values []float64) Quantity {
	return Quantity{Values: values, Array: q.Array, Dim: q.Dim}
}

type quantityJSON struct {
	Values    []float64 `json:"values"`
	Array     bool      `json:"array,omitempty"`
	Dimension string    `json:"dimension"`
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(quantityJSON{Values: q.Values, Array: q.Array, Dimension: q.Dim.String()})
}
