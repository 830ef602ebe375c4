package model

import "fmt"

// Setup is a GPU configuration key: a type, a GPU count and a fraction of a
// single GPU in (0,1]. Two setups are equal iff all three fields match.
type Setup struct {
	GPUType     string
	GPUCount    int
	GPUFraction float64
}

// String renders the setup for logs and error messages.
func (s Setup) String() string {
	return fmt.Sprintf("%s/%dx%.2f", s.GPUType, s.GPUCount, s.GPUFraction)
}
