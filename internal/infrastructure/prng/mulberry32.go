// Package prng holds the seeded generator behind the eligibility draw.
package prng

// Mulberry32 is the classic 32-bit mulberry32 generator. Its output is
// bit-identical to the common JavaScript rendition for the same seed.
type Mulberry32 struct {
	state uint32
}

func NewMulberry32(seed uint32) *Mulberry32 {
	return &Mulberry32{state: seed}
}

// Uint32 advances the generator and returns the raw 32-bit output.
func (m *Mulberry32) Uint32() uint32 {
	m.state += 0x6d2b79f5
	t := m.state
	t = (t ^ (t >> 15)) * (t | 1)
	t = (t + (t^(t>>7))*(t|61)) ^ t
	return t ^ (t >> 14)
}

// Float64 returns the next value in [0,1).
func (m *Mulberry32) Float64() float64 {
	return float64(m.Uint32()) / 4294967296
}

// Generator returns a closure over a fresh generator seeded with seed.
func Generator(seed uint32) func() float64 {
	return NewMulberry32(seed).Float64
}

// FirstDraw is the first value of a fresh stream for seed.
func FirstDraw(seed uint32) float64 {
	return NewMulberry32(seed).Float64()
}
