package domain

import "strconv"

// Money is an amount in the smallest currency unit. Rupiah has no minor unit,
// so 45000 is Rp45.000.
type Money int64

func (m Money) String() string { return strconv.FormatInt(int64(m), 10) }

// Times returns m multiplied by a quantity.
func (m Money) Times(qty int) Money { return m * Money(qty) }
