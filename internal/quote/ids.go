package quote

import (
	"math/rand/v2"
	"strconv"
)

// IntN devolve um inteiro uniforme em [0, n).
type IntN interface {
	IntN(n int) int
}

// SystemRand usa o gerador global de math/rand/v2 (seguro entre goroutines).
type SystemRand struct{}

func (SystemRand) IntN(n int) int { return rand.IntN(n) }

const (
	quoteIDMin  = 100000000
	quoteIDSpan = 900000000
)

// NewQuoteID gera "MS-" seguido de um número de 9 dígitos.
func NewQuoteID(src IntN) string {
	return "MS-" + strconv.Itoa(quoteIDMin+src.IntN(quoteIDSpan))
}
