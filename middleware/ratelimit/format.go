package ratelimit

import "strconv"

// formatação de valores inteiros em headers sem passar por fmt.
func formatInt(v int) string { return strconv.Itoa(v) }
