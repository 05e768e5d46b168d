// Package quote calcula as cotações simuladas da MegaShipping e serve o
// endpoint /shipping/quote. A fórmula é determinística; apenas o id da
// cotação e a latência artificial vêm de fontes aleatórias injetáveis.
package quote
