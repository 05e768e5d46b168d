// Package domain define os tipos e contratos da cota por API key: a decisão
// do ledger, a telemetria devolvida ao cliente e os erros de admissão.
//
// Este pacote não depende de net/http nem de implementações concretas.
package domain
