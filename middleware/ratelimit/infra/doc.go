// Package infra contém as implementações concretas dos contratos de domain.
//
//   - Ledger: janela deslizante de 60s + cota diária móvel por API key
//   - FloodStore: token bucket por IP usando golang.org/x/time/rate
//   - ChanPool: semáforo para cotações em voo
//   - MemoryStatsStore, RedisStatsStore, MultiStatsStore: estatísticas de admissão
package infra
