// Package ratelimit fornece os adapters HTTP (net/http) da cota por API key.
//
// Visão geral (camadas):
//
//   - domain: tipos e contratos (Key, Decision, Telemetry, AdmissionError)
//   - application: Gate (autenticação + ledger) e InFlight, sem net/http
//   - infra: Ledger, FloodStore (x/time/rate), ChanPool, stores de estatística
//   - ratelimit (este pacote): middlewares, extração da chave e tradução para
//     status/headers/envelope JSON
//
// Fluxo de uma cotação:
//
//  1. FloodGuard barra rajadas por IP (opcional, não consome cota)
//  2. Middleware extrai a API key (query api_key ou header X-Api-Key)
//  3. Gate decide; rejeição vira 401/429 com envelope {status, error_code, message, rate_limit}
//  4. Admitida: a telemetria vai para o contexto e o próximo handler a embute na resposta
package ratelimit
