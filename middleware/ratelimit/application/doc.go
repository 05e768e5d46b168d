// Package application contém os casos de uso da admissão: autenticar a API
// key, consultar o ledger e traduzir a decisão em sucesso ou AdmissionError;
// e a aquisição de vagas para cotações em voo.
//
// Depende apenas de domain e não conhece net/http.
package application
