package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"

	"megashipping-mock/internal/config"
	"megashipping-mock/internal/smoke"
)

// Valida um mock em execução:
//
//	BASE_URL=http://localhost:3000 API_KEY=MS-A12B34C56D78E90F go run ./teste-validacao/smoke
func main() {
	baseURL := getenvDefault("BASE_URL", "http://localhost:3000")
	apiKey := getenvDefault("API_KEY", config.DefaultAPIKey)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	checks, err := smoke.NewClient(baseURL, apiKey).Run(ctx)

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle("MegaShipping smoke @ %s", baseURL)
	t.AppendHeader(table.Row{"Check", "Result", "Detail"})
	failed := 0
	for _, ch := range checks {
		result := "PASS"
		if !ch.Passed {
			result = "FAIL"
			failed++
		}
		t.AppendRow(table.Row{ch.Name, result, ch.Detail})
	}
	fmt.Println(t.Render())

	if err != nil {
		fmt.Fprintf(os.Stderr, "interrompido: %v\n", err)
		os.Exit(2)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
