package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"megashipping-mock/internal/config"
)

var (
	cfgFile string
	verbose bool

	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo é chamado pelo main com os valores do ldflags.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var rootCmd = &cobra.Command{
	Use:   "megashipping",
	Short: "MegaShipping quote API mock",
	Long: `Mock da API de cotação da MegaShipping para testes de integração.

Reproduz o limite de 5 requisições por minuto e a cota de 100 por dia por
API key, além da fórmula de preço e da latência simulada.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config/megashipping.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
}

// loadConfig aplica as flags globais sobre a configuração carregada.
func loadConfig() (*config.Loader, *config.Config, error) {
	loader := config.NewLoader(cfgFile)
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return loader, cfg, nil
}
