// Command facerec fits eigenface models and projects faces, either once from
// the command line or as a gRPC service.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/opaque/facerec/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "facerec",
	Short: "Eigenface feature extraction",
	Long: `facerec learns a low-dimensional face subspace from training faces
(PCA via SVD) and projects new faces into it. The coordinates it produces are
features for a downstream matcher.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// loadConfig reads the config file named by --config plus the environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
