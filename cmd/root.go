package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lambalia/eats/internal/engine"
	"github.com/lambalia/eats/internal/models"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "lambalia-eats",
	Short: "Real-time local food matching and order lifecycle engine",
	Long:  `lambalia-eats runs the matching engine behind the Lambalia Eats exchange: cooks publish time-boxed food offers, eaters publish requests, the engine matches them by proximity and constraints, tracks orders through their lifecycle, and pushes live status events to both parties.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := models.LoadConfig(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		eng, err := engine.New(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error starting engine: %v\n", err)
			os.Exit(1)
		}
		defer eng.Close()

		if cfg.SeedDemo {
			eng.SeedDemo()
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		eng.Run(ctx)
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.lambalia-eats.yaml)")

	rootCmd.Flags().Int("seed", 42, "Random seed for demo data")
	rootCmd.Flags().Duration("sweep-interval", 0, "Interval between expiry sweeps")
	rootCmd.Flags().Float64("default-search-radius-km", 10.0, "Default browse radius in kilometres")
	rootCmd.Flags().Float64("default-commission-rate", 0.15, "Commission rate applied when no tier service is configured")
	rootCmd.Flags().Bool("kafka-enabled", false, "Publish lifecycle events to Kafka")
	rootCmd.Flags().String("kafka-broker-list", "localhost:9092", "Kafka broker list")
	rootCmd.Flags().Bool("postgres-enabled", false, "Persist listings and orders to Postgres")
	rootCmd.Flags().String("database-url", "", "Postgres connection string")
	rootCmd.Flags().String("output-file", "", "Directory for JSON-lines event files (if not using Kafka)")
	rootCmd.Flags().Bool("seed-demo", false, "Seed the engine with demo offers and requests")
	rootCmd.Flags().Int("demo-offers", 25, "Number of demo offers to seed")
	rootCmd.Flags().Int("demo-requests", 10, "Number of demo requests to seed")
	rootCmd.Flags().Float64("city-latitude", 40.7128, "City centre latitude for demo data")
	rootCmd.Flags().Float64("city-longitude", -74.0060, "City centre longitude for demo data")

	viper.BindPFlags(rootCmd.Flags())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".lambalia-eats")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
