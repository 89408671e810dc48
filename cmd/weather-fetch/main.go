package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var opts Options

	rootCmd := &cobra.Command{
		Use:           "weather-fetch",
		Short:         "Cached HTTP fetcher and weather forecast client",
		Long:          "Fetch JSON over HTTPS through a two-tier cache and load api.weather.gov forecasts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "Path to YAML configuration (default $FETCH_CONFIG_FILE)")
	rootCmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "Enable development logging")

	rootCmd.AddCommand(
		forecastCmd(&opts),
		fetchCmd(&opts),
		cacheCmd(&opts),
		serveCmd(&opts),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
