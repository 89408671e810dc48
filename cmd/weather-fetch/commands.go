package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-fetch-cache/internal/fetcher"
	"go-fetch-cache/internal/models"
)

// withRoot builds the composition root for the duration of one command
func withRoot(opts *Options, run func(ctx context.Context, root *CompositionRoot) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		root, err := NewCompositionRoot(*opts)
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		defer func() {
			if err := root.Cleanup(); err != nil {
				root.Logger.Error("Failed to cleanup resources", zap.Error(err))
			}
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return run(ctx, root)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func forecastCmd(opts *Options) *cobra.Command {
	var (
		latitude  float64
		longitude float64
	)

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Load forecast periods for a location",
		RunE: withRoot(opts, func(ctx context.Context, root *CompositionRoot) error {
			lat, lon := root.Config.Weather.Latitude, root.Config.Weather.Longitude
			if latitude != 0 || longitude != 0 {
				lat, lon = latitude, longitude
			}

			periods, err := root.Weather.LoadPeriods(ctx, lat, lon)
			if err != nil {
				return err
			}
			return writeJSON(os.Stdout, periods)
		}),
	}

	cmd.Flags().Float64Var(&latitude, "latitude", 0, "Latitude (default from configuration)")
	cmd.Flags().Float64Var(&longitude, "longitude", 0, "Longitude (default from configuration)")
	return cmd
}

func fetchCmd(opts *Options) *cobra.Command {
	var (
		path    string
		method  string
		body    string
		policy  string
		noCache bool
		query   map[string]string
		headers map[string]string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "fetch <domain>",
		Short: "Fetch a JSON document over HTTPS through the cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			httpMethod := models.HTTPMethod(method)
			if !httpMethod.Valid() {
				return fmt.Errorf("unsupported method %q", method)
			}

			return withRoot(opts, func(ctx context.Context, root *CompositionRoot) error {
				cachePolicy := root.CacheRules.PolicyFor(args[0], path)
				if policy != "" {
					parsed, err := models.ParseCachePolicy(policy)
					if err != nil {
						return err
					}
					cachePolicy = parsed
				}

				if headers == nil {
					headers = map[string]string{}
				}
				if _, ok := headers["User-Agent"]; !ok {
					headers["User-Agent"] = root.Config.HTTP.UserAgent
				}

				requestTimeout := timeout
				if requestTimeout <= 0 {
					requestTimeout = root.Config.GetHTTPTimeout()
				}

				builder := models.NewRequest(args[0]).
					Path(path).
					Method(httpMethod).
					QueryParameters(query).
					Headers(headers).
					Timeout(requestTimeout).
					CachePolicy(cachePolicy)
				if body != "" {
					builder.Body([]byte(body))
				}
				req := builder.Build()

				var (
					data json.RawMessage
					err  error
				)
				if noCache {
					data, err = fetcher.Fetch[json.RawMessage](ctx, root.Fetcher, req)
				} else {
					var hit bool
					data, hit, err = fetcher.FetchWithCacheStatus[json.RawMessage](ctx, root.Fetcher, req)
					root.Logger.Debug("Fetched", zap.String("key", root.Fetcher.CacheKey(req)), zap.Bool("cache_hit", hit))
				}
				if err != nil {
					return err
				}
				return writeJSON(os.Stdout, data)
			})(cmd, args)
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Request path, starting with /")
	cmd.Flags().StringVarP(&method, "method", "X", http.MethodGet, "HTTP method")
	cmd.Flags().StringVar(&body, "body", "", "Request body")
	cmd.Flags().StringVar(&policy, "policy", "", "Cache policy: default, reloadIgnoringCache, returnCacheDataElseLoad, returnCacheDataDontLoad or custom:<seconds> (default from cache rules)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the cache entirely")
	cmd.Flags().StringToStringVarP(&query, "query", "q", nil, "Query parameter name=value")
	cmd.Flags().StringToStringVarP(&headers, "header", "H", nil, "Header name=value")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Request timeout (default from configuration)")
	return cmd
}

func cacheCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached response",
		RunE: withRoot(opts, func(ctx context.Context, root *CompositionRoot) error {
			root.Store.Clear()
			root.Logger.Info("Cache cleared")
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <key>",
		Short: "Remove one cached response by key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRoot(opts, func(ctx context.Context, root *CompositionRoot) error {
				root.Store.Remove(args[0])
				return nil
			})(cmd, args)
		},
	})

	return cmd
}

func serveCmd(opts *Options) *cobra.Command {
	var (
		address   string
		noRefresh bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve forecasts and cached fetches over HTTP",
		RunE: withRoot(opts, func(ctx context.Context, root *CompositionRoot) error {
			listen := address
			if listen == "" {
				listen = root.Config.Server.Address
			}

			if !noRefresh {
				go root.Refresher.Run(ctx)
			}

			errCh := make(chan error, 1)
			go func() {
				if err := root.HTTPServer.Start(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case <-ctx.Done():
				root.Logger.Info("Shutting down server...")
			case err := <-errCh:
				return fmt.Errorf("server error: %w", err)
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := root.HTTPServer.Stop(shutdownCtx); err != nil {
				root.Logger.Error("HTTP server forced to shutdown", zap.Error(err))
			}

			root.Logger.Info("Server exited")
			return nil
		}),
	}

	cmd.Flags().StringVar(&address, "listen", "", "Listen address, host:port or unix:/path (default from configuration)")
	cmd.Flags().BoolVar(&noRefresh, "no-refresh", false, "Do not refresh the configured forecast in the background")
	return cmd
}
