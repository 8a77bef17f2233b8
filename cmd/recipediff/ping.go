package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func newPingCmd() *cobra.Command {
	var (
		url     string
		retries int
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that a running API server is healthy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newHealthClient(url, retries, timeout)

			var health healthResponse
			resp, err := client.R().
				SetContext(cmd.Context()).
				SetResult(&health).
				SetError(&health).
				Get("/health")
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			if resp.IsError() {
				return fmt.Errorf("server unhealthy: %s (status %s)", health.Status, resp.Status())
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s version %s\n",
				color.GreenString(health.Status), url, health.Version)
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "http://localhost:3000", "Base URL of the API server")
	cmd.Flags().IntVar(&retries, "retry", 2, "Retries on connection errors and 5xx responses")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Per-request timeout")
	return cmd
}

func newHealthClient(baseURL string, retries int, timeout time.Duration) *resty.Client {
	return resty.New().
		SetTransport(otelhttp.NewTransport(http.DefaultTransport)).
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
}
