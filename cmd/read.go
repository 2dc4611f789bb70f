package cmd

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Query market and order state from a running instance",
	Long: `Queries the HTTP read surface of a running serve instance and prints
the current market id, market info, and the info and state of a single
order.`,
	RunE: runRead,
}

var (
	readBaseURL string
	readMarket  uint64
	readOrder   uint64
)

func init() {
	rootCmd.AddCommand(readCmd)

	readCmd.Flags().StringVarP(&readBaseURL, "url", "u", "http://localhost:8080", "Base URL of the serve instance")
	readCmd.Flags().Uint64VarP(&readMarket, "market", "m", 0, "Market id to query")
	readCmd.Flags().Uint64VarP(&readOrder, "order", "o", 0, "Order id to query")
}

func runRead(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 10 * time.Second}

	fmt.Printf("=== Market %d, order %d ===\n\n", readMarket, readOrder)

	paths := []string{
		"/api/markets/current-id",
		fmt.Sprintf("/api/markets/%d", readMarket),
		fmt.Sprintf("/api/markets/%d/orders/%d", readMarket, readOrder),
		fmt.Sprintf("/api/markets/%d/orders/%d/state", readMarket, readOrder),
	}

	for _, path := range paths {
		body, status, err := fetch(client, readBaseURL+path)
		if err != nil {
			return fmt.Errorf("GET %s: %w", path, err)
		}
		fmt.Printf("%s [%d]\n%s\n\n", path, status, body)
	}

	return nil
}

func fetch(client *http.Client, url string) (string, int, error) {
	resp, err := client.Get(url)
	if err != nil {
		return "", 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, err
	}

	return string(body), resp.StatusCode, nil
}
