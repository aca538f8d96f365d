// Command scan runs the candidate selection once and prints the result.
// Useful for checking what the trader would track before the open.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"option-traderv1/config"
	"option-traderv1/internal/logger"
	"option-traderv1/internal/scanner"
	"option-traderv1/pkg/bridge"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[scan] config: %v", err)
	}
	slogger := logger.Init("scan", logger.ParseLevel(cfg.LogLevel))

	if cfg.BridgeURL == "" {
		log.Fatal("[scan] BRIDGE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := bridge.New(bridge.Config{
		BaseURL:    cfg.BridgeURL,
		AccountID:  cfg.AccountID,
		Password:   cfg.AccountPassword,
		TOTPSecret: cfg.TOTPSecret,
	}, slogger)
	if err := client.Login(ctx); err != nil {
		log.Fatalf("[scan] bridge login failed: %v", err)
	}
	defer client.Logout(context.Background())

	underlying, err := client.FetchUnderlying(ctx)
	if err != nil {
		log.Fatalf("[scan] underlying fetch failed: %v", err)
	}
	universe, err := client.FetchUniverse(ctx)
	if err != nil {
		log.Fatalf("[scan] option chain fetch failed: %v", err)
	}

	picked := scanner.Select(universe, underlying, cfg.Scanner)

	fmt.Printf("underlying %.2f, %d contracts in chain, %d candidates\n\n",
		underlying, len(universe), len(picked))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tTYPE\tSTRIKE\tEXPIRY\tPRICE\tOTM")
	for _, o := range picked {
		fmt.Fprintf(w, "%s\t%s\t%.1f\t%s\t%.2f\t%.1f\n",
			o.Code, o.Type, o.Strike, o.Expiry.Format("2006-01-02"), o.Price,
			scanner.OTMDistance(o, underlying))
	}
	w.Flush()
}
