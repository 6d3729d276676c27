package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"market-simulator/internal/models"
	"market-simulator/internal/sim"
	"market-simulator/internal/store"
	"market-simulator/pkg/utils"
)

var (
	buyColor  = color.New(color.FgGreen)
	sellColor = color.New(color.FgRed)
	pnlUp     = color.New(color.FgGreen, color.Bold)
	pnlDown   = color.New(color.FgRed, color.Bold)
)

func newRunCmd(app *App) *cobra.Command {
	var (
		duration time.Duration
		speed    int
		interval string
		quiet    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation session",
		Long: `Run starts the market tick loop for the given duration (or until
interrupted), streaming executed trades to the terminal, and prints the final
order book, candle series, and account state.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			simCfg := app.Config.Simulation
			if speed != 0 {
				simCfg.Speed = speed
			}
			if interval != "" {
				simCfg.Interval = interval
			}

			recorder, err := newRecorder(app)
			if err != nil {
				return err
			}

			engine := sim.NewEngine(sim.EngineConfig{
				Simulation: simCfg,
				Engine:     app.Config.Engine,
				Logger:     app.Logger,
				Recorder:   recorder,
			})
			defer engine.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ticks := engine.Hub().Subscribe("cli-run")
			if err := engine.Start(); err != nil {
				return err
			}

			fmt.Printf("Simulating for %s at %dx (interval %s, initial price %s)\n\n",
				duration, simCfg.Speed, simCfg.Interval, utils.FormatCurrency(simCfg.InitialPrice))

			deadline := time.NewTimer(duration)
			defer deadline.Stop()

		loop:
			for {
				select {
				case <-ctx.Done():
					break loop
				case <-deadline.C:
					break loop
				case tick, ok := <-ticks:
					if !ok {
						break loop
					}
					if !quiet && tick.Trade != nil {
						printTrade(*tick.Trade)
					}
				}
			}

			engine.Stop()
			printSession(engine)
			return printSummary(context.Background(), recorder)
		},
	}

	cmd.Flags().DurationVar(&duration, "duration", 30*time.Second, "how long to run the simulation")
	cmd.Flags().IntVar(&speed, "speed", 0, "speed multiplier (1, 2, 3, 5, 10)")
	cmd.Flags().StringVar(&interval, "interval", "", "candle interval (1m, 5m, 15m, 1h, 1d)")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "suppress per-trade output")

	return cmd
}

func newRecorder(app *App) (store.Recorder, error) {
	if !app.Config.Journal.Enabled {
		return store.NopRecorder{}, nil
	}
	rec, err := store.NewSQLiteRecorder(app.Config.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("opening session journal: %w", err)
	}
	app.Logger.Info().Str("path", app.Config.Journal.Path).Msg("Session journal enabled")
	return rec, nil
}

func printTrade(trade models.Trade) {
	c := buyColor
	if trade.Side == models.SideSell {
		c = sellColor
	}
	c.Printf("%-4s %8s @ %s\n", trade.Side, utils.FormatQuantity(trade.Quantity),
		utils.FormatCurrency(trade.Price))
}

func printSession(engine *sim.Engine) {
	snap := engine.OrderBook(5)
	account := engine.Account()
	candles := engine.Candles()

	fmt.Printf("\nLast price: %s\n", utils.FormatCurrency(engine.CurrentPrice()))

	fmt.Println("\nTop of book:")
	for i := len(snap.Asks) - 1; i >= 0; i-- {
		sellColor.Printf("  ask %s x %s\n", utils.FormatCurrency(snap.Asks[i].Price),
			utils.FormatQuantity(snap.Asks[i].Quantity))
	}
	for _, bid := range snap.Bids {
		buyColor.Printf("  bid %s x %s\n", utils.FormatCurrency(bid.Price),
			utils.FormatQuantity(bid.Quantity))
	}

	fmt.Printf("\nCandles: %d buckets", len(candles))
	if len(candles) > 0 {
		last := candles[len(candles)-1]
		fmt.Printf(" (last O %.2f H %.2f L %.2f C %.2f)",
			last.Open, last.High, last.Low, last.Close)
	}
	fmt.Println()

	fmt.Printf("\nCash: %s  Equity: %s  ", utils.FormatCurrency(account.Cash),
		utils.FormatCurrency(account.Equity))
	total := account.RealizedPnL + account.UnrealizedPnL
	c := pnlUp
	if total < 0 {
		c = pnlDown
	}
	c.Printf("P&L: %s\n", utils.FormatPnL(total))
}

func printSummary(ctx context.Context, recorder store.Recorder) error {
	if _, ok := recorder.(store.NopRecorder); ok {
		return nil
	}
	summary, err := recorder.Summary(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\nJournal: %d trades, volume %.2f, range %s - %s\n",
		summary.Trades, summary.Volume,
		utils.FormatCurrency(summary.LowPrice), utils.FormatCurrency(summary.HighPrice))
	return nil
}
