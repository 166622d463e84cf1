package runner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/fx"

	"emabot/internal/exchange"
	"emabot/internal/executor"
	"emabot/internal/models"
	"emabot/internal/modules/config"
	"emabot/internal/modules/health/service"
	"emabot/internal/modules/journal"
	"emabot/internal/notify"
	"emabot/internal/strategy"
	"emabot/pkg/logger"
)

func newExchange(cfg *config.Config) *exchange.Client {
	return exchange.NewClient(exchange.Credentials{
		APIKey:     cfg.Exchange.APIKey,
		APISecret:  cfg.Exchange.APISecret,
		Passphrase: cfg.Exchange.Passphrase,
	}, cfg.Exchange.Testnet)
}

func newNotifier(cfg *config.Config) notify.Notifier {
	if cfg.Telegram.Token == "" {
		return notify.NewStdout()
	}
	n, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
	if err != nil {
		logger.Error("telegram init failed, falling back to stdout: %v", err)
		return notify.NewStdout()
	}
	return n
}

func newEngine(cfg *config.Config) (strategy.Engine, error) {
	return strategy.NewEngine(strategy.FactoryConfig{
		Strategy:            cfg.Strategy,
		EMAFast:             cfg.EMAFast,
		EMASlow:             cfg.EMASlow,
		RequireConfirmation: cfg.RequireConfirmation,
	})
}

type triggerRequest struct {
	Symbol string `json:"symbol"`
	Side   string `json:"side"`
}

// registerTrigger exposes POST /trigger on the health mux: a manual entry
// in the given direction, sized and protected exactly like a signal entry.
func registerTrigger(mux *http.ServeMux, r *Runner) {
	mux.HandleFunc("/trigger", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		var tr triggerRequest
		if err := json.NewDecoder(req.Body).Decode(&tr); err != nil {
			http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := r.TriggerManual(req.Context(), tr.Symbol, models.Side(strings.ToUpper(tr.Side))); err != nil {
			// Bad inputs are the caller's fault; everything else is a
			// conflict with the current trading state.
			code := http.StatusConflict
			if errors.Is(err, ErrBadTrigger) {
				code = http.StatusBadRequest
			}
			http.Error(w, err.Error(), code)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("position opened"))
	})
}

func run(lc fx.Lifecycle, client *exchange.Client, cfg *config.Config, r *Runner) {
	streamCtx, stopStream := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go client.StreamTickers(streamCtx, cfg.Symbols)
			return r.Start(context.Background())
		},
		OnStop: func(ctx context.Context) error {
			stopStream()
			r.Stop()
			return nil
		},
	})
}

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			newExchange,
			func(c *exchange.Client) exchange.Exchange { return c },
			newNotifier,
			newEngine,
			strategy.NewDetector,
			func(ex exchange.Exchange, n notify.Notifier) *executor.Executor {
				return executor.New(ex, n)
			},
			func(
				cfg *config.Config,
				overrides map[string]config.SymbolOverride,
				ex exchange.Exchange,
				engine strategy.Engine,
				det *strategy.Detector,
				exec *executor.Executor,
				n notify.Notifier,
				health *service.State,
				jrnl journal.Journal,
			) *Runner {
				return New(cfg, overrides, ex, engine, det, exec, n, health, jrnl)
			},
		),
		fx.Invoke(
			registerTrigger,
			run,
		),
	)
}
