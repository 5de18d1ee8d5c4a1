package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Additional-Code/brigade/internal/client/board"
	"github.com/Additional-Code/brigade/internal/client/reconcile"
	"github.com/Additional-Code/brigade/internal/client/rest"
	"github.com/Additional-Code/brigade/internal/client/stream"
	"github.com/Additional-Code/brigade/internal/config"
	"github.com/Additional-Code/brigade/internal/dto"
	"github.com/Additional-Code/brigade/internal/realtime"
)

// newBoardCmd runs the terminal kitchen board: a REST snapshot reconciled
// against the push stream, re-rendered whenever an event lands or the alert
// ticker fires.
func newBoardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Run the terminal kitchen board",
		RunE: func(cmd *cobra.Command, args []string) error {
			showCanceled, _ := cmd.Flags().GetBool("show-canceled")
			return runBoard(cmd.Context(), cmd.OutOrStdout(), showCanceled)
		},
	}
	cmd.Flags().Bool("show-canceled", false, "Include canceled orders on the board")
	return cmd
}

func runBoard(ctx context.Context, out io.Writer, showCanceled bool) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}
	if !showCanceled {
		showCanceled = cfg.Kitchen.ShowCanceled
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	api := rest.NewClient(cfg.Client.APIBaseURL, cfg.Client.Timeout)
	snapshot, err := api.ListOrders(ctx)
	if err != nil {
		return fmt.Errorf("fetch order snapshot: %w", err)
	}

	engine := reconcile.NewEngine(snapshot,
		reconcile.WithLogger(logger),
		reconcile.WithNewOrderHook(func(o dto.Order) {
			logger.Info("new order arrived", zap.Int64("id", o.ID), zap.Int("table", o.TableNumber))
		}),
	)

	ch := stream.NewChannel(stream.NewRedisTransport(cfg.Realtime), stream.Options{
		MaxAttempts:  cfg.Realtime.Reconnect.MaxAttempts,
		InitialDelay: cfg.Realtime.Reconnect.InitialDelay,
		MaxDelay:     cfg.Realtime.Reconnect.MaxDelay,
		Logger:       logger,
	})
	if err := ch.Connect(ctx); err != nil {
		return fmt.Errorf("connect push stream: %w", err)
	}
	defer func() { _ = ch.Close() }()

	engine.Bind(ch, "board")
	defer engine.Unbind(ch, "board")
	ch.Join(ctx, realtime.RoomKitchen)

	redraw := make(chan struct{}, 1)
	requestRedraw := func() {
		select {
		case redraw <- struct{}{}:
		default:
		}
	}
	for _, kind := range []realtime.Kind{
		realtime.KindOrderCreated, realtime.KindOrderUpdated,
		realtime.KindOrderDeleted, realtime.KindOrderStatusChanged,
		realtime.KindItemAdded, realtime.KindItemUpdated, realtime.KindItemRemoved,
	} {
		ch.On(kind, "board/redraw/"+string(kind), func(realtime.Event) { requestRedraw() })
	}
	ch.OnStatus("board", func(s stream.State) {
		logger.Info("stream state changed", zap.String("state", string(s)))
	})

	th := board.Thresholds{
		PendingWarningMinutes:    cfg.Kitchen.PendingWarningMinutes,
		PendingCriticalMinutes:   cfg.Kitchen.PendingCriticalMinutes,
		InProgressWarningMinutes: cfg.Kitchen.InProgressWarningMinutes,
	}

	render := func() {
		now := time.Now()
		visible := board.ApplyKitchenFilters(engine.Orders(), showCanceled, cfg.Kitchen.CompletedRetention, now)
		visible = board.SortByPriority(visible, th, now)

		fmt.Fprintf(out, "\n== kitchen board (%s, %d orders) ==\n", now.Format("15:04:05"), len(visible))
		for _, o := range visible {
			level := board.AlertLevel(o.CreatedAt, o.Status, th, now)
			fmt.Fprintf(out, "#%-5d table %-3d %-12s %-8s %s  (%d items)\n",
				o.ID, o.TableNumber, o.Status, level, o.ServerName, len(o.Items))
		}
	}

	render()

	// Alerts are time-driven: even with no events, an order crossing a
	// threshold must repaint the board.
	ticker := time.NewTicker(cfg.Kitchen.AlertRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-redraw:
			render()
		case <-ticker.C:
			render()
		}
	}
}
