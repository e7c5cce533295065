package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"room-mapper/core/events"
	"room-mapper/core/loader"
	"room-mapper/core/logger"
	"room-mapper/core/metrics"
	"room-mapper/core/middleware/auth"
	"room-mapper/core/middleware/rayid"
	"room-mapper/core/reconcile"
	"room-mapper/feature/ingest"
	"room-mapper/feature/rooms"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the room mapping server",
	Long:  `Starts the HTTP API, the metrics listener and the conflict event log.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()
		logg := rt.log
		zap.ReplaceGlobals(logg)

		if err := rooms.VerifySchema(rt.db); err != nil {
			logg.Warn("Catalog schema check failed, run `room-mapper migrate`", zap.Error(err))
		}
		rt.withCache(ctx)

		bus := events.NewBus(logg, events.DefaultBuffer)
		defer bus.Close()
		go logConflictEvents(ctx, bus, logg)

		svc := rt.service(rooms.WithBus(bus))
		ing := rt.ingestor(ctx, svc)

		reg := metrics.InitRegistry()
		metricsSrv := metrics.Serve(rt.cfg.Metrics, reg, logg)

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
			BodyLimit:             rt.cfg.Server.BodyLimit(),
			Immutable:             true,
		})

		mgr := loader.NewManager()
		mgr.Register(rooms.NewFeature(svc))
		mgr.Register(ingest.NewFeature(ing, rt.cfg.Storage.FeedPrefix))

		// Ray ID first so every later log line carries it.
		app.Use(rayid.New())
		app.Use(metrics.Middleware())
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		app.Get("/health", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"status": "ok", "features": mgr.Enabled()})
		})
		app.Use(auth.New(auth.Config{ApiKey: rt.cfg.Server.ApiKey, Skip: []string{"/health"}}))

		if err := mgr.LoadAll(app); err != nil {
			return err
		}

		errCh := make(chan error, 1)
		go func() {
			logg.Info("Starting server", zap.String("port", rt.cfg.Server.Port))
			errCh <- app.Listen(rt.cfg.Server.Addr())
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logg.Info("Shutting down server...")
		if metricsSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), rt.cfg.Server.ShutdownTimeout())
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		return app.ShutdownWithTimeout(rt.cfg.Server.ShutdownTimeout())
	},
}

// logConflictEvents writes every published conflict event to the log until ctx ends.
func logConflictEvents(ctx context.Context, bus *events.Bus, l *zap.Logger) {
	detected, cancelDetected := bus.Subscribe(events.TopicConflictDetected)
	defer cancelDetected()
	resolved, cancelResolved := bus.Subscribe(events.TopicConflictResolved)
	defer cancelResolved()

	for {
		var ev events.Event
		var ok bool
		select {
		case <-ctx.Done():
			return
		case ev, ok = <-detected:
		case ev, ok = <-resolved:
		}
		if !ok {
			return
		}
		c, isConflict := ev.Payload.(reconcile.Conflict)
		if !isConflict {
			continue
		}
		l.Info("Conflict event",
			zap.String("topic", ev.Topic),
			zap.String("conflict_id", c.ID),
			zap.String("entity_id", c.EntityID),
			zap.String("field", c.FieldName),
			zap.Int("sources", len(c.ConflictingSources)))
	}
}

func init() {
	RootCmd.AddCommand(startCmd)
}
