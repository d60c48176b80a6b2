package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/broady/rpcontract/gen"
	"github.com/broady/rpcontract/internal/devserver"
	"golang.org/x/sync/errgroup"
)

type ServeCmd struct {
	Out  string `help:"Output directory for generated files. Defaults to outDir from --config." short:"o"`
	Addr string `help:"Address to listen on." default:"localhost:9000"`

	SourceFlags `embed:""`
}

func (c *ServeCmd) Run(logger *slog.Logger) error {
	cfg, err := c.load(c.Out)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	ds := devserver.New(logger)
	srv := &http.Server{
		Addr:              c.Addr,
		Handler:           ds.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("dev server listening", slog.String("addr", "http://"+c.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return gen.FromConfig(cfg).Logger(logger).Watch(ctx, gen.WatchOptions{
			Dirs: watchDirs(cfg, c.Config),
			OnResult: func(res *gen.Result, err error) {
				if err == nil {
					ds.Update(res.Schema, res.Key)
				}
			},
		})
	})
	return g.Wait()
}
