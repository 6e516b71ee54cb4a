package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chazu/molsurf/pkg/config"
	"github.com/chazu/molsurf/pkg/logging"
	"github.com/chazu/molsurf/pkg/partition"
	"github.com/chazu/molsurf/pkg/solver"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		in       = flag.String("in", "", "structure file (.pdb or .xyzr)")
		name     = flag.String("name", "", "surface name (default: input file name)")
		chains   = flag.String("chains", "", "comma-separated chains to include (default: all)")
		hydrogen = flag.Bool("hydrogens", false, "include hydrogen atoms")
		waters   = flag.Bool("waters", false, "include water molecules")
		mode     = flag.String("mode", "chain", "partition mode: whole, chain or residue")
		ao       = flag.Bool("ao", false, "compute ambient occlusion")
		scheme   = flag.String("scheme", "", "color scheme (default from configuration)")
		color    = flag.String("color", "", "base color as #rrggbb (default from configuration)")
		stl      = flag.String("stl", "", "write the surface as binary STL")
		jsonOut  = flag.String("json", "", "write the surface shape as JSON")
		serve    = flag.String("serve", "", "serve viewers over websocket on this address")
	)
	flag.Parse()
	if *in == "" {
		fmt.Fprintln(os.Stderr, "molsurf: -in is required")
		flag.Usage()
		return 2
	}
	m, err := partition.ParseMode(*mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "molsurf:", err)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "molsurf:", err)
		return 1
	}
	logger, err := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, "molsurf:", err)
		return 1
	}
	logging.SetLogger(logger)

	addr := *serve
	if addr == "" {
		addr = cfg.Viewer.Addr
	}
	app, err := NewApp(cfg, os.Stdout, addr != "")
	if err != nil {
		fmt.Fprintln(os.Stderr, "molsurf:", err)
		return 1
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case <-sigs:
			logger.Info("interrupted, removing surfaces")
			if err := app.Close(context.Background()); err != nil {
				logger.Warn("removing surfaces", "error", err)
			}
			stop()
		case <-ctx.Done():
		}
	}()

	if addr != "" {
		srv := &http.Server{Addr: addr, Handler: app.Handler(), ReadHeaderTimeout: 10 * time.Second}
		go app.RunHub(ctx)
		go func() {
			logger.Info("viewer endpoint listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("viewer endpoint", "error", err)
				stop()
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	_, err = app.Generate(ctx, Request{
		Input:            *in,
		Name:             *name,
		Chains:           splitList(*chains),
		IncludeHydrogens: *hydrogen,
		IncludeWaters:    *waters,
		Mode:             m,
		AO:               *ao,
		Scheme:           *scheme,
		Color:            *color,
		STL:              *stl,
		JSON:             *jsonOut,
	})
	switch {
	case errors.Is(err, solver.ErrCanceled):
		fmt.Fprintln(os.Stderr, "molsurf: canceled")
		return 130
	case err != nil:
		fmt.Fprintln(os.Stderr, "molsurf:", err)
		return 1
	}

	if addr != "" {
		// Keep serving until interrupted.
		<-ctx.Done()
	}
	return 0
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
}
