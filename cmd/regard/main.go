// Command regard is the visual regression engine.
//
// Usage:
//
//	regard -baseline base.png -actual shot.png          # compare two PNGs
//	regard -baseline base.png -url https://x -capture   # capture then compare
//	regard -serve -config regard.yaml                   # HTTP API
//	regard -mcp                                          # MCP over stdio
package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/regard/capture"
	"github.com/hazyhaar/regard/config"
	"github.com/hazyhaar/regard/httpapi"
	"github.com/hazyhaar/regard/mcpquic"
	"github.com/hazyhaar/regard/pixel"
	"github.com/hazyhaar/regard/report"
	"github.com/hazyhaar/regard/store"
	"github.com/hazyhaar/regard/validate"
)

func main() {
	configPath := flag.String("config", "", "path to regard.yaml config file")
	baselinePath := flag.String("baseline", "", "path to baseline PNG")
	actualPath := flag.String("actual", "", "path to actual PNG")
	pageURL := flag.String("url", "", "page URL to capture")
	selector := flag.String("selector", "", "CSS selector scoping the comparison")
	doCapture := flag.Bool("capture", false, "drive a local Chrome to capture the actual image")
	reportPath := flag.String("report", "", "write a severity-overlay PNG to this path on failure")
	serve := flag.Bool("serve", false, "run the HTTP API")
	mcpStdio := flag.Bool("mcp", false, "run the MCP server over stdio")
	mcpQUICAddr := flag.String("mcp-quic", "", "also serve MCP over QUIC on this address (with -mcp)")
	tlsCert := flag.String("tls-cert", "", "TLS certificate for -mcp-quic (self-signed if empty)")
	tlsKey := flag.String("tls-key", "", "TLS key for -mcp-quic")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadFile(*configPath)
		if err != nil {
			logger.Error("regard: config", "error", err)
			os.Exit(1)
		}
	}

	app := &app{
		cfg:    cfg,
		logger: logger,
		engine: validate.New(validate.WithLogger(logger)),
	}

	var err error
	switch {
	case *serve:
		err = app.runServe(ctx)
	case *mcpStdio:
		err = app.runMCP(ctx, *mcpQUICAddr, *tlsCert, *tlsKey)
	default:
		err = app.runCompare(ctx, compareArgs{
			baselinePath: *baselinePath,
			actualPath:   *actualPath,
			pageURL:      *pageURL,
			selector:     *selector,
			doCapture:    *doCapture,
			reportPath:   *reportPath,
		})
	}
	if err != nil {
		logger.Error("regard: fatal", "error", err)
		os.Exit(1)
	}
}

type app struct {
	cfg    *config.Config
	logger *slog.Logger
	engine *validate.Engine
}

type compareArgs struct {
	baselinePath string
	actualPath   string
	pageURL      string
	selector     string
	doCapture    bool
	reportPath   string
}

// runCompare is the one-shot CLI mode: load or capture the images, validate,
// print the result as JSON, and exit non-zero on a failed comparison.
func (a *app) runCompare(ctx context.Context, args compareArgs) error {
	if args.baselinePath == "" {
		return errors.New("-baseline is required")
	}
	baseline, err := loadPNG(args.baselinePath)
	if err != nil {
		return err
	}

	opts := validate.Options{
		URL:            args.pageURL,
		Selector:       args.selector,
		BaselineImage:  baseline,
		Threshold:      a.cfg.Compare.Threshold,
		MaxIterations:  a.cfg.Compare.MaxIterations,
		DiffThreshold:  a.cfg.Compare.DiffThreshold,
		MergeDistance:  a.cfg.Compare.MergeDistance,
		ViewportWidth:  a.cfg.Browser.ViewportWidth,
		ViewportHeight: a.cfg.Browser.ViewportHeight,
	}

	var actual *pixel.Buffer
	switch {
	case args.actualPath != "":
		actual, err = loadPNG(args.actualPath)
		if err != nil {
			return err
		}
	case args.doCapture:
		actual, err = a.captureActual(ctx, opts)
		if err != nil {
			return err
		}
	}
	if actual != nil {
		opts.ActualImage = actual
	}

	res, err := a.engine.Validate(opts)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}

	if !res.Passed && args.reportPath != "" && actual != nil {
		if err := report.WritePNG(args.reportPath, actual, res.DiffRegions); err != nil {
			return err
		}
		a.logger.Info("regard: overlay written", "path", args.reportPath)
	}
	if actual != nil && !res.Passed {
		os.Exit(2)
	}
	return nil
}

// captureActual launches Chrome, asks the engine for the capture sequence,
// and executes it.
func (a *app) captureActual(ctx context.Context, opts validate.Options) (*pixel.Buffer, error) {
	res, err := a.engine.Validate(validate.Options{
		URL:              opts.URL,
		Selector:         opts.Selector,
		ExcludeSelectors: opts.ExcludeSelectors,
		KeepAnimations:   opts.KeepAnimations,
	})
	if err != nil {
		return nil, err
	}

	mgr := capture.NewManager(capture.Config{
		RemoteURL:       a.cfg.Browser.RemoteURL,
		ViewportWidth:   a.cfg.Browser.ViewportWidth,
		ViewportHeight:  a.cfg.Browser.ViewportHeight,
		NavigateTimeout: a.cfg.Browser.NavigateTimeout,
		Logger:          a.logger,
	})
	if _, err := mgr.Start(ctx); err != nil {
		return nil, err
	}
	defer mgr.Close()

	return capture.NewExecutor(mgr).Run(ctx, res.CaptureInstructions)
}

func (a *app) runServe(ctx context.Context) error {
	st, err := store.Open(a.cfg.DBPath, store.WithLogger(a.logger))
	if err != nil {
		return err
	}
	defer st.Close()

	srv := &http.Server{
		Addr:    a.cfg.Listen,
		Handler: httpapi.New(a.engine, st, httpapi.WithLogger(a.logger)).Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("regard: http listening", "addr", a.cfg.Listen, "db", a.cfg.DBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("regard: shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func (a *app) runMCP(ctx context.Context, quicAddr, tlsCert, tlsKey string) error {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "regard",
		Version: "1.0.0",
	}, nil)
	a.engine.RegisterMCP(srv)

	if quicAddr != "" {
		var (
			tlsCfg *tls.Config
			err    error
		)
		if tlsCert != "" && tlsKey != "" {
			tlsCfg, err = mcpquic.ServerTLSConfig(tlsCert, tlsKey)
		} else {
			tlsCfg, err = mcpquic.SelfSignedTLSConfig()
		}
		if err != nil {
			return err
		}
		ql, err := mcpquic.NewListener(quicAddr, tlsCfg, srv, a.logger)
		if err != nil {
			return err
		}
		defer ql.Close()
		go func() {
			a.logger.Info("regard: mcp quic starting", "addr", quicAddr)
			if err := ql.Serve(ctx); err != nil && ctx.Err() == nil {
				a.logger.Error("regard: mcp quic", "error", err)
			}
		}()
	}

	a.logger.Info("regard: mcp serving on stdio")
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func loadPNG(path string) (*pixel.Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return capture.DecodePNG(data)
}
