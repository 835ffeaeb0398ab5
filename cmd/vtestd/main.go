package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-vtest/vtestd"
	"github.com/go-vtest/vtestd/internal/logging"
)

func main() {
	var (
		sockPath    = flag.String("socket", "/tmp/.virgl_test", "Unix socket path to listen on")
		multiClient = flag.Bool("multi-client", false, "require protocol_version >= 3 on every connection")
		maxLength   = flag.Uint("max-length", 0, "per-command byte bound (0 = unbounded)")
		renderNode  = flag.String("render-node", "", "DRM render node path handed to the renderer on demand")
		verbose     = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	// VTEST_SAVE mirrors every inbound byte to a file, for offline replay.
	saveInputPath := os.Getenv("VTEST_SAVE")

	// VIRGL_DISABLE_MT disables multi-client mode even if -multi-client was
	// passed, matching the original renderer's escape hatch for debugging.
	multi := *multiClient
	if os.Getenv("VIRGL_DISABLE_MT") != "" {
		multi = false
	}

	srv, err := vtestd.NewServer(vtestd.ServerParams{
		MultiClient:    multi,
		MaxLength:      uint32(*maxLength),
		RenderNodePath: *renderNode,
		SaveInputPath:  saveInputPath,
		Logger:         logger,
	})
	if err != nil {
		logger.Error("failed to construct server", "error", err)
		os.Exit(1)
	}

	if err := srv.Listen(*sockPath); err != nil {
		logger.Error("failed to listen", "socket", *sockPath, "error", err)
		os.Exit(1)
	}
	logger.Info("listening", "socket", *sockPath, "multi_client", multi)

	fmt.Printf("vtestd listening on %s\n", *sockPath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	done := make(chan struct{})
	go func() {
		srv.Close()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("server stopped cleanly")
	case <-time.After(10 * time.Second):
		logger.Error("shutdown timed out")
		os.Exit(1)
	}
}
