// Grabber is the publisher CLI entry point.
//
// Connects to the SFU signaling server under a chosen peer name, publishes
// the configured capture source and keeps the session alive until Ctrl+C or
// a terminal failure.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/pterm/pterm"

	"github.com/Mond1c/webrtc-grabber-go/internal/capture"
	"github.com/Mond1c/webrtc-grabber-go/internal/config"
	"github.com/Mond1c/webrtc-grabber-go/internal/session"
	"github.com/Mond1c/webrtc-grabber-go/internal/util"
)

var version = "dev"

func main() {
	// Root context, cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	_ = godotenv.Load(".env")

	configPath := flag.String("config", config.DefaultPath(), "Path to YAML config file")
	serverURL := flag.String("url", "", "Signaling server URL (overrides config)")
	name := flag.String("name", "", "Peer name this grabber publishes under (required)")
	sourceKind := flag.String("source", "", "Capture source: camera, screen or test (overrides config)")
	framePipe := flag.String("pipe", "", "Frame pipe path for camera/screen sources (overrides config)")
	fps := flag.Int("fps", 0, "Capture frame rate (overrides config)")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debugMode {
		util.EnableDebug()
	}

	pterm.Info.Println(fmt.Sprintf("grabber — v%s", version))

	if *name == "" {
		util.LogError("missing -name: a grabber must publish under a peer name")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
	if *serverURL != "" {
		cfg.Server.URL = *serverURL
	}
	if *sourceKind != "" {
		cfg.Capture.Source = *sourceKind
	}
	if *framePipe != "" {
		cfg.Capture.FramePipe = *framePipe
	}
	if *fps > 0 {
		cfg.Capture.FPS = *fps
	}

	// Capability check happens here, before any connection attempt.
	source, err := buildSource(cfg.Capture)
	if err != nil {
		if errors.Is(err, capture.ErrUnavailable) {
			util.LogError("capture capability missing: %v", err)
		} else {
			util.LogError("failed to set up capture: %v", err)
		}
		os.Exit(1)
	}

	sess, err := session.NewPublisher(session.PublisherConfig{
		Name:      *name,
		ServerURL: cfg.Server.URL,
		Source:    source,
	}, session.Options{Status: logStatus})
	if err != nil {
		source.Close()
		util.LogError("%v", err)
		os.Exit(1)
	}

	if err := source.Start(ctx); err != nil {
		util.LogError("failed to start capture: %v", err)
		sess.Stop()
		os.Exit(1)
	}

	if err := sess.Start(ctx); err != nil {
		util.LogError("failed to start session: %v", err)
		os.Exit(1)
	}
	util.LogInfo("publishing as %q to %s", *name, cfg.Server.URL)

	select {
	case <-ctx.Done():
		sess.Stop()
	case <-sess.Done():
	}

	if err := sess.Err(); err != nil {
		util.LogError("session ended with failure: %v", err)
		os.Exit(1)
	}
	util.LogInfo("session closed")
}

// buildSource maps the capture configuration to a Source, surfacing the
// distinct capability error of whichever kind is missing.
func buildSource(cfg config.CaptureConfig) (capture.Source, error) {
	switch cfg.Source {
	case "camera":
		return capture.NewCamera(cfg.FramePipe, cfg.FPS)
	case "screen":
		return capture.NewScreen(cfg.FramePipe, cfg.FPS)
	case "test", "":
		return capture.NewTestPattern(cfg.FPS)
	default:
		return nil, fmt.Errorf("unknown capture source %q", cfg.Source)
	}
}

// logStatus renders session events for the terminal.
func logStatus(peerID, kind string, payload interface{}) {
	switch kind {
	case session.KindStatus:
		util.LogInfo("[%s] status: %v", peerID, payload)
	case session.KindStats:
		if snap, ok := payload.(session.StatsSnapshot); ok {
			util.LogDebug("[%s] %.1f kbps, %d packets", peerID, snap.BitrateKbps, snap.Packets)
		}
	}
}
