// Player is the viewer CLI entry point.
//
// Subscribes to one or more named grabbers via the SFU. With no -peer flag
// it polls the peer list API and offers an interactive picker. Each viewer
// runs its own independent session; stats and status lines are tagged by
// peer name.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pterm/pterm"

	"github.com/Mond1c/webrtc-grabber-go/internal/api"
	"github.com/Mond1c/webrtc-grabber-go/internal/config"
	"github.com/Mond1c/webrtc-grabber-go/internal/session"
	"github.com/Mond1c/webrtc-grabber-go/internal/util"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	_ = godotenv.Load(".env")

	configPath := flag.String("config", config.DefaultPath(), "Path to YAML config file")
	serverURL := flag.String("url", "", "Signaling server URL (overrides config)")
	credential := flag.String("credential", "", "Viewer credential (overrides config)")
	peers := flag.String("peer", "", "Comma-separated grabber names to watch; empty for interactive pick")
	listOnly := flag.Bool("list", false, "List active grabbers and exit")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debugMode {
		util.EnableDebug()
	}

	pterm.Info.Println(fmt.Sprintf("player — v%s", version))

	cfg, err := config.Load(*configPath)
	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
	if *serverURL != "" {
		cfg.Server.URL = *serverURL
	}
	if *credential != "" {
		cfg.Server.Credential = *credential
	}

	client, err := api.NewClient(cfg.Server.URL)
	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}

	if *listOnly {
		if err := printPeers(ctx, client); err != nil {
			util.LogError("%v", err)
			os.Exit(1)
		}
		return
	}

	targets := splitPeers(*peers)
	if len(targets) == 0 {
		target, err := pickPeer(ctx, client, cfg.Player.PollInterval)
		if err != nil {
			util.LogError("%v", err)
			os.Exit(1)
		}
		targets = []string{target}
	}

	registry := session.NewRegistry()
	for _, target := range targets {
		sess, err := session.NewViewer(session.ViewerConfig{
			PeerName:   target,
			ServerURL:  cfg.Server.URL,
			Credential: cfg.Server.Credential,
		}, session.Options{Status: logStatus})
		if err != nil {
			util.LogError("%v", err)
			registry.StopAll()
			os.Exit(1)
		}
		if err := registry.Add(target, sess); err != nil {
			util.LogError("%v", err)
			sess.Stop()
			continue
		}
		if err := sess.Start(ctx); err != nil {
			util.LogError("failed to start session for %q: %v", target, err)
			registry.Remove(target, sess)
			continue
		}
		util.LogInfo("watching %q via %s", target, cfg.Server.URL)

		go func(name string, s *session.Session) {
			<-s.Done()
			registry.Remove(name, s)
		}(target, sess)
	}

	if registry.Len() == 0 {
		util.LogError("no viewer session could be started")
		os.Exit(1)
	}

	<-ctx.Done()
	registry.StopAll()
	util.LogInfo("all sessions closed")
}

// splitPeers parses the -peer flag into distinct non-empty names.
func splitPeers(raw string) []string {
	var names []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// printPeers renders the /api/peers table.
func printPeers(ctx context.Context, client *api.Client) error {
	peers, err := client.Peers(ctx)
	if err != nil {
		return err
	}
	if len(peers) == 0 {
		pterm.Println("no active grabbers")
		return nil
	}
	for _, p := range peers {
		state := "offline"
		if p.Online {
			state = "online"
		}
		pterm.Printf("%-24s %-8s connections=%d streams=%s\n",
			p.Name, state, p.Connections, strings.Join(p.StreamTypes, ","))
	}
	return nil
}

// pickPeer offers an interactive selection among the online grabbers,
// polling the peer list until at least one is available.
func pickPeer(ctx context.Context, client *api.Client, pollInterval time.Duration) (string, error) {
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}

	var names []string
	for {
		peers, err := client.Peers(ctx)
		if err != nil {
			return "", err
		}
		for _, p := range peers {
			if p.Online {
				names = append(names, p.Name)
			}
		}
		if len(names) > 0 {
			break
		}

		util.LogInfo("no online grabbers yet, retrying in %s", pollInterval)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(pollInterval):
		}
	}

	name, err := pterm.DefaultInteractiveSelect.
		WithOptions(names).
		WithDefaultText("Select a grabber to watch").
		Show()
	if err != nil {
		return "", err
	}
	return name, nil
}

// logStatus renders session events for the terminal.
func logStatus(peerID, kind string, payload interface{}) {
	switch kind {
	case session.KindStatus:
		util.LogInfo("[%s] status: %v", peerID, payload)
	case session.KindStats:
		if snap, ok := payload.(session.StatsSnapshot); ok {
			util.LogInfo("[%s] %.1f kbps, %d packets", peerID, snap.BitrateKbps, snap.Packets)
		}
	}
}
