package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/fabriziosardo/AR-Project/internal/app"
	"github.com/fabriziosardo/AR-Project/internal/config"
	"github.com/fabriziosardo/AR-Project/internal/logging"
	"github.com/fabriziosardo/AR-Project/internal/refimage"
	"github.com/fabriziosardo/AR-Project/internal/scene"
	"github.com/fabriziosardo/AR-Project/internal/server"
	"github.com/fabriziosardo/AR-Project/internal/store"
	"github.com/fabriziosardo/AR-Project/internal/tracking"
	"github.com/fabriziosardo/AR-Project/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	replayPath := flag.String("replay", "", "play back a recorded tracking session (JSON)")
	loop := flag.Bool("loop", false, "loop the replayed session")
	withTray := flag.Bool("tray", false, "show a system tray icon")
	webDir := flag.String("web", "", "directory of the dashboard (default: search ./web)")
	checkImages := flag.Bool("check-images", true, "check reference images for tracking quality")
	watch := flag.Bool("watch", true, "reload artworks when the config file changes")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "museumguide: %v\n", err)
		os.Exit(2)
	}

	log := logging.New("museumguide", cfg.Log, os.Stderr)
	if err := run(cfg, options{
		configPath:  *configPath,
		watch:       *watch,
		replay:      *replayPath,
		loop:        *loop,
		tray:        *withTray,
		webDir:      *webDir,
		checkImages: *checkImages,
	}, log); err != nil {
		log.Fatal().Err(err).Msg("museumguide failed")
	}
}

type options struct {
	configPath  string
	watch       bool
	replay      string
	loop        bool
	tray        bool
	webDir      string
	checkImages bool
}

func run(cfg config.Config, opts options, log zerolog.Logger) error {
	st, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()
	log.Info().Str("path", st.Path()).Msg("store opened")

	var analyzer *refimage.Analyzer
	if opts.checkImages {
		analyzer = refimage.NewAnalyzer(refimage.DefaultMinSide, refimage.DefaultMinEdgeDensity)
	}

	world := scene.NewGallery(cfg.Templates, logging.Component(log, "scene"))
	guide, err := app.New(app.Config{
		Store:    st,
		Settings: cfg,
		Env:      world,
		Analyzer: analyzer,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	if opts.replay != "" {
		rec, err := tracking.LoadRecording(opts.replay)
		if err != nil {
			return err
		}
		replay, err := tracking.NewReplaySource(rec, opts.loop)
		if err != nil {
			return fmt.Errorf("replay %s: %w", opts.replay, err)
		}
		guide.Attach(replay)
		log.Info().Str("recording", rec.Name).Int("frames", replay.Len()).Bool("loop", opts.loop).Msg("replaying tracking session")
	}

	if err := guide.Start(); err != nil {
		return err
	}
	defer guide.Stop()

	staticDir := opts.webDir
	if staticDir == "" {
		staticDir = findWebDir()
	}
	if staticDir != "" {
		log.Info().Str("dir", staticDir).Msg("serving dashboard")
	}

	srv := server.New(server.Config{
		StaticDir: staticDir,
		App:       guide,
		Logger:    logging.Component(log, "server"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(cfg.Addr) }()

	if opts.watch && opts.configPath != "" {
		go func() {
			err := config.Watch(ctx, opts.configPath, logging.Component(log, "config"), func(c config.Config) {
				if err := guide.ApplyConfig(c); err != nil {
					log.Error().Err(err).Msg("failed to apply reloaded config")
				}
			})
			if err != nil {
				log.Warn().Err(err).Msg("config watch disabled")
			}
		}()
	}

	if opts.tray {
		t := tray.New(guide.IsEnabled())
		t.OnToggle(guide.SetEnabled)
		t.OnOpen(func() { openBrowser(dashboardURL(cfg.Addr), log) })
		t.OnQuit(stop)
		guide.OnSpawn(t.SetLastArtwork)
		go func() {
			<-ctx.Done()
			t.Quit()
		}()
		// The tray must own the main goroutine on some platforms.
		t.Run()
		stop()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// findWebDir searches for the dashboard in common locations.
// It checks: "web", "../web", "../../web", and ~/.museumguide/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".museumguide", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

func dashboardURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string, log zerolog.Logger) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("failed to open browser")
	}
}
