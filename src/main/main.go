package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"screen-ocr-translate/src/clipboard"
	"screen-ocr-translate/src/config"
	"screen-ocr-translate/src/gui"
	"screen-ocr-translate/src/hotkey"
	"screen-ocr-translate/src/logutil"
	"screen-ocr-translate/src/overlay"
	"screen-ocr-translate/src/pipeline"
	"screen-ocr-translate/src/publish"
	"screen-ocr-translate/src/runtimeinit"
	"screen-ocr-translate/src/screenshot"
	"screen-ocr-translate/src/windowsync"
)

const (
	appID           = "com.github.screen-ocr-translate"
	shutdownTimeout = 3 * time.Second
)

type mainOptions struct {
	envFile    string
	apiKeyPath string
	target     string
	engine     string
	noRearm    bool
	skipPing   bool
}

func main() {
	if err := runWithArgs(normalizeLegacyArgs(os.Args)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"screen-ocr-translate"}
	}
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "screen-ocr-translate",
		Short:         "Select a screen region, OCR it and translate the text",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(*opts)
		},
	}

	cmd.Flags().StringVar(&opts.envFile, "env-file", "", "Path to .env file (overrides lookup order)")
	cmd.Flags().StringVar(&opts.apiKeyPath, "api-key-path", "", "Path to API key file (highest precedence)")
	cmd.Flags().StringVar(&opts.target, "target", "", "Target language code, e.g. zh or en")
	cmd.Flags().StringVar(&opts.engine, "engine", "", "OCR engine: tesseract or llm")
	cmd.Flags().BoolVar(&opts.noRearm, "no-rearm", false, "Do not start a new capture automatically after each result")
	cmd.Flags().BoolVar(&opts.skipPing, "skip-ping", false, "Skip the startup connectivity check")

	return cmd
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	normalized := make([]string, len(args))
	copy(normalized, args)

	long := []string{"env-file", "api-key-path", "target", "engine", "no-rearm", "skip-ping"}
	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range long {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}
	return normalized
}

// applyFlags overlays command line flags on the loaded configuration.
func applyFlags(opts mainOptions) func(*config.Config) {
	return func(cfg *config.Config) {
		if opts.target != "" {
			cfg.TargetLanguage = opts.target
		}
		if opts.engine != "" {
			cfg.OCREngine = opts.engine
		}
		if opts.noRearm {
			cfg.AutoRearm = false
		}
	}
}

func runApp(opts mainOptions) error {
	// DPI awareness must be set before any window exists.
	enableDPIAwareness()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := runtimeinit.Bootstrap(ctx, runtimeinit.Options{
		LoadOptions: config.LoadOptions{
			EnvPath:            opts.envFile,
			APIKeyPathOverride: opts.apiKeyPath,
		},
		SetupLogging: logutil.Setup,
		Override:     applyFlags(opts),
		SkipPing:     opts.skipPing,
	})
	if err != nil {
		return err
	}
	cfg := rt.Config
	log.Printf("Screen OCR Translate initialized (key %s)", logutil.RedactKey(cfg.APIKey))
	logMonitorConfiguration()

	acq, err := screenshot.NewAcquirer()
	if err != nil {
		return fmt.Errorf("screen capture unavailable: %w", err)
	}

	pub := publish.New()
	pub.OnPublish(func(r publish.Result) {
		log.Printf("Published extracted=%q translated=%q", logutil.Sanitize(r.Extracted), logutil.Sanitize(r.Translated))
	})
	if cfg.CopyToClipboard {
		if err := clipboard.Init(); err != nil {
			log.Printf("Clipboard unavailable, copy disabled: %v", err)
		} else {
			pub.OnPublish(clipboard.NewCopier().OnPublish)
		}
	}

	fyneApp := app.NewWithID(appID)

	var orch *pipeline.Orchestrator
	ui := gui.New(fyneApp, gui.Options{
		ControlWidth:   cfg.ControlWidth,
		ControlHeight:  cfg.ControlHeight,
		ResultWidth:    cfg.ResultWidth,
		ResultHeight:   cfg.ResultHeight,
		AutoRearm:      cfg.AutoRearm,
		TargetLanguage: cfg.TargetLanguage,
		Hotkey:         cfg.Hotkey,
	}, gui.Callbacks{
		OnCapture:        func() { orch.Trigger() },
		OnAutoRearm:      func(on bool) { orch.SetAutoRearm(on) },
		OnTargetLanguage: func(code string) { orch.SetTargetLanguage(code) },
		OnQuit:           cancel,
	})
	pub.Attach(ui.Surfaces())

	orch = pipeline.New(overlay.NewSelector(fyneApp), acq, rt.Extractor, rt.Translator, pub, pipeline.Options{
		Languages:      cfg.OCRLanguages,
		TargetLanguage: cfg.TargetLanguage,
		AutoRearm:      cfg.AutoRearm,
		RearmDelay:     cfg.RearmDelay,
		Dispatch:       gui.Dispatch,
		OnStage:        ui.SetStage,
	})

	syncer := windowsync.New(
		windowsync.Find(gui.ControlTitle),
		windowsync.Find(gui.ResultTitle),
		cfg.ControlWidth, cfg.ControlHeight, cfg.SyncInterval,
	)

	fyneApp.Lifecycle().SetOnStarted(func() {
		go syncer.Run(ctx, gui.Post)

		if err := orch.Start(ctx); err != nil {
			log.Printf("Pipeline start failed: %v", err)
		}

		if cfg.Hotkey != "" {
			if err := hotkey.Listen(ctx, cfg.Hotkey, func() { orch.Trigger() }); err != nil {
				log.Printf("Hotkey disabled: %v", err)
			}
		}

		if cfg.EnvPath != "" {
			err := config.Watch(ctx, cfg.EnvPath, func(next *config.Config) {
				applyFlags(opts)(next)
				log.Printf("Config reloaded: target=%s auto re-arm=%v", next.TargetLanguage, next.AutoRearm)
				orch.SetTargetLanguage(next.TargetLanguage)
				orch.SetAutoRearm(next.AutoRearm)
				gui.Post(func() { ui.Apply(next.TargetLanguage, next.AutoRearm) })
			})
			if err != nil {
				log.Printf("Config watch disabled: %v", err)
			}
		}
	})

	go func() {
		<-ctx.Done()
		gui.Post(fyneApp.Quit)
	}()

	ui.ShowAndRun()

	cancel()
	orch.Cancel()
	if !waitTimeout(orch.Wait, shutdownTimeout) {
		log.Printf("Pipeline did not stop within %v", shutdownTimeout)
	}
	log.Printf("Screen OCR Translate exited")
	return nil
}

func waitTimeout(wait func(), d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}
