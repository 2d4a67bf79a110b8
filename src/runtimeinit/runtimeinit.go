package runtimeinit

import (
	"context"
	"fmt"
	"log"
	"time"

	"screen-ocr-translate/src/config"
	"screen-ocr-translate/src/llm"
	"screen-ocr-translate/src/ocr"
	"screen-ocr-translate/src/ocr/tesseract"
	"screen-ocr-translate/src/translate"
)

const pingTimeout = 15 * time.Second

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(bool)
	// Override adjusts the loaded configuration, e.g. from command line flags.
	Override func(*config.Config)
	SkipPing bool
}

// Runtime holds the services built from one configuration.
type Runtime struct {
	Config     *config.Config
	LLM        *llm.Client
	Extractor  *ocr.Extractor
	Translator *translate.Service
}

func Bootstrap(ctx context.Context, opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.Override != nil {
		opts.Override(cfg)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}

	rt, err := Build(cfg)
	if err != nil {
		return nil, err
	}

	if !opts.SkipPing {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := rt.LLM.Ping(pingCtx); err != nil {
			return nil, fmt.Errorf("startup check failed: %w", err)
		}
		log.Printf("LLM ping succeeded")
	}
	return rt, nil
}

// Build validates cfg and wires the LLM client, the OCR engine and the
// translator.
func Build(cfg *config.Config) (*Runtime, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY is required. Checked key file %s and OPENROUTER_API_KEY env var", cfg.APIKeyPath)
	}
	if cfg.TranslateModel == "" {
		return nil, fmt.Errorf("TRANSLATE_MODEL (or MODEL) is required. Please set it in your .env file")
	}
	if cfg.OCREngine == config.EngineLLM && cfg.Model == "" {
		return nil, fmt.Errorf("MODEL is required when OCR_ENGINE=llm. Please set it in your .env file")
	}

	client := llm.New(llm.Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		TranslateModel: cfg.TranslateModel,
		Providers:      cfg.Providers,
	})

	var engine ocr.Engine
	switch cfg.OCREngine {
	case config.EngineLLM:
		engine = ocr.VisionEngine{Model: client}
	default:
		engine = tesseract.New(cfg.TessdataPrefix)
	}

	var debugDir string
	if cfg.DebugSaveImages {
		debugDir = "."
	}

	log.Printf("Runtime: OCR engine=%s languages=%v, model=%s, translate model=%s, target=%s",
		cfg.OCREngine, cfg.OCRLanguages, cfg.Model, cfg.TranslateModel, cfg.TargetLanguage)

	return &Runtime{
		Config:     cfg,
		LLM:        client,
		Extractor:  ocr.New(engine, ocr.Options{DebugDir: debugDir}),
		Translator: translate.New(client),
	}, nil
}
