package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"screen-ocr-translate/src/config"
	"screen-ocr-translate/src/ocr"
	"screen-ocr-translate/src/runtimeinit"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

type cliOptions struct {
	filePath    string
	jsonOutput  bool
	verbose     bool
	apiKeyPath  string
	envFile     string
	target      string
	engine      string
	noTranslate bool
}

type extractor interface {
	Extract(ctx context.Context, img image.Image, languages []string) (ocr.Result, error)
}

type translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args))
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"ocr-translate"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ocr-translate",
		Short:         "Extract and translate the text of a PNG image",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(cmd.Context(), *opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to PNG file (use '-' for stdin)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.Flags().StringVar(&opts.apiKeyPath, "api-key-path", "", "Path to API key file (highest precedence)")
	cmd.Flags().StringVar(&opts.envFile, "env-file", "", "Path to .env file (overrides lookup order)")
	cmd.Flags().StringVar(&opts.target, "target", "", "Target language code (default from TARGET_LANGUAGE)")
	cmd.Flags().StringVar(&opts.engine, "engine", "", "OCR engine: tesseract or llm")
	cmd.Flags().BoolVar(&opts.noTranslate, "no-translate", false, "Only extract text")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runWithOptions(ctx context.Context, opts cliOptions, stdin io.Reader, stdout io.Writer) error {
	// Configure logging BEFORE any other operations.
	if !opts.verbose {
		log.SetOutput(io.Discard)
	} else {
		log.SetOutput(os.Stderr)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := runtimeinit.Bootstrap(ctx, runtimeinit.Options{
		LoadOptions: config.LoadOptions{EnvPath: opts.envFile, APIKeyPathOverride: opts.apiKeyPath},
		Override: func(cfg *config.Config) {
			if opts.target != "" {
				cfg.TargetLanguage = opts.target
			}
			if opts.engine != "" {
				cfg.OCREngine = opts.engine
			}
		},
		SkipPing: true,
	})
	if err != nil {
		return err
	}

	data, err := readInput(opts.filePath, stdin)
	if err != nil {
		return err
	}

	var tr translator
	if !opts.noTranslate {
		tr = rt.Translator
	}
	res, err := process(ctx, data, rt.Extractor, tr, rt.Config.OCRLanguages, rt.Config.TargetLanguage)
	if err != nil {
		return err
	}
	res.Source = opts.filePath
	return outputResult(stdout, res, opts.jsonOutput)
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	long := []string{"file", "json", "verbose", "api-key-path", "env-file", "target", "engine", "no-translate"}
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

func readInput(filePath string, stdin io.Reader) ([]byte, error) {
	var data []byte
	var err error
	if filePath == "-" {
		data, err = io.ReadAll(io.LimitReader(stdin, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
		}
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("input file is empty")
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	if len(data) < len(pngMagic) || !bytes.Equal(data[:len(pngMagic)], pngMagic) {
		return nil, fmt.Errorf("input is not a valid PNG file (invalid magic number)")
	}
	return data, nil
}

// Result is the JSON output of one run.
type Result struct {
	Text           string  `json:"text"`
	Translation    string  `json:"translation,omitempty"`
	TargetLanguage string  `json:"target_language,omitempty"`
	Source         string  `json:"source"`
	Timestamp      string  `json:"timestamp"`
	Duration       float64 `json:"duration_seconds"`
	CharCount      int     `json:"character_count"`
	Lines          int     `json:"lines"`
}

// process decodes the PNG, extracts its text and, when tr is set,
// translates it.
func process(ctx context.Context, data []byte, ex extractor, tr translator, languages []string, target string) (Result, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("failed to decode PNG: %w", err)
	}

	start := time.Now()
	extracted, err := ex.Extract(ctx, img, languages)
	if err != nil {
		return Result{}, fmt.Errorf("OCR failed: %w", err)
	}
	text := extracted.Text()
	res := Result{Text: text, CharCount: len(text), Lines: len(extracted.Spans)}

	if tr != nil {
		translated, err := tr.Translate(ctx, text, target)
		if err != nil {
			return Result{}, fmt.Errorf("translation failed: %w", err)
		}
		res.Translation = translated
		res.TargetLanguage = target
	}

	res.Duration = time.Since(start).Seconds()
	res.Timestamp = time.Now().UTC().Format(time.RFC3339)
	log.Printf("Processed %d bytes in %.2fs", len(data), res.Duration)
	return res, nil
}

func outputResult(w io.Writer, res Result, jsonOutput bool) error {
	if jsonOutput {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(res); err != nil {
			return fmt.Errorf("failed to encode JSON output: %w", err)
		}
		return nil
	}

	if res.TargetLanguage == "" {
		_, err := fmt.Fprint(w, res.Text)
		return err
	}
	_, err := fmt.Fprintf(w, "%s\n\n%s\n", res.Text, res.Translation)
	return err
}
