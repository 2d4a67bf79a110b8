package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIKeyPath = "/run/secrets/api_keys/openrouter"
	APIKeyPathEnvVar  = "OPENROUTER_API_KEY_FILE"
	EnvPathEnvVar     = "SCREEN_OCR_TRANSLATE"
	DefaultBaseURL    = "https://openrouter.ai/api/v1"

	EngineTesseract = "tesseract"
	EngineLLM       = "llm"
)

type LoadOptions struct {
	// EnvPath forces a specific .env file instead of the lookup order.
	EnvPath            string
	APIKeyPathOverride string
}

type Config struct {
	EnvPath string

	APIKey         string
	APIKeyPath     string
	BaseURL        string
	Model          string
	TranslateModel string
	Providers      []string

	OCREngine      string
	OCRLanguages   []string
	TessdataPrefix string
	TargetLanguage string

	AutoRearm    bool
	RearmDelay   time.Duration
	SyncInterval time.Duration

	ControlWidth  int
	ControlHeight int
	ResultWidth   int
	ResultHeight  int

	Hotkey            string
	CopyToClipboard   bool
	EnableFileLogging bool
	DebugSaveImages   bool
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

// LoadWithOptions resolves configuration in priority order:
// 1) explicit EnvPath, 2) .env in the executable directory,
// 3) the file named by SCREEN_OCR_TRANSLATE. Process environment values win
// over .env values, as godotenv.Load never overrides existing variables.
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	envPath := strings.TrimSpace(opts.EnvPath)
	if envPath == "" {
		envPath = resolveEnvPath()
	}
	dotenvValues := readDotenvValues(envPath)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	apiKeyPath := resolveAPIKeyPath(opts, dotenvValues)
	model := os.Getenv("MODEL")

	cfg := &Config{
		EnvPath:        envPath,
		APIKey:         resolveAPIKey(apiKeyPath),
		APIKeyPath:     apiKeyPath,
		BaseURL:        getEnvWithDefault("LLM_BASE_URL", DefaultBaseURL),
		Model:          model,
		TranslateModel: getEnvWithDefault("TRANSLATE_MODEL", model),
		Providers:      splitList(os.Getenv("PROVIDERS")),

		OCREngine:      resolveEngine(os.Getenv("OCR_ENGINE")),
		OCRLanguages:   splitList(getEnvWithDefault("OCR_LANGUAGES", "eng,chi_sim")),
		TessdataPrefix: os.Getenv("TESSDATA_PREFIX"),
		TargetLanguage: getEnvWithDefault("TARGET_LANGUAGE", "zh"),

		AutoRearm:    getBool("AUTO_REARM", true),
		RearmDelay:   getMillis("REARM_DELAY_MS", 1000),
		SyncInterval: getMillis("SYNC_INTERVAL_MS", 100),

		ControlWidth:  getPositiveInt("CONTROL_WIDTH", 200),
		ControlHeight: getPositiveInt("CONTROL_HEIGHT", 100),
		ResultWidth:   getPositiveInt("RESULT_WIDTH", 600),
		ResultHeight:  getPositiveInt("RESULT_HEIGHT", 400),

		Hotkey:            getEnvWithDefault("HOTKEY", "Ctrl+Alt+T"),
		CopyToClipboard:   getBool("COPY_TO_CLIPBOARD", false),
		EnableFileLogging: getBool("ENABLE_FILE_LOGGING", false),
		DebugSaveImages:   getBool("OCR_DEBUG_SAVE_IMAGES", false),
	}

	return cfg, nil
}

func resolveEnvPath() string {
	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(EnvPathEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func readDotenvValues(envPath string) map[string]string {
	if envPath == "" {
		return map[string]string{}
	}

	values, err := godotenv.Read(envPath)
	if err != nil {
		return map[string]string{}
	}

	return values
}

func resolveAPIKeyPath(opts LoadOptions, dotenvValues map[string]string) string {
	keyPath := DefaultAPIKeyPath

	if envPath := strings.TrimSpace(os.Getenv(APIKeyPathEnvVar)); envPath != "" {
		keyPath = envPath
	}

	if dotenvPath := strings.TrimSpace(dotenvValues[APIKeyPathEnvVar]); dotenvPath != "" {
		keyPath = dotenvPath
	}

	if overridePath := strings.TrimSpace(opts.APIKeyPathOverride); overridePath != "" {
		keyPath = overridePath
	}

	return keyPath
}

func resolveAPIKey(keyPath string) string {
	if data, err := os.ReadFile(keyPath); err == nil {
		if fileKey := strings.TrimSpace(string(data)); fileKey != "" {
			return fileKey
		}
	}

	return os.Getenv("OPENROUTER_API_KEY")
}

func resolveEngine(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case EngineLLM, "vision":
		return EngineLLM
	default:
		return EngineTesseract
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

func getPositiveInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getMillis(key string, defaultValue int) time.Duration {
	return time.Duration(getPositiveInt(key, defaultValue)) * time.Millisecond
}
