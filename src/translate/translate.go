package translate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var ErrUnknownLanguage = errors.New("unknown target language")

// Backend performs the actual translation. target is a human readable
// language label such as "Chinese (zh)".
type Backend interface {
	Translate(ctx context.Context, text, target string) (string, error)
}

// Func adapts a plain function to Backend.
type Func func(ctx context.Context, text, target string) (string, error)

func (f Func) Translate(ctx context.Context, text, target string) (string, error) {
	return f(ctx, text, target)
}

// Service translates whole texts into a BCP 47 target language.
type Service struct {
	backend Backend
}

func New(backend Backend) *Service {
	return &Service{backend: backend}
}

// Translate sends text as a single unit. Empty text is not special-cased:
// whatever the backend answers is returned unchanged.
func (s *Service) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	label, err := Label(targetLanguage)
	if err != nil {
		return "", err
	}
	start := time.Now()
	out, err := s.backend.Translate(ctx, text, label)
	if err != nil {
		return "", fmt.Errorf("translation to %s failed: %w", label, err)
	}
	log.Printf("translate: %d -> %d chars into %s in %v", len(text), len(out), label, time.Since(start))
	return out, nil
}

// Label validates a language code and returns its English name followed by
// the canonical code, e.g. "zh" -> "Chinese (zh)".
func Label(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("%w: empty code", ErrUnknownLanguage)
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrUnknownLanguage, code, err)
	}
	name := display.English.Languages().Name(tag)
	if name == "" {
		return tag.String(), nil
	}
	return fmt.Sprintf("%s (%s)", name, tag.String()), nil
}
