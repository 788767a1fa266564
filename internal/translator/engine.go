package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"legaldocs/internal/model"

	"go.uber.org/zap"
)

// Pair is a directed language pair such as vi>en.
type Pair struct {
	Source string
	Target string
}

func (p Pair) String() string { return p.Source + ">" + p.Target }

// ParsePairs reads a comma separated list of "src>dst" pairs.
func ParsePairs(s string) (map[Pair]bool, error) {
	out := make(map[Pair]bool)
	for _, raw := range strings.Split(s, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		src, dst, ok := strings.Cut(raw, ">")
		src, dst = model.NormalizeLang(src), model.NormalizeLang(dst)
		if !ok || src == "" || dst == "" || src == dst {
			return nil, fmt.Errorf("invalid language pair %q", raw)
		}
		out[Pair{Source: src, Target: dst}] = true
	}
	return out, nil
}

type Result struct {
	Text        string
	Engine      model.TranslationEngine
	Placeholder bool
}

// Engine applies the per-pair policy:
// template pairs pass through as hybrid, generative pairs call the provider
// under a timeout, and every other pair passes through for human translation.
type Engine struct {
	provider   Translator
	timeout    time.Duration
	generative map[Pair]bool
	template   map[Pair]bool
	logger     *zap.Logger
}

type EngineConfig struct {
	Timeout    time.Duration
	Generative map[Pair]bool
	Template   map[Pair]bool
}

func NewEngine(provider Translator, cfg EngineConfig, logger *zap.Logger) *Engine {
	if provider == nil {
		provider = Unavailable{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Engine{
		provider:   provider,
		timeout:    cfg.Timeout,
		generative: cfg.Generative,
		template:   cfg.Template,
		logger:     logger.With(zap.String("component", "translation_engine")),
	}
}

// Translate never returns empty-handed: on provider failure the Result holds
// placeholder text and the error wraps ErrUnavailable.
func (e *Engine) Translate(ctx context.Context, segmentID, text, sourceLang, targetLang string) (Result, error) {
	pair := Pair{Source: model.NormalizeLang(sourceLang), Target: model.NormalizeLang(targetLang)}

	switch {
	case e.template[pair]:
		return Result{Text: text, Engine: model.EngineHybrid}, nil
	case e.generative[pair]:
	default:
		return Result{Text: text, Engine: model.EngineHuman}, nil
	}

	if strings.TrimSpace(text) == "" {
		return Result{Text: text, Engine: model.EngineAI}, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out, err := e.provider.Translate(callCtx, text, pair.Source, pair.Target)
	if err == nil {
		return Result{Text: out, Engine: model.EngineAI}, nil
	}

	e.logger.Warn("generative translation failed",
		zap.String("segment_id", segmentID),
		zap.String("pair", pair.String()),
		zap.Bool("timeout", errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded)),
		zap.Error(err),
	)
	placeholder := Result{Text: model.PlaceholderPrefix + text, Engine: model.EngineAI, Placeholder: true}
	if errors.Is(err, ErrUnavailable) {
		return placeholder, err
	}
	return placeholder, fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// Generative reports whether the pair is routed to the provider.
func (e *Engine) Generative(sourceLang, targetLang string) bool {
	return e.generative[Pair{Source: model.NormalizeLang(sourceLang), Target: model.NormalizeLang(targetLang)}]
}
