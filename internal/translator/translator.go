// Package translator holds the generative translation capability and the
// per-language-pair policy that decides when to call it.
package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable is returned when a translation could not be produced.
var ErrUnavailable = errors.New("translation unavailable")

// SystemPrompt is the contract every generative provider is held to.
const SystemPrompt = `You are a certified legal translator. Translate the user's text faithfully.
Rules:
- Preserve placeholders, identifiers, names, reference numbers, dates and amounts exactly as written.
- Do not add, remove, summarize or soften any obligation, right or condition.
- Keep the paragraph and list structure of the source.
- Return only the translated text, with no preamble, notes or code fences.`

type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Func adapts a function to the Translator interface.
type Func func(ctx context.Context, text, sourceLang, targetLang string) (string, error)

func (f Func) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	return f(ctx, text, sourceLang, targetLang)
}

// Unavailable is the capability used when no provider is configured.
type Unavailable struct{}

func (Unavailable) Translate(context.Context, string, string, string) (string, error) {
	return "", fmt.Errorf("no translation provider configured: %w", ErrUnavailable)
}

func userPrompt(text, sourceLang, targetLang string) string {
	return fmt.Sprintf("Translate the following text from %s to %s.\n\n%s", sourceLang, targetLang, text)
}

var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot translate",
	"i cannot provide",
	"as a large language model",
}

// cleanOutput strips code fences and rejects empty or refusing answers.
func cleanOutput(out string) (string, error) {
	out = strings.TrimSpace(out)
	out = strings.TrimPrefix(out, "```text")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.New("empty translation returned")
	}
	lower := strings.ToLower(out)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return "", fmt.Errorf("model refused to translate: %q", phrase)
		}
	}
	return out, nil
}
