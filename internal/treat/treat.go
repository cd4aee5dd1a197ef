// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package treat improves converted Markdown. An AI backend applies a
// correction pass under strict content-preservation instructions; a
// rule-based treatment stands in when no backend is configured or the AI
// result cannot be trusted.
package treat

import (
	"context"
)

// Backend abstracts the Generative AI API so tests can supply a mock.
type Backend interface {
	// Treat returns the corrected markdown for the given instruction.
	Treat(ctx context.Context, markdown, instruction string) (string, error)
}

// minResultRatio guards against the model summarizing instead of
// correcting: results shorter than this fraction of the input are
// discarded in favor of the rule-based treatment.
const minResultRatio = 0.2

// Apply runs the treatment pipeline. An empty instruction falls back to
// DefaultInstruction. With a nil backend the rule-based treatment is
// applied directly. A backend failure or an implausibly short result also
// falls back to the rule-based treatment; the returned bool reports that
// fallback. The error is non-nil only when ctx ends the call.
func Apply(ctx context.Context, b Backend, markdown, instruction string) (string, bool, error) {
	if instruction == "" {
		instruction = DefaultInstruction
	}
	if b == nil {
		return Basic(markdown), false, nil
	}

	treated, err := b.Treat(ctx, markdown, instruction)
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		return Basic(markdown), true, nil
	}

	treated = CleanResponse(treated)
	if len(treated) < int(float64(len(markdown))*minResultRatio) {
		return Basic(markdown), true, nil
	}
	return treated, false, nil
}
