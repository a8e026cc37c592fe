package synth

import (
	"context"
	"fmt"

	"github.com/book-expert/doc-speech-service/internal/core"
	"github.com/book-expert/logger"
)

// Engine quality tiers, highest quality first.
const (
	EngineGenerative = "generative"
	EngineNeural     = "neural"
	EngineStandard   = "standard"
)

// tierOrder is the fixed quality-descending fallback order.
var tierOrder = []string{EngineGenerative, EngineNeural, EngineStandard}

// Tiered wraps a speech engine with an ordered fallback across engine quality
// tiers. A failure at one tier is logged as a warning and recovery advances to
// the next tier; only exhausting every tier fails the request.
type Tiered struct {
	engine core.SpeechEngine
	log    *logger.Logger
}

// NewTiered creates a tiered synthesizer on top of the given engine capability.
func NewTiered(engine core.SpeechEngine, log *logger.Logger) *Tiered {
	return &Tiered{
		engine: engine,
		log:    log,
	}
}

// Synthesize produces audio for one payload.
//
// When tierPreference names a known tier, the fallback chain starts there with
// no attempts at higher-quality tiers. Otherwise tiers are tried strictly in
// descending quality order. The last tier's failure is returned when every
// attempt fails.
func (t *Tiered) Synthesize(
	ctx context.Context,
	input core.SynthesisInput,
	tierPreference string,
) ([]byte, error) {
	tiers := tiersFor(tierPreference)

	var lastErr error

	for _, tier := range tiers {
		audioData, err := t.engine.Synthesize(ctx, input, tier)
		if err == nil {
			return audioData, nil
		}

		lastErr = err

		t.log.Warn(
			"Engine tier '%s' failed for voice '%s': %v",
			tier,
			input.VoiceID,
			err,
		)
	}

	return nil, fmt.Errorf("exhausted all engine tiers: %w", lastErr)
}

// tiersFor resolves the tier sequence to attempt for the given preference.
func tiersFor(tierPreference string) []string {
	for position, tier := range tierOrder {
		if tier == tierPreference {
			return tierOrder[position:]
		}
	}

	return tierOrder
}
