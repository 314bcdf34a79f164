package llm

import (
	"fmt"

	"github.com/astroask/backend/internal/core/domain/astrology"
)

// promptFunc renders the system prompt for one reading kind.
type promptFunc func(lang astrology.Language) string

// systemPrompts must have an entry for every astrology.Kinds() value.
var systemPrompts = map[astrology.OperationKind]promptFunc{
	astrology.KindChart: func(lang astrology.Language) string {
		return fmt.Sprintf("You are an expert Vedic astrologer. Explain the following kundli chart data clearly in %s.", lang.DisplayName())
	},
	astrology.KindDasha: func(lang astrology.Language) string {
		return fmt.Sprintf("You are an expert Vedic astrologer. Explain the following Vimshottari Dasha periods in %s.", lang.DisplayName())
	},
	astrology.KindYearly: func(lang astrology.Language) string {
		return fmt.Sprintf("You are an expert astrologer. Based on the user's birth chart data, generate a personalized yearly forecast in %s.", lang.DisplayName())
	},
}

// SystemPrompt returns the prompt for kind, or false for an unknown kind.
func SystemPrompt(kind astrology.OperationKind, lang astrology.Language) (string, bool) {
	fn, ok := systemPrompts[kind]
	if !ok {
		return "", false
	}
	return fn(lang), true
}
