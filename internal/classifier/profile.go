package classifier

import (
	"fmt"
	"strings"
)

// Profile holds the thresholds and penalties that differ between strictness modes
type Profile struct {
	Name string

	// ContextRadius is how many characters on each side of an amount are searched for
	// monetary context keywords
	ContextRadius int

	// AmountFloor is the minimum candidate score for an amount to be accepted
	AmountFloor int

	YearPenalty  int
	ContextBonus int
	RangeBonus   int
	LargePenalty int

	// PromoThreshold is the promotional match count that must be exceeded before
	// PromoPenalty applies
	PromoThreshold int
	PromoPenalty   int

	// MinConfidence rejects results that found an amount but scored below it
	MinConfidence int
}

var (
	// Strict needs monetary context next to the amount and rejects low-confidence results
	Strict = Profile{
		Name:           "strict",
		ContextRadius:  40,
		AmountFloor:    30,
		YearPenalty:    100,
		ContextBonus:   40,
		RangeBonus:     10,
		LargePenalty:   30,
		PromoThreshold: 1,
		PromoPenalty:   20,
		MinConfidence:  40,
	}

	// Balanced is the default
	Balanced = Profile{
		Name:           "balanced",
		ContextRadius:  80,
		AmountFloor:    0,
		YearPenalty:    100,
		ContextBonus:   40,
		RangeBonus:     10,
		LargePenalty:   20,
		PromoThreshold: 2,
		PromoPenalty:   15,
	}

	// Flexible favours recall: a wide context window and a negative floor
	Flexible = Profile{
		Name:           "flexible",
		ContextRadius:  180,
		AmountFloor:    -10,
		YearPenalty:    100,
		ContextBonus:   30,
		RangeBonus:     10,
		LargePenalty:   15,
		PromoThreshold: 3,
		PromoPenalty:   10,
	}
)

// ProfileByName returns the named profile
func ProfileByName(name string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "balanced", "simple":
		return Balanced, nil
	case "strict":
		return Strict, nil
	case "flexible":
		return Flexible, nil
	}
	return Profile{}, fmt.Errorf("unknown classifier profile: %s", name)
}
