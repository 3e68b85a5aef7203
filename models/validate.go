// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"fmt"
	"unicode/utf8"

	"github.com/cohesivestack/valgo"
)

// MaxPromptLength caps text-generation prompts, in characters
const MaxPromptLength = 2000

// MaxValueSize caps an encoded response value, in bytes
const MaxValueSize = 16 << 10

var pollTypes = []PollType{PollMultipleChoice, PollSlider, PollText}

// maxChars counts runes, so multibyte text gets the full allowance.
func maxChars(n int) func(string) bool {
	return func(v string) bool { return utf8.RuneCountInString(v) <= n }
}

func (r *JoinSessionRequest) Validate() *valgo.Validation {
	return valgo.Is(valgo.String(r.ParticipantID, "participant_id").Not().Blank())
}

func (r *CreatePollRequest) Validate() *valgo.Validation {
	return valgo.
		Is(valgo.String(r.SlideID, "slide_id").Not().Blank().Passing(maxChars(200), "{{title}} must not exceed 200 characters")).
		Is(valgo.String(r.Type, "poll_type").InSlice(pollTypes, "{{title}} must be one of multiple_choice, slider, text"))
}

func (r *SubmitResponseRequest) Validate() *valgo.Validation {
	return valgo.
		Is(valgo.String(r.ParticipantID, "participant_id").Not().Blank()).
		Is(valueSize(r.Value))
}

// Empty values pass here and are rejected by the engine as ErrEmptyValue.
func (r *ManualResponseRequest) Validate() *valgo.Validation {
	return valgo.Is(valueSize(r.Value))
}

func valueSize(value []byte) *valgo.ValidatorAny {
	return valgo.Any(value, "value").Passing(func(any) bool {
		return len(value) <= MaxValueSize
	}, fmt.Sprintf("{{title}} must not exceed %d bytes", MaxValueSize))
}

func (r *GenerateRequest) Validate() *valgo.Validation {
	return valgo.
		Is(valgo.String(r.Prompt, "prompt").Not().Blank().
			Passing(maxChars(MaxPromptLength), fmt.Sprintf("{{title}} must not exceed %d characters", MaxPromptLength))).
		Is(valgo.String(r.Model, "model").Passing(maxChars(100), "{{title}} must not exceed 100 characters"))
}
