package model

import (
	"strconv"

	"github.com/pkg/errors"
)

// Variant selects the behavior of the buttons.
type Variant int

const (
	// Buttons drive LEDs directly from the edge interrupt
	VariantDirect Variant = 1
	// Buttons drive LEDs from the main loop, deferred through the scheduler
	VariantScheduled Variant = 2
	// Buttons start and stop timers, timer expiries drive LEDs
	VariantTimers Variant = 3
)

// VariantInfo holds builtin information for a variant.
type VariantInfo struct {
	Variant     Variant
	Description string
	// Set if button events are deferred to the main loop
	Deferred bool
	// Set if the clock and timer services are used
	UsesTimers bool
}

var (
	variantInfos = []VariantInfo{
		{
			Variant:     VariantDirect,
			Description: "buttons drive LEDs from the interrupt handler",
		},
		{
			Variant:     VariantScheduled,
			Description: "buttons drive LEDs from the main loop",
			Deferred:    true,
		},
		{
			Variant:     VariantTimers,
			Description: "buttons start and stop timers that drive LEDs",
			UsesTimers:  true,
		},
	}
)

// Info returns the builtin information of the variant.
func (v Variant) Info() (VariantInfo, bool) {
	for _, info := range variantInfos {
		if info.Variant == v {
			return info, true
		}
	}
	return VariantInfo{}, false
}

// Validate the given variant, returning nil on ok,
// or an error upon validation issues.
func (v Variant) Validate() error {
	if _, found := v.Info(); !found {
		return errors.Wrapf(ValidationError, "invalid variant %d", int(v))
	}
	return nil
}

// Deferred returns true when button events are handled from the main loop.
func (v Variant) Deferred() bool {
	info, _ := v.Info()
	return info.Deferred
}

// UsesTimers returns true when the variant needs the clock and timer services.
func (v Variant) UsesTimers() bool {
	info, _ := v.Info()
	return info.UsesTimers
}

func (v Variant) String() string {
	return strconv.Itoa(int(v))
}
