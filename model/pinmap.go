package model

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
)

const (
	// Number of LEDs on the board
	LEDCount = 4
	// Number of buttons on the board
	ButtonCount = 4
)

// Role identifies the function of a line.
type Role string

// LEDRole returns the role of the LED with given index (0...)
func LEDRole(index int) Role {
	return Role(fmt.Sprintf("LED_%d", index+1))
}

// ButtonRole returns the role of the button with given index (0...)
func ButtonRole(index int) Role {
	return Role(fmt.Sprintf("BUTTON_%d", index+1))
}

// PinMap holds the assignment of LED and button roles to the
// lines of the board.
type PinMap struct {
	// Line offsets of LED_1...LED_4
	LEDs []uint32 `json:"leds"`
	// Line offsets of BUTTON_1...BUTTON_4
	Buttons []uint32 `json:"buttons"`
	// If set, a LED is lit when its line is low.
	LEDActiveLow bool `json:"led_active_low"`
}

// DefaultPinMap returns the builtin pin map for the given board type.
func DefaultPinMap(board BoardType) PinMap {
	if board.UsesBCMNumbering() {
		// Common LED & button HAT wiring on a Raspberry Pi header
		return PinMap{
			LEDs:         []uint32{17, 27, 22, 10},
			Buttons:      []uint32{5, 6, 13, 19},
			LEDActiveLow: true,
		}
	}
	// nRF52 development kit
	return PinMap{
		LEDs:         []uint32{17, 18, 19, 20},
		Buttons:      []uint32{13, 14, 15, 16},
		LEDActiveLow: true,
	}
}

// LoadPinMap reads a JSON pin map from the given file.
// Fields missing in the file keep the values of the given defaults.
func LoadPinMap(path string, defaults PinMap) (PinMap, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return PinMap{}, errors.Wrapf(err, "failed to read pin map '%s'", path)
	}
	result := defaults.clone()
	if err := json.Unmarshal(content, &result); err != nil {
		return PinMap{}, errors.Wrapf(ValidationError, "failed to parse pin map '%s': %s", path, err.Error())
	}
	if err := result.Validate(); err != nil {
		return PinMap{}, maskAny(err)
	}
	return result, nil
}

// LED returns the line of the LED with given index (0...)
func (m PinMap) LED(index int) uint32 {
	return m.LEDs[index]
}

// Button returns the line of the button with given index (0...)
func (m PinMap) Button(index int) uint32 {
	return m.Buttons[index]
}

// ButtonIndex returns the index of the button on the given line.
// Returns false if there is no button on that line.
func (m PinMap) ButtonIndex(pin uint32) (int, bool) {
	for i, x := range m.Buttons {
		if x == pin {
			return i, true
		}
	}
	return 0, false
}

// RoleOf returns the role assigned to the given line.
// Returns false if the line has no role.
func (m PinMap) RoleOf(pin uint32) (Role, bool) {
	for i, x := range m.LEDs {
		if x == pin {
			return LEDRole(i), true
		}
	}
	if i, found := m.ButtonIndex(pin); found {
		return ButtonRole(i), true
	}
	return "", false
}

// Validate the given pin map, returning nil on ok,
// or an error upon validation issues.
func (m PinMap) Validate() error {
	if len(m.LEDs) != LEDCount {
		return errors.Wrapf(ValidationError, "expected %d LEDs, got %d", LEDCount, len(m.LEDs))
	}
	if len(m.Buttons) != ButtonCount {
		return errors.Wrapf(ValidationError, "expected %d buttons, got %d", ButtonCount, len(m.Buttons))
	}
	used := make(map[uint32]Role)
	check := func(pin uint32, role Role) error {
		if other, found := used[pin]; found {
			return errors.Wrapf(ValidationError, "line %d assigned to both %s and %s", pin, other, role)
		}
		used[pin] = role
		return nil
	}
	for i, pin := range m.LEDs {
		if err := check(pin, LEDRole(i)); err != nil {
			return err
		}
	}
	for i, pin := range m.Buttons {
		if err := check(pin, ButtonRole(i)); err != nil {
			return err
		}
	}
	return nil
}

// clone returns a deep copy of the pin map.
func (m PinMap) clone() PinMap {
	return PinMap{
		LEDs:         append([]uint32(nil), m.LEDs...),
		Buttons:      append([]uint32(nil), m.Buttons...),
		LEDActiveLow: m.LEDActiveLow,
	}
}
