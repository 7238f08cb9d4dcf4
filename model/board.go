package model

import "github.com/pkg/errors"

// BoardType identifies the hardware (or simulation) that provides the GPIO lines.
type BoardType string

const (
	// Simulated board, buttons are pressed through the API or UI
	BoardTypeVirtual BoardType = "virtual"
	// Linux GPIO character device
	BoardTypeGPIOCDev BoardType = "gpiocdev"
	// Boards supported by periph.io
	BoardTypePeriph BoardType = "periph"
	// Raspberry Pi through sysfs
	BoardTypeRPI BoardType = "rpi"
	// Raspberry Pi through memory mapped registers
	BoardTypeRPIO BoardType = "rpio"
	// Lines exposed as MQTT topics
	BoardTypeMQTT BoardType = "mqtt"
)

var (
	// AllBoardTypes lists all supported board types
	AllBoardTypes = []BoardType{
		BoardTypeVirtual,
		BoardTypeGPIOCDev,
		BoardTypePeriph,
		BoardTypeRPI,
		BoardTypeRPIO,
		BoardTypeMQTT,
	}
)

// Validate the given type, returning nil on ok,
// or an error upon validation issues.
func (t BoardType) Validate() error {
	for _, x := range AllBoardTypes {
		if x == t {
			return nil
		}
	}
	return errors.Wrapf(ValidationError, "invalid board type '%s'", string(t))
}

// UsesBCMNumbering returns true when lines of the board are
// identified by Broadcom GPIO numbers.
func (t BoardType) UsesBCMNumbering() bool {
	switch t {
	case BoardTypeGPIOCDev, BoardTypePeriph, BoardTypeRPI, BoardTypeRPIO:
		return true
	default:
		return false
	}
}
