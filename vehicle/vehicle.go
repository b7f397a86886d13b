// Package vehicle defines the types every vehicle integration shares: the
// command inputs, the chassis snapshot, the controller contract, and the
// registry that maps a configured vehicle name to its implementation.
//
// A vehicle integration lives in its own subpackage (see vehicle/shuttle),
// implements Controller against its protocol frames, and registers a Factory
// from an init function. Nothing outside the integration imports it; the
// daemon pulls it in with a blank import and selects it by name.
package vehicle

import "fmt"

// DrivingMode is the chassis control authority.
type DrivingMode int

const (
	// ModeManual means the vehicle ignores commanded values.
	ModeManual DrivingMode = iota
	// ModeAuto means speed and steering both follow commands.
	ModeAuto
	// ModeSteerOnly means steering follows commands, speed is manual.
	ModeSteerOnly
	// ModeSpeedOnly means speed follows commands, steering is manual.
	ModeSpeedOnly
	// ModeEmergency means the vehicle faulted and stopped accepting commands.
	ModeEmergency
	// ModeUnknown means the vehicle has not reported a mode yet.
	ModeUnknown
)

var drivingModeNames = map[DrivingMode]string{
	ModeManual:    "manual",
	ModeAuto:      "auto",
	ModeSteerOnly: "steer_only",
	ModeSpeedOnly: "speed_only",
	ModeEmergency: "emergency",
	ModeUnknown:   "unknown",
}

func (m DrivingMode) String() string {
	if name, ok := drivingModeNames[m]; ok {
		return name
	}
	return "unknown"
}

// MarshalText renders the mode as its name for JSON telemetry.
func (m DrivingMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText parses a mode name. Unrecognized names are an error so a
// mistyped command subject payload cannot silently become manual mode.
func (m *DrivingMode) UnmarshalText(text []byte) error {
	parsed, err := ParseDrivingMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseDrivingMode resolves a mode name to its value.
func ParseDrivingMode(name string) (DrivingMode, error) {
	for mode, n := range drivingModeNames {
		if n == name {
			return mode, nil
		}
	}
	return ModeUnknown, fmt.Errorf("vehicle: unknown driving mode %q", name)
}

// Gear is the transmission position.
type Gear int

const (
	GearNeutral Gear = iota
	GearDrive
	GearReverse
	GearPark
)

var gearNames = map[Gear]string{
	GearNeutral: "neutral",
	GearDrive:   "drive",
	GearReverse: "reverse",
	GearPark:    "park",
}

func (g Gear) String() string {
	if name, ok := gearNames[g]; ok {
		return name
	}
	return "neutral"
}

// MarshalText renders the gear as its name.
func (g Gear) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText parses a gear name.
func (g *Gear) UnmarshalText(text []byte) error {
	for gear, n := range gearNames {
		if n == string(text) {
			*g = gear
			return nil
		}
	}
	return fmt.Errorf("vehicle: unknown gear %q", string(text))
}

// TurnSignal is the indicator state.
type TurnSignal int

const (
	TurnSignalNone TurnSignal = iota
	TurnSignalLeft
	TurnSignalRight
)

var turnSignalNames = map[TurnSignal]string{
	TurnSignalNone:  "none",
	TurnSignalLeft:  "left",
	TurnSignalRight: "right",
}

func (t TurnSignal) String() string {
	if name, ok := turnSignalNames[t]; ok {
		return name
	}
	return "none"
}

// MarshalText renders the signal as its name.
func (t TurnSignal) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a signal name.
func (t *TurnSignal) UnmarshalText(text []byte) error {
	for sig, n := range turnSignalNames {
		if n == string(text) {
			*t = sig
			return nil
		}
	}
	return fmt.Errorf("vehicle: unknown turn signal %q", string(text))
}

// Chassis is the vehicle state snapshot published on the chassis telemetry
// channel. It is derived from the received protocol view plus the
// controller's own mode tracking.
type Chassis struct {
	Mode            DrivingMode `json:"mode"`
	SpeedMps        float64     `json:"speed_mps"`
	ThrottlePercent float64     `json:"throttle_percent"`
	BrakePercent    float64     `json:"brake_percent"`
	SteerPercent    float64     `json:"steer_percent"`
	Gear            Gear        `json:"gear"`
	ParkingBrake    bool        `json:"parking_brake"`
	BatterySOC      float64     `json:"battery_soc"`
	ErrorCode       uint8       `json:"error_code"`
	CommFault       bool        `json:"comm_fault"`
}
