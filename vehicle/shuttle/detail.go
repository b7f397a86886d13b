package shuttle

import (
	"time"

	"github.com/c360/canlink/protocol"
	"github.com/c360/canlink/vehicle"
)

// Detail mirrors the shuttle's protocol frames. Decoded from reports it is
// the received view (actual values plus per-frame freshness stamps); decoded
// from the command slots' pending bytes it is the to-send view (commanded
// values, stamps zero). Both views publish to telemetry as JSON.
type Detail struct {
	SpeedMps        float64      `json:"speed_mps"`
	Gear            vehicle.Gear `json:"gear"`
	DriveAuto       bool         `json:"drive_auto"`
	ThrottlePercent float64      `json:"throttle_percent"`

	BrakePercent float64 `json:"brake_percent"`
	ParkingBrake bool    `json:"parking_brake"`

	SteerAngleDeg float64 `json:"steer_angle_deg"`
	SteerAuto     bool    `json:"steer_auto"`

	VehicleMode uint8   `json:"vehicle_mode"`
	FaultLevel  uint8   `json:"fault_level"`
	BatterySOC  float64 `json:"battery_soc"`
	ErrorCode   uint8   `json:"error_code"`

	PowerStatus    uint8   `json:"power_status"`
	BatteryVoltage float64 `json:"battery_voltage"`

	Headlights bool               `json:"headlights"`
	TurnSignal vehicle.TurnSignal `json:"turn_signal"`
	Horn       bool               `json:"horn"`

	AliveCounter uint8 `json:"alive_counter"`

	LastDriveReport  time.Time `json:"last_drive_report"`
	LastBrakeReport  time.Time `json:"last_brake_report"`
	LastSteerReport  time.Time `json:"last_steer_report"`
	LastStatusReport time.Time `json:"last_status_report"`
	LastPowerReport  time.Time `json:"last_power_report"`
}

// CloneDetail returns an independent copy.
func (d *Detail) CloneDetail() protocol.Detail {
	c := *d
	return &c
}

// LastReport returns the most recent report timestamp across all frames, or
// the zero time if the vehicle has never reported.
func (d *Detail) LastReport() time.Time {
	latest := d.LastDriveReport
	for _, ts := range []time.Time{d.LastBrakeReport, d.LastSteerReport, d.LastStatusReport, d.LastPowerReport} {
		if ts.After(latest) {
			latest = ts
		}
	}
	return latest
}
