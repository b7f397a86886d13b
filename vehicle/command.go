package vehicle

// ControlCommand is the low-level actuation command: target speed and
// actuator percentages resolved by an upstream planner. Steering is a
// percentage of the vehicle's maximum angle, positive left.
type ControlCommand struct {
	TargetSpeedMps  float64    `json:"target_speed_mps"`
	ThrottlePercent float64    `json:"throttle_percent"`
	BrakePercent    float64    `json:"brake_percent"`
	SteerPercent    float64    `json:"steer_percent"`
	Gear            Gear       `json:"gear"`
	ParkingBrake    bool       `json:"parking_brake"`
	Headlights      bool       `json:"headlights"`
	TurnSignal      TurnSignal `json:"turn_signal"`
	Horn            bool       `json:"horn"`
}

// ChassisCommand is the high-level external command: a requested control
// authority plus body signals, with no actuation values.
type ChassisCommand struct {
	TargetMode DrivingMode `json:"target_mode"`
	Headlights bool        `json:"headlights"`
	TurnSignal TurnSignal  `json:"turn_signal"`
	Horn       bool        `json:"horn"`
}
