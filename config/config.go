package config

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/c360/canlink/framelog"
	"github.com/c360/canlink/transport"
)

// Config is the complete canlink configuration. It is immutable once
// validated: the orchestrator clones it at construction and never writes it.
type Config struct {
	Version   string           `json:"version" yaml:"version"`
	Node      NodeConfig       `json:"node" yaml:"node"`
	Transport transport.Config `json:"transport" yaml:"transport"`
	Vehicle   VehicleConfig    `json:"vehicle" yaml:"vehicle"`
	Telemetry TelemetryConfig  `json:"telemetry" yaml:"telemetry"`
	Metrics   MetricsConfig    `json:"metrics" yaml:"metrics"`
	FrameLog  FrameLogConfig   `json:"frame_log" yaml:"frame_log"`
	Scheduler SchedulerConfig  `json:"scheduler" yaml:"scheduler"`
}

// NodeConfig identifies this node on the telemetry bus.
type NodeConfig struct {
	Org         string `json:"org" yaml:"org"`
	ID          string `json:"id" yaml:"id"`
	Environment string `json:"environment,omitempty" yaml:"environment,omitempty"`
}

// VehicleConfig selects a registered vehicle and its tuning parameters.
type VehicleConfig struct {
	// Name of a registered vehicle constructor, e.g. "shuttle".
	Name   string        `json:"name" yaml:"name"`
	Params VehicleParams `json:"params" yaml:"params"`
}

// VehicleParams bound what the controller accepts from commands and how it
// judges bus health.
type VehicleParams struct {
	MaxSpeedMps        float64  `json:"max_speed_mps" yaml:"max_speed_mps"`
	MaxSteerAngleDeg   float64  `json:"max_steer_angle_deg" yaml:"max_steer_angle_deg"`
	MaxThrottlePercent float64  `json:"max_throttle_percent" yaml:"max_throttle_percent"`
	MaxBrakePercent    float64  `json:"max_brake_percent" yaml:"max_brake_percent"`
	// CommTimeout is how long the controller tolerates silence from the
	// vehicle's reports before declaring a communication fault.
	CommTimeout Duration `json:"comm_timeout" yaml:"comm_timeout"`
}

// TelemetryConfig defines the NATS connection and channel subjects.
type TelemetryConfig struct {
	Enabled        bool     `json:"enabled" yaml:"enabled"`
	URLs           []string `json:"urls,omitempty" yaml:"urls,omitempty"`
	Username       string   `json:"username,omitempty" yaml:"username,omitempty"`
	Password       string   `json:"password,omitempty" yaml:"password,omitempty"`
	Token          string   `json:"token,omitempty" yaml:"token,omitempty"`
	ConnectTimeout Duration `json:"connect_timeout,omitempty" yaml:"connect_timeout,omitempty"`
	ReconnectWait  Duration `json:"reconnect_wait,omitempty" yaml:"reconnect_wait,omitempty"`
	MaxReconnects  int      `json:"max_reconnects,omitempty" yaml:"max_reconnects,omitempty"`

	// Outbound channels.
	ChassisSubject      string `json:"chassis_subject" yaml:"chassis_subject"`
	DetailSubject       string `json:"detail_subject" yaml:"detail_subject"`
	DetailSenderSubject string `json:"detail_sender_subject" yaml:"detail_sender_subject"`

	// Inbound command subjects the daemon subscribes to.
	ControlCommandSubject string `json:"control_command_subject" yaml:"control_command_subject"`
	ChassisCommandSubject string `json:"chassis_command_subject" yaml:"chassis_command_subject"`
}

// MetricsConfig defines the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// FrameLogConfig controls the raw frame diagnostic log.
type FrameLogConfig struct {
	// EnableReceiverLog records every frame taken off the bus.
	EnableReceiverLog bool `json:"enable_receiver_log" yaml:"enable_receiver_log"`
	// EnableSenderLog records every frame put onto the bus.
	EnableSenderLog bool              `json:"enable_sender_log" yaml:"enable_sender_log"`
	Path            string            `json:"path,omitempty" yaml:"path,omitempty"`
	Rotation        framelog.Rotation `json:"rotation,omitempty" yaml:"rotation,omitempty"`
}

// Enabled reports whether any frame logging is requested.
func (f FrameLogConfig) Enabled() bool {
	return f.EnableReceiverLog || f.EnableSenderLog
}

// SchedulerConfig sets the daemon's periodic loop intervals.
type SchedulerConfig struct {
	ChassisPeriod    Duration `json:"chassis_period" yaml:"chassis_period"`
	DetailPeriod     Duration `json:"detail_period" yaml:"detail_period"`
	HeartbeatPeriod  Duration `json:"heartbeat_period" yaml:"heartbeat_period"`
	FaultCheckPeriod Duration `json:"fault_check_period" yaml:"fault_check_period"`
}

// Default returns the baseline configuration: virtual bus, shuttle vehicle,
// telemetry against a local NATS server.
func Default() *Config {
	return &Config{
		Version: "1.0.0",
		Node: NodeConfig{
			Org: "c360",
			ID:  "canlink-1",
		},
		Transport: transport.Config{
			Type:        transport.TypeSocketCAN,
			Channel:     "can0",
			BitrateKbps: 500,
		},
		Vehicle: VehicleConfig{
			Name: "shuttle",
			Params: VehicleParams{
				MaxSpeedMps:        8.0,
				MaxSteerAngleDeg:   28.0,
				MaxThrottlePercent: 100.0,
				MaxBrakePercent:    100.0,
				CommTimeout:        Duration(500 * time.Millisecond),
			},
		},
		Telemetry: TelemetryConfig{
			Enabled:               true,
			URLs:                  []string{"nats://localhost:4222"},
			ConnectTimeout:        Duration(5 * time.Second),
			ReconnectWait:         Duration(2 * time.Second),
			MaxReconnects:         -1,
			ChassisSubject:        "vehicle.chassis",
			DetailSubject:         "vehicle.chassis.detail",
			DetailSenderSubject:   "vehicle.chassis.detail.sender",
			ControlCommandSubject: "vehicle.command.control",
			ChassisCommandSubject: "vehicle.command.chassis",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9100",
		},
		FrameLog: FrameLogConfig{
			Path:     "canlink-frames.cbl",
			Rotation: framelog.DefaultRotation(),
		},
		Scheduler: SchedulerConfig{
			ChassisPeriod:    Duration(10 * time.Millisecond),
			DetailPeriod:     Duration(20 * time.Millisecond),
			HeartbeatPeriod:  Duration(100 * time.Millisecond),
			FaultCheckPeriod: Duration(200 * time.Millisecond),
		},
	}
}

// Validate checks the config is complete and internally consistent.
func (c *Config) Validate() error {
	if c.Node.Org == "" {
		return stderrors.New("node.org is required")
	}
	c.Node.Org = strings.ToLower(c.Node.Org)
	if !isValidSubjectPart(c.Node.Org) {
		return fmt.Errorf("node.org %q is not valid for NATS subjects", c.Node.Org)
	}
	if c.Node.ID == "" {
		return stderrors.New("node.id is required")
	}

	if err := c.Transport.Validate(); err != nil {
		return err
	}

	if c.Vehicle.Name == "" {
		return stderrors.New("vehicle.name is required")
	}
	if err := c.Vehicle.Params.Validate(); err != nil {
		return fmt.Errorf("vehicle.params: %w", err)
	}

	if c.Telemetry.Enabled {
		if len(c.Telemetry.URLs) == 0 {
			return stderrors.New("telemetry.urls is required when telemetry is enabled")
		}
		subjects := []struct {
			name  string
			value string
		}{
			{"telemetry.chassis_subject", c.Telemetry.ChassisSubject},
			{"telemetry.detail_subject", c.Telemetry.DetailSubject},
			{"telemetry.detail_sender_subject", c.Telemetry.DetailSenderSubject},
		}
		for _, s := range subjects {
			if s.value == "" {
				return fmt.Errorf("%s is required when telemetry is enabled", s.name)
			}
		}
		if c.Telemetry.DetailSubject == c.Telemetry.DetailSenderSubject {
			return stderrors.New("telemetry detail subjects must differ: received and to-send views are distinct channels")
		}
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return stderrors.New("metrics.addr is required when metrics are enabled")
	}

	if c.FrameLog.Enabled() && c.FrameLog.Path == "" {
		return stderrors.New("frame_log.path is required when frame logging is enabled")
	}

	periods := []struct {
		name  string
		value Duration
	}{
		{"scheduler.chassis_period", c.Scheduler.ChassisPeriod},
		{"scheduler.detail_period", c.Scheduler.DetailPeriod},
		{"scheduler.heartbeat_period", c.Scheduler.HeartbeatPeriod},
		{"scheduler.fault_check_period", c.Scheduler.FaultCheckPeriod},
	}
	for _, p := range periods {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive", p.name)
		}
	}

	return nil
}

// Validate checks vehicle parameter sanity.
func (p VehicleParams) Validate() error {
	if p.MaxSpeedMps <= 0 {
		return stderrors.New("max_speed_mps must be positive")
	}
	if p.MaxSteerAngleDeg <= 0 {
		return stderrors.New("max_steer_angle_deg must be positive")
	}
	if p.MaxThrottlePercent <= 0 || p.MaxThrottlePercent > 100 {
		return stderrors.New("max_throttle_percent must be in (0, 100]")
	}
	if p.MaxBrakePercent <= 0 || p.MaxBrakePercent > 100 {
		return stderrors.New("max_brake_percent must be in (0, 100]")
	}
	if p.CommTimeout <= 0 {
		return stderrors.New("comm_timeout must be positive")
	}
	return nil
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}
	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}
	return &clone
}

// String returns a JSON representation of the config.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// isValidSubjectPart checks a string is usable as one NATS subject token.
func isValidSubjectPart(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return false
		}
	}
	return true
}
