package orchestrator

import (
	"time"

	"github.com/c360/canlink/errors"
	"github.com/c360/canlink/protocol"
	"github.com/c360/canlink/telemetry"
	"github.com/c360/canlink/vehicle"
)

// UpdateControlCommand applies a low-level control command: controller
// first, then one sender refresh. A rejected command is logged, counted and
// dropped; the pending to-send state keeps the last accepted command and the
// sender is not touched.
func (o *Orchestrator) UpdateControlCommand(cmd *vehicle.ControlCommand) {
	o.applyCommand("control", func() error { return o.ctrl.Update(cmd) })
}

// UpdateChassisCommand applies a high-level external chassis command with
// the same two-step protocol as UpdateControlCommand.
func (o *Orchestrator) UpdateChassisCommand(cmd *vehicle.ChassisCommand) {
	o.applyCommand("chassis", func() error { return o.ctrl.UpdateChassisCommand(cmd) })
}

// applyCommand runs the shared two-step update: controller verdict, then
// exactly one sender refresh on acceptance. Last write wins; there is no
// queue.
func (o *Orchestrator) applyCommand(kind string, apply func() error) {
	if o.State() != StateStarted {
		o.logger.Warn("command dropped", "kind", kind, "error", errors.ErrNotStarted)
		o.metrics.RecordCommandUpdate(kind, "dropped")
		return
	}

	start := time.Now()
	if err := apply(); err != nil {
		o.logger.Warn("command rejected", "kind", kind, "error", err)
		o.metrics.RecordCommandUpdate(kind, "rejected")
		return
	}
	if err := o.snd.Update(); err != nil {
		o.logger.Warn("send refresh failed", "kind", kind, "error", err)
		o.metrics.RecordCommandUpdate(kind, "send_failed")
		return
	}

	o.metrics.RecordCommandUpdate(kind, "accepted")
	o.metrics.ObserveUpdateDuration(kind, time.Since(start))
	o.logger.Debug("command applied", "kind", kind)
}

// PublishChassis reads the controller's derived chassis snapshot. Pure
// except for a debug log entry.
func (o *Orchestrator) PublishChassis() vehicle.Chassis {
	if o.ctrl == nil {
		return vehicle.Chassis{Mode: vehicle.ModeUnknown}
	}
	c := o.ctrl.Chassis()
	o.logger.Debug("chassis snapshot",
		"mode", c.Mode,
		"speed_mps", c.SpeedMps,
		"comm_fault", c.CommFault)
	return c
}

// PublishChassisDetail writes the received protocol view to its telemetry
// channel.
func (o *Orchestrator) PublishChassisDetail() {
	if o.ctrl == nil {
		return
	}
	o.publishDetail(o.detailWriter, "received", o.ctrl.ReceivedDetail)
}

// PublishChassisDetailSender writes the pending to-send protocol view to its
// own telemetry channel. The received and to-send views are distinct
// diagnostic signals and never share a channel.
func (o *Orchestrator) PublishChassisDetailSender() {
	if o.ctrl == nil {
		return
	}
	o.publishDetail(o.detailSenderWriter, "to-send", o.ctrl.SentDetail)
}

func (o *Orchestrator) publishDetail(w telemetry.ChannelWriter, view string, read func() protocol.Detail) {
	if w == nil {
		return
	}
	d := read()
	if d == nil {
		return
	}
	if err := w.Write(d); err != nil {
		o.logger.Warn("telemetry publish failed",
			"view", view, "subject", w.Subject(), "error", err)
	}
}

// UpdateHeartbeat refreshes the sender's heartbeat slots independent of any
// command, keeping the vehicle's liveness watchdog fed between commands.
func (o *Orchestrator) UpdateHeartbeat() {
	if o.snd == nil {
		return
	}
	if err := o.snd.UpdateHeartbeat(); err != nil {
		o.logger.Warn("heartbeat refresh failed", "error", err)
		return
	}
	o.metrics.RecordHeartbeatRefresh()
}

// CheckChassisCommunicationFault relays the controller's communication-fault
// verdict. Fault policy lives entirely in the controller.
func (o *Orchestrator) CheckChassisCommunicationFault() bool {
	if o.ctrl == nil {
		return false
	}
	faulted := o.ctrl.CommunicationFault()
	o.metrics.RecordCommFault(faulted)
	if faulted {
		o.logger.Debug("vehicle communication fault reported")
	}
	return faulted
}

// AddSendProtocol registers the controller's outbound frame set with the
// sender, arming periodic transmission.
func (o *Orchestrator) AddSendProtocol() error {
	if o.ctrl == nil {
		return errors.WrapUpdate(errors.ErrNotInitialized, "orchestrator", "AddSendProtocol", "check lifecycle state")
	}
	if err := o.ctrl.AddSendMessages(); err != nil {
		return errors.WrapUpdate(err, "orchestrator", "AddSendProtocol", "register outbound frame set")
	}
	o.logger.Info("send protocol registered")
	return nil
}

// ClearSendProtocol removes every active outbound registration. The sender's
// transmit loop keeps running but has nothing to send, which drains the bus
// ahead of a shutdown or mode transition.
func (o *Orchestrator) ClearSendProtocol() {
	if o.snd == nil {
		return
	}
	o.snd.ClearMessages()
	o.logger.Info("send protocol cleared")
}

// IsSendProtocolClear reports whether no outbound registrations remain.
func (o *Orchestrator) IsSendProtocolClear() bool {
	if o.snd == nil {
		return true
	}
	return o.snd.IsMessageClear()
}
