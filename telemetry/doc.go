// Package telemetry publishes vehicle state over NATS and carries inbound
// command subscriptions.
//
// The Client wraps a single NATS connection configured for unattended
// operation: infinite reconnects by default, credentials cleared on Close,
// connection state observable through Status and the metrics pipeline.
// Telemetry is fire-and-forget; while the connection is down, envelopes are
// dropped and nats.go reconnects on its own.
//
//	client, err := telemetry.NewClient(cfg.Telemetry.URLs,
//	    telemetry.WithName(cfg.Node.ID),
//	    telemetry.WithCredentials(cfg.Telemetry.Username, cfg.Telemetry.Password),
//	    telemetry.WithMetrics(registry.Pipeline()),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
//
// # Writers
//
// A Writer binds one subject and wraps every payload in an Envelope carrying
// a UUID, the publishing node, the view kind, and an RFC 3339 nanosecond
// timestamp:
//
//	chassis, err := telemetry.NewWriter(client,
//	    cfg.Telemetry.ChassisSubject, cfg.Node.ID, "chassis")
//	...
//	_ = chassis.Write(orch.Chassis())
//
// A nil *Writer is a disabled channel: Write returns nil without publishing,
// so callers need no enabled/disabled branching.
package telemetry
