// Package telemetry normalizes vehicle sensor samples into immutable,
// channel-keyed frames and hands the newest frame to the render loop.
//
// Transport collaborators (serial, BLE, MQTT, a simulator) push
// pre-decoded samples into a [Bus]:
//
//	bus := telemetry.NewBus(telemetry.BusConfig{Cadence: 50 * time.Millisecond})
//	go bus.Run(ctx)
//	_ = bus.Ingest(telemetry.Sample{Channel: "rpm", Value: telemetry.Number(3200)})
//
// The bus seals the latest value of every channel into a [Frame] at each
// cadence tick and stores it in a single-slot buffer that always holds the
// newest frame. The render loop calls [Bus.Acquire], which never blocks: if
// no new frame was sealed since the previous call it gets the previous frame
// again, marked stale.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package telemetry
