// Package ingest provides telemetry.Source implementations: an MQTT
// subscriber for real vehicle gateways and a simulator for development
// and headless rendering.
package ingest
