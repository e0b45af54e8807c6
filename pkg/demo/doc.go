// Package demo provides small components that exercise the runtime from a
// configuration file.
//
// Available kinds:
//   - Producer: publishes an incrementing count on a timer
//   - MessageConsumer: logs the count of every message it receives
//   - NetworkTestApp: drives a bridge client or server end to end
//
// Register adds every kind to a component.Registry.
package demo
