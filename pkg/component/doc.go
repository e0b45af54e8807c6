// Package component hosts the units of behaviour of a breadcrumbs process.
//
// A component kind is registered once in a Registry as a Factory. The
// Runtime instantiates one component per configured occurrence, hands each
// an Env (bus, scheduler, loggers, metrics), and drives the lifecycle:
//
//	Uninitialized -> Initialized -> Running -> Stopped
//
// Every component is initialized before any is started, so subscriptions
// made in Init are in place before the first message is published. Stop
// runs in reverse load order, and the Runtime cancels the timers a
// component still owns once its Stop returns.
package component
