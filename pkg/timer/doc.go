// Package timer provides the shared scheduler that runs one-shot and
// periodic callbacks for components.
//
// One Scheduler serves the whole process. Every timer is created on behalf
// of an owner (the component instance name) so the runtime can cancel all
// of a component's timers when it stops.
//
// Periodic timers re-arm only after their callback returns. A callback
// that runs longer than its period delays the next firing; ticks are never
// queued or run concurrently for the same handle.
package timer
