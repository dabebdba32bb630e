// Package device drives the table displays: one Controller per physical
// unit, a Registry of the controllers owned by the running process, and
// the startup batch that builds them.
//
// # Architecture
//
//	┌───────────────────────────────────────────────────────────────────┐
//	│                            Controller                              │
//	│                                                                    │
//	│  input ──▶ lock ──▶ screen.Next ──▶ cancel timer ──▶ balance       │
//	│                                                        │           │
//	│            re-arm idle timer ◀── push (async) ◀── render           │
//	│                                                                    │
//	└───────────────────────────────────────────────────────────────────┘
//	      ▲                ▲                         │
//	      │                │                         ▼
//	  webhook          idle timer               Observer (MQTT, WebSocket,
//	  dispatcher       (clock.AfterFunc)        InfluxDB, Prometheus)
//
// Every transition for one device runs under that device's mutex, so a
// button press and an idle timer firing for the same display never
// interleave. Different devices proceed in parallel.
//
// # Timers
//
// Each controller owns at most one idle timer. Every transition cancels
// the armed timer before anything else and arms a new one only when the
// new screen has an idle edge with a positive delay and the device is
// active. Timer callbacks carry a generation number, so a callback that
// was already running when its timer was cancelled sees a stale
// generation and returns without effect.
//
// # Thread Safety
//
// All exported methods of Controller and Registry are safe for
// concurrent use.
package device
