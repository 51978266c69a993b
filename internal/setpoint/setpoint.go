package setpoint

import (
	"time"

	"github.com/tiiuae/communication_link/supervisor/internal/geodesy"
	"github.com/tiiuae/communication_link/supervisor/internal/watchdog"
)

// Position is a local-frame target in metres with yaw in radians.
type Position struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Z   float64 `json:"z"`
	Yaw float64 `json:"yaw"`
}

// Velocity is a local-frame velocity target. Z follows the flight controller
// convention; use VelocityFromInput for values from the command stream.
type Velocity struct {
	X       float64 `json:"vx"`
	Y       float64 `json:"vy"`
	Z       float64 `json:"vz"`
	YawRate float64 `json:"yaw_rate"`
}

// VelocityFromInput converts an inbound velocity command. The vertical axis of
// the command stream points the other way.
func VelocityFromInput(x, y, z, yawRate float64) Velocity {
	return Velocity{X: x, Y: y, Z: -z, YawRate: yawRate}
}

type Kind int

const (
	KindPosition Kind = iota
	KindVelocity
	KindGeo
)

func (k Kind) String() string {
	switch k {
	case KindPosition:
		return "position"
	case KindVelocity:
		return "velocity"
	case KindGeo:
		return "geo"
	}
	return "unknown"
}

// Source is one inbound setpoint stream. Once activated it stays active for
// the lifetime of the process; its watchdog tells whether the stream ended.
type Source[T any] struct {
	kind     Kind
	active   bool
	watchdog *watchdog.Watchdog
	value    T
}

func newSource[T any](kind Kind, timeout time.Duration, now watchdog.Clock) *Source[T] {
	return &Source[T]{kind: kind, watchdog: watchdog.New(timeout, now)}
}

// Activate marks the source active and restarts its watchdog.
func (s *Source[T]) Activate() {
	s.active = true
	s.watchdog.Touch()
}

func (s *Source[T]) Touch() {
	s.watchdog.Touch()
}

func (s *Source[T]) Active() bool {
	return s.active
}

// Stale is only meaningful for an active source; an inactive one is never stale.
func (s *Source[T]) Stale() bool {
	return s.active && s.watchdog.Stale()
}

// Update stores the latest value from the stream.
func (s *Source[T]) Update(v T) {
	s.value = v
	if !s.active {
		s.Activate()
		return
	}
	s.Touch()
}

func (s *Source[T]) Value() T {
	return s.value
}

func (s *Source[T]) Kind() Kind {
	return s.kind
}

// Arbiter tracks the three setpoint streams. It does not rank them: every
// active stream is forwarded while navigating.
type Arbiter struct {
	position *Source[Position]
	velocity *Source[Velocity]
	geo      *Source[geodesy.Point]
}

func NewArbiter(timeout time.Duration, now watchdog.Clock) *Arbiter {
	return &Arbiter{
		position: newSource[Position](KindPosition, timeout, now),
		velocity: newSource[Velocity](KindVelocity, timeout, now),
		geo:      newSource[geodesy.Point](KindGeo, timeout, now),
	}
}

func (a *Arbiter) UpdatePosition(p Position) { a.position.Update(p) }

func (a *Arbiter) UpdateVelocity(v Velocity) { a.velocity.Update(v) }

func (a *Arbiter) UpdateGeo(p geodesy.Point) { a.geo.Update(p) }

func (a *Arbiter) Position() *Source[Position] { return a.position }

func (a *Arbiter) Velocity() *Source[Velocity] { return a.velocity }

func (a *Arbiter) Geo() *Source[geodesy.Point] { return a.geo }

func (a *Arbiter) AnyActive() bool {
	return a.position.Active() || a.velocity.Active() || a.geo.Active()
}

// AnyStale reports whether any active stream has gone quiet.
func (a *Arbiter) AnyStale() bool {
	return a.position.Stale() || a.velocity.Stale() || a.geo.Stale()
}

// Active lists the kinds of all active streams.
func (a *Arbiter) Active() []Kind {
	kinds := make([]Kind, 0, 3)
	if a.position.Active() {
		kinds = append(kinds, KindPosition)
	}
	if a.velocity.Active() {
		kinds = append(kinds, KindVelocity)
	}
	if a.geo.Active() {
		kinds = append(kinds, KindGeo)
	}
	return kinds
}

func (a *Arbiter) Stale() []Kind {
	kinds := make([]Kind, 0, 3)
	if a.position.Stale() {
		kinds = append(kinds, KindPosition)
	}
	if a.velocity.Stale() {
		kinds = append(kinds, KindVelocity)
	}
	if a.geo.Stale() {
		kinds = append(kinds, KindGeo)
	}
	return kinds
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
