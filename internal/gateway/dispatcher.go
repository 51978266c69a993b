package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tiiuae/communication_link/supervisor/internal/setpoint"
	"github.com/tiiuae/communication_link/supervisor/internal/types"
)

type Options struct {
	Attempts       uint
	Delay          time.Duration
	MaxDelay       time.Duration
	AttemptTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		Attempts:       5,
		Delay:          time.Second,
		MaxDelay:       8 * time.Second,
		AttemptTimeout: 5 * time.Second,
	}
}

// Dispatcher implements Gateway on top of a Transport. Each command runs on its
// own goroutine and is retried with backoff while the bridge is unavailable.
type Dispatcher struct {
	ctx       context.Context
	transport Transport
	report    func(CommandResult)
	opts      Options
	wg        sync.WaitGroup
}

func NewDispatcher(ctx context.Context, transport Transport, report func(CommandResult), opts Options) *Dispatcher {
	return &Dispatcher{ctx: ctx, transport: transport, report: report, opts: opts}
}

func (d *Dispatcher) SetMode(mode types.FlightMode) string {
	return d.dispatch(CommandResult{Kind: CommandSetMode, Mode: mode}, func(ctx context.Context) error {
		return d.transport.SetMode(ctx, mode)
	})
}

func (d *Dispatcher) Arm(arm bool) string {
	return d.dispatch(CommandResult{Kind: CommandArm, Arm: arm}, func(ctx context.Context) error {
		return d.transport.Arm(ctx, arm)
	})
}

func (d *Dispatcher) SetParam(p Param) string {
	return d.dispatch(CommandResult{Kind: CommandParamSet, Param: p.Name}, func(ctx context.Context) error {
		return d.transport.SetParam(ctx, p)
	})
}

func (d *Dispatcher) PullParams(force bool) string {
	return d.dispatch(CommandResult{Kind: CommandParamPull}, func(ctx context.Context) error {
		return d.transport.PullParams(ctx, force)
	})
}

func (d *Dispatcher) PublishPosition(p setpoint.Position) {
	if err := d.transport.PublishPosition(p); err != nil {
		log.Warn().Err(err).Msg("Failed to publish position setpoint")
	}
}

func (d *Dispatcher) PublishVelocity(v setpoint.Velocity) {
	if err := d.transport.PublishVelocity(v); err != nil {
		log.Warn().Err(err).Msg("Failed to publish velocity setpoint")
	}
}

func (d *Dispatcher) PublishGeo(g GeoCommand) {
	if err := d.transport.PublishGeo(g); err != nil {
		log.Warn().Err(err).Msg("Failed to publish geo setpoint")
	}
}

// Wait blocks until every dispatched command has reported.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) dispatch(result CommandResult, call func(ctx context.Context) error) string {
	id := uuid.New().String()
	result.ID = id

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		err := retry.Do(
			func() error {
				result.Attempts++
				ctx, cancel := context.WithTimeout(d.ctx, d.opts.AttemptTimeout)
				defer cancel()
				return call(ctx)
			},
			retry.Context(d.ctx),
			retry.Attempts(d.opts.Attempts),
			retry.Delay(d.opts.Delay),
			retry.MaxDelay(d.opts.MaxDelay),
			retry.DelayType(retry.BackOffDelay),
			retry.LastErrorOnly(true),
			retry.RetryIf(func(err error) bool {
				return errors.Is(err, ErrUnavailable)
			}),
			retry.OnRetry(func(attempt uint, err error) {
				log.Warn().Err(err).Msgf("%s %s: attempt %d failed", result.Kind, result.ID, attempt+1)
			}),
		)
		if err != nil {
			result.Err = errors.WithMessagef(err, "%s failed after %d attempt(s)", result.Kind, result.Attempts)
		}

		d.report(result)
	}()

	return id
}
