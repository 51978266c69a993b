package preflight

import (
	"github.com/rs/zerolog/log"

	"github.com/tiiuae/communication_link/supervisor/internal/gateway"
	"github.com/tiiuae/communication_link/supervisor/internal/types"
)

const (
	ParamTakeoffAltitude       = "MIS_TAKEOFF_ALT"
	ParamRCLossExceptions      = "COM_RCL_EXCEPT"
	ParamOffboardLossAction    = "COM_OBL_ACT"
	ParamMaxHorizontalVelocity = "MPC_XY_VEL_MAX"
)

const (
	// RC loss is ignored while in offboard mode.
	rcLossExceptOffboard = 4
	// Hold position when the offboard stream is lost.
	offboardLossHold = 1
)

type ParamSetter interface {
	SetParam(p gateway.Param) string
}

// Tracker counts the preflight parameter changes that were requested and
// acknowledged. Readiness also needs a valid GPS fix.
type Tracker struct {
	takeoffHeight float64
	xyMaxVelocity float64

	pending      map[string]gateway.Param
	requested    int
	acknowledged int
	failed       int
	fix          types.FixStatus
}

func NewTracker(takeoffHeight float64, xyMaxVelocity float64) *Tracker {
	return &Tracker{
		takeoffHeight: takeoffHeight,
		xyMaxVelocity: xyMaxVelocity,
		pending:       make(map[string]gateway.Param),
		fix:           types.FixStatusNoFix,
	}
}

// Params returns the preflight parameter changes in the order they are sent.
func (t *Tracker) Params() []gateway.Param {
	return []gateway.Param{
		gateway.RealParam(ParamTakeoffAltitude, t.takeoffHeight),
		gateway.IntegerParam(ParamRCLossExceptions, rcLossExceptOffboard),
		gateway.IntegerParam(ParamOffboardLossAction, offboardLossHold),
		gateway.RealParam(ParamMaxHorizontalVelocity, t.xyMaxVelocity),
	}
}

// Start dispatches every preflight parameter change.
func (t *Tracker) Start(setter ParamSetter) {
	for _, p := range t.Params() {
		id := setter.SetParam(p)
		t.pending[id] = p
		t.requested++
		log.Info().Msgf("Preflight: requested %s", p)
	}
}

// Ack applies the result of a parameter change. It returns false for results
// that do not belong to an outstanding request, so a duplicate delivery is
// counted only once.
func (t *Tracker) Ack(result gateway.CommandResult) bool {
	p, ok := t.pending[result.ID]
	if !ok {
		return false
	}
	delete(t.pending, result.ID)

	if !result.OK() {
		t.failed++
		log.Error().Err(result.Err).Msgf("Preflight: setting %s failed", p.Name)
		return true
	}

	t.acknowledged++
	log.Info().Msgf("Preflight: %s acknowledged (%d/%d)", p.Name, t.acknowledged, t.requested)
	return true
}

func (t *Tracker) UpdateFix(fix types.FixStatus) {
	t.fix = fix
}

// Ready is true once every requested change was acknowledged and the last
// reported fix is valid.
func (t *Tracker) Ready() bool {
	return t.requested > 0 && t.acknowledged == t.requested && t.fix.Valid()
}

func (t *Tracker) Requested() int { return t.requested }

func (t *Tracker) Acknowledged() int { return t.acknowledged }

func (t *Tracker) Failed() int { return t.failed }
