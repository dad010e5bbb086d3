package WENOHybrid

import (
	"fmt"
	"math"

	"github.com/notargets/wenohybrid/field"
	"github.com/notargets/wenohybrid/types"
	"github.com/notargets/wenohybrid/weno"
)

type messageKey struct {
	key    types.FaceKey
	sender int
}

// swapCoupledData posts the limited one sided value of every coupled face to the rank holding the other side, then
// waits at the exchange gate for the messages of the other sides.
func (s *Scheme[T]) swapCoupledData(rec *weno.Reconstruction[T], vf *field.VolField[T], sigma []float64,
	ev *evaluation[T]) (remote map[messageKey]FaceMessage[T], err error) {
	var (
		m    = s.m
		alg  = s.alg
		msgs []FaceMessage[T]
	)
	for i, f := range s.ws.coupled {
		var (
			cf     = s.ws.remote[i]
			P      = m.Faces[f].Owner
			W, L   T
			active bool
		)
		if W, err = s.oneSided(rec, vf, P, f); err != nil {
			return
		}
		if cf.LocalIsLeft {
			L = types.Lerp(alg, cf.Weight, vf.Values[P], vf.Values[cf.RemoteCell])
		} else {
			L = types.Lerp(alg, cf.Weight, vf.Values[cf.RemoteCell], vf.Values[P])
		}
		if W, active = s.calcLimiter(P, W, L); active {
			ev.limited++
		}
		s.ws.local[i] = FaceMessage[T]{
			Key:       cf.Key,
			Sender:    m.Cells[P].Global,
			CellValue: vf.Values[P],
			Value:     W,
			Sensor:    sigma[P],
			Epoch:     s.epoch,
		}
		s.exchanger.Post(cf.RemoteRank, s.ws.local[i])
	}
	if msgs, err = s.exchanger.Collect(s.epoch, len(s.ws.coupled)); err != nil {
		return
	}
	remote = make(map[messageKey]FaceMessage[T], len(msgs))
	for _, msg := range msgs {
		remote[messageKey{msg.Key, msg.Sender}] = msg
	}
	return
}

// coupledRiemannSolver resolves every coupled face in the orientation of its lower numbered cell, so both sides and
// the same face on an unsplit mesh compute the same value.
func (s *Scheme[T]) coupledRiemannSolver(remote map[messageKey]FaceMessage[T], ev *evaluation[T]) (err error) {
	for i, f := range s.ws.coupled {
		var (
			cf          = s.ws.remote[i]
			local       = s.ws.local[i]
			left, right FaceMessage[T]
			F           = s.flux.Values[f]
		)
		msg, ok := remote[messageKey{cf.Key, cf.RemoteGlobal}]
		if !ok {
			p, _ := s.m.PatchOf(f)
			err = fmt.Errorf("rank %d patch %s face %d, no data from cell %d on rank %d: %w",
				s.m.Rank, p.Name, f, cf.RemoteGlobal, cf.RemoteRank, ErrMissingCounterpart)
			return
		}
		if cf.LocalIsLeft {
			left, right = local, msg
		} else {
			left, right = msg, local
			F = -F
		}
		L := types.Lerp(s.alg, cf.Weight, left.CellValue, right.CellValue)
		s.resolve(ev, f, L, left.Value, right.Value, F, math.Max(left.Sensor, right.Sensor))
	}
	return
}
