// Package schedule decides which portals are due for ingestion at a given
// instant. Scheduling is level-triggered slot membership: for a cron
// expression and a wall-clock instant, the current slot is the half-open
// interval between the most recent fire time and the next one, and a portal
// is due for that slot on every evaluation whose instant falls inside it.
// The slot math itself is pure and holds no state; whether a slot was
// already serviced is tracked separately (see app/database).
//
// Precondition enforced by the caller, not checked here: the evaluation
// cadence must be no finer than the finest cron granularity in use (one
// minute), so that each slot is observed at least once.
package schedule

import (
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"github.com/breachwatch/breach-comb/app/portal"
)

// Slot is the half-open interval [Start, End) between two consecutive
// cron fire times. Exactly one slot contains any given instant.
type Slot struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the slot.
func (s Slot) Contains(t time.Time) bool {
	return !t.Before(s.Start) && t.Before(s.End)
}

// PrevFire returns the most recent scheduled fire time at or before now,
// in UTC.
func PrevFire(expr string, now time.Time) (time.Time, error) {
	t, err := gronx.PrevTickBefore(expr, now.UTC(), true)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to compute previous fire time: %w", err)
	}
	return t, nil
}

// NextFire returns the first scheduled fire time strictly after t, in UTC.
func NextFire(expr string, t time.Time) (time.Time, error) {
	next, err := gronx.NextTickAfter(expr, t.UTC(), false)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to compute next fire time: %w", err)
	}
	return next, nil
}

// SlotFor returns the slot containing now for the given cron expression.
func SlotFor(expr string, now time.Time) (Slot, error) {
	prev, err := PrevFire(expr, now)
	if err != nil {
		return Slot{}, err
	}
	next, err := NextFire(expr, prev)
	if err != nil {
		return Slot{}, err
	}
	return Slot{Start: prev, End: next}, nil
}

// DuePortal pairs a portal with the slot that makes it due.
type DuePortal struct {
	Portal portal.Portal
	Slot   Slot
}

// Due evaluates every portal's current slot at now. The result is a pure
// function of (now, portals): calling it twice with the same instant yields
// the same due-set with the same slot identities. Portals whose expression
// cannot be evaluated are skipped; expressions are validated at registry
// load, so a failure here indicates an expression with no reachable fire
// time and is reported by the caller's logs rather than aborting the pass.
func Due(now time.Time, portals []portal.Portal) ([]DuePortal, error) {
	var due []DuePortal
	var firstErr error
	for _, p := range portals {
		slot, err := SlotFor(p.Schedule, now)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("portal %s: %w", p.ID, err)
			}
			continue
		}
		due = append(due, DuePortal{Portal: p, Slot: slot})
	}
	return due, firstErr
}
