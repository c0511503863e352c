// Mgmt
// Copyright (C) 2013-2024+ James Shubin and the project contributors
// Written by James Shubin <james@shubin.ca> and the project contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package behaviour defines the unit of work the scheduler runs: an
// immutable body paired with the set of regions it needs exclusive access
// to for its entire execution.
package behaviour

import (
	"sort"
	"sync"

	"github.com/boclang/boc/region"
)

// State is a Behaviour's position in its lifecycle.
type State int

const (
	// Pending means the behaviour has been constructed but not yet
	// submitted to a scheduler.
	Pending State = iota
	// Waiting means it has been submitted and is enqueued on at least
	// one of its regions' fifos, but hasn't reached the head of all of
	// them yet.
	Waiting
	// Ready means it has reached the head of every region in its set
	// and is sitting in the scheduler's ready queue.
	Ready
	// Running means a worker is currently executing its body.
	Running
	// Done means its body has returned.
	Done
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Waiting:
		return "waiting"
	case Ready:
		return "ready"
	case Running:
		return "running"
	default:
		return "done"
	}
}

// Body is the closure a Behaviour runs once it holds exclusive access to
// every region in its set. w identifies the worker running it, so the body
// can call region.Assign/region.Get or region.With for any further scoped
// acquisition of private regions it also needs.
type Body func(w *region.Worker) error

// Behaviour is an immutable (body, region_set, state) triple: a unit of
// work the scheduler runs at most once, with exclusive access to every
// region it names for its entire execution.
type Behaviour struct {
	body    Body
	regions []*region.Region

	mu    sync.Mutex
	state State
}

// New constructs a behaviour from a body and the regions it needs. regions
// must be non-empty and every element must already be shared; the set is
// deduplicated and sorted by region identity (via region.Region.Key, which
// follows merge-aliasing) so that the acquisition protocol has a
// deterministic, system-wide total order to acquire against.
func New(body Body, regions ...*region.Region) (*Behaviour, error) {
	if len(regions) == 0 {
		return nil, &region.RegionIsolationError{Op: "behaviour", Reason: "a behaviour needs at least one region"}
	}
	for _, r := range regions {
		if !r.IsShared() {
			return nil, &region.RegionIsolationError{Op: "behaviour", Reason: "region " + r.Name() + " is not shared"}
		}
	}

	deduped := dedupeByKey(regions)
	sort.Slice(deduped, func(i, j int) bool {
		return deduped[i].Key().String() < deduped[j].Key().String()
	})

	return &Behaviour{
		body:    body,
		regions: deduped,
		state:   Pending,
	}, nil
}

// dedupeByKey collapses any regions that resolve to the same physical
// region (through merge-aliasing) to a single entry, keeping the first
// occurrence. Declaring the same physical region twice in one behaviour
// would otherwise have it wait on its own ticket in the acquisition
// protocol below.
func dedupeByKey(regions []*region.Region) []*region.Region {
	seen := make(map[string]bool, len(regions))
	out := make([]*region.Region, 0, len(regions))
	for _, r := range regions {
		k := r.Key().String()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

// Regions returns the behaviour's deduplicated, sorted region set.
func (b *Behaviour) Regions() []*region.Region {
	return b.regions
}

// Run invokes the body with the given worker identity. The scheduler calls
// this only once every region in Regions() is confirmed exclusively held by
// w.
func (b *Behaviour) Run(w *region.Worker) error {
	return b.body(w)
}

// State returns the behaviour's current lifecycle state.
func (b *Behaviour) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// SetState is called by the scheduler as the behaviour moves through
// Pending -> Waiting -> Ready -> Running -> Done. It is exported for the
// scheduler package to drive, but isn't meant for general use by hosts.
func SetState(b *Behaviour, s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}
