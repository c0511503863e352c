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

package scheduler

import (
	"testing"

	"github.com/boclang/boc/behaviour"
	"github.com/boclang/boc/region"
)

func noop(w *region.Worker) error { return nil }

func sharedRegion(t *testing.T, name string) *region.Region {
	t.Helper()
	r := region.New(name)
	if _, err := r.MakeShareable(); err != nil {
		t.Fatalf("make shareable: %v", err)
	}
	return r
}

func TestAcquireFiresSynchronouslyWhenIdle(t *testing.T) {
	r := sharedRegion(t, "r")
	b, err := behaviour.New(noop, r)
	if err != nil {
		t.Fatalf("new behaviour: %v", err)
	}

	fired := false
	var gotTickets []*region.Ticket
	acquire(b, func(tickets []*region.Ticket) {
		fired = true
		gotTickets = tickets
	})
	if !fired {
		t.Fatal("expected onReady to fire synchronously for an idle region")
	}
	if len(gotTickets) != 1 {
		t.Fatalf("expected 1 ticket, got %d", len(gotTickets))
	}
}

func TestAcquireOrdersBehindAnExistingTicket(t *testing.T) {
	r := sharedRegion(t, "r")
	a, err := behaviour.New(noop, r)
	if err != nil {
		t.Fatalf("new a: %v", err)
	}
	b, err := behaviour.New(noop, r)
	if err != nil {
		t.Fatalf("new b: %v", err)
	}

	var aTickets, bTickets []*region.Ticket
	acquire(a, func(tickets []*region.Ticket) { aTickets = tickets })
	if aTickets == nil {
		t.Fatal("expected a to acquire immediately, region was idle")
	}

	bReady := false
	acquire(b, func(tickets []*region.Ticket) {
		bReady = true
		bTickets = tickets
	})
	if bReady {
		t.Fatal("expected b to wait behind a's still-held ticket")
	}

	release(aTickets)
	if !bReady || len(bTickets) != 1 {
		t.Fatal("expected b to become ready once a released")
	}
}

func TestAcquireMultiRegionWaitsOnEachQueue(t *testing.T) {
	r1 := sharedRegion(t, "r1")
	r2 := sharedRegion(t, "r2")

	holder, err := behaviour.New(noop, r1)
	if err != nil {
		t.Fatalf("new holder: %v", err)
	}
	var holderTickets []*region.Ticket
	acquire(holder, func(tickets []*region.Ticket) { holderTickets = tickets })
	if holderTickets == nil {
		t.Fatal("expected holder to acquire r1 immediately")
	}

	both, err := behaviour.New(noop, r1, r2)
	if err != nil {
		t.Fatalf("new both: %v", err)
	}
	ready := false
	acquire(both, func(tickets []*region.Ticket) { ready = true })
	if ready {
		t.Fatal("expected a behaviour needing r1+r2 to wait while r1 is held")
	}

	release(holderTickets)
	if !ready {
		t.Fatal("expected the waiting behaviour to become ready once r1 was released")
	}
}
