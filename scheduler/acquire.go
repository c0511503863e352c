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
	"sync/atomic"

	"github.com/boclang/boc/behaviour"
	"github.com/boclang/boc/region"
)

// acquire runs the two-phase acquisition protocol for b: it appends a
// ticket to every region in b's set (a lock-free MPSC append per region,
// never blocking) and calls onReady exactly once, with every ticket, the
// moment all of them have reached the head of their respective queues.
//
// onReady may fire synchronously, from inside this call, if every region
// happened to be idle; or asynchronously, later, from some other
// behaviour's release. Either way it always sees every ticket already
// populated: the countdown starts biased one higher than the region count,
// and that bias is only released after the enqueue loop below has fully
// populated the tickets slice, so a region that happens to be idle on the
// very first call can never observe an incomplete slice.
func acquire(b *behaviour.Behaviour, onReady func(tickets []*region.Ticket)) {
	regions := b.Regions()
	n := int64(len(regions))
	pending := n + 1
	tickets := make([]*region.Ticket, len(regions))

	fire := func() {
		if atomic.AddInt64(&pending, -1) == 0 {
			onReady(tickets)
		}
	}
	for i, r := range regions {
		tickets[i] = r.Enqueue(fire)
	}
	fire() // release the bias now that every ticket is recorded
}

// release advances every region in b's set past its ticket, letting
// whichever behaviour is queued behind it (if any) become head.
func release(tickets []*region.Ticket) {
	for _, t := range tickets {
		t.Release()
	}
}
