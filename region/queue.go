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

package region

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// qnode is one pending position in a region's fifo. It is the MCS-lock-style
// queue node: enqueue never blocks, it only ever swaps the tail pointer, and
// a node only learns it has become the head either immediately (the queue
// was empty) or later, when its predecessor releases and chains to it.
type qnode struct {
	next   atomic.Pointer[qnode]
	once   sync.Once
	onHead func()
}

func (n *qnode) fire() {
	n.once.Do(n.onHead)
}

// fifo is the lock-free MPSC queue backing one region's acquisition order.
// Appending is a single atomic swap on tail (the "compare-and-swap on the
// tail" the acquisition protocol calls for); there is exactly one consumer
// at a time — whichever behaviour currently holds the region — so dequeuing
// never needs synchronization beyond reading the node it is about to vacate.
type fifo struct {
	tail atomic.Pointer[qnode]
}

// enqueue appends n to the queue. If the queue was empty, n becomes head
// immediately and onHead fires synchronously before enqueue returns;
// otherwise onHead fires later, from the predecessor's release.
func (f *fifo) enqueue(n *qnode) {
	prev := f.tail.Swap(n)
	if prev == nil {
		n.fire()
		return
	}
	prev.next.Store(n)
}

// release advances the queue past n, waking n's successor if one has
// already enqueued, or clearing tail if n was the last entry. A successor
// that is mid-enqueue (tail has already been swapped away from n but next
// hasn't been chained yet) is a narrow, bounded window; release spins for it
// rather than block, exactly as a real MCS lock does.
func (f *fifo) release(n *qnode) {
	if next := n.next.Load(); next != nil {
		next.fire()
		return
	}
	if f.tail.CompareAndSwap(n, nil) {
		return // queue is empty now, nobody was waiting behind us
	}
	for {
		if next := n.next.Load(); next != nil {
			next.fire()
			return
		}
		runtime.Gosched()
	}
}

// Ticket is a behaviour's pending or held position in one region's fifo.
type Ticket struct {
	region *Region
	node   *qnode
}

// Enqueue appends a new ticket to r's fifo. onHead is invoked exactly once —
// synchronously here if the queue was empty, or later from a predecessor's
// Release — when this ticket reaches the front of r's queue. It is only
// meaningful once r is shared; private regions use Open/Close instead.
func (r *Region) Enqueue(onHead func()) *Ticket {
	n := &qnode{onHead: onHead}
	t := &Ticket{region: r, node: n}
	r.fifo.enqueue(n)
	return t
}

// Release advances this ticket's region past it, letting the next queued
// ticket (if any) become head.
func (t *Ticket) Release() {
	t.region.fifo.release(t.node)
}
