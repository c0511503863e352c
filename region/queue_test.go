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

import "testing"

func TestFifoFiresImmediatelyWhenEmpty(t *testing.T) {
	r := New("r")
	fired := false
	t1 := r.Enqueue(func() { fired = true })
	if !fired {
		t.Fatal("expected the first ticket on an empty fifo to fire immediately")
	}
	t1.Release()
}

func TestFifoOrdersBehindHolder(t *testing.T) {
	r := New("r")

	firstFired := false
	t1 := r.Enqueue(func() { firstFired = true })
	if !firstFired {
		t.Fatal("expected t1 to fire immediately")
	}

	secondFired := false
	t2 := r.Enqueue(func() { secondFired = true })
	if secondFired {
		t.Fatal("expected t2 to wait behind t1")
	}

	t1.Release()
	if !secondFired {
		t.Fatal("expected t2 to fire once t1 released")
	}
	t2.Release()
}

func TestFifoPreservesOrderAcrossMultipleWaiters(t *testing.T) {
	r := New("r")

	var order []int
	tickets := make([]*Ticket, 0, 3)
	for i := 0; i < 3; i++ {
		i := i
		tickets = append(tickets, r.Enqueue(func() { order = append(order, i) }))
	}
	if len(order) != 1 || order[0] != 0 {
		t.Fatalf("expected only ticket 0 to have fired, got %v", order)
	}

	tickets[0].Release()
	if len(order) != 2 || order[1] != 1 {
		t.Fatalf("expected ticket 1 to fire next, got %v", order)
	}

	tickets[1].Release()
	if len(order) != 3 || order[2] != 2 {
		t.Fatalf("expected ticket 2 to fire last, got %v", order)
	}
	tickets[2].Release()
}
