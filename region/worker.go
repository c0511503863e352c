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
	"sync/atomic"

	"github.com/boclang/boc/util/errwrap"
)

// workerSeq hands out unique worker identities. It starts at zero, and the
// zero Worker.id is reserved to mean "no worker" (the value a freshly
// allocated, never-opened region's openOn field holds).
var workerSeq uint64

// Worker is an opaque token identifying whoever is calling into the region
// algebra: a pool worker running a behaviour's body, or a plain goroutine
// doing ad-hoc setup with a scoped Open/Close pair before anything is
// shared. Regions compare Worker identity (not just "is someone holding
// this open") so that a behaviour body which accidentally captures a region
// outside its declared set is rejected even if that region happens to be
// open to a different worker at that instant.
type Worker struct {
	id uint64
}

// NewWorker mints a fresh worker identity. Call this once per goroutine that
// will call into the region algebra outside of a running behaviour; the
// scheduler mints a fresh one internally for each behaviour it runs.
func NewWorker() *Worker {
	return &Worker{id: atomic.AddUint64(&workerSeq, 1)}
}

// ID returns the opaque numeric identity of this worker. It's exposed mainly
// for logging.
func (w *Worker) ID() uint64 {
	if w == nil {
		return 0
	}
	return w.id
}

// With opens every region in rs under w, runs fn, and closes them all again
// on every exit path, including a panic — the scoped-acquisition guard the
// design notes call for as the Go equivalent of `with region:`. Regions are
// closed in reverse-open order.
func With(w *Worker, rs []*Region, fn func() error) (reterr error) {
	opened := make([]*Region, 0, len(rs))
	defer func() {
		for i := len(opened) - 1; i >= 0; i-- {
			if err := opened[i].Close(w); err != nil {
				reterr = errwrap.Append(reterr, err)
			}
		}
		if r := recover(); r != nil {
			panic(r) // propagate after releasing, per the error handling design
		}
	}()

	for _, r := range rs {
		if err := r.Open(w); err != nil {
			return err
		}
		opened = append(opened, r)
	}
	return fn()
}
