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
	"context"
	"sync"

	"github.com/boclang/boc/util"
)

// quiescence distinguishes "temporarily idle" from "definitely done" by
// tracking four counters: behaviours in the middle of Submit (enqueuing),
// behaviours that have been fully enqueued but haven't reached the head of
// every region yet (waiting), behaviours sitting in the ready queue
// (ready), and behaviours a worker is currently executing (running). All
// four feed one condition, broadcast whenever their sum reaches zero.
type quiescence struct {
	mu   sync.Mutex
	cond *sync.Cond

	enqueuing, waiting, ready, running int
}

func newQuiescence() *quiescence {
	q := &quiescence{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// signal must be called with mu held.
func (q *quiescence) signal() {
	if q.enqueuing+q.waiting+q.ready+q.running == 0 {
		q.cond.Broadcast()
	}
}

func (q *quiescence) beginEnqueue() {
	q.mu.Lock()
	q.enqueuing++
	q.mu.Unlock()
}

func (q *quiescence) endEnqueue() {
	q.mu.Lock()
	q.enqueuing--
	q.waiting++
	q.mu.Unlock()
}

func (q *quiescence) toReady() {
	q.mu.Lock()
	q.waiting--
	q.ready++
	q.mu.Unlock()
}

func (q *quiescence) toRunning() {
	q.mu.Lock()
	q.ready--
	q.running++
	q.mu.Unlock()
}

func (q *quiescence) toDone() {
	q.mu.Lock()
	q.running--
	q.signal()
	q.mu.Unlock()
}

// wait blocks until every counter has reached zero: nothing left enqueuing,
// waiting, ready, or running.
func (q *quiescence) wait() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.enqueuing+q.waiting+q.ready+q.running != 0 {
		q.cond.Wait()
	}
}

// waitContext is wait, but abandonable. sync.Cond itself can't be woken by
// a context, so this parks the blocking wait on its own goroutine and joins
// it to ctx via util.ContextWithCloser; an abandoned wait's goroutine is
// harmless, it exits on its own once the runtime quiesces for real.
func (q *quiescence) waitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.wait()
		close(done)
	}()

	joined, cancel := util.ContextWithCloser(ctx, done)
	defer cancel()
	<-joined.Done()

	select {
	case <-done:
		return nil
	default:
		return ctx.Err()
	}
}
