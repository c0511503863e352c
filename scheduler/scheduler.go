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

// Package scheduler is the behaviour scheduler: a fixed-size worker pool
// draining a global ready queue, fed by the multi-region acquisition
// protocol in acquire.go, with a quiescence tracker so callers can tell
// "temporarily idle" from "definitely done".
package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/boclang/boc/behaviour"
	"github.com/boclang/boc/region"
	"github.com/boclang/boc/util"
	"github.com/boclang/boc/util/errwrap"
	"github.com/boclang/boc/util/semaphore"
)

// Logf is the Engine's logging hook, a closure passed in by the caller
// rather than a package-level logger singleton.
type Logf func(format string, v ...interface{})

// readyEntry pairs a ready behaviour with the tickets its acquisition
// earned it, so the worker that eventually runs it can release them again.
type readyEntry struct {
	b       *behaviour.Behaviour
	tickets []*region.Ticket
}

// Engine is the scheduler: submit behaviours to it, and it runs each one's
// body, with every region in its set held exclusively, on one of a fixed
// number of concurrently-running workers.
type Engine struct {
	logf Logf

	sem   *semaphore.Semaphore // bounds concurrently-running bodies to the pool size
	ready chan readyEntry
	q     *quiescence

	control   chan *Msg
	exit      *util.EasyExit
	closeOnce sync.Once

	wg sync.WaitGroup // outstanding dispatcher + worker goroutines
}

// New builds an Engine with a fixed worker pool. size <= 0 means use
// runtime.GOMAXPROCS(0), the hardware parallelism default the design calls
// for. The pool starts running immediately; call Submit to feed it.
func New(size int, logf Logf) *Engine {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}
	e := &Engine{
		logf:    logf,
		sem:     semaphore.NewSemaphore(size),
		ready:   make(chan readyEntry, size*4),
		q:       newQuiescence(),
		control: make(chan *Msg),
		exit:    util.NewEasyExit(),
	}
	e.wg.Add(1)
	go e.dispatch()
	return e
}

// Submit enqueues b's body to run once every region in its set is
// exclusively available. It does not block on region availability: it
// returns as soon as b's ticket has been appended to every one of its
// regions' queues, which the lock-free acquisition protocol guarantees
// never blocks.
func (e *Engine) Submit(b *behaviour.Behaviour) {
	e.q.beginEnqueue()
	behaviour.SetState(b, behaviour.Waiting)
	e.q.endEnqueue()

	acquire(b, func(tickets []*region.Ticket) {
		behaviour.SetState(b, behaviour.Ready)
		e.q.toReady()
		e.ready <- readyEntry{b: b, tickets: tickets}
	})
}

// dispatch is the scheduler's single admission-control goroutine: for each
// behaviour that becomes ready, it waits for a free pool slot (the counting
// semaphore is the fixed-size pool itself) and then hands the behaviour off
// to its own goroutine to run.
func (e *Engine) dispatch() {
	defer e.wg.Done()
	for {
		select {
		case entry := <-e.ready:
			if err := e.sem.P(1); err != nil {
				e.logf("dispatch: pool closed, dropping a ready behaviour")
				return
			}
			e.wg.Add(1)
			go e.run(entry)

		case msg := <-e.control:
			switch msg.Kind {
			case KindClose:
				msg.ACK()
				return
			}
		}
	}
}

// run executes one behaviour's body with every region in its set held
// exclusively by a freshly-minted worker identity, then releases them all
// regardless of whether the body returned an error or panicked.
func (e *Engine) run(entry readyEntry) {
	defer e.wg.Done()
	defer e.sem.V(1)

	w := region.NewWorker()
	behaviour.SetState(entry.b, behaviour.Running)
	e.q.toRunning()

	for _, r := range entry.b.Regions() {
		r.OpenExclusive(w)
	}

	err := func() (reterr error) {
		defer func() {
			if p := recover(); p != nil {
				reterr = errwrap.Append(reterr, fmt.Errorf("behaviour panicked: %v", p))
			}
		}()
		return entry.b.Run(w)
	}()

	for _, r := range entry.b.Regions() {
		r.CloseExclusive()
	}
	release(entry.tickets)

	behaviour.SetState(entry.b, behaviour.Done)
	e.q.toDone()

	if err != nil {
		e.logf("behaviour failed: %s", errwrap.String(err))
	}
}

// Wait blocks until the engine is quiescent: nothing enqueuing, waiting,
// ready, or running.
func (e *Engine) Wait() {
	e.q.wait()
}

// WaitContext is Wait, abandonable via ctx.
func (e *Engine) WaitContext(ctx context.Context) error {
	return e.q.waitContext(ctx)
}

// Done returns a channel that closes once Close has fully torn the engine
// down, for callers that want to observe shutdown without being the ones
// who called Close.
func (e *Engine) Done() <-chan struct{} {
	return e.exit.Signal()
}

// Close stops the dispatcher and waits for every already-running body to
// finish. Any behaviour still sitting in the ready buffer, not yet picked
// up by a worker, is abandoned; call Wait before Close if that matters.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		msg := NewMsg(KindClose)
		e.control <- msg
		msg.Wait()
		e.sem.Close()
		e.wg.Wait()
		e.exit.Done(nil)
	})
	return e.exit.Error()
}
