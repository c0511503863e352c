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

// Package boc is the top-level facade over the region algebra, the
// behaviour scheduler, and the acquisition protocol that ties them
// together: the host-facing surface a language embedding or a Go caller
// uses directly.
package boc

import (
	"context"

	"github.com/boclang/boc/behaviour"
	"github.com/boclang/boc/region"
	"github.com/boclang/boc/scheduler"
)

// Logf is the logging hook the Runtime takes and passes on to its scheduler.
type Logf func(format string, v ...interface{})

// Runtime is the process-wide scheduler resource: call Run to start it,
// Behave/When to submit work, Wait to block until quiescent, and Shutdown
// to stop it. A Runtime may be Run again after Shutdown.
type Runtime struct {
	logf Logf
	size int

	engine *scheduler.Engine
}

// New builds a Runtime. size is the worker pool size; 0 means hardware
// parallelism. The runtime is not started until Run is called.
func New(size int, logf Logf) *Runtime {
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}
	return &Runtime{logf: logf, size: size}
}

// Run initializes the scheduler. It is idempotent: calling it again while
// already running is a no-op, and calling it again after Shutdown starts a
// fresh engine.
func (rt *Runtime) Run() {
	if rt.engine != nil {
		return
	}
	rt.engine = scheduler.New(rt.size, scheduler.Logf(rt.logf))
}

// Region allocates a fresh, private, unparented region. Equivalent to the
// host-facing Region(name?) constructor.
func (rt *Runtime) Region(name string) *region.Region {
	return region.New(name)
}

// Behave constructs a behaviour over the given regions and submits it;
// equivalent to the host-facing behave(body, *regions) / @when(*regions)
// forms. Run must have been called first.
func (rt *Runtime) Behave(body behaviour.Body, regions ...*region.Region) error {
	if rt.engine == nil {
		return errNotRunning
	}
	b, err := behaviour.New(body, regions...)
	if err != nil {
		return err
	}
	rt.engine.Submit(b)
	return nil
}

// When is an alias for Behave reading better at call sites that mirror the
// decorator form from the host-facing surface: `When(regions...)(body)`.
func (rt *Runtime) When(regions ...*region.Region) func(behaviour.Body) error {
	return func(body behaviour.Body) error {
		return rt.Behave(body, regions...)
	}
}

// Wait blocks until the runtime is quiescent: no behaviour pending, ready,
// or running.
func (rt *Runtime) Wait() {
	if rt.engine == nil {
		return
	}
	rt.engine.Wait()
}

// WaitContext is Wait, abandonable via ctx.
func (rt *Runtime) WaitContext(ctx context.Context) error {
	if rt.engine == nil {
		return nil
	}
	return rt.engine.WaitContext(ctx)
}

// Shutdown stops the scheduler. Calling Run afterwards starts a fresh one.
func (rt *Runtime) Shutdown() error {
	if rt.engine == nil {
		return nil
	}
	err := rt.engine.Close()
	rt.engine = nil
	return err
}

// errNotRunning is returned by Behave if called before Run.
var errNotRunning = &region.RegionIsolationError{Op: "behave", Reason: "runtime has not been started; call Run first"}
