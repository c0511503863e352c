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

package main

import (
	"fmt"
	"log"
	"runtime"
	"time"

	"github.com/boclang/boc"
	"github.com/boclang/boc/region"
)

// run wires a Runtime up to stdlib logging and executes the demo named by
// args.Demo.
func run(args Args) error {
	logf := func(format string, v ...interface{}) {
		if args.Verbose {
			log.Printf(format, v...)
		}
	}

	rt := boc.New(args.Workers, logf)
	rt.Run()
	defer rt.Shutdown()

	switch args.Demo {
	case "swap":
		return demoSwap(rt)
	case "parallelism":
		return demoParallelism(rt)
	case "isolation":
		return demoIsolation(rt)
	default:
		return fmt.Errorf("unknown demo %q", args.Demo)
	}
}

// demoSwap is the "Swap" end-to-end scenario: two shared regions holding a
// balance each, a behaviour that swaps them, and a follow-up behaviour that
// checks the result.
func demoSwap(rt *boc.Runtime) error {
	a := rt.Region("A")
	b := rt.Region("B")

	w := region.NewWorker()
	if err := region.With(w, []*region.Region{a, b}, func() error {
		if err := region.Assign(w, a, "balance", int64(100)); err != nil {
			return err
		}
		return region.Assign(w, b, "balance", int64(0))
	}); err != nil {
		return err
	}

	if _, err := a.MakeShareable(); err != nil {
		return err
	}
	if _, err := b.MakeShareable(); err != nil {
		return err
	}

	if err := rt.Behave(func(w *region.Worker) error {
		av, err := region.Get(w, a, "balance")
		if err != nil {
			return err
		}
		bv, err := region.Get(w, b, "balance")
		if err != nil {
			return err
		}
		if err := region.Assign(w, a, "balance", bv); err != nil {
			return err
		}
		return region.Assign(w, b, "balance", av)
	}, a, b); err != nil {
		return err
	}

	if err := rt.Behave(func(w *region.Worker) error {
		av, err := region.Get(w, a, "balance")
		if err != nil {
			return err
		}
		bv, err := region.Get(w, b, "balance")
		if err != nil {
			return err
		}
		if av != int64(0) || bv != int64(100) {
			return fmt.Errorf("swap demo: unexpected balances a=%v b=%v", av, bv)
		}
		log.Printf("swap demo: ok, a=%v b=%v", av, bv)
		return nil
	}, a, b); err != nil {
		return err
	}

	rt.Wait()
	return nil
}

// demoParallelism runs one behaviour per hardware thread, each spinning for
// a short, fixed duration, and reports how much wall-clock overlap there
// was between them.
func demoParallelism(rt *boc.Runtime) error {
	n := runtime.GOMAXPROCS(0)
	regions := make([]*region.Region, n)
	for i := range regions {
		regions[i] = rt.Region(fmt.Sprintf("worker-%d", i))
		if _, err := regions[i].MakeShareable(); err != nil {
			return err
		}
	}

	type span struct{ start, end time.Time }
	spans := make([]span, n)

	for i := 0; i < n; i++ {
		i := i
		r := regions[i]
		if err := rt.Behave(func(w *region.Worker) error {
			spans[i].start = time.Now()
			deadline := time.Now().Add(50 * time.Millisecond)
			for time.Now().Before(deadline) {
			}
			spans[i].end = time.Now()
			return nil
		}, r); err != nil {
			return err
		}
	}

	rt.Wait()

	overlaps := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if spans[i].start.Before(spans[j].end) && spans[j].start.Before(spans[i].end) {
				overlaps++
			}
		}
	}
	log.Printf("parallelism demo: %d behaviours, %d overlapping pairs", n, overlaps)
	return nil
}

// demoIsolation exercises the Isolation end-to-end scenario: a direct
// cross-region assignment must be rejected with a RegionIsolationError.
func demoIsolation(rt *boc.Runtime) error {
	r1 := rt.Region("r1")
	r2 := rt.Region("r2")

	w := region.NewWorker()
	return region.With(w, []*region.Region{r1, r2}, func() error {
		accounts := region.NewObject()
		if err := region.Assign(w, accounts, "Alice", int64(1000)); err != nil {
			return err
		}
		if err := region.Assign(w, r1, "accounts", accounts); err != nil {
			return err
		}
		err := region.Assign(w, r2, "accounts", accounts)
		if err == nil {
			return fmt.Errorf("isolation demo: expected a RegionIsolationError, got none")
		}
		log.Printf("isolation demo: ok, got expected error: %s", err)
		return nil
	})
}
