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

package boc

import (
	"testing"

	"github.com/boclang/boc/region"
)

// TestSwap is SPEC_FULL.md's end-to-end scenario 1: one behaviour swaps the
// balances of two shared regions, and a second behaviour observes the
// result.
func TestSwap(t *testing.T) {
	rt := New(2, nil)
	rt.Run()
	defer rt.Shutdown()

	a := rt.Region("A")
	b := rt.Region("B")

	w := region.NewWorker()
	if err := region.With(w, []*region.Region{a, b}, func() error {
		if err := region.Assign(w, a, "balance", int64(100)); err != nil {
			return err
		}
		return region.Assign(w, b, "balance", int64(0))
	}); err != nil {
		t.Fatalf("seed balances: %v", err)
	}

	if _, err := a.MakeShareable(); err != nil {
		t.Fatalf("share a: %v", err)
	}
	if _, err := b.MakeShareable(); err != nil {
		t.Fatalf("share b: %v", err)
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
		t.Fatalf("submit swap: %v", err)
	}

	checked := make(chan struct{})
	if err := rt.Behave(func(w *region.Worker) error {
		defer close(checked)
		av, err := region.Get(w, a, "balance")
		if err != nil {
			return err
		}
		bv, err := region.Get(w, b, "balance")
		if err != nil {
			return err
		}
		if av != int64(0) || bv != int64(100) {
			t.Errorf("expected a=0 b=100 after swap, got a=%v b=%v", av, bv)
		}
		return nil
	}, a, b); err != nil {
		t.Fatalf("submit check: %v", err)
	}

	rt.Wait()
	<-checked
}

// TestIsolationRejectsCrossRegionAssign is scenario 3: a direct cross-region
// assignment must fail and leave the target unset.
func TestIsolationRejectsCrossRegionAssign(t *testing.T) {
	rt := New(1, nil)
	rt.Run()
	defer rt.Shutdown()

	r1 := rt.Region("r1")
	r2 := rt.Region("r2")

	w := region.NewWorker()
	err := region.With(w, []*region.Region{r1, r2}, func() error {
		accounts := region.NewObject()
		if err := region.Assign(w, accounts, "Alice", int64(1000)); err != nil {
			return err
		}
		if err := region.Assign(w, r1, "accounts", accounts); err != nil {
			return err
		}
		if err := region.Assign(w, r2, "accounts", accounts); err == nil {
			t.Fatal("expected cross-region assignment to fail")
		}
		if _, err := region.Get(w, r2, "accounts"); err == nil {
			t.Fatal("expected r2.accounts to remain unset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("with: %v", err)
	}
}

// TestBehaveBeforeRunFails ensures Behave reports errNotRunning instead of
// panicking when called before Run.
func TestBehaveBeforeRunFails(t *testing.T) {
	rt := New(1, nil)
	r := rt.Region("r")
	if _, err := r.MakeShareable(); err != nil {
		t.Fatalf("make shareable: %v", err)
	}
	if err := rt.Behave(func(w *region.Worker) error { return nil }, r); err == nil {
		t.Fatal("expected Behave before Run to fail")
	}
}
