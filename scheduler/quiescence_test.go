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
	"testing"
	"time"
)

func TestQuiescenceWaitReturnsImmediatelyWhenIdle(t *testing.T) {
	q := newQuiescence()
	done := make(chan struct{})
	go func() {
		q.wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected wait to return immediately on a fresh quiescence tracker")
	}
}

func TestQuiescenceWaitBlocksUntilDrained(t *testing.T) {
	q := newQuiescence()
	q.beginEnqueue()

	done := make(chan struct{})
	go func() {
		q.wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected wait to block while enqueuing is outstanding")
	case <-time.After(20 * time.Millisecond):
	}

	q.endEnqueue()
	q.toReady()
	q.toRunning()
	q.toDone()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected wait to return once every counter drained")
	}
}

func TestQuiescenceWaitContextAbandonsOnCancel(t *testing.T) {
	q := newQuiescence()
	q.beginEnqueue() // never drained

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := q.waitContext(ctx)
	if err == nil {
		t.Fatal("expected waitContext to return the context's error once it expires")
	}
}

func TestQuiescenceWaitContextReturnsNilOnDrain(t *testing.T) {
	q := newQuiescence()
	q.beginEnqueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.endEnqueue()
		q.toReady()
		q.toRunning()
		q.toDone()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := q.waitContext(ctx); err != nil {
		t.Fatalf("expected waitContext to return nil once quiesced, got %v", err)
	}
}
