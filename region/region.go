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

// Package region implements the region algebra: the ownership discipline
// that partitions mutable state into named regions, the write barrier that
// enforces it on every field assignment and read, and the region lifecycle
// (private -> shared, merge, detach) described in the design.
package region

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/boclang/boc/util/disjoint"
)

// State is a region's position in its private-to-shared lifecycle. It is
// monotonic: once Shared, a region never reverts to Private.
type State int

const (
	// Private means the region is only reachable through a scoped Open,
	// one worker at a time.
	Private State = iota
	// Shared means the region has been published to the scheduler;
	// access only happens inside a running behaviour's body from here on.
	Shared
)

func (s State) String() string {
	if s == Shared {
		return "shared"
	}
	return "private"
}

// regionBody is the mutable state shared by every Region handle that
// resolves to the same physical region. Merging two regions merges their
// bodies via union-find (see util/disjoint); from that point on, both
// handles' Find() calls return the same body.
type regionBody struct {
	mu sync.Mutex

	id    uuid.UUID // representative id, used as the total acquisition order key
	xname string    // mutable region name

	state  State
	openOn uint64 // Worker.id currently holding this open; 0 = closed
	depth  int    // reentrant open depth for the current opener

	parent   *Region
	children map[*Region]bool

	root *Object // the region's own field namespace
}

// Region is a named container owning a subgraph of objects: the single
// ownership domain the write barrier enforces against. The zero Region is
// not valid; use New.
//
// fifo deliberately lives on the handle, not in regionBody: merging two
// regions unions their state (fields, parent, children) but must not splice
// together two live MCS queues that may already have other behaviours
// waiting on them. Each original region handle keeps acquiring through its
// own queue even after being merged away; see Merge.
type Region struct {
	id   uuid.UUID // this handle's own immutable identity; survives being merged away
	elem *disjoint.Elem[*regionBody]
	fifo fifo
}

// New allocates a fresh, private, unparented region. name is optional and
// may be changed later via SetName.
func New(name string) *Region {
	id := uuid.New()
	body := &regionBody{
		id:       id,
		xname:    name,
		state:    Private,
		children: make(map[*Region]bool),
	}
	r := &Region{id: id}
	body.root = &Object{home: r, fields: make(map[string]any)}
	r.elem = disjoint.NewElem[*regionBody]()
	r.elem.Data = body
	return r
}

// body returns the mutable state of the physical region this handle
// currently resolves to, dereferencing through the union-find structure so
// that a region merged into another always sees the merged state.
func (r *Region) body() *regionBody {
	return r.elem.Find().Data
}

// ID returns this region's own opaque, globally unique, immutable identity.
// Unlike Name, State, Parent, and the object graph, ID never changes, even
// after this region has been merged into another.
func (r *Region) ID() uuid.UUID {
	return r.id
}

// sameRegion reports whether a and b currently resolve to the same physical
// region, following merge-aliasing. nil compares equal only to nil.
func sameRegion(a, b *Region) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Key() == b.Key()
}

// Key returns the identity of the physical region r currently resolves to.
// Two handles produce an equal Key exactly when they've been merged
// together. The acquisition protocol sorts and deduplicates behaviour
// region sets by Key, not by ID, so that merged aliases collapse onto one
// lock instead of deadlocking a behaviour against itself.
func (r *Region) Key() uuid.UUID {
	return r.body().id
}

// Name returns the region's current mutable name.
func (r *Region) Name() string {
	b := r.body()
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.xname
}

// SetName changes the region's name. It is the only region attribute a user
// may freely write from outside an open scope.
func (r *Region) SetName(name string) {
	b := r.body()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.xname = name
}

// IsOpen reports whether any worker currently holds this region open.
func (r *Region) IsOpen() bool {
	b := r.body()
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.openOn != 0
}

// IsShared reports whether this region has made the private-to-shared
// transition.
func (r *Region) IsShared() bool {
	b := r.body()
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == Shared
}

// Parent returns the region whose object graph references this one, or nil
// at the root of the containment forest.
func (r *Region) Parent() *Region {
	b := r.body()
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.parent
}

// String implements fmt.Stringer for logging, mirroring the teacher's
// Kind/Name String() convention.
func (r *Region) String() string {
	name := r.Name()
	if name == "" {
		return fmt.Sprintf("region(%s)", r.id)
	}
	return fmt.Sprintf("region(%s)", name)
}

// SetAttr implements the language-neutral, dynamic-attribute-style surface
// (region.identity, region.is_open, ...) alongside the idiomatic Go getters
// above, for embedding layers that want a uniform string-keyed API. identity,
// is_open, is_shared, and parent are read-only and report AttributeError;
// name accepts only a string and reports TypeError otherwise.
func (r *Region) SetAttr(attr string, value any) error {
	switch attr {
	case "name":
		s, ok := value.(string)
		if !ok {
			return &TypeError{Attr: "name", Want: "string", Got: fmt.Sprintf("%T", value)}
		}
		r.SetName(s)
		return nil
	case "identity", "is_open", "is_shared", "parent":
		return &AttributeError{Attr: attr}
	default:
		return fmt.Errorf("region: no such attribute %q", attr)
	}
}

// isOpenOn reports whether worker w currently has this region's body open.
// Callers must hold b.mu.
func (b *regionBody) isOpenOn(w *Worker) bool {
	return w != nil && b.openOn == w.ID()
}

// Open acquires exclusive open-access on a private region for worker w. It
// is nestable: if w already holds it open, the depth counter just
// increments. It fails if the region is shared (shared regions are only
// ever opened implicitly, by the scheduler, around a running behaviour) or
// already open on a different worker.
func (r *Region) Open(w *Worker) error {
	if w == nil {
		return &RegionIsolationError{Op: "open", Reason: "no worker identity given"}
	}
	b := r.body()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Shared {
		return &RegionIsolationError{Op: "open", Reason: "shared regions cannot be opened directly, only by a running behaviour"}
	}
	if b.openOn == 0 {
		b.openOn = w.ID()
		b.depth = 1
		return nil
	}
	if b.isOpenOn(w) {
		b.depth++
		return nil
	}
	return &RegionIsolationError{Op: "open", Reason: "region is already open on another worker"}
}

// Close releases one level of open-access acquired by a matching Open call.
func (r *Region) Close(w *Worker) error {
	if w == nil {
		return &RegionIsolationError{Op: "close", Reason: "no worker identity given"}
	}
	b := r.body()
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.isOpenOn(w) {
		return &RegionIsolationError{Op: "close", Reason: "region is not open on this worker"}
	}
	b.depth--
	if b.depth == 0 {
		b.openOn = 0
	}
	return nil
}

// OpenExclusive is called by the scheduler once a behaviour has reached the
// head of every region in its set; it bypasses the nesting rules Open
// enforces for private regions, because a running behaviour owns its shared
// regions outright for the duration of its body (invariant 6).
func (r *Region) OpenExclusive(w *Worker) {
	b := r.body()
	b.mu.Lock()
	b.openOn = w.ID()
	b.depth = 1
	b.mu.Unlock()
}

// CloseExclusive is OpenExclusive's counterpart, called once a behaviour's
// body has returned.
func (r *Region) CloseExclusive() {
	b := r.body()
	b.mu.Lock()
	b.openOn = 0
	b.depth = 0
	b.mu.Unlock()
}

// childList returns a snapshot of b's direct children; collectSubtree uses
// it to walk the subtree MakeShareable pre-checks and then commits. Callers
// must hold b.mu.
func (b *regionBody) childList() []*Region {
	out := make([]*Region, 0, len(b.children))
	for c := range b.children {
		out = append(out, c)
	}
	return out
}

// MakeShareable atomically transitions r and every descendant region to
// Shared. It fails fast, before mutating anything, if any region in the
// subtree is currently open on any worker — partial shareifying must never
// leave the descendant forest in a mixed state.
func (r *Region) MakeShareable() (*Region, error) {
	subtree := collectSubtree(r)

	// pre-check pass: nothing in the subtree may be open right now.
	for _, reg := range subtree {
		b := reg.body()
		b.mu.Lock()
		open := b.openOn != 0
		b.mu.Unlock()
		if open {
			return nil, &RegionIsolationError{Op: "make_shareable", Reason: fmt.Sprintf("region %q is open", reg.Name())}
		}
	}

	// commit pass: nothing can fail from here on.
	for _, reg := range subtree {
		b := reg.body()
		b.mu.Lock()
		b.state = Shared
		b.mu.Unlock()
	}
	return r, nil
}

// collectSubtree returns r and every region transitively reachable from it
// through the children set, each region visited once.
func collectSubtree(r *Region) []*Region {
	seen := map[*Region]bool{}
	var out []*Region
	var walk func(*Region)
	walk = func(reg *Region) {
		if seen[reg] {
			return
		}
		seen[reg] = true
		out = append(out, reg)
		b := reg.body()
		b.mu.Lock()
		kids := b.childList()
		b.mu.Unlock()
		for _, k := range kids {
			walk(k)
		}
	}
	walk(r)
	return out
}

// Merge transfers every member of other into r: other's fields, children,
// and (if it is further ahead in the lifecycle) its shared state are folded
// into r's body via union-find; r's parent is kept and other's parent is not
// carried over. From this point on other is
// an alias for r — home(o) for any former member of other now resolves to
// r. Merging onto an already-aliased partner is a no-op success. Both
// regions must be open on w.
func (r *Region) Merge(w *Worker, other *Region) (*Region, error) {
	if sameRegion(r, other) {
		return r, nil
	}

	rb, ob := r.body(), other.body()
	rb.mu.Lock()
	rOpen := rb.isOpenOn(w)
	rb.mu.Unlock()
	ob.mu.Lock()
	oOpen := ob.isOpenOn(w)
	ob.mu.Unlock()
	if !rOpen || !oOpen {
		return nil, &RegionIsolationError{Op: "merge", Reason: "both regions must be open on the current worker"}
	}

	err := disjoint.Merge(r.elem, other.elem, func(a, b *regionBody) (*regionBody, error) {
		merged := &regionBody{
			id:       a.id, // representative keeps a's id as the acquisition-order key
			xname:    a.xname,
			state:    a.state,
			openOn:   a.openOn,
			depth:    a.depth,
			parent:   a.parent,
			children: mergeChildSets(a.children, b.children),
			root:     mergeObjectFields(a.root, b.root),
		}
		if b.state == Shared {
			merged.state = Shared
		}
		return merged, nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// mergeChildSets unions two regions' child sets ahead of a merge.
func mergeChildSets(a, b map[*Region]bool) map[*Region]bool {
	out := make(map[*Region]bool, len(a)+len(b))
	for c := range a {
		out[c] = true
	}
	for c := range b {
		out[c] = true
	}
	return out
}

// mergeObjectFields folds b's root fields into a's, keeping a's root object
// (and therefore its identity, for any outstanding references to it) as the
// survivor. b's own fields are reassigned to it directly rather than routed
// through the write barrier, since by the time Merge runs both regions are
// already known to be open on the merging worker.
func mergeObjectFields(a, b *Object) *Object {
	b.mu.Lock()
	bFields := make(map[string]any, len(b.fields))
	for k, v := range b.fields {
		bFields[k] = v
	}
	b.mu.Unlock()

	a.mu.Lock()
	for k, v := range bFields {
		a.fields[k] = v
	}
	a.mu.Unlock()
	return a
}

// DetachAll is merge's inverse: it extracts r's current members into a
// fresh region named newName, leaving r itself empty of its own root
// fields (children and parent are structural, not member state, and stay
// with r). The fresh region starts private, then is promoted to shared
// immediately if r was shared, so a detach never needs a second explicit
// make_shareable call to restore parity with r's lifecycle stage.
//
// If r is shared, the promotion bypasses the public MakeShareable path:
// fresh has just been allocated here and has no children and no other
// reference anywhere yet, so there is nothing else that could legally hold
// it open, and MakeShareable's own open pre-check would otherwise reject
// promoting a region the caller needs to keep using immediately (merge(other)
// requires both regions open on the worker, per §4.2, and detach_all feeding
// straight into merge is the documented recursive divide-and-conquer
// pattern). fresh is marked open on w directly instead, exactly mirroring
// OpenExclusive, so a worker that just detached r's members out can turn
// around and merge them straight back in, or into a sibling region, without
// a separate open step that a shared region could never satisfy anyway.
func (r *Region) DetachAll(w *Worker, newName string) (*Region, error) {
	b := r.body()
	b.mu.Lock()
	if !b.isOpenOn(w) {
		b.mu.Unlock()
		return nil, &RegionIsolationError{Op: "detach_all", Reason: "region is not open here"}
	}
	wasShared := b.state == Shared
	oldRoot := b.root
	b.root = &Object{home: r, fields: make(map[string]any)}
	b.mu.Unlock()

	fresh := New(newName)
	var rehome func(v any)
	rehome = func(v any) {
		obj, ok := v.(*Object)
		if !ok || !sameRegion(obj.Home(), r) {
			return
		}
		obj.setHome(fresh)
		for _, fv := range obj.snapshotFields() {
			rehome(fv)
		}
	}
	oldRoot.mu.Lock()
	for k, v := range oldRoot.fields {
		fresh.body().root.fields[k] = v
		rehome(v)
	}
	oldRoot.mu.Unlock()

	if wasShared {
		fb := fresh.body()
		fb.mu.Lock()
		fb.state = Shared
		fb.openOn = w.ID()
		fb.depth = 1
		fb.mu.Unlock()
	}
	return fresh, nil
}

// addChild records that child's parent is now r. Called only from the write
// barrier (assigning a region as a field value), never directly by users —
// parent assignment is single-write, exactly like the teacher's Named trait
// guards SetName against being called from the wrong layer.
func (r *Region) addChild(child *Region) {
	b := r.body()
	b.mu.Lock()
	b.children[child] = true
	b.mu.Unlock()
}
