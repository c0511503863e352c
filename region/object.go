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
	"fmt"
	"reflect"
	"sync"
)

// Object is any user-visible value that can hold named fields. Every Object
// carries an implicit pointer to at most one Region, its home; an Object
// with no home is free. Objects are the membership unit the write barrier
// in Assign and Get enforces region isolation over.
type Object struct {
	mu     sync.Mutex
	home   *Region // nil means free
	fields map[string]any
}

// NewObject allocates a fresh, free object with no fields set.
func NewObject() *Object {
	return &Object{fields: make(map[string]any)}
}

// Home returns the region that owns o, or nil if o is free.
func (o *Object) Home() *Region {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.home
}

func (o *Object) setHome(r *Region) {
	o.mu.Lock()
	o.home = r
	o.mu.Unlock()
}

func (o *Object) snapshotFields() map[string]any {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]any, len(o.fields))
	for k, v := range o.fields {
		out[k] = v
	}
	return out
}

// isImmutable reports whether v is a primitive the write barrier lets
// through unconditionally: nil, bool, any numeric kind, or string. Anything
// else - an *Object, a *Region, a slice, a map, a pointer to user state - is
// an owned reference subject to the region discipline.
func isImmutable(v any) bool {
	if v == nil {
		return true
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return true
	default:
		return false
	}
}

// homeOf returns the region a value resolves to for isolation purposes: a
// *Region is its own home, an *Object reports its home field (possibly
// nil, meaning free), and anything else has no home to speak of.
func homeOf(v any) (*Region, bool) {
	switch t := v.(type) {
	case *Region:
		return t, true
	case *Object:
		return t.Home(), true
	default:
		return nil, false
	}
}

// fieldsOf returns a getter and a setter for target's own fields, plus its
// home, so Assign and Get can treat a *Region (its own root namespace) and
// an *Object uniformly.
func fieldsOf(target any) (get func() map[string]any, set func(string, any), home *Region, err error) {
	switch t := target.(type) {
	case *Region:
		b := t.body()
		return func() map[string]any { return b.root.snapshotFields() },
			func(f string, v any) { b.root.mu.Lock(); b.root.fields[f] = v; b.root.mu.Unlock() },
			t, nil
	case *Object:
		return t.snapshotFields, func(f string, v any) { t.mu.Lock(); t.fields[f] = v; t.mu.Unlock() }, t.Home(), nil
	default:
		return nil, nil, nil, fmt.Errorf("region: %T is not an assignable target", target)
	}
}

// Assign runs the write barrier for `target.field = value`, exactly as laid
// out by the object graph design: region-open checks, the single-home and
// no-cross-region-reference invariants, parent assignment through a region-
// valued field, and free-object capture by transitive closure.
func Assign(w *Worker, target any, field string, value any) error {
	if isImmutable(value) {
		_, set, _, err := fieldsOf(target)
		if err != nil {
			return err
		}
		set(field, value)
		return nil
	}

	// step 2: if target is itself a region, it must be open here.
	if r, ok := target.(*Region); ok {
		b := r.body()
		b.mu.Lock()
		open := b.isOpenOn(w)
		b.mu.Unlock()
		if !open {
			return &RegionIsolationError{Op: "write", Reason: fmt.Sprintf("region %q is not open here", r.Name())}
		}
	}

	// step 3: determine home(target) = R. A free (unhomed) object is not
	// yet visible to any region, so building up its fields is unguarded;
	// once it is captured into a region (below), its fields, and every
	// free object reachable from it, become subject to this same check.
	home, ok := homeOf(target)
	if !ok {
		return fmt.Errorf("region: %T is not an assignable target", target)
	}
	if home != nil {
		b := home.body()
		b.mu.Lock()
		open := b.isOpenOn(w)
		b.mu.Unlock()
		if !open {
			return &RegionIsolationError{Op: "write", Reason: fmt.Sprintf("region %q is not open here", home.Name())}
		}
	}

	_, set, _, err := fieldsOf(target)
	if err != nil {
		return err
	}

	if rv, ok := value.(*Region); ok {
		if home == nil {
			return &RegionIsolationError{Op: "write", Reason: "cannot parent a region under a free object"}
		}
		if err := rv.setParent(home); err != nil {
			return err
		}
		set(field, value)
		return nil
	}

	// step 5: non-region, non-primitive value. A free target enforces no
	// membership invariant of its own yet, so anything may be stored in
	// it unguarded; the check only matters once target itself is a
	// member of a real region.
	if home == nil {
		set(field, value)
		return nil
	}
	valueHome, ok := homeOf(value)
	if !ok {
		// not an Object/Region at all (eg a plain slice or map); treat
		// like any other opaque owned reference with no home tracking.
		set(field, value)
		return nil
	}
	switch {
	case valueHome == nil:
		// value is free: this assignment is the capture point. Claim
		// it, and everything reachable from it, into home.
		claimFreeClosure(value, home)
	case sameRegion(valueHome, home):
		// already a member (possibly via merge-aliasing), nothing to do
	default:
		return &RegionIsolationError{Op: "write", Reason: fmt.Sprintf("value is owned by region %q, not %q", valueHome.Name(), home.Name())}
	}

	set(field, value)
	return nil
}

// Get runs the read side of the write barrier for `target.field`: reading
// any field of a region, or of an object owned by a region, fails unless
// that region is open on w, and reading a non-primitive owned value fails
// unless the value's own home region is open on w. A free object's fields
// can be read from anywhere.
func Get(w *Worker, target any, field string) (any, error) {
	get, _, targetHome, err := fieldsOf(target)
	if err != nil {
		return nil, err
	}
	if targetHome != nil {
		b := targetHome.body()
		b.mu.Lock()
		open := b.isOpenOn(w)
		b.mu.Unlock()
		if !open {
			return nil, &RegionIsolationError{Op: "read", Reason: fmt.Sprintf("region %q is not open here", targetHome.Name())}
		}
	}
	value, present := get()[field]
	if !present {
		return nil, &AttributeError{Attr: field}
	}
	if isImmutable(value) {
		return value, nil
	}
	home, ok := homeOf(value)
	if !ok {
		return value, nil
	}
	if home == nil {
		return value, nil
	}
	b := home.body()
	b.mu.Lock()
	open := b.isOpenOn(w)
	b.mu.Unlock()
	if !open {
		return nil, &RegionIsolationError{Op: "read", Reason: fmt.Sprintf("region %q is not open here", home.Name())}
	}
	return value, nil
}

// claimFreeClosure sets home on value and every free object transitively
// reachable from it through its own fields, stopping at anything that
// already has a home, at nested regions (which become children, not
// members), and at primitives. This is what lets a whole free-standing
// object graph be captured into a region with a single assignment.
func claimFreeClosure(value any, home *Region) {
	obj, ok := value.(*Object)
	if !ok {
		return // a bare region-valued capture is handled by the caller
	}
	if obj.Home() != nil {
		return
	}
	obj.setHome(home)
	for _, v := range obj.snapshotFields() {
		if isImmutable(v) {
			continue
		}
		if _, isRegion := v.(*Region); isRegion {
			continue // nested regions become children, not members; Assign already handled that
		}
		claimFreeClosure(v, home)
	}
}

// setParent implements the single-write parent assignment rule: parent(r')
// may only be set implicitly, by a field assignment of the form
// `a.field = r'` while a is open, and only if r' has no parent yet or is
// already parented to a.
func (r *Region) setParent(newParent *Region) error {
	b := r.body()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.parent != nil && !sameRegion(b.parent, newParent) {
		return &RegionIsolationError{Op: "write", Reason: fmt.Sprintf("region %q already has a different parent", r.Name())}
	}
	b.parent = newParent
	newParent.addChild(r)
	return nil
}
