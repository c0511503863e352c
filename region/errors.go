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

import "fmt"

// RegionIsolationError is raised by the write barrier whenever an assignment
// or read would cross a region boundary without going through a legitimate
// sharing mechanism. See the invariants in the object graph design.
type RegionIsolationError struct {
	Op     string // "read", "write", "open", "merge", ...
	Reason string
}

func (e *RegionIsolationError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("region isolation violation: %s", e.Reason)
	}
	return fmt.Sprintf("region isolation violation during %s: %s", e.Op, e.Reason)
}

// TypeError is raised when an attribute is assigned a value of the wrong
// type, eg setting a region's Name to anything but a string.
type TypeError struct {
	Attr string
	Want string
	Got  string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("wrong type for attribute %q: want %s, got %s", e.Attr, e.Want, e.Got)
}

// AttributeError is raised when user code attempts to write to a read-only
// region attribute (identity, is_open, is_shared, parent).
type AttributeError struct {
	Attr string
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("attribute %q is read-only", e.Attr)
}
