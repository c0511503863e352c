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

import "github.com/boclang/boc/util"

// Kind identifies the sort of control message passed to the dispatcher.
type Kind int

const (
	// KindClose asks the dispatcher to exit at once; behaviours still
	// sitting in the ready buffer are not dispatched.
	KindClose Kind = iota
)

// Msg is a control message with an ACK, for signalling the dispatcher
// goroutine without giving it a whole new channel per concern. Built on
// util.EasyAck rather than a bare channel, the same wrapper the rest of
// this codebase uses for one-shot acknowledgment signals.
type Msg struct {
	Kind Kind

	ack *util.EasyAck
}

// NewMsg builds a message that wants an ACK.
func NewMsg(kind Kind) *Msg {
	return &Msg{Kind: kind, ack: util.NewEasyAck()}
}

// ACK acknowledges the message. Must not be called more than once.
func (m *Msg) ACK() {
	m.ack.Ack()
}

// Wait blocks until ACK is called for this message.
func (m *Msg) Wait() {
	<-m.ack.Wait()
}
