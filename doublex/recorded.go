/*
 * Copyright 2020 grant@lastweekend.com.au
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package doublex

import (
	"sync/atomic"
)

var tick uint64 //global atomic counter to assist with verifying order of execution

// Result is the observed outcome of an actual call
type Result struct {
	Value interface{}
	Err   error
}

// A RecordedCall is a Signature plus either a programmed Behavior, or the observed Result of an actual call.
type RecordedCall struct {
	sig      *Signature
	owner    string
	behavior Behavior
	result   *Result
	tick     uint64 //Record the order of all calls relative to each other.
}

func newRecordedCall(owner string, sig *Signature) *RecordedCall {
	return &RecordedCall{sig: sig, owner: owner, tick: atomic.AddUint64(&tick, 1)}
}

// NewRecordedCall returns an entry suitable for appending to a Ledger, optionally with a behavior
func NewRecordedCall(owner string, sig *Signature, behavior ...Behavior) *RecordedCall {
	call := newRecordedCall(owner, sig)
	if len(behavior) > 0 {
		call.behavior = behavior[0]
	}
	return call
}

func (c *RecordedCall) Signature() *Signature {
	return c.sig
}

// Owner is the display name of the double this call belongs to
func (c *RecordedCall) Owner() string {
	return c.owner
}

// Behavior is the programmed behavior, nil for actual calls or programmed calls with no behavior
func (c *RecordedCall) Behavior() Behavior {
	return c.behavior
}

// Result returns the observed result of an actual call, if the call has completed
func (c *RecordedCall) Result() (Result, bool) {
	if c.result == nil {
		return Result{}, false
	}
	return *c.result, true
}

// Seq is the global sequence number of this call, ordering calls across all doubles
func (c *RecordedCall) Seq() uint64 {
	return c.tick
}

func (c *RecordedCall) perform(actual *Signature) (interface{}, error) {
	if c.behavior == nil {
		return nil, nil
	}
	return c.behavior.Perform(actual)
}

func (c *RecordedCall) observe(value interface{}, err error) {
	if c.result == nil {
		c.result = &Result{Value: value, Err: err}
	}
}

func (c *RecordedCall) String() string {
	return DefaultRenderer(c)
}

// A Renderer produces the diagnostic text for a call
type Renderer func(call *RecordedCall) string

// DefaultRenderer renders a call as Owner.target(args...)
func DefaultRenderer(call *RecordedCall) string {
	if call.owner == "" {
		return call.sig.String()
	}
	return call.owner + "." + call.sig.String()
}

// renderWithResult appends the observed result, as used by slot history
func renderWithResult(render Renderer, call *RecordedCall) string {
	text := render(call)
	if result, done := call.Result(); done {
		switch {
		case result.Err != nil:
			text += " !! " + result.Err.Error()
		case result.Value != nil:
			text += " -> " + renderValue(result.Value)
		}
	}
	return text
}
