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
	"fmt"
	"strings"
)

// indentation of listed calls in history and failure explanations
const indentation = "          "

// A Slot is one named callable position of a double, typically a method of its collaborator
type Slot struct {
	d    *Double
	name string
}

func (s *Slot) Name() string {
	return s.name
}

func (s *Slot) Double() *Double {
	return s.d
}

// Call dispatches a call to this slot, where a trailing Named holds the named values
func (s *Slot) Call(args ...interface{}) (interface{}, error) {
	return s.d.Call(s.name, args...)
}

// Attach registers an observer notified after each successful call to this slot
func (s *Slot) Attach(o Observer) {
	s.d.attach(s.name, o)
}

// Calls returns the actual calls made to this slot, in order
func (s *Slot) Calls() []*RecordedCall {
	return s.d.Actual().ForTarget(s.name).Entries()
}

// History describes the calls made to this slot and their results, eg
//  method 'Spy.foo' was invoked this way:
//            Spy.foo(1) -> 2
func (s *Slot) History() string {
	method := fmt.Sprintf("method '%v'", s)
	calls := s.Calls()
	if len(calls) == 0 {
		return method + " never invoked"
	}

	sb := strings.Builder{}
	sb.WriteString(method)
	sb.WriteString(" was invoked this way:\n")
	for _, call := range calls {
		sb.WriteString(indentation)
		sb.WriteString(renderWithResult(s.d.render, call))
		sb.WriteRune('\n')
	}
	return sb.String()
}

func (s *Slot) String() string {
	return s.d.name + "." + s.name
}

// MethodReturning returns a free standing slot that produces v for any arguments
func MethodReturning(v interface{}) *Slot {
	return freeSlot(Returns(v))
}

// MethodRaising returns a free standing slot that fails with err for any arguments
func MethodRaising(err error) *Slot {
	return freeSlot(Raises(err))
}

func freeSlot(b Behavior) *Slot {
	d := NewStub()
	p := d.BeginSetup()
	p.Call("method", AnyArg).behave(b)
	_ = d.EndSetup() // programming AnyArg alone cannot fail
	return d.Slot("method")
}
