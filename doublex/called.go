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
)

/*
A CallMatcher asserts how a slot was called, eg

 Called().WithArgs(1, AnyArg).Times(Twice()).Check(spy, "foo")

With no arguments configured any call to the slot counts. With no Times configured the slot must have been
called at least once.
*/
type CallMatcher struct {
	args     []interface{}
	argsSet  bool
	someArgs bool
	times    Expectation
}

// Called starts a CallMatcher
func Called() *CallMatcher {
	return &CallMatcher{}
}

func (m *CallMatcher) copy() *CallMatcher {
	c := *m
	return &c
}

// WithArgs only counts calls matching args, where a trailing Named holds the named values
func (m *CallMatcher) WithArgs(args ...interface{}) *CallMatcher {
	m.args = args
	m.argsSet = true
	m.someArgs = false
	return m
}

// WithSomeArgs only counts calls whose named values include those in named. Positional values are ignored.
func (m *CallMatcher) WithSomeArgs(named Named) *CallMatcher {
	m.args = []interface{}{named}
	m.argsSet = true
	m.someArgs = true
	return m
}

// Times sets the expected number of matching calls
func (m *CallMatcher) Times(expect Expectation) *CallMatcher {
	m.times = expect
	return m
}

func (m *CallMatcher) expectation() Expectation {
	if m.times == nil {
		return AnyTime()
	}
	return m.times
}

func (m *CallMatcher) signature(target string) (*Signature, error) {
	if !m.argsSet {
		return NewSignature(target, []interface{}{AnyArg}, nil)
	}
	return SignatureOf(target, m.args...)
}

func (m *CallMatcher) comparator() Comparator {
	if !m.someArgs {
		return defaultComparator
	}
	return func(expected, actual *Signature) bool {
		return expected.target == actual.target && namedMatch(expected.named, actual.named, true)
	}
}

// Check returns nil if the calls to the target slot of d meet this matcher, otherwise a *VerificationFailure
func (m *CallMatcher) Check(d *Double, target string) error {
	sig, err := m.signature(target)
	if err != nil {
		return err
	}
	actual := d.Actual()
	expect := m.expectation()
	if actual.Received(sig, expect, m.comparator()) {
		return nil
	}

	expected := NewLedger(fmt.Sprintf("calls to %s", d.name))
	expected.Append(newRecordedCall(d.name, sig))
	suffix := ""
	if m.times != nil {
		suffix = fmt.Sprintf(" -- times: %v", m.times)
	}
	return newVerificationFailure(d, false, expected, actual, suffix)
}

func (m *CallMatcher) String() string {
	s := "called"
	if m.argsSet {
		sig, err := m.signature("")
		if err != nil {
			s += fmt.Sprintf(" with invalid args: %v", err)
		} else {
			s += " with " + sig.argString()
		}
	}
	return s + " " + m.expectation().String()
}
