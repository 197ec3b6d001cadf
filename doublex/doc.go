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

/*
Package doublex provides call-matching test doubles for Go.

A Double records the calls made to it, answers them from programmed behaviors, and can be verified against the calls
it was expected to receive. Doubles come in four variants.

A Stub answers programmed calls and returns nil for anything else.

A Spy is a Stub whose calls are asserted after the system under test has been exercised.

A Mock fails unexpected calls as they happen, and is verified against its programmed calls with Verify or
VerifyAnyOrder.

A ProxySpy is a Spy that forwards any call it has not been programmed for to a real collaborator.

Setup

Calls are programmed between BeginSetup and EndSetup, or within Setup

 spy := NewSpy(WithCollaborator(MustReflect((*API)(nil))))
 err := spy.Setup(func(p *Programmer) {
	p.Call("SomeQuery", "test").Returns(&Results{"result"})
	p.Call("SomeQuery", AnyArg).Raises(ErrNotFound)
 })

The most specific programmed call matching an actual call answers it. Among equally specific calls the most
recently programmed wins. AnyArg as the last positional value matches any remaining arguments, and any Matcher
(eg GreaterThan(2), Contains("x")) matches the values it accepts.

Exercise

Calls are made through Double.Call or a Slot, usually from a typed wrapper implementing the collaborator's interface

 func (d *APIDouble) SomeQuery(query string) (*Results, error) {
	r, err := d.Call("SomeQuery", query)
	results, _ := r.(*Results)
	return results, err
 }

Verify

 AssertVerified(t, mock)
 AssertCalled(t, spy.Slot("SomeQuery"), Called().WithArgs("test").Times(Once()))

Logging

Each double logs its dispatches through logrus at Debug level (Info once EnableTrace is called).
The level of DefaultLogger can be set with the DOUBLEX_LOG_LEVEL environment variable.
*/
package doublex
