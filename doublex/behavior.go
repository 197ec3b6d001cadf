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
	"math/rand"
	"reflect"
	"sync"
	"time"
)

// A Behavior produces the outcome of a matched call.
//
// Errors returned by a Behavior are returned from the dispatch unchanged.
type Behavior interface {
	Perform(call *Signature) (interface{}, error)
}

// A Handler is a Behavior implemented by a plain function of the actual call
type Handler func(call *Signature) (interface{}, error)

func (h Handler) Perform(call *Signature) (interface{}, error) {
	return h(call)
}

// multiValued behaviors yield successive values until they report DelegateExhausted
type multiValued interface {
	Behavior
	multiValued() bool
}

type returnsBehavior struct {
	value interface{}
}

func (r returnsBehavior) Perform(_ *Signature) (interface{}, error) {
	return r.value, nil
}

// Returns is a behavior that always produces v
func Returns(v interface{}) Behavior {
	return returnsBehavior{v}
}

type returnsInputBehavior struct{}

func (returnsInputBehavior) Perform(call *Signature) (interface{}, error) {
	if len(call.positional) == 0 {
		return nil, newError(WrongUsage, call, "%v has no input args", call)
	}
	return call.positional[0], nil
}

// ReturnsInput is a behavior that produces the first positional value of the actual call
func ReturnsInput() Behavior {
	return returnsInputBehavior{}
}

type raisesBehavior struct {
	err error
}

func (r raisesBehavior) Perform(_ *Signature) (interface{}, error) {
	return nil, r.err
}

// Raises is a behavior that always fails with err
func Raises(err error) Behavior {
	return raisesBehavior{err}
}

/*
Delegates builds a behavior from x, which may be

 * a Behavior or Handler, used as is
 * a *Slot, which is called with the actual arguments (eg a slot of another double)
 * any other func, called with the positional values of the actual call (see callFunc)
 * a slice or array, producing successive elements
 * a channel, producing successive received values
 * a map, producing the value keyed by the first positional value

Anything else fails with WrongUsage.
*/
func Delegates(x interface{}) (Behavior, error) {
	switch typed := x.(type) {
	case nil:
		return nil, newError(WrongUsage, nil, "Delegates() must be called with a callable or iterable value (got nil)")
	case Behavior:
		return typed, nil
	case func(*Signature) (interface{}, error):
		return Handler(typed), nil
	case *Slot:
		return slotBehavior{typed}, nil
	}

	v := reflect.ValueOf(x)
	switch v.Kind() {
	case reflect.Func:
		return funcBehavior{v}, nil
	case reflect.Slice, reflect.Array:
		return &iterBehavior{values: v}, nil
	case reflect.Chan:
		if v.Type().ChanDir()&reflect.RecvDir == 0 {
			break
		}
		return &chanBehavior{ch: v, timeout: DefaultReturnTimeout, sleeper: time.After}, nil
	case reflect.Map:
		return mapBehavior{v}, nil
	}
	return nil, newError(WrongUsage, nil, "Delegates() must be called with a callable or iterable value (got %T)", x)
}

type slotBehavior struct {
	slot *Slot
}

func (s slotBehavior) Perform(call *Signature) (interface{}, error) {
	return s.slot.Call(call.Args()...)
}

type funcBehavior struct {
	fn reflect.Value
}

func (f funcBehavior) Perform(call *Signature) (interface{}, error) {
	return callFunc(f.fn, call)
}

/*
callFunc calls fn reflectively with the positional values of call.

A trailing parameter of type Named receives the named values. Nil values are passed as the zero value
of the parameter type. The results are collapsed to a single value and error: a trailing error result is
returned as the error, no other results gives nil, one gives that value, more give a []interface{}.
*/
func callFunc(fn reflect.Value, call *Signature) (interface{}, error) {
	ft := fn.Type()
	args := call.positional
	if call.hasWildcard() {
		args = args[:len(args)-1]
	}

	numIn := ft.NumIn()
	takesNamed := numIn > 0 && !ft.IsVariadic() && ft.In(numIn-1) == namedType
	fixed := numIn
	if takesNamed || ft.IsVariadic() {
		fixed--
	}
	if len(args) < fixed || (!ft.IsVariadic() && len(args) > fixed) {
		return nil, newError(WrongUsage, call, "cannot call %v with %d positional values", ft, len(args))
	}
	if len(call.named) > 0 && !takesNamed {
		return nil, newError(WrongUsage, call, "cannot pass named values to %v", ft)
	}

	in := make([]reflect.Value, 0, len(args)+1)
	for i, arg := range args {
		var pt reflect.Type
		if ft.IsVariadic() && i >= fixed {
			pt = ft.In(numIn - 1).Elem()
		} else {
			pt = ft.In(i)
		}
		av, err := argValue(arg, pt)
		if err != nil {
			return nil, newError(WrongUsage, call, "%v arg %d: %s", ft, i, err.Error())
		}
		in = append(in, av)
	}
	if takesNamed {
		in = append(in, reflect.ValueOf(call.Named()))
	}

	return collapseResults(fn.Call(in))
}

var (
	namedType = reflect.TypeOf(Named(nil))
	errorType = reflect.TypeOf((*error)(nil)).Elem()
)

func argValue(arg interface{}, t reflect.Type) (reflect.Value, error) {
	if arg == nil {
		switch t.Kind() {
		case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, newError(WrongUsage, nil, "nil is not assignable to %v", t)
	}
	v := reflect.ValueOf(arg)
	if !v.Type().AssignableTo(t) {
		return reflect.Value{}, newError(WrongUsage, nil, "%v is not assignable to %v", v.Type(), t)
	}
	return v, nil
}

func collapseResults(out []reflect.Value) (interface{}, error) {
	var err error
	if n := len(out); n > 0 && out[n-1].Type() == errorType {
		if !out[n-1].IsNil() {
			err = out[n-1].Interface().(error)
		}
		out = out[:n-1]
	}
	switch len(out) {
	case 0:
		return nil, err
	case 1:
		return out[0].Interface(), err
	}
	values := make([]interface{}, len(out))
	for i, o := range out {
		values[i] = o.Interface()
	}
	return values, err
}

type iterBehavior struct {
	mu     sync.Mutex
	values reflect.Value
	next   int
}

func (it *iterBehavior) multiValued() bool { return true }

func (it *iterBehavior) Perform(call *Signature) (interface{}, error) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.next >= it.values.Len() {
		return nil, newError(DelegateExhausted, call, "no more values after %d for %v", it.values.Len(), call)
	}
	v := it.values.Index(it.next).Interface()
	it.next++
	return v, nil
}

type chanBehavior struct {
	ch      reflect.Value
	timeout time.Duration
	sleeper Timewarp
}

func (c *chanBehavior) multiValued() bool { return true }

func (c *chanBehavior) Perform(call *Signature) (interface{}, error) {
	chosen, v, ok := reflect.Select([]reflect.SelectCase{
		{Dir: reflect.SelectRecv, Chan: c.ch},
		{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(c.sleeper(c.timeout))},
	})
	switch {
	case chosen == 1:
		return nil, newError(DelegateExhausted, call, "timed out waiting for channel to provide values")
	case !ok:
		return nil, newError(DelegateExhausted, call, "requested values from closed channel")
	}
	return v.Interface(), nil
}

type mapBehavior struct {
	m reflect.Value
}

func (mb mapBehavior) Perform(call *Signature) (interface{}, error) {
	if len(call.positional) == 0 {
		return nil, newError(WrongUsage, call, "%v has no input args to look up", call)
	}
	key, err := argValue(call.positional[0], mb.m.Type().Key())
	if err != nil {
		return nil, err
	}
	if !key.Comparable() {
		return nil, newError(WrongUsage, call, "%v is not a valid map key", renderValue(call.positional[0]))
	}
	if v := mb.m.MapIndex(key); v.IsValid() {
		return v.Interface(), nil
	}
	return nil, nil
}

// A Timewarp can be used to simulate a sleep, eg when testing using a fake clock.
// The canonical sleeper is
//   time.After
type Timewarp func(d time.Duration) <-chan time.Time

// DefaultReturnTimeout is how long channel backed behaviors wait for a value
const DefaultReturnTimeout = 200 * time.Millisecond

// ReturnChannel provides channel semantics for producing values from successive calls
type ReturnChannel interface {
	// Send a value to be produced by a subsequent call
	Send(v interface{})

	// SendError queues an error to be returned by a subsequent call
	SendError(err error)

	// Close the channel, subsequent calls fail with DelegateExhausted
	Close()

	// SetTimeout overrides how long a call waits for a value before failing with DelegateExhausted
	SetTimeout(timeout time.Duration, sleeper ...Timewarp)

	Behavior
}

// NewReturnChannel returns a ReturnChannel, buffered if bufferSize is supplied.
//
// Use SetTimeout() to override the default timeout of 200 ms.
func NewReturnChannel(bufferSize ...int) ReturnChannel {
	bufSize := 0
	for _, size := range bufferSize {
		bufSize += size
	}
	return &returnChannel{
		values:  make(chan Result, bufSize),
		timeout: DefaultReturnTimeout,
		sleeper: time.After,
	}
}

type returnChannel struct {
	values  chan Result
	timeout time.Duration
	sleeper Timewarp
}

func (rc *returnChannel) multiValued() bool { return true }

func (rc *returnChannel) Perform(call *Signature) (interface{}, error) {
	select {
	case result, ok := <-rc.values:
		if !ok {
			return nil, newError(DelegateExhausted, call, "requested values from closed return channel")
		}
		return result.Value, result.Err
	case <-rc.sleeper(rc.timeout):
		return nil, newError(DelegateExhausted, call, "timed out waiting for return channel to provide values")
	}
}

func (rc *returnChannel) Send(v interface{}) {
	rc.values <- Result{Value: v}
}

func (rc *returnChannel) SendError(err error) {
	rc.values <- Result{Err: err}
}

func (rc *returnChannel) Close() {
	close(rc.values)
}

func (rc *returnChannel) SetTimeout(timeout time.Duration, sleeper ...Timewarp) {
	if len(sleeper) > 0 {
		rc.sleeper = sleeper[0]
	}
	rc.timeout = timeout
}

type delayedBehavior struct {
	Behavior
	delayer func() time.Duration
	sleeper Timewarp
}

func newDelayedBehavior(b Behavior, f func() time.Duration, sleeper ...Timewarp) Behavior {
	sf := time.After
	if len(sleeper) > 0 {
		sf = sleeper[0]
	}
	return &delayedBehavior{Behavior: b, delayer: f, sleeper: sf}
}

func (d *delayedBehavior) Perform(call *Signature) (interface{}, error) {
	//Simulate IO delay / long poll etc
	<-d.sleeper(d.delayer())
	return d.Behavior.Perform(call)
}

// Delayed wraps the behavior b with a fixed delay of 'by' duration
//
// Useful to simulate an asynchronous IO request, allowing other goroutines to run
// while waiting for the response.
//
// An optional sleeper function, defaulting to time.After, can be provided. eg for use with fake clock
func Delayed(b Behavior, by time.Duration, sleep ...Timewarp) Behavior {
	return newDelayedBehavior(b, func() time.Duration { return by }, sleep...)
}

// RandDelayed wraps the behavior b with a delay of up to 'max' duration
func RandDelayed(b Behavior, max time.Duration, sleep ...Timewarp) Behavior {
	return newDelayedBehavior(b, func() time.Duration { return time.Duration(rand.Int63n(int64(max))) }, sleep...)
}

type sequenceBehavior struct {
	mu        sync.Mutex
	behaviors []Behavior
	next      int
}

func (s *sequenceBehavior) multiValued() bool { return true }

// Perform uses each behavior once in turn, except multi valued behaviors which are used until exhausted
func (s *sequenceBehavior) Perform(call *Signature) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.next < len(s.behaviors) {
		b := s.behaviors[s.next]
		if mv, isMultiValued := b.(multiValued); isMultiValued && mv.multiValued() {
			v, err := mv.Perform(call)
			if KindOf(err) == DelegateExhausted {
				s.next++
				continue
			}
			return v, err
		}
		s.next++
		return b.Perform(call)
	}
	return nil, newError(DelegateExhausted, call, "no more behaviors in sequence for %v", call)
}

// Sequence produces outcomes from each of behaviors until there are no further values available
func Sequence(behaviors ...Behavior) Behavior {
	return &sequenceBehavior{behaviors: behaviors}
}
