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
	"reflect"
	"strings"
)

// Matcher is a predicate over a single argument value.
//
// A Matcher used as an argument of a programmed call, or of an expected call in Called().WithArgs(),
// matches any actual value it accepts.
type Matcher interface {
	// Matches returns true if arg matches this matcher
	Matches(arg interface{}) bool

	// String describes what the matcher matches
	String() string
}

// toMatcher converts v into a Matcher: funcs via Func, reflect.Type via IsA, anything else via Eql
func toMatcher(v interface{}) Matcher {
	switch typed := v.(type) {
	case Matcher:
		return typed
	case reflect.Type:
		return IsA(typed)
	}
	if v != nil && reflect.TypeOf(v).Kind() == reflect.Func {
		return Func(v)
	}
	return Eql(v)
}

type funcMatcher struct {
	fn          reflect.Value
	explanation string
}

func (f funcMatcher) String() string {
	return f.explanation
}

func (f funcMatcher) Matches(arg interface{}) bool {
	ft := f.fn.Type()
	in := ft.In(0)
	var argV reflect.Value
	if arg == nil {
		switch in.Kind() {
		case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
			argV = reflect.Zero(in)
		default:
			return false
		}
	} else {
		argV = reflect.ValueOf(arg)
		if !argV.Type().AssignableTo(in) {
			return false
		}
	}
	return f.fn.Call([]reflect.Value{argV})[0].Bool()
}

// Func returns a Matcher from the arbitrary function f, which must be a func(x X) bool.
//
// Arguments that are not assignable to X do not match.
// Optionally include an explanation that will be formatted to string to describe what is being matched.
// Func panics if f does not have the right shape, as that is a fault in the test itself.
func Func(f interface{}, explanation ...interface{}) Matcher {
	fv := reflect.ValueOf(f)
	ft := fv.Type()
	if ft.Kind() != reflect.Func || ft.NumIn() != 1 || ft.IsVariadic() || ft.NumOut() != 1 || ft.Out(0).Kind() != reflect.Bool {
		panic(newError(WrongUsage, nil, "Func(%v) expected to be a function that accepts 1 argument and returns bool", ft))
	}

	var explainString string
	if len(explanation) == 0 {
		explainString = fmt.Sprintf("%T", f)
	} else {
		explainString = fmt.Sprint(explanation...)
	}

	return funcMatcher{fv, explainString}
}

type matcherList []Matcher

func (l matcherList) toString(prefix string, lRune rune, rRune rune) string {
	s := strings.Builder{}
	s.WriteString(prefix)
	s.WriteRune(lRune)
	for i, arg := range l {
		if i > 0 {
			s.WriteRune(',')
		}
		s.WriteString(arg.String())
	}
	s.WriteRune(rRune)
	return s.String()
}

type sliceMatcher struct {
	matcherList
}

// Slice returns a Matcher for a slice or array whose leading elements match each of the matchers in turn.
//
// Elements beyond the supplied matchers are not checked. Non-matcher values are converted with Eql.
func Slice(elements ...interface{}) Matcher {
	list := make(matcherList, len(elements))
	for i, e := range elements {
		list[i] = toMatcher(e)
	}
	return &sliceMatcher{list}
}

func (sm *sliceMatcher) String() string {
	return sm.toString("Slice", '[', ']')
}

func (sm *sliceMatcher) Matches(arg interface{}) bool {
	v := reflect.ValueOf(arg)
	if !isSequence(v) || v.Len() < len(sm.matcherList) {
		return false
	}
	for i, m := range sm.matcherList {
		if !m.Matches(v.Index(i).Interface()) {
			return false
		}
	}
	return true
}

type eqlMatcher struct {
	v interface{}
}

func (e eqlMatcher) Matches(arg interface{}) bool {
	return reflect.DeepEqual(arg, e.v)
}

func (e eqlMatcher) String() string {
	return "Eql(" + renderValue(e.v) + ")"
}

// Eql matches a single argument equal to v via reflect.DeepEqual
func Eql(v interface{}) Matcher {
	return eqlMatcher{v}
}

type nilMatcher struct{}

func (n nilMatcher) String() string {
	return "Nil"
}

func (n nilMatcher) Matches(arg interface{}) bool {
	if arg == nil {
		return true
	}

	v := reflect.ValueOf(arg)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		return v.IsNil()
	}

	return false
}

var singletonNilMatcher = nilMatcher{}

// Nil matches a single argument of any nil-able type to be nil (or equivalent)
func Nil() Matcher {
	return singletonNilMatcher
}

type lenMatcher struct {
	Matcher
}

func (l lenMatcher) String() string {
	return fmt.Sprintf("Len(%v)", l.Matcher)
}

func (l lenMatcher) Matches(arg interface{}) bool {
	v := reflect.ValueOf(arg)
	switch v.Kind() {
	case reflect.Array, reflect.Chan, reflect.Map, reflect.Slice, reflect.String:
		return l.Matcher.Matches(v.Len())
	default:
		return false
	}
}

// Len matches a single argument of kind Array, Chan, Map, Slice or String whose length matches v
//
// v may be anything that can match an int
// eg
//   Len(0)
//   Len(func(l int) bool { return l <= 10 })
func Len(v interface{}) Matcher {
	return lenMatcher{toMatcher(v)}
}

type containsMatcher string

func (c containsMatcher) Matches(arg interface{}) bool {
	s, isString := arg.(string)
	return isString && strings.Contains(s, string(c))
}

func (c containsMatcher) String() string {
	return fmt.Sprintf("Contains(%q)", string(c))
}

// Contains matches a string argument containing substr
func Contains(substr string) Matcher {
	return containsMatcher(substr)
}

type orderMatcher struct {
	v       interface{}
	accepts func(c int) bool
	name    string
}

func (o orderMatcher) Matches(arg interface{}) bool {
	if arg == nil || rank(arg) != rankConcrete {
		return false
	}
	return o.accepts(compareValues(arg, o.v))
}

func (o orderMatcher) String() string {
	return o.name + "(" + renderValue(o.v) + ")"
}

// LessThan matches an argument ordered before v (numbers compare numerically, strings lexically)
func LessThan(v interface{}) Matcher {
	return orderMatcher{v, func(c int) bool { return c < 0 }, "LessThan"}
}

// GreaterThan matches an argument ordered after v (numbers compare numerically, strings lexically)
func GreaterThan(v interface{}) Matcher {
	return orderMatcher{v, func(c int) bool { return c > 0 }, "GreaterThan"}
}

// IsA matches a single argument if the supplied argument is AssignableTo or Implements the reflect.Type t
//
// if t is not already a reflect.Type it will be converted with reflect.TypeOf
func IsA(t interface{}) Matcher {
	rt, isType := t.(reflect.Type)
	if !isType {
		rt = reflect.TypeOf(t)
	}
	return Func(func(x interface{}) bool {
		if x == nil {
			return false
		}
		argT := reflect.TypeOf(x)
		if rt.Kind() == reflect.Interface {
			return argT.Implements(rt)
		}
		return argT.AssignableTo(rt)
	}, "IsA", "(", rt, ")")
}

type andMatcher struct {
	matcherList
}

func (a andMatcher) String() string {
	return a.toString("All", '{', '}')
}

func (a andMatcher) Matches(arg interface{}) bool {
	for _, m := range a.matcherList {
		if !m.Matches(arg) {
			return false
		}
	}
	return true
}

// All matches if all the matchers match (returns true for no matchers)
func All(matchers ...Matcher) Matcher {
	return andMatcher{matchers}
}

// And matches if all the matchers match
func And(matchers ...Matcher) Matcher {
	return All(matchers...)
}

type orMatcher struct {
	matcherList
}

func (a orMatcher) String() string {
	return a.toString("Any", '{', '}')
}

func (a orMatcher) Matches(arg interface{}) bool {
	for _, m := range a.matcherList {
		if m.Matches(arg) {
			return true
		}
	}
	return false
}

// Any matches if any one of matchers match (returns false for no matchers).
//
// Not to be confused with AnyArg, which is a wildcard value rather than a Matcher.
func Any(matchers ...Matcher) Matcher {
	return orMatcher{matchers}
}

// Or matches if any one of matchers match
func Or(matchers ...Matcher) Matcher {
	return Any(matchers...)
}

type notMatcher struct {
	Matcher
}

func (nm notMatcher) String() string {
	return fmt.Sprintf("Not(%v)", nm.Matcher)
}

func (nm notMatcher) Matches(arg interface{}) bool {
	return !nm.Matcher.Matches(arg)
}

// Not negates matcher
func Not(matcher Matcher) Matcher {
	return notMatcher{matcher}
}
