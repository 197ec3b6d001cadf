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
	"sort"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
)

type anyArg struct{}

func (anyArg) String() string {
	return "ANY_ARG"
}

// AnyArg matches any single value.
//
// As the last positional value of a Signature it also matches any remaining positional and named values.
// It is compared by type, so it can never be confused with an ordinary argument.
var AnyArg = anyArg{}

func isAnyArg(v interface{}) bool {
	_, ok := v.(anyArg)
	return ok
}

// Named holds the named values of a call.
//
// When passed as the final argument to a variadic helper such as SignatureOf or Double.Call
// it is taken as the named values rather than a positional map.
type Named map[string]interface{}

func (n Named) keys() []string {
	keys := make([]string, 0, len(n))
	for k := range n {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// splitNamed separates a trailing Named from the positional arguments
func splitNamed(args []interface{}) ([]interface{}, Named) {
	if len(args) == 0 {
		return args, nil
	}
	if named, isNamed := args[len(args)-1].(Named); isNamed {
		return args[:len(args)-1], named
	}
	return args, nil
}

const (
	rankWildcard = iota
	rankMatcher
	rankConcrete
)

// rank orders how specific a value is. A sequence holding a wildcard or matcher is only as specific as a matcher.
func rank(v interface{}) int {
	switch v.(type) {
	case anyArg:
		return rankWildcard
	case Matcher:
		return rankMatcher
	}
	rv := reflect.ValueOf(v)
	if isSequence(rv) {
		for i := 0; i < rv.Len(); i++ {
			if rank(rv.Index(i).Interface()) != rankConcrete {
				return rankMatcher
			}
		}
	}
	return rankConcrete
}

func isSequence(v reflect.Value) bool {
	return v.IsValid() && (v.Kind() == reflect.Slice || v.Kind() == reflect.Array)
}

// valuesMatch is the structural equality relation for a pair of argument values.
func valuesMatch(a, b interface{}) bool {
	if isAnyArg(a) || isAnyArg(b) {
		return true
	}
	if m, isMatcher := a.(Matcher); isMatcher {
		return m.Matches(b)
	}
	if m, isMatcher := b.(Matcher); isMatcher {
		return m.Matches(a)
	}

	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if isSequence(av) && isSequence(bv) && (rank(a) != rankConcrete || rank(b) != rankConcrete) {
		return sequencesMatch(av, bv)
	}
	return reflect.DeepEqual(a, b)
}

// sequencesMatch compares nested sequences element-wise, where a wildcard element absorbs the remainder.
func sequencesMatch(a, b reflect.Value) bool {
	for i := 0; i < a.Len() || i < b.Len(); i++ {
		if i < a.Len() && isAnyArg(a.Index(i).Interface()) {
			return true
		}
		if i < b.Len() && isAnyArg(b.Index(i).Interface()) {
			return true
		}
		if i >= a.Len() || i >= b.Len() {
			return false
		}
		if !valuesMatch(a.Index(i).Interface(), b.Index(i).Interface()) {
			return false
		}
	}
	return true
}

// compareValues is a total order over argument values: concrete < Matcher < AnyArg.
func compareValues(a, b interface{}) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		// higher rank is more concrete and sorts first
		return rb - ra
	}
	switch ra {
	case rankWildcard:
		return 0
	case rankMatcher:
		if _, isMatcher := a.(Matcher); isMatcher {
			return strings.Compare(renderValue(a), renderValue(b))
		}
	}

	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if !av.IsValid() || !bv.IsValid() {
		return boolCompare(av.IsValid(), bv.IsValid())
	}

	if fa, ok := asFloat(av); ok {
		if fb, ok := asFloat(bv); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return strings.Compare(av.Type().String(), bv.Type().String())
		}
	}

	if c := strings.Compare(kindOrder(av), kindOrder(bv)); c != 0 {
		return c
	}

	switch av.Kind() {
	case reflect.String:
		return strings.Compare(av.String(), bv.String())
	case reflect.Bool:
		return boolCompare(av.Bool(), bv.Bool())
	case reflect.Slice, reflect.Array:
		for i := 0; i < av.Len() && i < bv.Len(); i++ {
			if c := compareValues(av.Index(i).Interface(), bv.Index(i).Interface()); c != 0 {
				return c
			}
		}
		return av.Len() - bv.Len()
	}
	return strings.Compare(renderValue(a), renderValue(b))
}

func boolCompare(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	}
	return -1
}

func kindOrder(v reflect.Value) string {
	return fmt.Sprintf("%02d%s", int(v.Kind()), v.Type())
}

func asFloat(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	}
	return 0, false
}

var spewConfig = spew.ConfigState{
	Indent:                  "",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// renderValue is the stable textual form of one argument or result value
func renderValue(v interface{}) string {
	switch tv := v.(type) {
	case nil:
		return "nil"
	case anyArg:
		return tv.String()
	case string:
		return strconv.Quote(tv)
	case error:
		return tv.Error()
	case fmt.Stringer:
		return tv.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprint(v)
	case reflect.Func, reflect.Chan:
		return rv.Type().String()
	}
	return spewConfig.Sprintf("%v", v)
}
