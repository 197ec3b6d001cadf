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
	"strings"
)

// A Signature is an immutable description of one invocation: the target slot, positional values and named values.
//
// Values may be concrete, AnyArg, or a Matcher.
type Signature struct {
	target     string
	positional []interface{}
	named      Named
}

// NewSignature builds a Signature, validating the placement of AnyArg.
//
// AnyArg may only appear once, as the last positional value, and never together with named values.
func NewSignature(target string, positional []interface{}, named Named) (*Signature, error) {
	for i, v := range positional {
		if isAnyArg(v) && i != len(positional)-1 {
			return nil, newError(InvalidWildcardUsage, nil,
				"%s: %v must be the last positional value, found at %d of %d", target, AnyArg, i+1, len(positional))
		}
	}
	for _, k := range named.keys() {
		if isAnyArg(named[k]) {
			return nil, newError(InvalidWildcardUsage, nil, "%s: %v cannot be used as named value %q", target, AnyArg, k)
		}
	}
	if len(positional) > 0 && isAnyArg(positional[len(positional)-1]) && len(named) > 0 {
		return nil, newError(InvalidWildcardUsage, nil, "%s: %v cannot be combined with named values", target, AnyArg)
	}

	sig := &Signature{target: target}
	if len(positional) > 0 {
		sig.positional = make([]interface{}, len(positional))
		copy(sig.positional, positional)
	}
	if len(named) > 0 {
		sig.named = make(Named, len(named))
		for k, v := range named {
			sig.named[k] = v
		}
	}
	return sig, nil
}

// SignatureOf builds a Signature from variadic args, where a trailing Named holds the named values
func SignatureOf(target string, args ...interface{}) (*Signature, error) {
	positional, named := splitNamed(args)
	return NewSignature(target, positional, named)
}

// MustSignature is like SignatureOf but panics if the signature is invalid
func MustSignature(target string, args ...interface{}) *Signature {
	sig, err := SignatureOf(target, args...)
	if err != nil {
		panic(err)
	}
	return sig
}

func (s *Signature) Target() string {
	return s.target
}

// Positional returns a copy of the positional values
func (s *Signature) Positional() []interface{} {
	return append([]interface{}(nil), s.positional...)
}

// Named returns a copy of the named values
func (s *Signature) Named() Named {
	named := make(Named, len(s.named))
	for k, v := range s.named {
		named[k] = v
	}
	return named
}

// Args returns the positional values followed by the named values (if any), suitable for SignatureOf
func (s *Signature) Args() []interface{} {
	args := s.Positional()
	if len(s.named) > 0 {
		args = append(args, s.Named())
	}
	return args
}

func (s *Signature) hasWildcard() bool {
	return len(s.positional) > 0 && isAnyArg(s.positional[len(s.positional)-1])
}

func (s *Signature) at(i int) (interface{}, bool) {
	if i < len(s.positional) {
		return s.positional[i], true
	}
	return nil, false
}

// Matches reports whether s and other describe the same call, honouring AnyArg and Matcher values on either side.
func (s *Signature) Matches(other *Signature) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.target != other.target {
		return false
	}
	return argsMatch(s, other)
}

func argsMatch(a, b *Signature) bool {
	for i := 0; i < len(a.positional) || i < len(b.positional); i++ {
		x, xOk := a.at(i)
		y, yOk := b.at(i)
		if (xOk && isAnyArg(x)) || (yOk && isAnyArg(y)) {
			return true
		}
		if !xOk || !yOk || !valuesMatch(x, y) {
			return false
		}
	}
	return namedMatch(a.named, b.named, false)
}

// namedMatch compares named values. With subset only the keys of expected are checked.
func namedMatch(expected, actual Named, subset bool) bool {
	if !subset && len(expected) != len(actual) {
		return false
	}
	for k, x := range expected {
		y, found := actual[k]
		if !found || !valuesMatch(x, y) {
			return false
		}
	}
	return true
}

// Compare is a total order over signatures, used to sort ledgers into a canonical view.
//
// Signatures order by target, then by positional values (concrete before Matcher before AnyArg, a shorter
// argument list before a longer one), then by named values.
func Compare(a, b *Signature) int {
	if c := strings.Compare(a.target, b.target); c != 0 {
		return c
	}
	for i := 0; i < len(a.positional) || i < len(b.positional); i++ {
		x, xOk := a.at(i)
		y, yOk := b.at(i)
		switch {
		case !xOk:
			return -1
		case !yOk:
			return 1
		}
		if c := compareValues(x, y); c != 0 {
			return c
		}
	}

	aKeys, bKeys := a.named.keys(), b.named.keys()
	for i := 0; i < len(aKeys) && i < len(bKeys); i++ {
		if c := strings.Compare(aKeys[i], bKeys[i]); c != 0 {
			return c
		}
		if c := compareValues(a.named[aKeys[i]], b.named[bKeys[i]]); c != 0 {
			return c
		}
	}
	return len(aKeys) - len(bKeys)
}

// Specificity is positive if a is more specific than b, negative if less, and zero if equally specific.
//
// Concrete values outrank Matchers, which outrank AnyArg. An argument list that ends outranks a trailing AnyArg.
func Specificity(a, b *Signature) int {
	for i := 0; i < len(a.positional) || i < len(b.positional); i++ {
		ra, rb := positionRank(a, i), positionRank(b, i)
		if ra != rb {
			return ra - rb
		}
		if ra == rankWildcard {
			break
		}
	}
	return namedRank(a.named) - namedRank(b.named)
}

func positionRank(s *Signature, i int) int {
	if v, ok := s.at(i); ok {
		return rank(v)
	}
	return rankConcrete
}

func namedRank(named Named) int {
	total := 0
	for _, v := range named {
		total += rank(v)
	}
	return total
}

// String renders s as target(args..., key=value...) with named values sorted by key
func (s *Signature) String() string {
	sb := strings.Builder{}
	sb.WriteString(s.target)
	sb.WriteString(s.argString())
	return sb.String()
}

func (s *Signature) argString() string {
	parts := make([]string, 0, len(s.positional)+len(s.named))
	for _, v := range s.positional {
		parts = append(parts, renderValue(v))
	}
	for _, k := range s.named.keys() {
		parts = append(parts, k+"="+renderValue(s.named[k]))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
