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

import "fmt"

// An Expectation judges how many matching calls are acceptable, as used by Called().Times and Ledger.Received
type Expectation interface {
	Met(count int) bool
	fmt.Stringer
}

// countRange accepts counts in [min, max]; max < 0 means unbounded
type countRange struct {
	min, max int
}

func (r countRange) Met(count int) bool {
	return count >= r.min && (r.max < 0 || count <= r.max)
}

func (r countRange) String() string {
	switch {
	case r.min == 0 && r.max == 0:
		return "never"
	case r.min == r.max:
		return fmt.Sprintf("exactly %d", r.min)
	case r.max < 0 && r.min == 1:
		return "any time"
	case r.max < 0:
		return fmt.Sprintf("at least %d", r.min)
	case r.min <= 0:
		return fmt.Sprintf("at most %d", r.max)
	}
	return fmt.Sprintf("between %d and %d", r.min, r.max)
}

type countMatching struct {
	Matcher
}

func (c countMatching) Met(count int) bool {
	return c.Matches(count)
}

func Exactly(n int) Expectation {
	return countRange{n, n}
}

func Once() Expectation {
	return Exactly(1)
}

func Twice() Expectation {
	return Exactly(2)
}

func Never() Expectation {
	return Exactly(0)
}

func AtLeast(n int) Expectation {
	return countRange{n, -1}
}

// AnyTime is AtLeast(1)
func AnyTime() Expectation {
	return AtLeast(1)
}

func AtMost(n int) Expectation {
	return countRange{0, n}
}

// Between accepts min to max calls inclusive
func Between(min, max int) Expectation {
	return countRange{min, max}
}

// CountMatching accepts any count m matches, eg CountMatching(GreaterThan(2))
func CountMatching(m Matcher) Expectation {
	return countMatching{m}
}
