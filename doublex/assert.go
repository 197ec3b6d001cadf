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
	"github.com/pkg/errors"
)

//T is compatible with builtin testing.T
type T interface {
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	Logf(format string, args ...interface{})
	Helper()
}

// report fails t with err: verification failures are reported verbatim with Errorf, misuse fatally
func report(t T, err error) bool {
	t.Helper()
	if err == nil {
		return true
	}
	var failure *VerificationFailure
	if errors.As(err, &failure) {
		t.Errorf("%s", failure.Explanation)
	} else {
		t.Fatalf("%v", err)
	}
	return false
}

// AssertVerified fails t unless the Mock d received its programmed calls in order
func AssertVerified(t T, d *Double) bool {
	t.Helper()
	return report(t, Verify(d))
}

// AssertVerifiedAnyOrder fails t unless the Mock d received its programmed calls in any order
func AssertVerifiedAnyOrder(t T, d *Double) bool {
	t.Helper()
	return report(t, VerifyAnyOrder(d))
}

// AssertCalled fails t unless slot s was called as described by m (default Called())
func AssertCalled(t T, s *Slot, m ...*CallMatcher) bool {
	t.Helper()
	matcher := Called()
	if len(m) > 0 {
		matcher = m[0]
	}
	return report(t, matcher.Check(s.Double(), s.Name()))
}

// AssertNotCalled fails t if slot s was called as described by m (default Called()), regardless of m's Times
func AssertNotCalled(t T, s *Slot, m ...*CallMatcher) bool {
	t.Helper()
	matcher := Called()
	if len(m) > 0 {
		matcher = m[0].copy()
	}
	return report(t, matcher.Times(Never()).Check(s.Double(), s.Name()))
}
