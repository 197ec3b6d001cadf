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

	"github.com/hashicorp/go-multierror"
	"github.com/pmezard/go-difflib/difflib"
)

// A VerificationFailure explains why the calls a double received differ from those expected of it
type VerificationFailure struct {
	Double   *Double
	InOrder  bool
	Expected *Ledger
	Actual   *Ledger
	// Explanation is the complete human readable report, including a diff of expected and actual calls
	Explanation string
}

func (f *VerificationFailure) Error() string {
	return f.Explanation
}

func newVerificationFailure(d *Double, inOrder bool, expected, actual *Ledger, expectedSuffix string) *VerificationFailure {
	render := d.render
	sb := strings.Builder{}
	sb.WriteString("\nExpected: these calls:\n")
	sb.WriteString(expected.Show(len(indentation), render))
	sb.WriteString(expectedSuffix)
	sb.WriteString("\n     but: calls that actually occurred were:\n")
	sb.WriteString(actual.Show(len(indentation), render))
	sb.WriteRune('\n')

	a, b := expected, actual
	if !inOrder {
		a, b = expected.Sorted(), actual.Sorted()
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        diffLines(a, render),
		B:        diffLines(b, render),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  3,
		Eol:      "\n",
	})
	if err == nil && diff != "" {
		sb.WriteString("\ndiff:\n")
		sb.WriteString(diff)
	}

	return &VerificationFailure{
		Double:      d,
		InOrder:     inOrder,
		Expected:    expected,
		Actual:      actual,
		Explanation: sb.String(),
	}
}

func diffLines(l *Ledger, render Renderer) []string {
	lines := l.Lines(render)
	for i := range lines {
		lines[i] += "\n"
	}
	return lines
}

func verify(d *Double, inOrder bool) error {
	if d.variant != Mock {
		return newError(WrongUsage, nil, "%s is a %v, only a Mock can be verified", d.name, d.variant)
	}
	expected, actual := d.Programmed(), d.Actual()
	var met bool
	if inOrder {
		met = expected.EqualsSequence(actual)
	} else {
		met = expected.EqualsAsMultiset(actual)
	}
	if met {
		d.log.Debug("verified")
		return nil
	}
	return newVerificationFailure(d, inOrder, expected, actual, "")
}

// Verify checks that the calls to the Mock d match its programmed calls, in order.
//
// It returns nil if they do, a *VerificationFailure if not, and WrongUsage for any other variant.
func Verify(d *Double) error {
	return verify(d, true)
}

// VerifyAnyOrder is like Verify but the calls may have occurred in any order
func VerifyAnyOrder(d *Double) error {
	return verify(d, false)
}

// VerifyAll verifies (in order) each of doubles, returning all the failures
func VerifyAll(doubles ...*Double) error {
	var result *multierror.Error
	for _, d := range doubles {
		if err := Verify(d); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
