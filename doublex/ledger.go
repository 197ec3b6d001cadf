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
	"sort"
	"strings"
)

// A Comparator decides whether an actual signature counts as a call to expected
type Comparator func(expected, actual *Signature) bool

func defaultComparator(expected, actual *Signature) bool {
	return expected.Matches(actual)
}

// A Ledger is an ordered, append-only record of calls.
//
// A double owns two ledgers: the programmed calls (stubs and expectations) and the actual calls.
// Views such as Sorted, Matching or Slice return new ledgers and never reorder the receiver.
//
// A Ledger is not safe for concurrent use. See the Synchronized option of a Double.
type Ledger struct {
	calls []*RecordedCall
	desc  []string
}

// NewLedger returns an empty ledger, with an optional description used in String()
func NewLedger(desc ...string) *Ledger {
	return &Ledger{desc: desc}
}

func (l *Ledger) newView(calls []*RecordedCall, desc ...string) *Ledger {
	return &Ledger{calls: calls, desc: append(append([]string(nil), desc...), l.desc...)}
}

// Append adds call to the end of the ledger
func (l *Ledger) Append(call *RecordedCall) {
	l.calls = append(l.calls, call)
}

func (l *Ledger) Len() int {
	return len(l.calls)
}

func (l *Ledger) At(i int) *RecordedCall {
	return l.calls[i]
}

// Entries returns a copy of the calls in this ledger
func (l *Ledger) Entries() []*RecordedCall {
	return append([]*RecordedCall(nil), l.calls...)
}

// Count returns the number of entries that cmp (default Signature.Matches) considers a call to sig
func (l *Ledger) Count(sig *Signature, cmp ...Comparator) int {
	compare := defaultComparator
	if len(cmp) > 0 && cmp[0] != nil {
		compare = cmp[0]
	}
	count := 0
	for _, call := range l.calls {
		if compare(sig, call.sig) {
			count++
		}
	}
	return count
}

// Received reports whether the number of calls matching sig meets expect
func (l *Ledger) Received(sig *Signature, expect Expectation, cmp ...Comparator) bool {
	return expect.Met(l.Count(sig, cmp...))
}

// LookupBestMatch returns the most specific entry matching sig.
//
// Among equally specific entries the most recently appended wins.
// Fails with NoMatchingStub if nothing matches.
func (l *Ledger) LookupBestMatch(sig *Signature) (*RecordedCall, error) {
	var best *RecordedCall
	for _, call := range l.calls {
		if !call.sig.Matches(sig) {
			continue
		}
		if best == nil || Specificity(call.sig, best.sig) >= 0 {
			best = call
		}
	}
	if best == nil {
		return nil, newError(NoMatchingStub, sig, "%v", sig)
	}
	return best, nil
}

// EqualsSequence is true if both ledgers have the same length and match pairwise, in order
func (l *Ledger) EqualsSequence(other *Ledger) bool {
	if l.Len() != other.Len() {
		return false
	}
	for i, call := range l.calls {
		if !call.sig.Matches(other.calls[i].sig) {
			return false
		}
	}
	return true
}

// EqualsAsMultiset is true if both ledgers hold the same calls in any order.
//
// The canonical sorted views are compared pairwise first. Wildcards and matchers can sort away from the
// calls they match, so when that fails a one-to-one pairing of entries is searched for.
func (l *Ledger) EqualsAsMultiset(other *Ledger) bool {
	if l.Len() != other.Len() {
		return false
	}
	a, b := l.Sorted(), other.Sorted()
	if a.EqualsSequence(b) {
		return true
	}
	return perfectPairing(a.calls, b.calls)
}

// perfectPairing finds a bipartite matching between a and b covering every entry (augmenting paths)
func perfectPairing(a, b []*RecordedCall) bool {
	pairedWith := make([]int, len(b))
	for i := range pairedWith {
		pairedWith[i] = -1
	}

	var augment func(i int, seen []bool) bool
	augment = func(i int, seen []bool) bool {
		for j := range b {
			if seen[j] || !a[i].sig.Matches(b[j].sig) {
				continue
			}
			seen[j] = true
			if pairedWith[j] < 0 || augment(pairedWith[j], seen) {
				pairedWith[j] = i
				return true
			}
		}
		return false
	}

	for i := range a {
		if !augment(i, make([]bool, len(b))) {
			return false
		}
	}
	return true
}

// Sorted returns a new ledger stably sorted by Compare
func (l *Ledger) Sorted() *Ledger {
	calls := l.Entries()
	sort.SliceStable(calls, func(i, j int) bool {
		return Compare(calls[i].sig, calls[j].sig) < 0
	})
	return l.newView(calls, "sorted")
}

// Matching returns the subset of calls matching sig
func (l *Ledger) Matching(sig *Signature, cmp ...Comparator) *Ledger {
	compare := defaultComparator
	if len(cmp) > 0 && cmp[0] != nil {
		compare = cmp[0]
	}
	var subset []*RecordedCall
	for _, call := range l.calls {
		if compare(sig, call.sig) {
			subset = append(subset, call)
		}
	}
	return l.newView(subset, fmt.Sprintf("calls matching %v within", sig))
}

// ForTarget returns the subset of calls to the named slot
func (l *Ledger) ForTarget(target string) *Ledger {
	var subset []*RecordedCall
	for _, call := range l.calls {
		if call.sig.target == target {
			subset = append(subset, call)
		}
	}
	return l.newView(subset, fmt.Sprintf("calls to %s within", target))
}

/*
Slice returns a subset of these calls, including call at index from, excluding call at index to (like go slice)

Bounds beyond the end of the ledger are clamped. Negative bounds, or from > to, fail with WrongUsage.
eg to get the last 3 calls - l.Slice(l.Len()-3, l.Len())
*/
func (l *Ledger) Slice(from int, to int) (*Ledger, error) {
	n := len(l.calls)
	if from < 0 || to < 0 || from > to {
		return nil, newError(WrongUsage, nil, "invalid slice of %v [%d:%d]", l, from, to)
	}

	var subset []*RecordedCall
	var sliceDesc string
	if from > n {
		sliceDesc = fmt.Sprintf("[%d>=len():]", from)
	} else if to > n {
		sliceDesc = fmt.Sprintf("[%d:]", from)
		subset = l.calls[from:]
	} else {
		sliceDesc = fmt.Sprintf("[%d:%d]", from, to)
		subset = l.calls[from:to]
	}
	return l.newView(append([]*RecordedCall(nil), subset...), fmt.Sprintf("slice%s of", sliceDesc)), nil
}

// After returns the calls in l that were recorded after all of the calls in other (which may belong to another double)
func (l *Ledger) After(other *Ledger) *Ledger {
	var subset []*RecordedCall

	if other.Len() > 0 {
		lastTick := other.calls[other.Len()-1].tick
		if partitionIndex := sort.Search(len(l.calls), func(i int) bool { return l.calls[i].tick > lastTick }); partitionIndex < len(l.calls) {
			subset = append(subset, l.calls[partitionIndex:]...)
		} // otherwise no matches, default empty set
	} else {
		// all our calls are considered to be after an empty set
		subset = l.Entries()
	}

	nested := append(append([]string{"calls after", ">>"}, other.desc...), "<<", "within")
	return l.newView(subset, nested...)
}

// Show lists each call on its own line, indented, or "No one" for an empty ledger
func (l *Ledger) Show(indent int, render Renderer) string {
	if render == nil {
		render = DefaultRenderer
	}
	pad := strings.Repeat(" ", indent)
	if len(l.calls) == 0 {
		return pad + "No one"
	}
	lines := make([]string, len(l.calls))
	for i, call := range l.calls {
		lines[i] = pad + render(call)
	}
	return strings.Join(lines, "\n")
}

// Lines renders each call, for diffing
func (l *Ledger) Lines(render Renderer) []string {
	if render == nil {
		render = DefaultRenderer
	}
	lines := make([]string, len(l.calls))
	for i, call := range l.calls {
		lines[i] = render(call)
	}
	return lines
}

// String describes how this ledger was derived, eg
//  calls matching foo(1) within
//    all calls to Spy
func (l *Ledger) String() string {
	var rewinds = make([]int, 0)
	depth := 0
	sb := strings.Builder{}
	for i := 0; i < len(l.desc); i++ {
		if l.desc[i] == ">>" {
			rewinds = append([]int{depth}, rewinds...)
		} else if l.desc[i] == "<<" {
			depth = rewinds[0]
			rewinds = rewinds[1:]
		} else {
			if sb.Len() > 0 {
				sb.WriteRune('\n')
			}
			for d := 0; d < depth; d++ {
				sb.WriteString("  ")
			}
			sb.WriteString(l.desc[i])
			depth++
		}
	}
	return sb.String()
}
