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

	"github.com/pkg/errors"
)

// Kind classifies an Error raised by the matching and verification engine
type Kind int

const (
	// InvalidWildcardUsage is a malformed use of AnyArg when building a Signature
	InvalidWildcardUsage Kind = iota + 1

	// SignatureMismatch is a call whose shape disagrees with the collaborator, or names an unknown slot
	SignatureMismatch

	// UnexpectedInvocation is a call to a Mock that matches no programmed expectation
	UnexpectedInvocation

	// NoMatchingStub is raised by Ledger.LookupBestMatch. Dispatch only surfaces it as UnexpectedInvocation.
	NoMatchingStub

	// InvalidRepetitionCount is Times(n) with n < 2
	InvalidRepetitionCount

	// WrongUsage is any other misuse of the API (eg dispatching during setup)
	WrongUsage

	// DelegateExhausted is a delegated sequence or channel with no further values
	DelegateExhausted
)

var kindNames = map[Kind]string{
	InvalidWildcardUsage:   "invalid wildcard usage",
	SignatureMismatch:      "signature mismatch",
	UnexpectedInvocation:   "unexpected invocation",
	NoMatchingStub:         "no matching stub",
	InvalidRepetitionCount: "invalid repetition count",
	WrongUsage:             "wrong usage",
	DelegateExhausted:      "delegate exhausted",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the single error type of this package.
//
// Errors compare equal under errors.Is when they have the same Kind, so
//  errors.Is(err, ErrUnexpectedInvocation)
// works for any UnexpectedInvocation however it was built.
type Error struct {
	Kind Kind
	Msg  string
	// Call is the offending call, if any
	Call *Signature
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Msg
}

// Is reports whether target is an *Error of the same Kind
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

var (
	ErrInvalidWildcardUsage   = &Error{Kind: InvalidWildcardUsage}
	ErrSignatureMismatch      = &Error{Kind: SignatureMismatch}
	ErrUnexpectedInvocation   = &Error{Kind: UnexpectedInvocation}
	ErrNoMatchingStub         = &Error{Kind: NoMatchingStub}
	ErrInvalidRepetitionCount = &Error{Kind: InvalidRepetitionCount}
	ErrWrongUsage             = &Error{Kind: WrongUsage}
	ErrDelegateExhausted      = &Error{Kind: DelegateExhausted}
)

func newError(kind Kind, call *Signature, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Call: call}
}

// KindOf returns the Kind of err, or 0 if err is not (and does not wrap) an *Error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
