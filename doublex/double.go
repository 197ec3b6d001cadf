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
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Variant selects how a Double responds to calls that match nothing, and whether it can be verified
type Variant int

const (
	// Stub answers programmed calls, and returns nil for anything else
	Stub Variant = iota
	// Spy is a Stub whose calls are expected to be asserted with Called()
	Spy
	// Mock fails unexpected calls eagerly, and is verified against its programmed calls with Verify
	Mock
	// ProxySpy is a Spy that forwards unmatched calls to its collaborator
	ProxySpy
)

func (v Variant) String() string {
	switch v {
	case Stub:
		return "Stub"
	case Spy:
		return "Spy"
	case Mock:
		return "Mock"
	case ProxySpy:
		return "ProxySpy"
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// An Observer is notified synchronously after each successful call to a double
type Observer func(call *RecordedCall)

type observer struct {
	target string // empty for all targets
	fn     Observer
}

/*
A Double stands in for a collaborator of the system under test.

A Double is in one of two modes. While Recording (between BeginSetup and EndSetup) calls are programmed through a
Programmer. While Idle calls are dispatched: each is validated, recorded in the actual ledger, and answered by the
most specific programmed call that matches it.

A Double is not safe for concurrent use unless created with the Synchronized option.
*/
type Double struct {
	id         uuid.UUID
	name       string
	variant    Variant
	collab     Collaborator
	slots      map[string]*Slot
	programmed *Ledger
	actual     *Ledger
	programmer *Programmer
	observers  []observer
	render     Renderer
	log        logrus.FieldLogger
	trace      bool
	mu         sync.Locker
}

// An Option configures a Double at construction
type Option func(d *Double)

// WithName overrides the display name of the double, which otherwise is the collaborator name or the variant
func WithName(name string) Option {
	return func(d *Double) {
		d.name = name
	}
}

// WithCollaborator restricts the double to the shape of c
func WithCollaborator(c Collaborator) Option {
	return func(d *Double) {
		d.collab = c
	}
}

// WithSlots pre-creates named slots on a free double
func WithSlots(names ...string) Option {
	return func(d *Double) {
		for _, name := range names {
			d.slot(name)
		}
	}
}

// WithLogger replaces DefaultLogger
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Double) {
		d.log = l
	}
}

// WithRenderer replaces DefaultRenderer in failure explanations and history
func WithRenderer(r Renderer) Option {
	return func(d *Double) {
		d.render = r
	}
}

// Synchronized guards the double with a mutex so it may be called from multiple goroutines
func Synchronized() Option {
	return func(d *Double) {
		d.mu = &sync.Mutex{}
	}
}

type noLock struct{}

func (noLock) Lock()   {}
func (noLock) Unlock() {}

func newDouble(variant Variant, options ...Option) *Double {
	d := &Double{
		id:         uuid.New(),
		variant:    variant,
		slots:      make(map[string]*Slot),
		programmed: NewLedger(),
		actual:     NewLedger(),
		render:     DefaultRenderer,
		log:        DefaultLogger,
		mu:         noLock{},
	}

	for _, o := range options {
		o(d)
	}

	if d.name == "" {
		if d.collab != nil && d.collab.Name() != "" {
			d.name = d.collab.Name()
		} else {
			d.name = variant.String()
		}
	}
	if d.collab != nil {
		for _, name := range d.collab.Methods() {
			d.slot(name)
		}
	}

	d.programmed.desc = []string{fmt.Sprintf("programmed calls to %s", d.name)}
	d.actual.desc = []string{fmt.Sprintf("all calls to %s", d.name)}
	d.log = d.log.WithFields(logrus.Fields{"double": d.name, "double_id": d.id.String(), "variant": variant.String()})
	return d
}

// NewStub returns a Stub, free unless configured WithCollaborator
func NewStub(options ...Option) *Double {
	return newDouble(Stub, options...)
}

// NewSpy returns a Spy, free unless configured WithCollaborator
func NewSpy(options ...Option) *Double {
	return newDouble(Spy, options...)
}

// NewMock returns a Mock, free unless configured WithCollaborator
func NewMock(options ...Option) *Double {
	return newDouble(Mock, options...)
}

// NewProxySpy returns a ProxySpy forwarding unmatched calls to collab, which is required
func NewProxySpy(collab Collaborator, options ...Option) (*Double, error) {
	if collab == nil {
		return nil, newError(WrongUsage, nil, "a ProxySpy requires a collaborator")
	}
	return newDouble(ProxySpy, append([]Option{WithCollaborator(collab)}, options...)...), nil
}

func (d *Double) ID() uuid.UUID {
	return d.id
}

func (d *Double) Name() string {
	return d.name
}

func (d *Double) Variant() Variant {
	return d.variant
}

// Collaborator is nil for a free double
func (d *Double) Collaborator() Collaborator {
	return d.collab
}

func (d *Double) String() string {
	return d.name
}

// Renderer returns the renderer used for this double's calls
func (d *Double) Renderer() Renderer {
	return d.render
}

// EnableTrace logs every dispatched call, its branch and its outcome at Info level
func (d *Double) EnableTrace() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.trace = true
}

// Recording reports whether the double is between BeginSetup and EndSetup
func (d *Double) Recording() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.programmer != nil
}

func (d *Double) slot(name string) *Slot {
	s, found := d.slots[name]
	if !found {
		s = &Slot{d: d, name: name}
		d.slots[name] = s
	}
	return s
}

// Slot returns the named slot, creating it if necessary.
//
// Calls through a slot the collaborator does not know about fail with SignatureMismatch.
func (d *Double) Slot(name string) *Slot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.slot(name)
}

// Slots returns all known slots sorted by name
func (d *Double) Slots() []*Slot {
	d.mu.Lock()
	defer d.mu.Unlock()
	slots := make([]*Slot, 0, len(d.slots))
	for _, s := range d.slots {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].name < slots[j].name })
	return slots
}

// Attach registers an observer for every successful call to this double
func (d *Double) Attach(o Observer) {
	d.attach("", o)
}

func (d *Double) attach(target string, o Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, observer{target, o})
}

// Programmed returns a snapshot of the programmed ledger
func (d *Double) Programmed() *Ledger {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.programmed.newView(d.programmed.Entries())
}

// Actual returns a snapshot of the actual ledger
func (d *Double) Actual() *Ledger {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.actual.newView(d.actual.Entries())
}

// Call dispatches target(args...), where a trailing Named holds the named values
func (d *Double) Call(target string, args ...interface{}) (interface{}, error) {
	sig, err := SignatureOf(target, args...)
	if err != nil {
		return nil, err
	}
	return d.Dispatch(sig)
}

func (d *Double) validate(call *Signature) error {
	if d.collab == nil {
		return nil
	}
	return d.collab.Validate(call)
}

/*
Dispatch answers call.

A valid call is recorded in the actual ledger exactly once, then

 * a Mock performs the best matching programmed behavior, or fails with UnexpectedInvocation
 * a ProxySpy performs the best matching programmed behavior, or forwards to its collaborator
 * a Stub or Spy performs the best matching programmed behavior, or returns nil

Errors from behaviors and forwarded calls are returned unchanged. Observers are notified after a successful call.
Dispatching while recording fails with WrongUsage. A call the collaborator rejects fails with SignatureMismatch
and is not recorded.
*/
func (d *Double) Dispatch(call *Signature) (interface{}, error) {
	d.mu.Lock()
	if d.programmer != nil {
		d.mu.Unlock()
		return nil, newError(WrongUsage, call, "%s.%v called during setup", d.name, call)
	}
	if err := d.validate(call); err != nil {
		d.mu.Unlock()
		d.log.WithError(err).Debug("rejected call")
		return nil, err
	}
	actual := newRecordedCall(d.name, call)
	d.actual.Append(actual)
	matched, missed := d.programmed.LookupBestMatch(call)
	d.mu.Unlock()

	var value interface{}
	var err error
	var branch string
	switch {
	case missed == nil:
		branch = "programmed"
		value, err = matched.perform(call)
	case d.variant == Mock:
		branch = "unexpected"
		err = newError(UnexpectedInvocation, call, "this call was not expected:\n%s%s", indentation, d.render(actual))
	case d.variant == ProxySpy:
		branch = "forwarded"
		value, err = d.collab.Forward(call)
	default:
		branch = "default"
	}

	d.mu.Lock()
	actual.observe(value, err)
	observers := append([]observer(nil), d.observers...)
	trace := d.trace
	d.mu.Unlock()

	d.logDispatch(actual, branch, trace, value, err)
	if err != nil {
		return value, err
	}
	for _, o := range observers {
		if o.target == "" || o.target == call.target {
			o.fn(actual)
		}
	}
	return value, nil
}
