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
	"github.com/hashicorp/go-multierror"
)

// A Programmer records programmed calls while its double is Recording
type Programmer struct {
	d    *Double
	errs *multierror.Error
}

// BeginSetup switches the double to Recording and returns its Programmer.
//
// Calling BeginSetup again before EndSetup returns the same Programmer.
func (d *Double) BeginSetup() *Programmer {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.programmer == nil {
		d.programmer = &Programmer{d: d}
		d.log.Debug("begin setup")
	}
	return d.programmer
}

// EndSetup returns the double to Idle, returning every error raised while programming (nil if there were none)
func (d *Double) EndSetup() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := d.programmer
	if p == nil {
		return newError(WrongUsage, nil, "%s is not in setup", d.name)
	}
	d.programmer = nil
	err := p.errs.ErrorOrNil()
	if err != nil {
		d.log.WithError(err).Warn("setup failed")
	} else {
		d.log.WithField("programmed", d.programmed.Len()).Debug("end setup")
	}
	return err
}

// Setup runs program between BeginSetup and EndSetup. The double returns to Idle even if program panics.
func (d *Double) Setup(program func(p *Programmer)) (err error) {
	p := d.BeginSetup()
	defer func() {
		if endErr := d.EndSetup(); err == nil {
			err = endErr
		}
	}()
	program(p)
	return nil
}

func (p *Programmer) fail(err error) {
	p.errs = multierror.Append(p.errs, err)
}

// Call programs target(args...), where a trailing Named holds the named values.
//
// Errors (invalid wildcards, calls the collaborator rejects, use after EndSetup) are reported by EndSetup
// and by Programmed.Err.
func (p *Programmer) Call(target string, args ...interface{}) *Programmed {
	d := p.d
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.programmer != p {
		err := newError(WrongUsage, nil, "%s.%s programmed outside setup", d.name, target)
		return &Programmed{p: p, err: err}
	}

	sig, err := SignatureOf(target, args...)
	if err == nil {
		err = d.validate(sig)
	}
	if err != nil {
		p.fail(err)
		return &Programmed{p: p, err: err}
	}

	d.slot(target)
	entry := newRecordedCall(d.name, sig)
	d.programmed.Append(entry)
	return &Programmed{p: p, entries: []*RecordedCall{entry}}
}

// Programmed configures the behavior and repetition of one programmed call
type Programmed struct {
	p       *Programmer
	entries []*RecordedCall
	err     error
}

// Err returns the first error raised programming this call
func (c *Programmed) Err() error {
	return c.err
}

func (c *Programmed) failed(err error) *Programmed {
	c.p.d.mu.Lock()
	defer c.p.d.mu.Unlock()
	if c.stale() {
		return c
	}
	if c.err == nil {
		c.err = err
	}
	c.p.fail(err)
	return c
}

// stale records WrongUsage on a handle used after its setup ended. Call with the lock held.
func (c *Programmed) stale() bool {
	d := c.p.d
	if d.programmer == c.p {
		return false
	}
	if c.err == nil {
		c.err = newError(WrongUsage, c.entries[0].sig, "%s.%v programmed outside setup", d.name, c.entries[0].sig)
	}
	return true
}

func (c *Programmed) behave(b Behavior) *Programmed {
	if c.err != nil {
		return c
	}
	c.p.d.mu.Lock()
	defer c.p.d.mu.Unlock()
	if c.stale() {
		return c
	}
	for _, e := range c.entries {
		e.behavior = b
	}
	return c
}

// Returns programs the call to produce v
func (c *Programmed) Returns(v interface{}) *Programmed {
	return c.behave(Returns(v))
}

// ReturnsInput programs the call to produce its first positional value, which the programmed call must have
func (c *Programmed) ReturnsInput() *Programmed {
	if c.err == nil && len(c.entries[0].sig.positional) == 0 {
		return c.failed(newError(WrongUsage, c.entries[0].sig, "%v has no input args", c.entries[0].sig))
	}
	return c.behave(ReturnsInput())
}

// Raises programs the call to fail with err
func (c *Programmed) Raises(err error) *Programmed {
	return c.behave(Raises(err))
}

// Delegates programs the call with the behavior built by Delegates(x)
func (c *Programmed) Delegates(x interface{}) *Programmed {
	if c.err != nil {
		return c
	}
	b, err := Delegates(x)
	if err != nil {
		return c.failed(err)
	}
	return c.behave(b)
}

// Times leaves n identical entries for this call in the programmed ledger. n must be at least 2.
func (c *Programmed) Times(n int) *Programmed {
	if c.err != nil {
		return c
	}
	d := c.p.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if c.stale() {
		return c
	}
	if n < 2 {
		c.err = newError(InvalidRepetitionCount, c.entries[0].sig,
			"Times(%d) must be at least 2, use Called().Times(Never()) to assert no calls", n)
		c.p.fail(c.err)
		return c
	}

	first := c.entries[0]
	for i := len(c.entries); i < n; i++ {
		entry := newRecordedCall(first.owner, first.sig)
		entry.behavior = first.behavior
		d.programmed.Append(entry)
		c.entries = append(c.entries, entry)
	}
	return c
}
