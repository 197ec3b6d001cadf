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
	"reflect"
	"sort"

	"github.com/pkg/errors"
)

// A Collaborator describes the shape of the real object a double stands in for.
//
// A double with a collaborator only accepts calls to its methods, with arguments the method could accept.
// A ProxySpy also forwards unmatched calls to it.
type Collaborator interface {
	// Name is used as the display name of the double
	Name() string

	// Methods lists the names of the callable methods
	Methods() []string

	// Validate checks a call's shape against the method it targets, failing with SignatureMismatch
	Validate(call *Signature) error

	// Forward performs call on the real object
	Forward(call *Signature) (interface{}, error)
}

type reflectCollaborator struct {
	name    string
	methods map[string]reflect.Type
	target  reflect.Value
}

/*
Reflect builds a Collaborator from obj using reflection.

obj is either the nil implementation of an interface - (*Iface)(nil) - which provides shape only,
or a concrete value whose exported methods are both validated against and forwarded to.
*/
func Reflect(obj interface{}) (Collaborator, error) {
	if obj == nil {
		return nil, newError(WrongUsage, nil, "cannot reflect a collaborator from nil")
	}
	t := reflect.TypeOf(obj)

	if t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Interface {
		it := t.Elem()
		c := &reflectCollaborator{name: it.Name(), methods: make(map[string]reflect.Type, it.NumMethod())}
		for i := 0; i < it.NumMethod(); i++ {
			m := it.Method(i)
			c.methods[m.Name] = m.Type
		}
		return c, nil
	}

	v := reflect.ValueOf(obj)
	name := t.Name()
	if name == "" && t.Kind() == reflect.Ptr {
		name = t.Elem().Name()
	}
	c := &reflectCollaborator{name: name, methods: make(map[string]reflect.Type, t.NumMethod()), target: v}
	for i := 0; i < t.NumMethod(); i++ {
		c.methods[t.Method(i).Name] = v.Method(i).Type()
	}
	if len(c.methods) == 0 {
		return nil, newError(WrongUsage, nil, "%v has no exported methods to reflect", t)
	}
	return c, nil
}

// MustReflect is like Reflect but panics on failure
func MustReflect(obj interface{}) Collaborator {
	c, err := Reflect(obj)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *reflectCollaborator) Name() string {
	return c.name
}

func (c *reflectCollaborator) Methods() []string {
	names := make([]string, 0, len(c.methods))
	for name := range c.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *reflectCollaborator) Validate(call *Signature) error {
	mt, found := c.methods[call.target]
	if !found {
		return newError(SignatureMismatch, call, "%s has no method %s", c.name, call.target)
	}
	if err := validateArgs(mt, call); err != nil {
		return errors.Wrapf(err, "%s.%s", c.name, call.target)
	}
	return nil
}

// validateArgs checks arity and assignability of the concrete values in call. Matchers are not checked.
// A trailing AnyArg stands for any remaining arguments, so only the values before it are checked.
func validateArgs(mt reflect.Type, call *Signature) error {
	positional := call.positional
	wild := call.hasWildcard()
	if wild {
		positional = positional[:len(positional)-1]
	}

	numIn := mt.NumIn()
	takesNamed := numIn > 0 && !mt.IsVariadic() && mt.In(numIn-1) == namedType
	fixed := numIn
	if takesNamed || mt.IsVariadic() {
		fixed--
	}

	if len(call.named) > 0 && !takesNamed {
		return newError(SignatureMismatch, call, "%v does not accept named values %v", mt, call.named.keys())
	}
	n := len(positional)
	tooFew := n < fixed && !wild
	tooMany := n > fixed && !mt.IsVariadic()
	if tooFew || tooMany {
		expected := "exactly"
		switch {
		case mt.IsVariadic():
			expected = "at least"
		case wild:
			expected = "at most"
		}
		return newError(SignatureMismatch, call, "%v takes %s %d positional arguments (%d given)", mt, expected, fixed, n)
	}

	for i, arg := range positional {
		if rank(arg) != rankConcrete {
			continue
		}
		var pt reflect.Type
		if mt.IsVariadic() && i >= fixed {
			pt = mt.In(numIn - 1).Elem()
		} else {
			pt = mt.In(i)
		}
		if _, err := argValue(arg, pt); err != nil {
			return newError(SignatureMismatch, call, "%v arg %d: %s", mt, i, messageOf(err))
		}
	}
	return nil
}

func (c *reflectCollaborator) Forward(call *Signature) (interface{}, error) {
	if !c.target.IsValid() {
		return nil, newError(WrongUsage, call, "%s is an interface shape and cannot be forwarded to", c.name)
	}
	m := c.target.MethodByName(call.target)
	if !m.IsValid() {
		return nil, newError(SignatureMismatch, call, "%s has no method %s", c.name, call.target)
	}
	return callFunc(m, call)
}

func (c *reflectCollaborator) String() string {
	return c.name
}

// messageOf returns the message of an *Error without its Kind prefix, or err.Error() otherwise
func messageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return err.Error()
}
