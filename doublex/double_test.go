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
	"bytes"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type store interface {
	StoreAdd(v int) int
	Hello() error
	Named(id int, options Named) string
}

type realStore struct{}

func (realStore) StoreAdd(v int) int { return -v }

func (realStore) Hello() error { return nil }

func (realStore) Named(id int, options Named) string { return options["name"].(string) }

var errKey = errors.New("KeyError")

func TestStub_RaisesUnchanged(t *testing.T) {
	stub := NewStub()
	require.NoError(t, stub.Setup(func(p *Programmer) {
		p.Call("hello").Raises(errKey)
	}))

	_, err := stub.Call("hello")

	assert.Equal(t, errKey, err)
}

func TestStub_UnmatchedReturnsNil(t *testing.T) {
	stub := NewStub()
	require.NoError(t, stub.Setup(func(p *Programmer) {
		p.Call("foo", 1).Returns("one")
	}))

	v, err := stub.Call("foo", 2)

	assert.NoError(t, err)
	assert.Nil(t, v)
	assert.Equal(t, 1, stub.Actual().Len(), "unmatched calls are still recorded")
}

func TestProxySpy_ForwardsUnmatched(t *testing.T) {
	spy, err := NewProxySpy(MustReflect(realStore{}))
	require.NoError(t, err)
	require.NoError(t, spy.Setup(func(p *Programmer) {
		p.Call("StoreAdd", 1).Returns(100)
	}))

	forwarded, err := spy.Call("StoreAdd", 3)
	require.NoError(t, err)
	stubbed, err := spy.Call("StoreAdd", 1)
	require.NoError(t, err)

	assert.Equal(t, -3, forwarded)
	assert.Equal(t, 100, stubbed)
	assert.Equal(t, 1, spy.Actual().Count(MustSignature("StoreAdd", 3)))
	assert.NoError(t, Called().WithArgs(3).Times(Once()).Check(spy, "StoreAdd"))
	assert.Equal(t, "realStore", spy.Name())
}

func TestProxySpy_RequiresCollaborator(t *testing.T) {
	_, err := NewProxySpy(nil)
	assert.Equal(t, WrongUsage, KindOf(err))
}

func TestMock_RejectsEagerly(t *testing.T) {
	mock := NewMock()

	_, err := mock.Call("anything", 1)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedInvocation))
	assert.Equal(t, "unexpected invocation: this call was not expected:\n          Mock.anything(1)", err.Error())
	assert.Equal(t, 1, mock.Actual().Len())
}

func TestMock_AnswersProgrammedCalls(t *testing.T) {
	mock := NewMock()
	require.NoError(t, mock.Setup(func(p *Programmer) {
		p.Call("foo", AnyArg).Returns("any")
		p.Call("foo", 2).Returns("two")
	}))

	v, err := mock.Call("foo", 2)
	require.NoError(t, err)
	assert.Equal(t, "two", v)
	v, err = mock.Call("foo", 3, "x")
	require.NoError(t, err)
	assert.Equal(t, "any", v)
}

func TestDouble_Collaborator(t *testing.T) {
	shape := MustReflect((*store)(nil))

	t.Run("Slots", func(t *testing.T) {
		spy := NewSpy(WithCollaborator(shape))
		names := make([]string, 0)
		for _, s := range spy.Slots() {
			names = append(names, s.Name())
		}
		assert.Equal(t, []string{"Hello", "Named", "StoreAdd"}, names)
		assert.Equal(t, "store", spy.Name())
	})

	t.Run("RejectedCallsAreNotRecorded", func(t *testing.T) {
		spy := NewSpy(WithCollaborator(shape))
		tests := []struct {
			name string
			call func() (interface{}, error)
		}{
			{"UnknownMethod", func() (interface{}, error) { return spy.Call("Missing") }},
			{"TooFew", func() (interface{}, error) { return spy.Call("StoreAdd") }},
			{"TooMany", func() (interface{}, error) { return spy.Call("StoreAdd", 1, 2) }},
			{"WrongType", func() (interface{}, error) { return spy.Call("StoreAdd", "1") }},
			{"UnexpectedNamed", func() (interface{}, error) { return spy.Call("StoreAdd", 1, Named{"x": 1}) }},
		}
		for _, test := range tests {
			_, err := test.call()
			assert.True(t, errors.Is(err, ErrSignatureMismatch), "%s: %v", test.name, err)
		}
		assert.Zero(t, spy.Actual().Len())
	})

	t.Run("AcceptedCalls", func(t *testing.T) {
		spy := NewSpy(WithCollaborator(shape))
		_, err := spy.Call("StoreAdd", 1)
		assert.NoError(t, err)
		_, err = spy.Call("Named", 1, Named{"name": "x"})
		assert.NoError(t, err)
		_, err = spy.Call("StoreAdd", GreaterThan(1))
		assert.NoError(t, err, "matchers are not type checked")
		assert.Equal(t, 3, spy.Actual().Len())
	})

	t.Run("ProgrammingRejectedCall", func(t *testing.T) {
		stub := NewStub(WithCollaborator(shape))
		var programmed *Programmed
		err := stub.Setup(func(p *Programmer) {
			programmed = p.Call("StoreAdd", "wrong").Returns(1)
			p.Call("Missing").Returns(2)
			p.Call("StoreAdd", AnyArg).Returns(3)
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrSignatureMismatch))
		assert.Contains(t, err.Error(), "store.StoreAdd")
		assert.Contains(t, err.Error(), "has no method Missing")
		assert.Equal(t, SignatureMismatch, KindOf(programmed.Err()))
		assert.Equal(t, 1, stub.Programmed().Len())
	})
}

func TestDouble_ProxySpyNamed(t *testing.T) {
	spy, err := NewProxySpy(MustReflect(realStore{}))
	require.NoError(t, err)

	v, err := spy.Call("Named", 1, Named{"name": "forwarded"})

	require.NoError(t, err)
	assert.Equal(t, "forwarded", v)
}

func TestDouble_SetupStateMachine(t *testing.T) {
	d := NewSpy()
	assert.False(t, d.Recording())

	p := d.BeginSetup()
	assert.True(t, d.Recording())
	assert.Same(t, p, d.BeginSetup())

	_, err := d.Call("foo")
	assert.Equal(t, WrongUsage, KindOf(err), "no dispatch while recording")

	p.Call("foo").Returns(1)
	require.NoError(t, d.EndSetup())
	assert.False(t, d.Recording())
	assert.Equal(t, WrongUsage, KindOf(d.EndSetup()))

	v, err := d.Call("foo")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, d.Actual().Len())

	late := p.Call("foo").Returns(2)
	assert.Equal(t, WrongUsage, KindOf(late.Err()))
	assert.Equal(t, 1, d.Programmed().Len())

	t.Run("RetainedHandle", func(t *testing.T) {
		d := NewStub()
		var retained, delegated *Programmed
		require.NoError(t, d.Setup(func(p *Programmer) {
			retained = p.Call("foo", 1).Returns(1)
			delegated = p.Call("bar", 1)
		}))

		retained.Times(3).Returns(7)
		delegated.Delegates(42)

		assert.Equal(t, WrongUsage, KindOf(retained.Err()))
		assert.Equal(t, WrongUsage, KindOf(delegated.Err()))
		assert.Equal(t, 2, d.Programmed().Len())
		v, err := d.Call("foo", 1)
		require.NoError(t, err)
		assert.Equal(t, 1, v)
	})
}

func TestDouble_SetupEndsOnPanic(t *testing.T) {
	d := NewStub()

	assert.PanicsWithValue(t, "in setup", func() {
		_ = d.Setup(func(p *Programmer) {
			p.Call("foo").Returns(1)
			panic("in setup")
		})
	})

	assert.False(t, d.Recording())
	v, err := d.Call("foo")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestProgrammed_Times(t *testing.T) {
	d := NewMock()
	require.NoError(t, d.Setup(func(p *Programmer) {
		p.Call("foo", 1).Returns("x").Times(3)
	}))

	programmed := d.Programmed()
	require.Equal(t, 3, programmed.Len())
	for _, entry := range programmed.Entries() {
		assert.Equal(t, "Mock.foo(1)", entry.String())
		assert.Equal(t, Returns("x"), entry.Behavior())
	}

	t.Run("BehaviorAfterTimes", func(t *testing.T) {
		d := NewStub()
		require.NoError(t, d.Setup(func(p *Programmer) {
			p.Call("foo").Times(2).Returns("late")
		}))
		for _, entry := range d.Programmed().Entries() {
			assert.Equal(t, Returns("late"), entry.Behavior())
		}
	})

	for _, n := range []int{1, 0, -1} {
		d := NewMock()
		err := d.Setup(func(p *Programmer) {
			p.Call("foo").Times(n)
		})
		assert.True(t, errors.Is(err, ErrInvalidRepetitionCount), "Times(%d)", n)
		assert.Equal(t, 1, d.Programmed().Len())
	}
}

func TestProgrammer_Errors(t *testing.T) {
	d := NewStub()
	err := d.Setup(func(p *Programmer) {
		p.Call("foo", AnyArg, 1).Returns(1)
		p.Call("bar").ReturnsInput()
		p.Call("baz").Delegates(42)
		p.Call("ok", AnyArg).ReturnsInput()
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidWildcardUsage))
	assert.True(t, errors.Is(err, ErrWrongUsage))

	v, callErr := d.Call("ok", 5)
	require.NoError(t, callErr)
	assert.Equal(t, 5, v)
}

func TestSlot(t *testing.T) {
	spy := NewSpy()
	require.NoError(t, spy.Setup(func(p *Programmer) {
		p.Call("foo", AnyArg).Returns(true)
		p.Call("foo", 2).Raises(errKey)
	}))
	foo := spy.Slot("foo")

	assert.Equal(t, "method 'Spy.foo' never invoked", foo.History())

	_, _ = foo.Call(1)
	_, _ = foo.Call(2)
	_, _ = foo.Call(Named{"k": "v"})
	_, _ = spy.Call("bar")

	assert.Len(t, foo.Calls(), 3)
	assert.Equal(t, "method 'Spy.foo' was invoked this way:\n"+
		"          Spy.foo(1) -> true\n"+
		"          Spy.foo(2) !! KeyError\n"+
		"          Spy.foo(k=\"v\") -> true\n", foo.History())

	result, done := foo.Calls()[1].Result()
	assert.True(t, done)
	assert.Equal(t, errKey, result.Err)
}

func TestSlot_CollaboratorName(t *testing.T) {
	spy := NewSpy(WithCollaborator(MustReflect((*store)(nil))), WithName("Collaborator"))
	assert.Equal(t, "method 'Collaborator.StoreAdd' never invoked", spy.Slot("StoreAdd").History())
}

func TestObservers(t *testing.T) {
	spy := NewSpy(WithSlots("foo", "bar"))
	require.NoError(t, spy.Setup(func(p *Programmer) {
		p.Call("bar", "fail").Raises(errKey)
	}))

	var all, foos []string
	spy.Attach(func(call *RecordedCall) { all = append(all, call.String()) })
	spy.Slot("foo").Attach(func(call *RecordedCall) {
		foos = append(foos, call.Signature().String())
		_, done := call.Result()
		assert.True(t, done, "observers see the result")
	})

	_, _ = spy.Call("foo", 1)
	_, _ = spy.Call("bar", "fail")
	_, _ = spy.Call("bar", "ok")

	assert.Equal(t, []string{"Spy.foo(1)", "Spy.bar(\"ok\")"}, all)
	assert.Equal(t, []string{"foo(1)"}, foos)
}

func TestMethodReturning(t *testing.T) {
	method := MethodReturning(20)
	v, err := method.Call()
	require.NoError(t, err)
	assert.Equal(t, 20, v)
	v, _ = method.Call(1, "x", Named{"k": 2})
	assert.Equal(t, 20, v)
	assert.Len(t, method.Calls(), 2)

	raising := MethodRaising(errKey)
	_, err = raising.Call(1)
	assert.Equal(t, errKey, err)
}

func TestDouble_Trace(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(buf)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	spy := NewSpy(WithLogger(logger), WithName("Traced"))
	spy.EnableTrace()
	_, _ = spy.Call("foo", 1)

	assert.Contains(t, buf.String(), "dispatched")
	assert.Contains(t, buf.String(), "double=Traced")
	assert.Contains(t, buf.String(), spy.ID().String())
	assert.Contains(t, buf.String(), "branch=default")
}

func TestDouble_Renderer(t *testing.T) {
	render := func(call *RecordedCall) string { return "<" + call.Signature().Target() + ">" }
	spy := NewSpy(WithRenderer(render))
	_, _ = spy.Call("foo", 1)

	assert.Equal(t, "method 'Spy.foo' was invoked this way:\n          <foo>\n", spy.Slot("foo").History())
}

func TestDouble_Synchronized(t *testing.T) {
	spy := NewSpy(Synchronized())
	require.NoError(t, spy.Setup(func(p *Programmer) {
		p.Call("inc", AnyArg).ReturnsInput()
	}))
	var observed int32
	spy.Attach(func(*RecordedCall) { atomic.AddInt32(&observed, 1) })

	wg := sync.WaitGroup{}
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				v, err := spy.Call("inc", g)
				assert.NoError(t, err)
				assert.Equal(t, g, v)
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, 1000, spy.Actual().Len())
	assert.NoError(t, Called().WithArgs(3).Times(Exactly(100)).Check(spy, "inc"))
	assert.Equal(t, int32(1000), atomic.LoadInt32(&observed))
}
