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
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestBehaviors(t *testing.T) {
	type test struct {
		name string
		Behavior
		call     *Signature
		expected interface{}
		err      error
	}

	tests := []test{
		{"Returns", Returns(10), MustSignature("foo", 1), 10, nil},
		{"ReturnsNil", Returns(nil), MustSignature("foo"), nil, nil},
		{"ReturnsInput", ReturnsInput(), MustSignature("foo", "in", 2), "in", nil},
		{"Raises", Raises(errBoom), MustSignature("foo"), nil, errBoom},
		{"Handler", Handler(func(call *Signature) (interface{}, error) { return call.Target(), nil }), MustSignature("foo"), "foo", nil},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			v, err := test.Perform(test.call)
			assert.Equal(t, test.expected, v)
			assert.Equal(t, test.err, err)
		})
	}

	t.Run("ReturnsInputWithoutArgs", func(t *testing.T) {
		_, err := ReturnsInput().Perform(MustSignature("foo"))
		assert.Equal(t, WrongUsage, KindOf(err))
	})
}

func TestDelegates_Func(t *testing.T) {
	tests := []struct {
		name     string
		fn       interface{}
		call     *Signature
		expected interface{}
		err      error
	}{
		{"NoResults", func() {}, MustSignature("foo"), nil, nil},
		{"Value", func(i int) int { return -i }, MustSignature("store_add", 3), -3, nil},
		{"ValueAndNilError", func(s string) (string, error) { return strings.ToUpper(s), nil }, MustSignature("foo", "x"), "X", nil},
		{"Error", func() error { return errBoom }, MustSignature("foo"), nil, errBoom},
		{"ValueAndError", func() (int, error) { return 1, errBoom }, MustSignature("foo"), 1, errBoom},
		{"ManyValues", func() (int, string) { return 1, "a" }, MustSignature("foo"), []interface{}{1, "a"}, nil},
		{"Variadic", func(i int, rest ...string) string { return fmt.Sprint(i, rest) }, MustSignature("foo", 1, "a", "b"), "1 [a b]", nil},
		{"VariadicEmpty", func(i int, rest ...string) int { return len(rest) }, MustSignature("foo", 1), 0, nil},
		{"NilArg", func(p *int) bool { return p == nil }, MustSignature("foo", nil), true, nil},
		{"Named", func(i int, named Named) interface{} { return named["k"] }, MustSignature("foo", 1, Named{"k": "v"}), "v", nil},
		{"Wildcard", func(i int) int { return i }, MustSignature("foo", 7, AnyArg), 7, nil},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			b, err := Delegates(test.fn)
			require.NoError(t, err)
			v, err := b.Perform(test.call)
			assert.Equal(t, test.expected, v)
			assert.Equal(t, test.err, err)
		})
	}
}

func TestDelegates_FuncMismatch(t *testing.T) {
	tests := []struct {
		name string
		fn   interface{}
		call *Signature
	}{
		{"TooFew", func(a, b int) {}, MustSignature("foo", 1)},
		{"TooMany", func(a int) {}, MustSignature("foo", 1, 2)},
		{"WrongType", func(a int) {}, MustSignature("foo", "x")},
		{"NilNotNilable", func(a int) {}, MustSignature("foo", nil)},
		{"UnexpectedNamed", func(a int) {}, MustSignature("foo", 1, Named{"k": 1})},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			b, err := Delegates(test.fn)
			require.NoError(t, err)
			_, err = b.Perform(test.call)
			assert.Equal(t, WrongUsage, KindOf(err))
		})
	}
}

func TestDelegates_Iterables(t *testing.T) {
	call := MustSignature("foo", "key")

	t.Run("Slice", func(t *testing.T) {
		b, err := Delegates([]int{1, 2})
		require.NoError(t, err)
		for _, expected := range []int{1, 2} {
			v, err := b.Perform(call)
			require.NoError(t, err)
			assert.Equal(t, expected, v)
		}
		_, err = b.Perform(call)
		assert.True(t, errors.Is(err, ErrDelegateExhausted))
	})

	t.Run("Array", func(t *testing.T) {
		b, err := Delegates([1]string{"only"})
		require.NoError(t, err)
		v, _ := b.Perform(call)
		assert.Equal(t, "only", v)
	})

	t.Run("Chan", func(t *testing.T) {
		ch := make(chan string, 2)
		ch <- "a"
		ch <- "b"
		close(ch)
		b, err := Delegates(ch)
		require.NoError(t, err)
		v, _ := b.Perform(call)
		assert.Equal(t, "a", v)
		v, _ = b.Perform(call)
		assert.Equal(t, "b", v)
		_, err = b.Perform(call)
		assert.Equal(t, DelegateExhausted, KindOf(err))
	})

	t.Run("ChanTimeout", func(t *testing.T) {
		b, err := Delegates(make(chan int))
		require.NoError(t, err)
		b.(*chanBehavior).sleeper = func(time.Duration) <-chan time.Time { return time.After(0) }
		_, err = b.Perform(call)
		assert.Equal(t, DelegateExhausted, KindOf(err))
	})

	t.Run("Map", func(t *testing.T) {
		b, err := Delegates(map[string]int{"key": 42})
		require.NoError(t, err)
		v, err := b.Perform(call)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
		v, err = b.Perform(MustSignature("foo", "missing"))
		require.NoError(t, err)
		assert.Nil(t, v)
		_, err = b.Perform(MustSignature("foo", 1))
		assert.Equal(t, WrongUsage, KindOf(err))
	})

	t.Run("MapUnhashableKey", func(t *testing.T) {
		b, err := Delegates(map[interface{}]int{"a": 1})
		require.NoError(t, err)
		v, err := b.Perform(MustSignature("foo", "a"))
		require.NoError(t, err)
		assert.Equal(t, 1, v)
		assert.NotPanics(t, func() {
			_, err = b.Perform(MustSignature("foo", []int{1}))
		})
		assert.Equal(t, WrongUsage, KindOf(err))
		_, err = b.Perform(MustSignature("foo", [1]interface{}{[]int{1}}))
		assert.Equal(t, WrongUsage, KindOf(err))
	})
}

func TestDelegates_Slot(t *testing.T) {
	other := NewSpy()
	require.NoError(t, other.Setup(func(p *Programmer) {
		p.Call("double", AnyArg).Delegates(func(i int) int { return i * 2 })
	}))

	b, err := Delegates(other.Slot("double"))
	require.NoError(t, err)
	v, err := b.Perform(MustSignature("twice", 21))
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Len(t, other.Slot("double").Calls(), 1)
}

func TestDelegates_RejectsNonDelegable(t *testing.T) {
	for _, x := range []interface{}{nil, 10, "string", struct{}{}, make(chan<- int)} {
		_, err := Delegates(x)
		assert.Equal(t, WrongUsage, KindOf(err), "%T", x)
	}
}

func TestSequence(t *testing.T) {
	call := MustSignature("foo")
	iter, err := Delegates([]string{"b", "c"})
	require.NoError(t, err)

	seq := Sequence(Returns("a"), iter, Raises(errBoom), Returns("d"))

	for _, expected := range []string{"a", "b", "c"} {
		v, err := seq.Perform(call)
		require.NoError(t, err)
		assert.Equal(t, expected, v)
	}
	_, err = seq.Perform(call)
	assert.Equal(t, errBoom, err)
	v, err := seq.Perform(call)
	require.NoError(t, err)
	assert.Equal(t, "d", v)
	_, err = seq.Perform(call)
	assert.Equal(t, DelegateExhausted, KindOf(err))
}

func TestReturnChannel(t *testing.T) {
	call := MustSignature("foo")
	rc := NewReturnChannel(3)
	rc.Send(1)
	rc.SendError(errBoom)
	rc.Close()

	v, err := rc.Perform(call)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	_, err = rc.Perform(call)
	assert.Equal(t, errBoom, err)
	_, err = rc.Perform(call)
	assert.Equal(t, DelegateExhausted, KindOf(err))
}

func TestReturnChannel_Timeout(t *testing.T) {
	rc := NewReturnChannel()
	var waited time.Duration
	rc.SetTimeout(time.Second, func(d time.Duration) <-chan time.Time { waited = d; return time.After(0) })

	_, err := rc.Perform(MustSignature("foo"))
	assert.Equal(t, DelegateExhausted, KindOf(err))
	assert.Equal(t, time.Second, waited)
}

func TestDelayed(t *testing.T) {
	delay := time.Duration(60) * time.Millisecond
	delayed := Delayed(Returns(55), delay)
	before := time.Now()
	v, err := delayed.Perform(MustSignature("foo"))
	require.NoError(t, err)
	assert.Equal(t, 55, v)
	assert.GreaterOrEqual(t, time.Since(before), delay)
}

func TestDelayedWithSleepFunc(t *testing.T) {
	delay := time.Duration(60) * time.Millisecond
	var received time.Duration
	delayed := Delayed(Returns(99), delay, func(d time.Duration) <-chan time.Time { received = d; return time.After(0) })
	_, _ = delayed.Perform(MustSignature("foo"))
	assert.Equal(t, delay, received)
}

func TestRandDelayed(t *testing.T) {
	max := time.Duration(60) * time.Millisecond
	var received time.Duration
	delayed := RandDelayed(Returns(99), max, func(d time.Duration) <-chan time.Time { received = d; return time.After(0) })
	v, _ := delayed.Perform(MustSignature("foo"))
	assert.Equal(t, 99, v)
	assert.Less(t, received, max)
}
