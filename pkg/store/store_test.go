package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemonberrylabs/intcalc/pkg/types"
)

func TestRecordAndGet(t *testing.T) {
	s := New(0)
	e := s.Record("1+1", 2, []Token{{Kind: "INTLTR", Text: "1"}}, nil, nil)

	require.NotEmpty(t, e.ID)
	assert.False(t, e.CreateTime.IsZero())

	got, err := s.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, EvaluationSucceeded, got.State)
	assert.Equal(t, int64(2), got.Value)
	assert.Nil(t, got.Error)
}

func TestRecordFailure(t *testing.T) {
	s := New(0)

	e := s.Record("1/0", 0, nil, nil, types.NewZeroDivisionError())
	assert.Equal(t, EvaluationFailed, e.State)
	require.NotNil(t, e.Error)
	assert.Equal(t, "division by zero", e.Error.Message)
	assert.Equal(t, []string{types.TagZeroDivisionError}, e.Error.Tags)

	e = s.Record("x", 5, nil, nil, errors.New("boom"))
	assert.Equal(t, int64(0), e.Value)
	assert.Equal(t, "boom", e.Error.Message)
	assert.Empty(t, e.Error.Tags)
}

func TestGetMissing(t *testing.T) {
	_, err := New(0).Get("nope")
	ce, ok := types.AsCalcError(err)
	require.True(t, ok)
	assert.True(t, ce.HasTag(types.TagNotFound))
}

func TestListNewestFirst(t *testing.T) {
	s := New(0)
	for i := 0; i < 5; i++ {
		s.Record(fmt.Sprint(i), int64(i), nil, nil, nil)
	}

	all := s.List(0)
	require.Len(t, all, 5)
	assert.Equal(t, "4", all[0].Expression)
	assert.Equal(t, "0", all[4].Expression)

	two := s.List(2)
	require.Len(t, two, 2)
	assert.Equal(t, "3", two[1].Expression)
}

func TestCapacityEvictsOldest(t *testing.T) {
	s := New(3)
	first := s.Record("first", 1, nil, nil, nil)
	for i := 0; i < 3; i++ {
		s.Record(fmt.Sprint(i), int64(i), nil, nil, nil)
	}

	assert.Equal(t, 3, s.Len())
	_, err := s.Get(first.ID)
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	s := New(0)
	a := s.Record("a", 1, nil, nil, nil)
	b := s.Record("b", 2, nil, nil, nil)

	require.NoError(t, s.Delete(a.ID))
	assert.Error(t, s.Delete(a.ID))
	assert.Equal(t, 1, s.Len())

	list := s.List(0)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
}

func TestConcurrentRecord(t *testing.T) {
	s := New(50)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				e := s.Record(fmt.Sprintf("%d-%d", i, j), 0, nil, nil, nil)
				_, _ = s.Get(e.ID)
				s.List(5)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, s.Len())
}
