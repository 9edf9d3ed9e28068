package core

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunState_FirstWriteWins(t *testing.T) {
	s := NewRunState()

	s.SetOutput("coder-1", "first")
	s.SetOutput("coder-1", "second")

	out, ok := s.Output("coder-1")
	assert.True(t, ok)
	assert.Equal(t, "first", out)
}

func TestRunState_MissingOutput(t *testing.T) {
	s := NewRunState()
	_, ok := s.Output("nope")
	assert.False(t, ok)
}

func TestRunState_OutputsReturnsCopy(t *testing.T) {
	s := NewRunState()
	s.SetOutput("a", "x")

	m := s.Outputs()
	m["a"] = "mutated"
	m["b"] = "injected"

	out, _ := s.Output("a")
	assert.Equal(t, "x", out)
	_, ok := s.Output("b")
	assert.False(t, ok)
}

func TestRunState_TokenTotal(t *testing.T) {
	s := NewRunState()
	s.SetTokens("a", 10)
	s.SetTokens("b", 32)
	assert.Equal(t, 42, s.TokenTotal())
}

func TestRunState_ConcurrentWriters(t *testing.T) {
	s := NewRunState()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("agent-%d", i)
			s.SetOutput(id, "out")
			s.SetTokens(id, 1)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, s.TokenTotal())
	assert.Len(t, s.Outputs(), 50)
}
