package scripted_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worksheet/internal/domain"
	"worksheet/internal/gateway"
	"worksheet/internal/gateway/scripted"
)

func TestScripted_ReplaysInOrder(t *testing.T) {
	boom := errors.New("boom")
	g := scripted.New(
		scripted.Step{Result: gateway.Succeeded(domain.PropertyBag{"size": "large"})},
		scripted.Step{Err: boom},
	)
	ctx := context.Background()

	res, err := g.Submit(ctx, gateway.Request{Instruction: "one"})
	require.NoError(t, err)
	assert.True(t, res.Success)

	_, err = g.Submit(ctx, gateway.Request{Instruction: "two"})
	assert.ErrorIs(t, err, boom)

	_, err = g.Submit(ctx, gateway.Request{Instruction: "three"})
	assert.ErrorIs(t, err, scripted.ErrExhausted)

	reqs := g.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "two", reqs[1].Instruction)
}

func TestScripted_Always(t *testing.T) {
	g := scripted.New()
	g.Always(scripted.Step{Result: gateway.Failed("offline")})

	for i := 0; i < 3; i++ {
		res, err := g.Submit(context.Background(), gateway.Request{})
		require.NoError(t, err)
		assert.Equal(t, "offline", res.Error)
	}
	assert.Equal(t, 3, g.Calls())
}

func TestScripted_WaitHonoursContext(t *testing.T) {
	g := scripted.New(scripted.Step{Wait: make(chan struct{})})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := g.Submit(ctx, gateway.Request{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
