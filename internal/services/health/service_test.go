package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCheck(t *testing.T) {
	assert.NoError(t, NewService(nil).Check(context.Background()))
	assert.NoError(t, NewService(pingFunc(func(context.Context) error { return nil })).Check(context.Background()))

	down := errors.New("connection refused")
	assert.ErrorIs(t, NewService(pingFunc(func(context.Context) error { return down })).Check(context.Background()), down)
}
