package termination

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	flag := FromContext(ctx)
	assert.True(t, flag.Running())

	cancel()
	assert.False(t, flag.Running())
}

func TestFromContext_Nil(t *testing.T) {
	assert.True(t, FromContext(nil).Running())
}

func TestManual(t *testing.T) {
	m := NewManual()
	assert.True(t, m.Running())
	m.Stop()
	assert.False(t, m.Running())
	m.Stop()
	assert.False(t, m.Running())
}

func TestStopAfter(t *testing.T) {
	flag := StopAfter(2)
	assert.True(t, flag.Running())
	assert.True(t, flag.Running())
	assert.False(t, flag.Running())
	assert.False(t, flag.Running())

	assert.False(t, StopAfter(0).Running())
}

func TestAny(t *testing.T) {
	m := NewManual()
	flag := Any(AlwaysRunning, m)
	assert.True(t, flag.Running())
	m.Stop()
	assert.False(t, flag.Running())
	assert.True(t, Any().Running())
}
