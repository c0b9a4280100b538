package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu  sync.Mutex
	pub map[string]string
}

func (f *fakePublisher) Publish(topic, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pub == nil {
		f.pub = map[string]string{}
	}
	f.pub[topic] = value
}

func startDispatcher(t *testing.T) *Dispatcher {
	d := NewDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go d.Run(ctx)
	return d
}

func receive(t *testing.T, l *Listener) broadcastEvent {
	t.Helper()
	select {
	case msg, ok := <-l.Ch:
		require.True(t, ok, "listener closed")
		var ev broadcastEvent
		require.NoError(t, json.Unmarshal(msg, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return broadcastEvent{}
}

func TestBroadcastReachesListener(t *testing.T) {
	d := startDispatcher(t)
	l := NewListener()
	require.True(t, d.Register(l))

	d.BroadcastEvent("climate", map[string]int{"stage": 1})
	ev := receive(t, l)
	assert.Equal(t, "climate", ev.Source)
	assert.Equal(t, map[string]interface{}{"stage": 1.0}, ev.Data)
}

func TestMqttSourcesGoToPublisher(t *testing.T) {
	d := NewDispatcher()
	p := &fakePublisher{}
	d.SetPublisher(p)

	d.BroadcastEvent("mqtt/infinitive/climate/hvac_mode", "cool")
	assert.Equal(t, map[string]string{"infinitive/climate/hvac_mode": "cool"}, p.pub)
	assert.Empty(t, d.broadcast)
}

func TestCacheBroadcastsOnlyChanges(t *testing.T) {
	d := NewDispatcher()
	p := &fakePublisher{}
	d.SetPublisher(p)
	c := NewCache(d)

	c.Update("mqtt/t/stage", 1)
	c.Update("mqtt/t/stage", 1)
	p.pub = nil
	c.Update("mqtt/t/stage", 1)
	assert.Nil(t, p.pub)

	c.Update("mqtt/t/stage", 2)
	assert.Equal(t, "2", p.pub["t/stage"])
	assert.Equal(t, 2, c.Get("mqtt/t/stage"))

	dump := c.Dump()
	assert.Len(t, dump, 1)
	c.Clear()
	assert.Nil(t, c.Get("mqtt/t/stage"))
}

func TestDeregisterClosesListener(t *testing.T) {
	d := startDispatcher(t)
	l := NewListener()
	require.True(t, d.Register(l))
	d.Deregister(l)

	select {
	case _, ok := <-l.Ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("listener not closed")
	}
}

func TestRegisterAfterStop(t *testing.T) {
	d := NewDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped
	assert.False(t, d.Register(NewListener()))
}
