package poller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infinitive-climate/climate"
	"infinitive-climate/entity"
	"infinitive-climate/internal/events"
)

type fakeEntity struct {
	mu        sync.Mutex
	refreshes int
	state     *climate.State
	err       error
}

func (f *fakeEntity) Refresh(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return f.err
}

func (f *fakeEntity) State() (climate.State, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == nil {
		return climate.State{}, false
	}
	return *f.state, true
}

func (f *fakeEntity) Snapshot() entity.Snapshot {
	s, ok := f.State()
	snap := entity.Snapshot{Available: ok}
	if ok {
		snap.State = &s
	}
	return snap
}

func (f *fakeEntity) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshes
}

type recordingPublisher struct {
	mu  sync.Mutex
	pub map[string]string
}

func (r *recordingPublisher) Publish(topic, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pub[topic] = value
}

func TestPollPublishes(t *testing.T) {
	d := events.NewDispatcher()
	rp := &recordingPublisher{pub: map[string]string{}}
	d.SetPublisher(rp)
	wsCache := events.NewCache(d)
	mqttCache := events.NewCache(d)

	ent := &fakeEntity{state: &climate.State{HVACMode: climate.ModeCool, Stage: 1}}
	p := New(ent, time.Minute, wsCache).WithMQTT(mqttCache, func(s climate.State) map[string]string {
		return map[string]string{"t/hvac_mode": string(s.HVACMode)}
	})

	p.Poll(context.Background())

	snap, ok := wsCache.Get("climate").(entity.Snapshot)
	require.True(t, ok)
	assert.True(t, snap.Available)
	assert.Equal(t, "cool", rp.pub["t/hvac_mode"])
	assert.Equal(t, 1, ent.count())
}

func TestPollUnavailableSkipsMQTT(t *testing.T) {
	d := events.NewDispatcher()
	rp := &recordingPublisher{pub: map[string]string{}}
	d.SetPublisher(rp)

	ent := &fakeEntity{err: climate.ErrMalformedStatus}
	p := New(ent, time.Minute, events.NewCache(d)).WithMQTT(events.NewCache(d), func(s climate.State) map[string]string {
		t.Fatal("values called without state")
		return nil
	})
	p.Poll(context.Background())
	assert.Empty(t, rp.pub)
}

func TestRunStopsOnCancel(t *testing.T) {
	d := events.NewDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)

	ent := &fakeEntity{}
	p := New(ent, 5*time.Millisecond, events.NewCache(d))

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return ent.count() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}
