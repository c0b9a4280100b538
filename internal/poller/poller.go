package poller

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"infinitive-climate/climate"
	"infinitive-climate/entity"
	"infinitive-climate/internal/events"
)

type Entity interface {
	Refresh(ctx context.Context) error
	State() (climate.State, bool)
	Snapshot() entity.Snapshot
}

// Poller refreshes the entity on a fixed interval and pushes what changed to
// the websocket and MQTT caches.
type Poller struct {
	entity   Entity
	interval time.Duration
	wsCache  *events.Cache

	mqttCache  *events.Cache
	mqttValues func(climate.State) map[string]string
}

func New(e Entity, interval time.Duration, wsCache *events.Cache) *Poller {
	return &Poller{entity: e, interval: interval, wsCache: wsCache}
}

// WithMQTT publishes per-topic values computed by values after each poll.
func (p *Poller) WithMQTT(cache *events.Cache, values func(climate.State) map[string]string) *Poller {
	p.mqttCache = cache
	p.mqttValues = values
	return p
}

func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Debug("poller stopped")
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll runs one refresh cycle. A failed refresh still publishes, since the
// entity keeps its previous state.
func (p *Poller) Poll(ctx context.Context) {
	if err := p.entity.Refresh(ctx); err != nil {
		log.Debugf("refresh failed: %s", err)
	}
	p.Publish()
}

func (p *Poller) Publish() {
	p.wsCache.Update("climate", p.entity.Snapshot())

	if p.mqttCache == nil {
		return
	}
	s, ok := p.entity.State()
	if !ok {
		return
	}
	for topic, value := range p.mqttValues(s) {
		p.mqttCache.Update(events.MqttPrefix+topic, value)
	}
}
