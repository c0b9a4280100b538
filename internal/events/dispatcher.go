package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// MqttPrefix marks event sources that go to the MQTT broker instead of
// websocket listeners. The rest of the source is the topic.
const MqttPrefix = "mqtt/"

type Listener struct {
	Ch chan []byte
}

func NewListener() *Listener {
	return &Listener{Ch: make(chan []byte, 32)}
}

// Publisher sends a retained value to a broker topic.
type Publisher interface {
	Publish(topic string, value string)
}

type Dispatcher struct {
	listeners  map[*Listener]bool
	broadcast  chan []byte
	register   chan *Listener
	deregister chan *Listener
	done       chan struct{}
	mqtt       Publisher
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Listener),
		deregister: make(chan *Listener),
		listeners:  make(map[*Listener]bool),
		done:       make(chan struct{}),
	}
}

// SetPublisher must be called before Run.
func (d *Dispatcher) SetPublisher(p Publisher) {
	d.mqtt = p
}

type broadcastEvent struct {
	Source string      `json:"source"`
	Data   interface{} `json:"data"`
}

func SerializeEvent(source string, data interface{}) []byte {
	msg, err := json.Marshal(&broadcastEvent{Source: source, Data: data})
	if err != nil {
		log.Errorf("failed to serialize %s event: %s", source, err)
	}
	return msg
}

func (d *Dispatcher) BroadcastEvent(source string, data interface{}) {
	if strings.HasPrefix(source, MqttPrefix) {
		if d.mqtt != nil {
			topic := source[len(MqttPrefix):]
			value := fmt.Sprintf("%v", data)
			log.Debugf("MQTT PUB: %s -> %s", topic, value)
			d.mqtt.Publish(topic, value)
		}
		return
	}
	select {
	case d.broadcast <- SerializeEvent(source, data):
	default:
		log.Warnf("event queue full, dropping %s event", source)
	}
}

// Register adds l to the broadcast set. It reports false once the
// dispatcher has stopped.
func (d *Dispatcher) Register(l *Listener) bool {
	select {
	case d.register <- l:
		return true
	case <-d.done:
		return false
	}
}

func (d *Dispatcher) Deregister(l *Listener) {
	select {
	case d.deregister <- l:
	case <-d.done:
	}
}

// Run owns the listener set until ctx is done. A listener that cannot keep
// up is dropped and its channel closed.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(d.done)
			for listener := range d.listeners {
				close(listener.Ch)
				delete(d.listeners, listener)
			}
			return
		case listener := <-d.register:
			d.listeners[listener] = true
		case listener := <-d.deregister:
			if _, ok := d.listeners[listener]; ok {
				delete(d.listeners, listener)
				close(listener.Ch)
			}
		case message := <-d.broadcast:
			for listener := range d.listeners {
				select {
				case listener.Ch <- message:
				default:
					close(listener.Ch)
					delete(d.listeners, listener)
				}
			}
		}
	}
}
