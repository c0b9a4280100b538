package events

import (
	"reflect"
	"sync"
)

type cacheMapType map[string]interface{}

// Cache keeps the last value seen per source and forwards a value to the
// dispatcher only when it differs from the cached one.
type Cache struct {
	cacheMap   cacheMapType
	cacheMutex sync.Mutex
	dispatcher *Dispatcher
}

func NewCache(d *Dispatcher) *Cache {
	return &Cache{cacheMap: make(cacheMapType), dispatcher: d}
}

func (c *Cache) Update(name string, data interface{}) {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()

	old, seen := c.cacheMap[name]
	if !seen || !reflect.DeepEqual(old, data) {
		c.dispatcher.BroadcastEvent(name, data)
		c.cacheMap[name] = data
	}
}

func (c *Cache) Get(name string) interface{} {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()

	return c.cacheMap[name]
}

func (c *Cache) Clear() {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()

	c.cacheMap = make(cacheMapType)
}

func (c *Cache) Dump() map[string]interface{} {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()

	n := make(map[string]interface{})
	for k, v := range c.cacheMap {
		n[k] = v
	}
	return n
}
