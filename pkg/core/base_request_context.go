package core

import (
	"sync"
)

// BaseRequestContext provides thread-safe key/value storage scoped to one
// request or connection. Middlewares use it to read what a handler recorded.
type BaseRequestContext struct {
	mu   sync.RWMutex
	data map[string]interface{}
}

// NewBaseRequestContext creates a new BaseRequestContext
func NewBaseRequestContext() *BaseRequestContext {
	return &BaseRequestContext{
		data: make(map[string]interface{}),
	}
}

// Set stores a value in the context
func (brc *BaseRequestContext) Set(key string, value interface{}) {
	brc.mu.Lock()
	defer brc.mu.Unlock()
	if brc.data == nil {
		brc.data = make(map[string]interface{})
	}
	brc.data[key] = value
}

// Get retrieves a value from the context
func (brc *BaseRequestContext) Get(key string) interface{} {
	brc.mu.RLock()
	defer brc.mu.RUnlock()
	return brc.data[key]
}

// GetInt retrieves an int value, returning def when missing or of another type.
func (brc *BaseRequestContext) GetInt(key string, def int) int {
	if v, ok := brc.Get(key).(int); ok {
		return v
	}
	return def
}

// GetString retrieves a string value, returning "" when missing.
func (brc *BaseRequestContext) GetString(key string) string {
	s, _ := brc.Get(key).(string)
	return s
}

// GetAll returns a copy of all stored data
func (brc *BaseRequestContext) GetAll() map[string]interface{} {
	brc.mu.RLock()
	defer brc.mu.RUnlock()
	result := make(map[string]interface{}, len(brc.data))
	for k, v := range brc.data {
		result[k] = v
	}
	return result
}

// Delete removes a value from the context
func (brc *BaseRequestContext) Delete(key string) {
	brc.mu.Lock()
	defer brc.mu.Unlock()
	delete(brc.data, key)
}
