// Package llm provides the model registry: a stateless selection layer
// mapping string model keys to provider constructors. It carries no
// conversation state and owns no sessions; callers obtain a provider,
// use it, and discard it.
package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Message is one turn of model input.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// NewSystemMessage creates a system-role message.
func NewSystemMessage(content string) Message {
	return Message{Role: "system", Content: content}
}

// NewUserMessage creates a user-role message.
func NewUserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// Provider is a configured language-model client.
type Provider interface {
	// Model returns the model identifier this provider targets.
	Model() string

	// Complete runs one non-streaming completion.
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Constructor builds a provider instance.
type Constructor func() (Provider, error)

// Registry maps model keys to provider constructors.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
	defaultKey   string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register binds a key to a constructor. The first key registered
// becomes the default unless SetDefault overrides it.
func (r *Registry) Register(key string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[key] = ctor
	if r.defaultKey == "" {
		r.defaultKey = key
	}
}

// SetDefault selects the key used when New is called with "".
func (r *Registry) SetDefault(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.constructors[key]; !ok {
		return fmt.Errorf("unknown model key %q", key)
	}
	r.defaultKey = key
	return nil
}

// New constructs the provider for key, or for the default key when key
// is empty.
func (r *Registry) New(key string) (Provider, error) {
	r.mu.RLock()
	if key == "" {
		key = r.defaultKey
	}
	ctor, ok := r.constructors[key]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown model key %q", key)
	}
	return ctor()
}

// Keys returns the registered model keys, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.constructors))
	for key := range r.constructors {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
