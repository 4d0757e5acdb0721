package botclient

import (
	"fmt"
	"log"
	"sync"

	"github.com/mymmrac/telego"
)

// Cache maps bot identity names to live telego clients. Entries are
// created on first use and never evicted; a refresh only happens on a
// miss. Tokens are registered up front so lookups cannot invent
// identities.
type Cache struct {
	mu      sync.Mutex
	tokens  map[string]string
	clients map[string]*telego.Bot
	debug   bool
}

// NewCache creates an empty client cache.
func NewCache(debug bool) *Cache {
	return &Cache{
		tokens:  make(map[string]string),
		clients: make(map[string]*telego.Bot),
		debug:   debug,
	}
}

// Register associates a bot identity with its token. Registering the
// same identity twice replaces the token but keeps an existing client.
func (c *Cache) Register(identity, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[identity] = token
}

// Get returns the client for the identity, creating it on first use.
func (c *Cache) Get(identity string) (*telego.Bot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[identity]; ok {
		return client, nil
	}
	token, ok := c.tokens[identity]
	if !ok {
		return nil, fmt.Errorf("unknown bot identity %q", identity)
	}

	var client *telego.Bot
	var err error
	if c.debug {
		client, err = telego.NewBot(token, telego.WithDefaultDebugLogger())
	} else {
		client, err = telego.NewBot(token, telego.WithDefaultLogger(false, false))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create client for identity %q: %w", identity, err)
	}
	log.Printf("[ClientCache] Created client for identity %q", identity)
	c.clients[identity] = client
	return client, nil
}
