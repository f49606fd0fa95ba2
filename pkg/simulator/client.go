package simulator

import (
	"context"
	"fmt"
	"time"
)

// Version is the API version this client speaks.
const Version = "0.9.15"

// DefaultTimeout bounds every blocking call to the server.
const DefaultTimeout = 30 * time.Second

// Option customizes a client.
type Option func(*Client)

// WithServerVersion makes the built-in server report another version.
func WithServerVersion(v string) Option {
	return func(c *Client) { c.serverVersion = v }
}

// WithWorld attaches the client to an existing world instead of creating one.
func WithWorld(w *World) Option {
	return func(c *Client) { c.world = w }
}

// WithSeed seeds the built-in world.
func WithSeed(seed uint64) Option {
	return func(c *Client) { c.seed = seed }
}

// Client is a connection to a simulation server.
type Client struct {
	host          string
	port          int
	timeout       time.Duration
	serverVersion string
	seed          uint64

	world     *World
	ownsWorld bool
}

// Dial connects to the server at host:port and checks that both sides run
// the same version. Nothing is spawned when Dial fails.
func Dial(ctx context.Context, host string, port int, opts ...Option) (*Client, error) {
	if host == "" {
		return nil, fmt.Errorf("simulator: dial: empty host")
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("simulator: dial: invalid port %d", port)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("simulator: dial %s:%d: %w", host, port, err)
	}

	c := &Client{
		host:          host,
		port:          port,
		timeout:       DefaultTimeout,
		serverVersion: Version,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.ClientVersion() != c.ServerVersion() {
		return nil, fmt.Errorf("%w: client %s, server %s",
			ErrVersionMismatch, c.ClientVersion(), c.ServerVersion())
	}

	if c.world == nil {
		c.world = NewWorld(WorldOptions{
			Seed: c.seed,
			Geo:  GeoReference{Latitude: 49.0, Longitude: 8.0, Altitude: 0},
		})
		c.ownsWorld = true
	}
	return c, nil
}

// Address returns host:port.
func (c *Client) Address() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// SetTimeout changes the bound on blocking calls.
func (c *Client) SetTimeout(d time.Duration) {
	c.timeout = d
}

// Timeout returns the bound on blocking calls.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// ClientVersion returns the version of this client.
func (c *Client) ClientVersion() string {
	return Version
}

// ServerVersion returns the version the server reported.
func (c *Client) ServerVersion() string {
	return c.serverVersion
}

// World returns the world the server is running.
func (c *Client) World() *World {
	return c.world
}

// Close releases the connection. A world created by Dial is shut down.
func (c *Client) Close() {
	if c.ownsWorld {
		c.world.Close()
	}
}
