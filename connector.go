// Package redisconn resolves live Redis connections from declarative
// configuration, reaching the store either directly or through a Redis
// Sentinel deployment with role-based master/replica selection and ordered
// failover across candidate endpoints.
package redisconn

import (
	"log"
	"net"
	"strconv"

	"github.com/gomodule/redigo/redis"
	"github.com/pkg/errors"
)

// Endpoint is one dialable target: tcp host+port or a unix socket path,
// with optional auth and logical database overrides. Value semantics,
// copied freely.
type Endpoint struct {
	Host     string
	Port     int
	Path     string
	Password string
	DB       int
}

func (e Endpoint) addr() (network, address string) {
	if e.Path != "" {
		return "unix", e.Path
	}
	return "tcp", net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) String() string {
	_, address := e.addr()
	return address
}

// DialFn dials one address. It matches redis.Dial and exists so tests and
// custom transports can intercept the dial boundary.
type DialFn func(network, address string, options ...redis.DialOption) (redis.Conn, error)

// Connector resolves connections. Instances hold only their merged
// configuration and may be used from any number of goroutines; every
// Connect call is independent.
type Connector struct {
	overrides Params
	dial      DialFn
}

// New creates a Connector from params merged over DefaultParams. A key
// outside the configuration schema fails with UnknownFieldError.
func New(params Params) (*Connector, error) {
	return NewWithDial(params, redis.Dial)
}

// NewWithDial is New with a custom dial function.
func NewWithDial(params Params, dial DialFn) (*Connector, error) {
	if params == nil {
		params = Params{}
	}
	// Validate the whole override set at construction time.
	if _, err := MergeParams(params, DefaultParams); err != nil {
		return nil, err
	}
	return &Connector{
		overrides: deepCopyValue(params).(Params),
		dial:      dial,
	}, nil
}

// Connect resolves one live connection using params merged over the
// connector's configuration for this call only.
//
// On success err is nil and attempts holds the failures of any candidates
// tried before the winning one. On failure err is the last candidate's
// failure and attempts holds the full ordered history, err included.
func (c *Connector) Connect(params Params) (conn *Connection, attempts []error, err error) {
	raw, err := overlayParams(params, c.overrides)
	if err != nil {
		return nil, nil, err
	}

	if url, _ := raw["url"].(string); url != "" {
		fields, err := ParseDSN(raw)
		if err != nil {
			log.Printf("redisconn: %s", err)
		}
		for k, v := range fields {
			if _, present := raw[k]; !present {
				raw[k] = v
			}
		}
	}

	merged, err := MergeParams(raw, DefaultParams)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := newConfig(merged)
	if err != nil {
		return nil, nil, err
	}

	switch {
	case len(cfg.sentinels) > 0:
		return c.connectViaSentinel(cfg)
	case len(cfg.clusterNodes) > 0:
		return nil, nil, ErrClusterNotSupported
	default:
		return c.tryHosts([]Endpoint{cfg.endpoint()}, cfg)
	}
}

// ConnectToHost establishes one connection to one endpoint, using params
// merged over the connector's configuration for timeouts only.
func (c *Connector) ConnectToHost(ep Endpoint, params Params) (*Connection, error) {
	cfg, err := c.callConfig(params)
	if err != nil {
		return nil, err
	}
	return c.connectToHost(ep, cfg)
}

// TryHosts attempts each candidate in order until one connects, with the
// result shape documented on Connect. An empty candidate list is a caller
// error: ErrNoHostsAvailable without any dial attempt.
func (c *Connector) TryHosts(endpoints []Endpoint, params Params) (*Connection, []error, error) {
	cfg, err := c.callConfig(params)
	if err != nil {
		return nil, nil, err
	}
	return c.tryHosts(endpoints, cfg)
}

func (c *Connector) callConfig(params Params) (config, error) {
	raw, err := overlayParams(params, c.overrides)
	if err != nil {
		return config{}, err
	}
	merged, err := MergeParams(raw, DefaultParams)
	if err != nil {
		return config{}, err
	}
	return newConfig(merged)
}

func (c *Connector) tryHosts(endpoints []Endpoint, cfg config) (*Connection, []error, error) {
	if len(endpoints) == 0 {
		return nil, nil, ErrNoHostsAvailable
	}

	var attempts []error
	for _, ep := range endpoints {
		conn, err := c.connectToHost(ep, cfg)
		if err == nil {
			return conn, attempts, nil
		}
		log.Printf("redisconn: %s", err)
		attempts = append(attempts, err)
	}

	return nil, attempts, attempts[len(attempts)-1]
}

// connectToHost dials one endpoint, authenticates when the endpoint carries
// a password, and selects the logical database when one is specified.
func (c *Connector) connectToHost(ep Endpoint, cfg config) (*Connection, error) {
	network, address := ep.addr()

	conn, err := c.dial(network, address,
		redis.DialConnectTimeout(cfg.connectTimeout),
		redis.DialReadTimeout(cfg.readTimeout),
		redis.DialWriteTimeout(cfg.readTimeout),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to %s failed", ep)
	}

	if ep.Password != "" {
		if _, err := conn.Do("AUTH", ep.Password); err != nil {
			conn.Close()
			return nil, errors.Wrapf(err, "auth against %s failed", ep)
		}
	}

	if ep.DB != 0 {
		// Database selection is best effort: a failed SELECT leaves the
		// connection on database 0 and is not reported.
		conn.Do("SELECT", ep.DB)
	}

	return &Connection{conn: conn, endpoint: ep}, nil
}
