package redisconn

import (
	"github.com/gomodule/redigo/redis"
)

// Pool couples a redigo idle pool with the pool identity carried in
// connection_options.
type Pool struct {
	*redis.Pool
	Name string
}

// DialFunc returns a dial function that runs a full resolution through this
// connector, in the shape redis.Pool.Dial expects. Because every invocation
// resolves from scratch, a pool built on it follows Sentinel failovers as
// idle connections get replaced.
func (c *Connector) DialFunc(params Params) func() (redis.Conn, error) {
	return func() (redis.Conn, error) {
		conn, _, err := c.Connect(params)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// NewPool builds an idle-connection pool fed by this connector.
// keepalive_poolsize bounds idle connections, keepalive_timeout expires
// them, and connection_options.pool_size bounds concurrent connections when
// set. The pool is named from connection_options.pool_name, defaulting to
// the direct endpoint's address.
func (c *Connector) NewPool(params Params) (*Pool, error) {
	cfg, err := c.callConfig(params)
	if err != nil {
		return nil, err
	}

	name := cfg.poolName
	if name == "" {
		name = cfg.endpoint().String()
	}

	return &Pool{
		Pool: &redis.Pool{
			MaxIdle:     cfg.keepalivePoolsize,
			MaxActive:   cfg.poolSize,
			IdleTimeout: cfg.keepaliveTimeout,
			Dial:        c.DialFunc(params),
		},
		Name: name,
	}, nil
}
