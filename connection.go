package redisconn

import (
	"strings"

	"github.com/gomodule/redigo/redis"
	"github.com/pkg/errors"
)

// Connection is a live, authenticated, database-selected connection produced
// by a Connector. It is exclusively owned by the caller, who either closes it
// or hands it back with Release. Connection implements redis.Conn.
type Connection struct {
	conn       redis.Conn
	endpoint   Endpoint
	subscribed bool
}

// Endpoint reports the candidate this connection was established against.
func (c *Connection) Endpoint() Endpoint {
	return c.endpoint
}

func (c *Connection) Do(command string, args ...interface{}) (interface{}, error) {
	c.track(command, args)
	return c.conn.Do(command, args...)
}

func (c *Connection) Send(command string, args ...interface{}) error {
	c.track(command, args)
	return c.conn.Send(command, args...)
}

func (c *Connection) Flush() error {
	return c.conn.Flush()
}

func (c *Connection) Receive() (interface{}, error) {
	return c.conn.Receive()
}

func (c *Connection) Err() error {
	return c.conn.Err()
}

func (c *Connection) Close() error {
	return c.conn.Close()
}

// Release hands the connection back to the underlying client's idle pool;
// for an unpooled connection that closes it. A connection that is mid
// subscription or carries a connection error is rejected with ErrNotReusable
// and left open, since pooling it would hand a broken connection to the next
// borrower. The caller still owns cleanup after a rejection.
func (c *Connection) Release() error {
	if c.subscribed {
		return ErrNotReusable
	}
	if err := c.conn.Err(); err != nil {
		return errors.Wrap(err, ErrNotReusable.Error())
	}
	return c.conn.Close()
}

// track follows subscription state from command traffic. A targeted
// unsubscribe may leave other channels subscribed, so only a bare
// (P)UNSUBSCRIBE clears the flag.
func (c *Connection) track(command string, args []interface{}) {
	switch strings.ToUpper(command) {
	case "SUBSCRIBE", "PSUBSCRIBE":
		c.subscribed = true
	case "UNSUBSCRIBE", "PUNSUBSCRIBE":
		if len(args) == 0 {
			c.subscribed = false
		}
	}
}
