// Package test_helpers provides scripted redis.Conn fakes so resolution
// logic can be exercised at the dial boundary without a live server.
package test_helpers

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gomodule/redigo/redis"
)

// Command is one recorded command with its arguments.
type Command struct {
	Name string
	Args []interface{}
}

// FakeConn is a scripted redis.Conn. Do records the command and answers from
// Replies/Errors, keyed by the uppercased command name; SENTINEL commands are
// keyed together with their subcommand ("SENTINEL SLAVES").
type FakeConn struct {
	mu       sync.Mutex
	Commands []Command

	Replies map[string]interface{}
	Errors  map[string]error

	// ConnErr is reported by Err, marking the connection broken.
	ConnErr error

	Closed bool
}

func replyKey(command string, args []interface{}) string {
	key := strings.ToUpper(command)
	if key == "SENTINEL" && len(args) > 0 {
		key = key + " " + strings.ToUpper(fmt.Sprint(args[0]))
	}
	return key
}

func (c *FakeConn) Do(command string, args ...interface{}) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Commands = append(c.Commands, Command{Name: command, Args: args})

	key := replyKey(command, args)
	if err, ok := c.Errors[key]; ok {
		return nil, err
	}
	return c.Replies[key], nil
}

func (c *FakeConn) Send(command string, args ...interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Commands = append(c.Commands, Command{Name: command, Args: args})
	return nil
}

func (c *FakeConn) Flush() error {
	return nil
}

func (c *FakeConn) Receive() (interface{}, error) {
	return nil, nil
}

func (c *FakeConn) Err() error {
	return c.ConnErr
}

func (c *FakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Closed = true
	return nil
}

// CommandNames lists the recorded command names in order.
func (c *FakeConn) CommandNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, len(c.Commands))
	for i, cmd := range c.Commands {
		names[i] = strings.ToUpper(cmd.Name)
	}
	return names
}

// Dialer hands out scripted connections per address and records every dial
// in order. Addresses with neither a conn nor an error dial as refused.
type Dialer struct {
	mu sync.Mutex

	Conns  map[string]*FakeConn
	Errors map[string]error

	Dialed   []string
	Networks []string
}

// Dial matches the redisconn.DialFn shape.
func (d *Dialer) Dial(network, address string, options ...redis.DialOption) (redis.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Dialed = append(d.Dialed, address)
	d.Networks = append(d.Networks, network)

	if err, ok := d.Errors[address]; ok {
		return nil, err
	}
	if conn, ok := d.Conns[address]; ok {
		return conn, nil
	}
	return nil, fmt.Errorf("dial %s %s: connection refused", network, address)
}

// MasterAddrReply shapes a SENTINEL get-master-addr-by-name reply.
func MasterAddrReply(host, port string) interface{} {
	return []interface{}{[]byte(host), []byte(port)}
}

// SlavesReply shapes a SENTINEL slaves reply from "host:port" pairs, in the
// given order.
func SlavesReply(addrs ...string) interface{} {
	records := make([]interface{}, 0, len(addrs))
	for _, addr := range addrs {
		parts := strings.SplitN(addr, ":", 2)
		records = append(records, []interface{}{
			[]byte("ip"), []byte(parts[0]),
			[]byte("port"), []byte(parts[1]),
			[]byte("flags"), []byte("slave"),
		})
	}
	return records
}
