package redisconn_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	redisconn "github.com/redisconn/go-redisconn"
	"github.com/redisconn/go-redisconn/test_helpers"
)

func newTestConnector(t *testing.T, params redisconn.Params, dialer *test_helpers.Dialer) *redisconn.Connector {
	t.Helper()
	c, err := redisconn.NewWithDial(params, dialer.Dial)
	if err != nil {
		t.Fatalf("NewWithDial failed: %s", err)
	}
	return c
}

func TestConnect_DirectDefaults(t *testing.T) {
	fake := &test_helpers.FakeConn{}
	dialer := &test_helpers.Dialer{
		Conns: map[string]*test_helpers.FakeConn{"127.0.0.1:6379": fake},
	}
	c := newTestConnector(t, redisconn.Params{"port": 6379}, dialer)

	conn, attempts, err := c.Connect(nil)
	assert.Nil(t, err)
	assert.NotNil(t, conn)
	assert.Len(t, attempts, 0)

	assert.Equal(t, []string{"127.0.0.1:6379"}, dialer.Dialed)
	assert.Equal(t, "tcp", dialer.Networks[0])
	// No password and database 0: neither AUTH nor SELECT is issued.
	assert.Empty(t, fake.CommandNames())
	assert.Equal(t, redisconn.Endpoint{Host: "127.0.0.1", Port: 6379}, conn.Endpoint())
}

func TestConnect_AuthThenSelect(t *testing.T) {
	fake := &test_helpers.FakeConn{}
	dialer := &test_helpers.Dialer{
		Conns: map[string]*test_helpers.FakeConn{"127.0.0.1:6379": fake},
	}
	c := newTestConnector(t, redisconn.Params{"password": "secret", "db": 4}, dialer)

	conn, _, err := c.Connect(nil)
	assert.Nil(t, err)
	assert.NotNil(t, conn)

	assert.Equal(t, []string{"AUTH", "SELECT"}, fake.CommandNames())
	assert.Equal(t, []interface{}{"secret"}, fake.Commands[0].Args)
	assert.Equal(t, []interface{}{4}, fake.Commands[1].Args)
}

func TestConnect_AuthFailureClosesSocket(t *testing.T) {
	fake := &test_helpers.FakeConn{
		Errors: map[string]error{"AUTH": errors.New("ERR invalid password")},
	}
	dialer := &test_helpers.Dialer{
		Conns: map[string]*test_helpers.FakeConn{"127.0.0.1:6379": fake},
	}
	c := newTestConnector(t, redisconn.Params{"password": "wrong"}, dialer)

	conn, attempts, err := c.Connect(nil)
	assert.Nil(t, conn)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "auth against 127.0.0.1:6379 failed")
	assert.Len(t, attempts, 1)
	assert.Equal(t, err, attempts[0])
	assert.True(t, fake.Closed)
}

func TestConnect_SelectFailureIsBestEffort(t *testing.T) {
	fake := &test_helpers.FakeConn{
		Errors: map[string]error{"SELECT": errors.New("ERR DB index is out of range")},
	}
	dialer := &test_helpers.Dialer{
		Conns: map[string]*test_helpers.FakeConn{"127.0.0.1:6379": fake},
	}
	c := newTestConnector(t, redisconn.Params{"db": 99}, dialer)

	conn, _, err := c.Connect(nil)
	assert.Nil(t, err)
	assert.NotNil(t, conn)
	assert.Equal(t, []string{"SELECT"}, fake.CommandNames())
}

func TestConnect_UnixSocket(t *testing.T) {
	fake := &test_helpers.FakeConn{}
	dialer := &test_helpers.Dialer{
		Conns: map[string]*test_helpers.FakeConn{"/tmp/redis.sock": fake},
	}
	c := newTestConnector(t, redisconn.Params{"path": "/tmp/redis.sock"}, dialer)

	conn, _, err := c.Connect(nil)
	assert.Nil(t, err)
	assert.NotNil(t, conn)
	assert.Equal(t, []string{"/tmp/redis.sock"}, dialer.Dialed)
	assert.Equal(t, "unix", dialer.Networks[0])
}

func TestConnect_ClusterNotSupported(t *testing.T) {
	dialer := &test_helpers.Dialer{}
	c := newTestConnector(t, redisconn.Params{
		"cluster_startup_nodes": []redisconn.Endpoint{{Host: "10.0.0.1", Port: 7000}},
	}, dialer)

	conn, attempts, err := c.Connect(nil)
	assert.Nil(t, conn)
	assert.Nil(t, attempts)
	assert.Equal(t, redisconn.ErrClusterNotSupported, err)
	// Fails fast: nothing was dialed.
	assert.Empty(t, dialer.Dialed)
}

func TestConnect_DSN(t *testing.T) {
	fake := &test_helpers.FakeConn{}
	dialer := &test_helpers.Dialer{
		Conns: map[string]*test_helpers.FakeConn{"10.0.0.1:6380": fake},
	}
	c := newTestConnector(t, nil, dialer)

	conn, _, err := c.Connect(redisconn.Params{"url": "redis://foo@10.0.0.1:6380/2"})
	assert.Nil(t, err)
	assert.NotNil(t, conn)

	assert.Equal(t, []string{"10.0.0.1:6380"}, dialer.Dialed)
	assert.Equal(t, []string{"AUTH", "SELECT"}, fake.CommandNames())
	assert.Equal(t, []interface{}{"foo"}, fake.Commands[0].Args)
	assert.Equal(t, []interface{}{2}, fake.Commands[1].Args)
}

func TestConnect_ExplicitParamsBeatDSN(t *testing.T) {
	fake := &test_helpers.FakeConn{}
	dialer := &test_helpers.Dialer{
		Conns: map[string]*test_helpers.FakeConn{"10.0.0.1:6380": fake},
	}
	c := newTestConnector(t, nil, dialer)

	conn, _, err := c.Connect(redisconn.Params{
		"url": "redis://foo@10.0.0.1:6380/2",
		"db":  5,
	})
	assert.Nil(t, err)
	assert.NotNil(t, conn)
	assert.Equal(t, []interface{}{5}, fake.Commands[1].Args)
}

func TestConnect_MalformedDSNIsNotFatal(t *testing.T) {
	fake := &test_helpers.FakeConn{}
	dialer := &test_helpers.Dialer{
		Conns: map[string]*test_helpers.FakeConn{"127.0.0.1:6379": fake},
	}
	c := newTestConnector(t, nil, dialer)

	// The parse failure is reported, not fatal: resolution proceeds with
	// the explicit parameters (here, the defaults).
	conn, _, err := c.Connect(redisconn.Params{"url": "redis://nonsense"})
	assert.Nil(t, err)
	assert.NotNil(t, conn)
	assert.Equal(t, []string{"127.0.0.1:6379"}, dialer.Dialed)
}

func TestConnect_RejectsUnknownCallParams(t *testing.T) {
	dialer := &test_helpers.Dialer{}
	c := newTestConnector(t, nil, dialer)

	conn, attempts, err := c.Connect(redisconn.Params{"prot": 6380})
	assert.Nil(t, conn)
	assert.Nil(t, attempts)
	assert.Equal(t, redisconn.UnknownFieldError{Field: "prot"}, err)
}

func TestTryHosts_AllFail(t *testing.T) {
	dialer := &test_helpers.Dialer{}
	c := newTestConnector(t, nil, dialer)

	endpoints := []redisconn.Endpoint{
		{Host: "10.0.0.1", Port: 6379},
		{Host: "10.0.0.2", Port: 6379},
		{Host: "10.0.0.3", Port: 6379},
	}
	conn, attempts, err := c.TryHosts(endpoints, nil)
	assert.Nil(t, conn)
	assert.Error(t, err)

	// Every endpoint contributes exactly one error and the headline error
	// is the last entry of the history.
	assert.Len(t, attempts, 3)
	assert.Equal(t, attempts[2], err)
	for i, ep := range endpoints {
		assert.Contains(t, attempts[i].Error(), ep.String())
	}
}

func TestTryHosts_FirstSuccessWins(t *testing.T) {
	fake := &test_helpers.FakeConn{}
	dialer := &test_helpers.Dialer{
		Conns: map[string]*test_helpers.FakeConn{"10.0.0.3:6379": fake},
	}
	c := newTestConnector(t, nil, dialer)

	conn, attempts, err := c.TryHosts([]redisconn.Endpoint{
		{Host: "10.0.0.1", Port: 6379},
		{Host: "10.0.0.2", Port: 6379},
		{Host: "10.0.0.3", Port: 6379},
		{Host: "10.0.0.4", Port: 6379},
	}, nil)
	assert.Nil(t, err)
	assert.NotNil(t, conn)

	// Success at the third candidate: two prior errors, no fourth dial.
	assert.Len(t, attempts, 2)
	assert.Len(t, dialer.Dialed, 3)
}

func TestTryHosts_EmptyList(t *testing.T) {
	dialer := &test_helpers.Dialer{}
	c := newTestConnector(t, nil, dialer)

	conn, attempts, err := c.TryHosts(nil, nil)
	assert.Nil(t, conn)
	assert.Nil(t, attempts)
	assert.Equal(t, redisconn.ErrNoHostsAvailable, err)
	assert.Empty(t, dialer.Dialed)
}

func TestConnectToHost_EndpointOverrides(t *testing.T) {
	fake := &test_helpers.FakeConn{}
	dialer := &test_helpers.Dialer{
		Conns: map[string]*test_helpers.FakeConn{"10.0.0.7:6379": fake},
	}
	c := newTestConnector(t, nil, dialer)

	conn, err := c.ConnectToHost(redisconn.Endpoint{
		Host:     "10.0.0.7",
		Port:     6379,
		Password: "pw",
		DB:       3,
	}, nil)
	assert.Nil(t, err)
	assert.NotNil(t, conn)
	assert.Equal(t, []string{"AUTH", "SELECT"}, fake.CommandNames())
}
