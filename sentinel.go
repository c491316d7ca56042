package redisconn

import (
	"sort"
	"strconv"

	"github.com/gomodule/redigo/redis"
	"github.com/pkg/errors"
)

const loopbackHost = "127.0.0.1"

// connectViaSentinel discovers the current topology of cfg.masterName from
// the first reachable sentinel and resolves a connection matching cfg.role.
// With RoleAny an unreachable master falls back to replica discovery; the
// master's failure stays in the attempt history but is never the final
// error once a replica succeeds.
func (c *Connector) connectViaSentinel(cfg config) (*Connection, []error, error) {
	sconn, attempts, err := c.tryHosts(cfg.sentinels, cfg)
	if err != nil {
		return nil, attempts, errors.Wrap(err, "failed to connect to sentinels")
	}

	release := func() {
		if err := sconn.Release(); err != nil {
			sconn.Close()
		}
	}

	if cfg.role == RoleMaster || cfg.role == RoleAny {
		master, err := sentinelGetMaster(sconn, cfg.masterName)
		if err == nil {
			master.Password = cfg.password
			master.DB = cfg.db

			conn, err := c.connectToHost(master, cfg)
			if err == nil {
				release()
				return conn, attempts, nil
			}
			attempts = append(attempts, err)
			if cfg.role == RoleMaster {
				release()
				return nil, attempts, err
			}
		} else {
			attempts = append(attempts, err)
			if cfg.role == RoleMaster {
				release()
				return nil, attempts, err
			}
		}
	}

	replicas, err := sentinelGetReplicas(sconn, cfg.masterName)
	// The sentinel's job is done regardless of what follows.
	release()
	if err != nil {
		attempts = append(attempts, err)
		return nil, attempts, err
	}

	orderReplicas(replicas)
	for i := range replicas {
		replicas[i].Password = cfg.password
		replicas[i].DB = cfg.db
	}

	conn, replicaAttempts, err := c.tryHosts(replicas, cfg)
	attempts = append(attempts, replicaAttempts...)
	if err != nil {
		return nil, attempts, err
	}
	return conn, attempts, nil
}

// orderReplicas moves loopback replicas to the front as a locality
// preference. Non-loopback entries keep the order Sentinel reported.
func orderReplicas(replicas []Endpoint) {
	sort.SliceStable(replicas, func(i, j int) bool {
		return replicas[i].Host == loopbackHost && replicas[j].Host != loopbackHost
	})
}

// sentinelGetMaster asks a live sentinel connection for the current master
// address of the named replica set.
func sentinelGetMaster(conn *Connection, masterName string) (Endpoint, error) {
	reply, err := redis.Strings(conn.Do("SENTINEL", "get-master-addr-by-name", masterName))
	if err != nil {
		return Endpoint{}, errors.Wrapf(err, "sentinel master lookup for %q failed", masterName)
	}
	if len(reply) != 2 {
		return Endpoint{}, errors.Errorf("sentinel master lookup for %q returned %d fields", masterName, len(reply))
	}
	port, err := strconv.Atoi(reply[1])
	if err != nil {
		return Endpoint{}, errors.Wrapf(err, "sentinel master lookup for %q returned port %q", masterName, reply[1])
	}
	return Endpoint{Host: reply[0], Port: port}, nil
}

// sentinelGetReplicas asks a live sentinel connection for the replica set of
// the named master, in the order the sentinel reports it. Replicas flagged
// down are not filtered here; an unreachable one simply fails its attempt in
// the trial loop.
func sentinelGetReplicas(conn *Connection, masterName string) ([]Endpoint, error) {
	values, err := redis.Values(conn.Do("SENTINEL", "slaves", masterName))
	if err != nil {
		return nil, errors.Wrapf(err, "sentinel replica lookup for %q failed", masterName)
	}

	replicas := make([]Endpoint, 0, len(values))
	for _, v := range values {
		fields, err := redis.StringMap(v, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "sentinel replica lookup for %q returned a malformed record", masterName)
		}
		port, err := strconv.Atoi(fields["port"])
		if err != nil {
			return nil, errors.Wrapf(err, "sentinel replica lookup for %q returned port %q", masterName, fields["port"])
		}
		replicas = append(replicas, Endpoint{Host: fields["ip"], Port: port})
	}

	return replicas, nil
}
