package redisconn

import (
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Params is a partial configuration. Keys must belong to the closed schema
// defined by DefaultParams (recursively, for nested maps such as
// connection_options); a key outside the schema fails the merge with
// UnknownFieldError.
type Params map[string]interface{}

// DefaultParams is the process-wide default configuration. It is shared by
// every Connector and never mutated: merges deep-copy both inputs.
var DefaultParams = Params{
	"connect_timeout":    100 * time.Millisecond,
	"read_timeout":       1000 * time.Millisecond,
	"keepalive_timeout":  30 * time.Second,
	"keepalive_poolsize": 30,

	"connection_options": Params{
		"pool_name": "",
		"pool_size": 0,
	},

	"host":     "127.0.0.1",
	"port":     6379,
	"path":     "",
	"password": "",
	"db":       0,
	"url":      "",

	"master_name": "mymaster",
	"role":        "master",
	"sentinels":   []Endpoint{},

	"cluster_startup_nodes": []Endpoint{},
}

// MergeParams lays overrides over defaults and returns a complete, fresh
// configuration. Nested maps merge recursively when both sides are maps.
// Neither input is modified. An override key absent from defaults fails
// with UnknownFieldError: defaults act as a closed schema.
func MergeParams(overrides, defaults Params) (Params, error) {
	merged := make(Params, len(defaults))
	for k, v := range defaults {
		merged[k] = deepCopyValue(v)
	}

	for k, v := range overrides {
		dv, ok := defaults[k]
		if !ok {
			return nil, UnknownFieldError{Field: k}
		}
		if dsub, ok := dv.(Params); ok {
			if osub, ok := asParams(v); ok {
				sub, err := MergeParams(osub, dsub)
				if err != nil {
					return nil, err
				}
				merged[k] = sub
				continue
			}
		}
		merged[k] = deepCopyValue(v)
	}

	return merged, nil
}

// overlayParams lays top over bottom without filling in defaults, so the
// result still records which fields were supplied explicitly. top is
// validated against the DefaultParams schema; bottom is assumed valid.
func overlayParams(top, bottom Params) (Params, error) {
	return overlayWithSchema(top, bottom, DefaultParams)
}

func overlayWithSchema(top, bottom, schema Params) (Params, error) {
	out := make(Params, len(bottom)+len(top))
	for k, v := range bottom {
		out[k] = deepCopyValue(v)
	}

	for k, v := range top {
		sv, ok := schema[k]
		if !ok {
			return nil, UnknownFieldError{Field: k}
		}
		if ssub, ok := sv.(Params); ok {
			if tsub, ok := asParams(v); ok {
				bsub, _ := asParams(out[k])
				sub, err := overlayWithSchema(tsub, bsub, ssub)
				if err != nil {
					return nil, err
				}
				out[k] = sub
				continue
			}
		}
		out[k] = deepCopyValue(v)
	}

	return out, nil
}

func asParams(v interface{}) (Params, bool) {
	switch v := v.(type) {
	case Params:
		return v, true
	case map[string]interface{}:
		return Params(v), true
	}
	return nil, false
}

func deepCopyValue(v interface{}) interface{} {
	switch v := v.(type) {
	case Params:
		out := make(Params, len(v))
		for k, e := range v {
			out[k] = deepCopyValue(e)
		}
		return out
	case map[string]interface{}:
		out := make(Params, len(v))
		for k, e := range v {
			out[k] = deepCopyValue(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, e := range v {
			out[i] = deepCopyValue(e)
		}
		return out
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []Endpoint:
		out := make([]Endpoint, len(v))
		copy(out, v)
		return out
	}
	return v
}

// config is the typed form of a fully merged Params, derived once per
// Connect call.
type config struct {
	connectTimeout    time.Duration
	readTimeout       time.Duration
	keepaliveTimeout  time.Duration
	keepalivePoolsize int

	poolName string
	poolSize int

	host     string
	port     int
	path     string
	password string
	db       int

	masterName string
	role       Role
	sentinels  []Endpoint

	clusterNodes []Endpoint
}

func newConfig(p Params) (config, error) {
	var cfg config
	var err error

	if cfg.connectTimeout, err = durationField(p, "connect_timeout"); err != nil {
		return cfg, err
	}
	if cfg.readTimeout, err = durationField(p, "read_timeout"); err != nil {
		return cfg, err
	}
	if cfg.keepaliveTimeout, err = durationField(p, "keepalive_timeout"); err != nil {
		return cfg, err
	}
	if cfg.keepalivePoolsize, err = intField(p, "keepalive_poolsize"); err != nil {
		return cfg, err
	}

	if opts, ok := asParams(p["connection_options"]); ok {
		if cfg.poolName, err = stringField(opts, "pool_name"); err != nil {
			return cfg, err
		}
		if cfg.poolSize, err = intField(opts, "pool_size"); err != nil {
			return cfg, err
		}
	}

	if cfg.host, err = stringField(p, "host"); err != nil {
		return cfg, err
	}
	if cfg.port, err = intField(p, "port"); err != nil {
		return cfg, err
	}
	if cfg.path, err = stringField(p, "path"); err != nil {
		return cfg, err
	}
	if cfg.password, err = stringField(p, "password"); err != nil {
		return cfg, err
	}
	if cfg.db, err = intField(p, "db"); err != nil {
		return cfg, err
	}

	if cfg.masterName, err = stringField(p, "master_name"); err != nil {
		return cfg, err
	}
	roleName, err := stringField(p, "role")
	if err != nil {
		return cfg, err
	}
	if cfg.role, err = ParseRole(roleName); err != nil {
		return cfg, err
	}
	if cfg.sentinels, err = endpointsField(p, "sentinels"); err != nil {
		return cfg, err
	}
	if cfg.clusterNodes, err = endpointsField(p, "cluster_startup_nodes"); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// endpoint shapes the direct-host fields as a single candidate.
func (cfg config) endpoint() Endpoint {
	return Endpoint{
		Host:     cfg.host,
		Port:     cfg.port,
		Path:     cfg.path,
		Password: cfg.password,
		DB:       cfg.db,
	}
}

func intField(p Params, key string) (int, error) {
	switch v := p[key].(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		if v == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, errors.Wrapf(err, "invalid %s", key)
		}
		return n, nil
	}
	return 0, errors.Errorf("invalid %s: %v", key, p[key])
}

// durationField accepts a time.Duration or a plain integer of milliseconds.
func durationField(p Params, key string) (time.Duration, error) {
	switch v := p[key].(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return v, nil
	case int:
		return time.Duration(v) * time.Millisecond, nil
	case int64:
		return time.Duration(v) * time.Millisecond, nil
	case float64:
		return time.Duration(v) * time.Millisecond, nil
	}
	return 0, errors.Errorf("invalid %s: %v", key, p[key])
}

func stringField(p Params, key string) (string, error) {
	switch v := p[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	}
	return "", errors.Errorf("invalid %s: %v", key, p[key])
}

func endpointsField(p Params, key string) ([]Endpoint, error) {
	switch v := p[key].(type) {
	case nil:
		return nil, nil
	case []Endpoint:
		return v, nil
	case []string:
		endpoints := make([]Endpoint, 0, len(v))
		for _, addr := range v {
			ep, err := parseAddr(addr)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid %s", key)
			}
			endpoints = append(endpoints, ep)
		}
		return endpoints, nil
	case []interface{}:
		endpoints := make([]Endpoint, 0, len(v))
		for _, e := range v {
			ep, err := endpointValue(e)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid %s", key)
			}
			endpoints = append(endpoints, ep)
		}
		return endpoints, nil
	}
	return nil, errors.Errorf("invalid %s: %v", key, p[key])
}

func endpointValue(v interface{}) (Endpoint, error) {
	switch v := v.(type) {
	case Endpoint:
		return v, nil
	case string:
		return parseAddr(v)
	}
	if p, ok := asParams(v); ok {
		var ep Endpoint
		var err error
		if ep.Host, err = stringField(p, "host"); err != nil {
			return ep, err
		}
		if ep.Port, err = intField(p, "port"); err != nil {
			return ep, err
		}
		if ep.Path, err = stringField(p, "path"); err != nil {
			return ep, err
		}
		if ep.Password, err = stringField(p, "password"); err != nil {
			return ep, err
		}
		if ep.DB, err = intField(p, "db"); err != nil {
			return ep, err
		}
		return ep, nil
	}
	return Endpoint{}, errors.Errorf("unsupported endpoint value: %v", v)
}

func parseAddr(addr string) (Endpoint, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return Endpoint{}, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Endpoint{}, err
	}
	return Endpoint{Host: host, Port: port}, nil
}
