package redisconn

import "github.com/pkg/errors"

// Role selects which member of a monitored replica set a resolution
// should target.
type Role uint32

const (
	// RoleMaster resolves to the current master only.
	RoleMaster Role = iota

	// RoleSlave resolves to one of the replicas.
	RoleSlave

	// RoleAny prefers the master and falls back to a replica when the
	// master is unreachable.
	RoleAny
)

func (r Role) String() string {
	switch r {
	case RoleMaster:
		return "master"
	case RoleSlave:
		return "slave"
	case RoleAny:
		return "any"
	}
	return "unknown"
}

// ParseRole maps the textual role names accepted in configuration.
func ParseRole(s string) (Role, error) {
	switch s {
	case "master":
		return RoleMaster, nil
	case "slave":
		return RoleSlave, nil
	case "any":
		return RoleAny, nil
	}
	return RoleMaster, errors.Errorf("unknown role %q", s)
}
