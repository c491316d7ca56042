package redisconn

import (
	"fmt"
	"regexp"
)

var (
	redisDSNRe    = regexp.MustCompile(`^redis://(?:([^@]*)@)?([^:/@]+):(\d+)(?:/(\d+))?$`)
	sentinelDSNRe = regexp.MustCompile(`^sentinel://(?:([^@]*)@)?([^:/@]+):([msa])(?:/(\d+))?$`)
)

// ParseDSN extracts connection fields from the "url" entry of params.
//
// Two grammars are recognized:
//
//	redis://[password@]host:port[/db]
//	sentinel://[password@]master_name:role[/db]    role is m|s|a
//
// The returned Params holds only the fields the URL implies: a field the
// caller already carries in params is left out so explicit parameters always
// win, and password is omitted entirely when the URL has no credential
// segment. params itself is never modified. An unrecognized URL yields a
// DSNError and an empty fill set.
func ParseDSN(params Params) (Params, error) {
	url, _ := params["url"].(string)
	if url == "" {
		return Params{}, nil
	}

	var fields Params
	switch {
	case redisDSNRe.MatchString(url):
		m := redisDSNRe.FindStringSubmatch(url)
		fields = Params{
			"host": m[2],
			"port": m[3],
		}
		if m[1] != "" {
			fields["password"] = m[1]
		}
		if m[4] != "" {
			fields["db"] = m[4]
		}

	case sentinelDSNRe.MatchString(url):
		m := sentinelDSNRe.FindStringSubmatch(url)
		fields = Params{
			"master_name": m[2],
			"role":        roleName(m[3]),
		}
		if m[1] != "" {
			fields["password"] = m[1]
		}
		if m[4] != "" {
			fields["db"] = m[4]
		}

	default:
		return Params{}, DSNError{Cause: fmt.Sprintf("unrecognized URL %q", url)}
	}

	for k := range fields {
		if _, present := params[k]; present {
			delete(fields, k)
		}
	}

	return fields, nil
}

func roleName(token string) string {
	switch token {
	case "m":
		return "master"
	case "s":
		return "slave"
	}
	return "any"
}
