package plugin

import (
	"fmt"
	"strconv"
	"strings"
)

// ABI tag supplied by the host. Modules must declare a tag with the same
// major version that is not older than MinCompatibleABI and not newer
// than ABIVersion.
const (
	ABIVersion       = "1.0.0"
	MinCompatibleABI = "1.0.0"
)

type semver [3]int

func parseSemver(s string) (semver, error) {
	var v semver
	parts := strings.Split(strings.TrimPrefix(strings.TrimSpace(s), "v"), ".")
	if len(parts) != 3 {
		return v, fmt.Errorf("malformed version %q", s)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return v, fmt.Errorf("malformed version %q", s)
		}
		v[i] = n
	}
	return v, nil
}

func (v semver) less(o semver) bool {
	for i := range v {
		if v[i] != o[i] {
			return v[i] < o[i]
		}
	}
	return false
}

// CheckABI reports whether a module's declared ABI tag can be loaded by
// this host.
func CheckABI(tag string) error {
	return checkABI(tag, ABIVersion, MinCompatibleABI)
}

func checkABI(tag, host, min string) error {
	v, err := parseSemver(tag)
	if err != nil {
		return err
	}
	h, _ := parseSemver(host)
	m, _ := parseSemver(min)
	if v[0] != h[0] {
		return fmt.Errorf("abi %s: major version differs from host %s", tag, host)
	}
	if v.less(m) {
		return fmt.Errorf("abi %s is older than minimum %s", tag, min)
	}
	if h.less(v) {
		return fmt.Errorf("abi %s is newer than host %s", tag, host)
	}
	return nil
}
