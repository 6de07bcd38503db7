package protocol

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"
)

// Version is the wire protocol version this bridge speaks.
const Version = "1.0.0"

var majorOnlyRegex = regexp.MustCompile(`^\d+$`)

var current = masterminds.MustParse(Version)

// CheckCompatible reports whether the bridge's protocol version satisfies
// constraint. An empty constraint is always compatible; a bare major ("1")
// matches on major version only.
func CheckCompatible(constraint string) error {
	constraint = strings.TrimSpace(constraint)
	if constraint == "" {
		return nil
	}

	if majorOnlyRegex.MatchString(constraint) {
		major, err := strconv.ParseUint(constraint, 10, 64)
		if err != nil {
			return fmt.Errorf("protocol:version - invalid protocol %q: %w", constraint, err)
		}
		if major != current.Major() {
			return fmt.Errorf("protocol:version - protocol %s does not match bridge protocol %s", constraint, Version)
		}
		return nil
	}

	c, err := masterminds.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("protocol:version - invalid protocol constraint %q: %w", constraint, err)
	}
	if !c.Check(current) {
		return fmt.Errorf("protocol:version - protocol %s does not satisfy %q", Version, constraint)
	}
	return nil
}
