// Package coordinator gates which host may run shared-tier-affecting
// cleaning modes.
//
// The designation is a static configuration convention, not a lease:
// there is no runtime mutual exclusion, and two hosts misconfigured
// with the same designation would race. Deployments that need a real
// lock should front this with one.
package coordinator

import (
	"github.com/scour-io/scour/internal/logging"
)

// Coordinator knows this host's identity and the fleet's designated
// shared-tier host.
type Coordinator struct {
	host       string
	designated string
	log        *logging.Logger
}

// New creates a Coordinator. designated may be empty, in which case no
// host on the fleet touches the shared tier.
func New(host, designated string, log *logging.Logger) *Coordinator {
	return &Coordinator{host: host, designated: designated, log: log}
}

// Host returns this host's identifier.
func (c *Coordinator) Host() string { return c.host }

// IsDesignated reports whether this host is the designated one.
func (c *Coordinator) IsDesignated() bool {
	return c.designated != "" && c.host == c.designated
}

// AllowShared reports whether a shared-tier-affecting mode may run
// here. On any other host the mode is a logged no-op, not an error.
func (c *Coordinator) AllowShared(mode string) bool {
	if c.IsDesignated() {
		return true
	}
	c.log.Infof("skipping shared-tier mode on non-designated host", map[string]any{
		"mode":       mode,
		"designated": c.designated,
	})
	return false
}
