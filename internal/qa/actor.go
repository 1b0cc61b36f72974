package qa

import (
	"strings"

	"github.com/zulandar/switchboard/internal/errdefs"
)

// Capability is a role an actor carries for QA writes.
type Capability string

const (
	CapabilityReviewer  Capability = "reviewer"
	CapabilityDeveloper Capability = "developer"
)

// Valid reports whether c is a known capability.
func (c Capability) Valid() bool {
	switch c {
	case CapabilityReviewer, CapabilityDeveloper:
		return true
	}
	return false
}

// Actor is the identity performing a QA write. It is always passed in
// explicitly; there is no ambient current user.
type Actor struct {
	Identity     string
	Capabilities []Capability
}

// NewActor validates identity and capabilities.
func NewActor(identity string, caps ...Capability) (Actor, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return Actor{}, errdefs.Validationf("actor_identity is required")
	}
	if len(caps) == 0 {
		return Actor{}, errdefs.Validationf("actor %s carries no capability", identity)
	}
	for _, c := range caps {
		if !c.Valid() {
			return Actor{}, errdefs.Validationf("capability %q is not one of reviewer, developer", c)
		}
	}
	return Actor{Identity: identity, Capabilities: caps}, nil
}

// ParseCapabilities splits a comma-separated list such as "reviewer,developer".
func ParseCapabilities(raw string) ([]Capability, error) {
	var caps []Capability
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		c := Capability(part)
		if !c.Valid() {
			return nil, errdefs.Validationf("capability %q is not one of reviewer, developer", part)
		}
		caps = append(caps, c)
	}
	if len(caps) == 0 {
		return nil, errdefs.Validationf("role_capability is required")
	}
	return caps, nil
}

// Can reports whether the actor holds c. Developers can do everything
// reviewers can.
func (a Actor) Can(c Capability) bool {
	for _, have := range a.Capabilities {
		if have == c || have == CapabilityDeveloper {
			return true
		}
	}
	return false
}
