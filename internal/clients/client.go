// Package clients models Odoo client instances as reported by the backend.
package clients

import (
	"sort"
	"strings"
)

// Environment classifies a client's deployed branch.
type Environment string

const (
	Production  Environment = "production"
	Staging     Environment = "staging"
	Development Environment = "development"
)

// Environments lists tiers in display order.
var Environments = []Environment{Production, Staging, Development}

// Status is the health reported for a client.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusError    Status = "error"
	StatusCritical Status = "critical"
	StatusUnknown  Status = "unknown"
)

// Client identifies one Odoo environment instance.
type Client struct {
	Name        string      `json:"name"`
	BaseName    string      `json:"base_name,omitempty"`
	Branch      string      `json:"branch,omitempty"`
	Environment Environment `json:"environment,omitempty"`
	Status      Status      `json:"status,omitempty"`
	URL         string      `json:"url,omitempty"`
	Version     string      `json:"version,omitempty"`
	DockerState string      `json:"docker_status,omitempty"`
}

// suffixes maps name tokens to the environment they mark.
var suffixes = map[string]Environment{
	"prod":        Production,
	"production":  Production,
	"staging":     Staging,
	"stage":       Staging,
	"dev":         Development,
	"development": Development,
}

// splitName finds the first environment marker after the leading token.
// It returns the base name and the marked environment, or ok=false.
func splitName(name string) (base string, env Environment, ok bool) {
	tokens := strings.Split(name, "-")
	for i := 1; i < len(tokens); i++ {
		if e, found := suffixes[strings.ToLower(tokens[i])]; found {
			return strings.Join(tokens[:i], "-"), e, true
		}
	}
	return name, "", false
}

// Normalize fills derived fields. Explicit backend fields always win.
func (c Client) Normalize() Client {
	base, env, ok := splitName(c.Name)
	if c.BaseName == "" {
		c.BaseName = base
	}
	if c.Environment == "" {
		if ok {
			c.Environment = env
		} else {
			c.Environment = Production
		}
	}
	c.Environment = ParseEnvironment(string(c.Environment))
	c.Status = ParseStatus(string(c.Status))
	return c
}

// BranchOrDerived returns the branch, or the part of the name after the
// base name when the backend didn't report one.
func (c Client) BranchOrDerived() string {
	if c.Branch != "" {
		return c.Branch
	}
	base := c.BaseName
	if base == "" {
		base, _, _ = splitName(c.Name)
	}
	if rest := strings.TrimPrefix(c.Name, base+"-"); rest != c.Name && rest != "" {
		return rest
	}
	return c.Name
}

// SameBase reports whether both clients belong to the same base client.
func (c Client) SameBase(other Client) bool {
	return c.BaseName != "" && c.BaseName == other.BaseName
}

// ParseEnvironment maps loose spellings to an Environment.
func ParseEnvironment(s string) Environment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "staging", "stage":
		return Staging
	case "development", "dev":
		return Development
	default:
		return Production
	}
}

// ParseStatus maps a backend status string, defaulting to unknown.
func ParseStatus(s string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusHealthy:
		return StatusHealthy
	case StatusWarning:
		return StatusWarning
	case StatusError:
		return StatusError
	case StatusCritical:
		return StatusCritical
	default:
		return StatusUnknown
	}
}

// NormalizeAll normalizes and sorts clients by base name, tier, then name.
func NormalizeAll(list []Client) []Client {
	out := make([]Client, len(list))
	for i, c := range list {
		out[i] = c.Normalize()
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.BaseName != b.BaseName {
			return a.BaseName < b.BaseName
		}
		if ra, rb := envRank(a.Environment), envRank(b.Environment); ra != rb {
			return ra < rb
		}
		return a.Name < b.Name
	})
	return out
}

func envRank(e Environment) int {
	for i, env := range Environments {
		if env == e {
			return i
		}
	}
	return len(Environments)
}

// Find returns the client with the given name.
func Find(list []Client, name string) (Client, bool) {
	for _, c := range list {
		if c.Name == name {
			return c, true
		}
	}
	return Client{}, false
}
