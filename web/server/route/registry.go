package route

import "path"

// Registry is the owning collection of all route groups, keyed by
// (mountPath, baseURL) and preserving insertion order, which determines
// mount precedence. It is mutated only during the setup phase, before the
// server starts listening, so no locking is required by contract.
type Registry struct {
	defaultBaseURL string
	groups         []*Group
	index          map[groupKey]*Group
}

type groupKey struct {
	mountPath string
	baseURL   string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[groupKey]*Group)}
}

// SetDefaultBaseURL sets the base URL used for groups that don't carry
// their own.
func (r *Registry) SetDefaultBaseURL(u string) {
	r.defaultBaseURL = u
}

// DefaultBaseURL returns the registry's default base URL.
func (r *Registry) DefaultBaseURL() string {
	return r.defaultBaseURL
}

// Route returns the group registered under (mountPath, baseURL), creating
// and registering an empty one backed by a fresh router if none exists.
// Repeated calls with the same pair return the same *Group, so callers can
// keep composing onto one chain through any handle.
func (r *Registry) Route(mountPath, baseURL string) *Group {
	key := groupKey{mountPath: mountPath, baseURL: baseURL}
	if g, ok := r.index[key]; ok {
		return g
	}

	g := newGroup(mountPath, baseURL)
	r.index[key] = g
	r.groups = append(r.groups, g)
	return g
}

// Get returns the group registered under (mountPath, baseURL) without
// creating one.
func (r *Registry) Get(mountPath, baseURL string) (*Group, bool) {
	g, ok := r.index[groupKey{mountPath: mountPath, baseURL: baseURL}]
	return g, ok
}

// Groups returns the registered groups in registration order.
func (r *Registry) Groups() []*Group {
	out := make([]*Group, len(r.groups))
	copy(out, r.groups)
	return out
}

// MountURL resolves the URL a group will be mounted at: the group's own
// base URL, or the registry default if it has none, joined with the mount
// path.
func (r *Registry) MountURL(g *Group) string {
	base := g.baseURL
	if base == "" {
		base = r.defaultBaseURL
	}
	return ResolveMount(base, g.mountPath)
}

// ResolveMount joins a base URL and a mount path into a single rooted URL,
// collapsing any run of consecutive path separators.
func ResolveMount(baseURL, mountPath string) string {
	return path.Join("/", baseURL, mountPath)
}
