// Package plugin implements the route plugin-registration protocol: a
// Source discovers loadable units, and each unit registers its handlers on
// a route group. The loading mechanism is a collaborator, so routes can come
// from compiled-in registrations as well as from shared objects discovered
// in a directory at startup.
package plugin

import "go.hackfix.me/gantry/web/server/route"

// RegisterFunc is the registration entry point a plugin exposes. It is
// invoked with the group the plugin should attach its handlers to.
type RegisterFunc func(g *route.Group) error

// Unit is a single discovered plugin.
type Unit interface {
	// Name identifies the unit, e.g. for logging.
	Name() string
	// Register attaches the unit's handlers to the group.
	Register(g *route.Group) error
}

// Source yields a sequence of discoverable units.
type Source interface {
	Discover() ([]Unit, error)
}

// Func wraps a named registration function into a Unit.
func Func(name string, fn RegisterFunc) Unit {
	return &funcUnit{name: name, fn: fn}
}

type funcUnit struct {
	name string
	fn   RegisterFunc
}

func (u *funcUnit) Name() string { return u.name }

func (u *funcUnit) Register(g *route.Group) error { return u.fn(g) }

// Static returns a Source that yields a fixed set of units. This is the
// compiled-in registration path.
func Static(units ...Unit) Source {
	return staticSource(units)
}

type staticSource []Unit

func (s staticSource) Discover() ([]Unit, error) {
	return s, nil
}
