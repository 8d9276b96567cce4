package plugin

import (
	"fmt"
	goplugin "plugin"

	"go.hackfix.me/gantry/web/server/route"
)

// SymbolLoader loads route registrars from Go shared objects built with
// -buildmode=plugin. The object must export
//
//	func Register(g *route.Group) error
//
// Objects without a Register symbol are skipped.
type SymbolLoader struct{}

var _ Loader = SymbolLoader{}

// Load opens the shared object at path and resolves its Register symbol.
func (SymbolLoader) Load(path string) (RegisterFunc, bool, error) {
	p, err := goplugin.Open(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed opening plugin: %w", err)
	}

	sym, err := p.Lookup("Register")
	if err != nil {
		return nil, false, nil
	}

	fn, ok := sym.(func(g *route.Group) error)
	if !ok {
		return nil, false, fmt.Errorf("plugin Register symbol has type %T, not func(*route.Group) error", sym)
	}

	return fn, true, nil
}
