package modules

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/quadspace/models"
)

// Module is the interface that describes a module that drives entities of a
// world.
type Module interface {
	// Returns the module name.
	Name() string

	// Initializes the module. Modules typically create their entities there.
	//
	// An error prevents the module from being attached to the world.
	Init(*models.World) error

	// Handles a world frame. Called from the world frame loop.
	HandleFrame(models.Frame)

	// Removes the entities created by the module. Called on a module whose
	// Init failed too.
	Close()
}

// Attach initializes every module with w and registers their frame handlers.
// The returned function detaches them and closes the modules.
func Attach(w *models.World, modules ...Module) (detach func(), err error) {
	var cancels []func()
	var attached []Module

	detach = func() {
		for _, cancel := range cancels {
			cancel()
		}
		for _, m := range attached {
			m.Close()
		}
	}

	for _, m := range modules {
		if err := m.Init(w); err != nil {
			m.Close()
			detach()
			return nil, errors.New("initializing module failed").
				WithTag("module", m.Name()).
				Wrap(err)
		}

		attached = append(attached, m)
		cancels = append(cancels, w.HandleFrame(m.HandleFrame))
	}

	return detach, nil
}
