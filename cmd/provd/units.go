package main

import (
	"github.com/provd/provd/internal/system"
	"github.com/provd/provd/internal/unit"
	aurunit "github.com/provd/provd/internal/units/aur"
	commandunit "github.com/provd/provd/internal/units/command"
	fileunit "github.com/provd/provd/internal/units/file"
	flatpakunit "github.com/provd/provd/internal/units/flatpak"
	lineinfileunit "github.com/provd/provd/internal/units/lineinfile"
	mountunit "github.com/provd/provd/internal/units/mount"
	pacmanunit "github.com/provd/provd/internal/units/pacman"
	repounit "github.com/provd/provd/internal/units/repo"
	serviceunit "github.com/provd/provd/internal/units/service"
)

// newUnitRegistry wires every built-in unit handler against the given
// system.
func newUnitRegistry(sys system.System) (*unit.Registry, error) {
	registry := unit.NewRegistry()

	handlers := []unit.Handler{
		pacmanunit.New(sys),
		aurunit.NewHelper(sys),
		aurunit.NewPackage(sys),
		flatpakunit.New(sys),
		lineinfileunit.New(sys),
		fileunit.New(sys),
		mountunit.New(sys),
		serviceunit.New(sys),
		repounit.New(sys),
		commandunit.New(sys),
	}
	for _, h := range handlers {
		if err := registry.Register(h); err != nil {
			return nil, err
		}
	}

	return registry, nil
}
