package service

import (
	"github.com/berfenger/easee2mqtt/internal/core/domain"
	"github.com/berfenger/easee2mqtt/internal/core/port"
)

// Registry is the in-memory set of device proxies. It is filled once by the
// setup routine and only read afterwards.
type Registry struct {
	chargers []domain.Charger
	circuits []domain.Circuit
}

func NewRegistry(chargers []domain.Charger, circuits []domain.Circuit) *Registry {
	return &Registry{
		chargers: append([]domain.Charger(nil), chargers...),
		circuits: append([]domain.Circuit(nil), circuits...),
	}
}

func (r *Registry) Chargers() []domain.Charger {
	return r.chargers
}

func (r *Registry) Circuits() []domain.Circuit {
	return r.circuits
}

// ensure interface compliance
var _ port.DeviceRegistry = (*Registry)(nil)
