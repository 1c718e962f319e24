package port

import "github.com/berfenger/easee2mqtt/internal/core/domain"

// DeviceRegistry gives read access to the known device proxies, in
// registration order.
type DeviceRegistry interface {
	Chargers() []domain.Charger
	Circuits() []domain.Circuit
}
