package port

import "github.com/berfenger/easee2mqtt/internal/core/domain"

// ServiceRegistrar is the host platform facility that binds a service name
// to its handler and parameter schema.
type ServiceRegistrar interface {
	RegisterService(serviceDomain, name string, handler domain.ServiceHandler, schema domain.Schema) error
}
