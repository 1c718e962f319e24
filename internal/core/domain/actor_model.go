package domain

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_SERVICES     = "services"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

// ServiceCallRequest asks the service host to run one registered service.
// Data is raw, it is validated by the host against the service schema.
type ServiceCallRequest struct {
	ActorRequestMixIn
	RequestId string
	Domain    string
	Service   string
	Data      map[string]any
}

type ServiceCallResponse struct {
	ActorResponseMixIn
	RequestId string
	Domain    string
	Service   string
	Result    any
}

type ListServicesRequest struct {
	ActorRequestMixIn
}

type ListServicesResponse struct {
	ActorResponseMixIn
	Services []ServiceInfo
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishBridgeStateRequest struct {
	ActorRequestMixIn
	Online bool
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors []GenericSensor
	Buttons []GenericButton
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}

// ensure interface compliance
var _ ActorRequest = (*ServiceCallRequest)(nil)
var _ ActorResponse = (*ServiceCallResponse)(nil)
