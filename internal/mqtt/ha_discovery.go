package mqtt

import (
	"fmt"

	"github.com/berfenger/easee2mqtt/internal/core/domain"
)

type HADiscoveryConfig struct {
	Device         HADiscoveryDevice `json:"device"`
	StateTopic     string            `json:"state_topic,omitempty"`
	CommandTopic   string            `json:"command_topic,omitempty"`
	DeviceClass    string            `json:"device_class,omitempty"`
	AvTopic        string            `json:"availability_topic,omitempty"`
	EntityCategory string            `json:"entity_category,omitempty"`
	Name           string            `json:"name"`
	UniqueId       string            `json:"unique_id"`
	Platform       string            `json:"platform"`
	PayloadOn      string            `json:"payload_on,omitempty"`
	PayloadOff     string            `json:"payload_off,omitempty"`
	PayloadPress   string            `json:"payload_press,omitempty"`
	Icon           string            `json:"icon,omitempty"`
}

type HADiscoveryDevice struct {
	Id           []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Version      string   `json:"sw_version,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name,omitempty"`
	ViaDevice    string   `json:"via_device,omitempty"`
}

func (c *MQTTClient) HADiscoverySensorTopic(sensor domain.GenericSensor) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", c.HADiscoveryPrefix(), sensor.SensorType, sensor.Device.Id, sensor.Id)
}

func (c *MQTTClient) HADiscoveryButtonTopic(button domain.GenericButton) string {
	return fmt.Sprintf("%s/button/%s/%s/config", c.HADiscoveryPrefix(), button.Device.Id, button.Id)
}

func GenericSensorToHADiscoveryMessage(client *MQTTClient, sensor domain.GenericSensor) HADiscoveryConfig {
	disConfig := HADiscoveryConfig{
		Device:         device(sensor.Device),
		StateTopic:     client.BridgeStateTopic(),
		DeviceClass:    sensor.DeviceClass,
		EntityCategory: sensor.EntityCategory,
		Name:           sensor.Name,
		UniqueId:       sensor.UniqueId,
		Icon:           sensor.Icon,
		Platform:       "mqtt",
	}
	if sensor.Id == domain.SENSOR_ID_BRIDGE_STATE {
		disConfig.PayloadOn = MQTT_PAYLOAD_ONLINE
		disConfig.PayloadOff = MQTT_PAYLOAD_OFFLINE
	} else {
		// only the bridge state has a known state topic, the rest follow availability
		disConfig.StateTopic = ""
		disConfig.AvTopic = client.BridgeStateTopic()
	}
	return disConfig
}

func GenericButtonToHADiscoveryMessage(client *MQTTClient, button domain.GenericButton) HADiscoveryConfig {
	return HADiscoveryConfig{
		Device:         device(button.Device),
		CommandTopic:   client.ButtonCommandTopic(button.ChargerId, button.Service),
		AvTopic:        client.BridgeStateTopic(),
		DeviceClass:    button.DeviceClass(),
		EntityCategory: button.EntityCategory(),
		Name:           button.Name,
		UniqueId:       button.UniqueId,
		Icon:           button.Icon,
		Platform:       "mqtt",
		PayloadPress:   MQTT_PAYLOAD_PRESS,
	}
}

func device(d domain.Device) HADiscoveryDevice {
	return HADiscoveryDevice{
		Id:           []string{d.Id},
		Manufacturer: d.Manufacturer,
		Version:      d.Version,
		Model:        d.Model,
		Name:         d.Name,
		ViaDevice:    d.ViaDevice,
	}
}
