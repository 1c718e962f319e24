package mqtt

import (
	"testing"

	"github.com/berfenger/easee2mqtt/internal/core/domain"

	"github.com/stretchr/testify/assert"
)

func TestButtonDiscoveryMessage(t *testing.T) {

	assert := assert.New(t)

	client := testClient()
	dev := domain.ChargerDevice("EH12345", "")
	buttons := domain.ChargerButtons(dev, "EH12345")

	var reboot domain.GenericButton
	for _, b := range buttons {
		if b.Service == domain.SERVICE_REBOOT {
			reboot = b
		}
	}

	msg := GenericButtonToHADiscoveryMessage(client, reboot)
	assert.Equal("loremTopic/charger/EH12345/reboot/press", msg.CommandTopic)
	assert.Equal("loremTopic/bridge/state", msg.AvTopic)
	assert.Equal(domain.DEVICE_CLASS_RESTART, msg.DeviceClass)
	assert.Equal(domain.ENTITY_CLASS_CONFIG, msg.EntityCategory)
	assert.Equal(MQTT_PAYLOAD_PRESS, msg.PayloadPress)
	assert.Equal([]string{dev.Id}, msg.Device.Id)
	assert.Equal("homeassistant/button/easee_charger_eh12345/reboot/config", client.HADiscoveryButtonTopic(reboot))
}

func TestBridgeSensorDiscoveryMessage(t *testing.T) {

	assert := assert.New(t)

	client := testClient()
	sensors := domain.BridgeSensors(domain.BridgeDevice("loremTopic"))
	assert.Len(sensors, 1)

	msg := GenericSensorToHADiscoveryMessage(client, sensors[0])
	assert.Equal("loremTopic/bridge/state", msg.StateTopic)
	assert.Equal(MQTT_PAYLOAD_ONLINE, msg.PayloadOn)
	assert.Equal(MQTT_PAYLOAD_OFFLINE, msg.PayloadOff)
	assert.Equal(domain.DEVICE_CLASS_CONNECTIVITY, msg.DeviceClass)
}
