package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE    = "bridge"
	DEVICE_CLASS_CONNECTIVITY = "connectivity"
	DEVICE_CLASS_RESTART      = "restart"
	DEVICE_CLASS_UPDATE       = "update"
	ENTITY_CLASS_DIAGNOSTIC   = "diagnostic"
	ENTITY_CLASS_CONFIG       = "config"
	SENSOR_TYPE_SENSOR        = "sensor"
	SENSOR_TYPE_BINARY        = "binary_sensor"
	CHARGER_MANUFACTURER      = "Easee"
	CHARGER_MODEL             = "Charger"
)

type buttonDef struct {
	service string
	name    string
	icon    string
}

// buttons are the zero-argument charger services worth a Home Assistant button
var chargerButtons = []buttonDef{
	{SERVICE_START, "Start charging", "mdi:play"},
	{SERVICE_STOP, "Stop charging", "mdi:stop"},
	{SERVICE_PAUSE, "Pause charging", "mdi:pause"},
	{SERVICE_RESUME, "Resume charging", "mdi:play-pause"},
	{SERVICE_TOGGLE, "Toggle charging", "mdi:swap-horizontal"},
	{SERVICE_OVERRIDE_SCHEDULE, "Override schedule", "mdi:calendar-remove"},
	{SERVICE_SMART_CHARGING, "Smart charging", "mdi:lightning-bolt"},
	{SERVICE_REBOOT, "Reboot", "mdi:restart"},
	{SERVICE_UPDATE_FIRMWARE, "Update firmware", "mdi:update"},
}

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("easee_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "ACasal",
		Model:        "easee2mqtt",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("easee2mqtt %s", md5HashShort(baseTopic)),
	}
}

func ChargerDevice(chargerId string, name string) Device {
	if name == "" {
		name = fmt.Sprintf("%s %s", CHARGER_MANUFACTURER, chargerId)
	}
	return Device{
		Id:           fmt.Sprintf("easee_charger_%s", strings.ToLower(chargerId)),
		Manufacturer: CHARGER_MANUFACTURER,
		Model:        CHARGER_MODEL,
		Name:         name,
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Bridge connection state
	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

// ChargerButtons returns one button per zero-argument control service of a charger.
// Only the first button carries the full device description.
func ChargerButtons(chargerDevice Device, chargerId string) []GenericButton {

	var buttons []GenericButton

	for i, def := range chargerButtons {
		dev := chargerDevice
		if i > 0 {
			dev = IdDevice(chargerDevice)
		}
		buttons = append(buttons, GenericButton{
			Device:    dev,
			Id:        def.service,
			ChargerId: chargerId,
			Service:   def.service,
			Name:      def.name,
			UniqueId:  uniqueId(chargerDevice.Id, def.service),
			Icon:      def.icon,
		})
	}

	return buttons
}

func (b GenericButton) DeviceClass() string {
	switch b.Service {
	case SERVICE_REBOOT:
		return DEVICE_CLASS_RESTART
	case SERVICE_UPDATE_FIRMWARE:
		return DEVICE_CLASS_UPDATE
	}
	return ""
}

func (b GenericButton) EntityCategory() string {
	switch b.Service {
	case SERVICE_REBOOT, SERVICE_UPDATE_FIRMWARE:
		return ENTITY_CLASS_CONFIG
	}
	return ""
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}
