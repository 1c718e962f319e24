package domain

type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
	ViaDevice    string
}

type GenericSensor struct {
	Device            Device
	Id                string
	SensorType        string
	Name              string
	UniqueId          string
	UnitOfMeasurement string
	StateClass        string
	DeviceClass       string // connectivity, nil
	EntityCategory    string // diagnostic, config, nil
	EnabledByDefault  *bool
	Icon              string
}

// GenericButton is a stateless entity that triggers one charger service when pressed.
type GenericButton struct {
	Device    Device
	Id        string
	ChargerId string
	Service   string
	Name      string
	UniqueId  string
	Icon      string
}
