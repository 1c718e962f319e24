package domain

import "context"

// Charger is a networked charging station. Implementations talk to the
// hardware; callers only know the id and the actions.
type Charger interface {
	Id() string
	Start(ctx context.Context) (any, error)
	Stop(ctx context.Context) (any, error)
	Pause(ctx context.Context) (any, error)
	Resume(ctx context.Context) (any, error)
	Toggle(ctx context.Context) (any, error)
	OverrideSchedule(ctx context.Context) (any, error)
	SmartCharging(ctx context.Context) (any, error)
	Reboot(ctx context.Context) (any, error)
	UpdateFirmware(ctx context.Context) (any, error)
	GetBasicChargePlan(ctx context.Context) (any, error)
}

// Circuit is a load-balancing circuit feeding one or more chargers.
type Circuit interface {
	Id() int
	// SetDynamicCurrent sets the per-phase limits in amperes. nil leaves a phase unset.
	SetDynamicCurrent(ctx context.Context, currentP1, currentP2, currentP3 *int) (any, error)
}

type BasicChargePlan struct {
	Id              string `json:"id"`
	ChargeStartTime string `json:"chargeStartTime,omitempty"`
	ChargeStopTime  string `json:"chargeStopTime,omitempty"`
	Repeat          bool   `json:"repeat"`
	Enabled         bool   `json:"isEnabled"`
}
