package domain

import "context"

const (
	SERVICE_DOMAIN = "easee"

	ATTR_CHARGER_ID               = "charger_id"
	ATTR_CIRCUIT_ID               = "circuit_id"
	ATTR_CHARGEPLAN_START_TIME    = "chargeStartTime"
	ATTR_CHARGEPLAN_STOP_TIME     = "chargeStopTime"
	ATTR_CHARGEPLAN_REPEAT        = "repeat"
	ATTR_SET_DYNAMIC_CURRENT_P1   = "currentP1"
	ATTR_SET_DYNAMIC_CURRENT_P2   = "currentP2"
	ATTR_SET_DYNAMIC_CURRENT_P3   = "currentP3"
	SERVICE_START                 = "start"
	SERVICE_STOP                  = "stop"
	SERVICE_PAUSE                 = "pause"
	SERVICE_RESUME                = "resume"
	SERVICE_TOGGLE                = "toggle"
	SERVICE_OVERRIDE_SCHEDULE     = "override_schedule"
	SERVICE_SMART_CHARGING        = "smart_charging"
	SERVICE_REBOOT                = "reboot"
	SERVICE_UPDATE_FIRMWARE       = "update_firmware"
	SERVICE_GET_BASIC_CHARGE_PLAN = "get_basic_charge_plan"
	SERVICE_SET_BASIC_CHARGE_PLAN = "set_basic_charge_plan"
	SERVICE_DEL_BASIC_CHARGE_PLAN = "delete_basic_charge_plan"
	SERVICE_SET_DYNAMIC_CURRENT   = "set_dynamic_current"
)

// ServiceCall is one inbound invocation after schema validation.
type ServiceCall struct {
	Domain  string
	Service string
	Data    map[string]any
}

type ServiceHandler func(ctx context.Context, call ServiceCall) (any, error)

type ServiceInfo struct {
	Domain  string        `json:"domain"`
	Service string        `json:"service"`
	Fields  []SchemaField `json:"fields"`
}
