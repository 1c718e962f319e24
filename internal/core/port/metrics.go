package port

import "time"

type ServiceMetrics interface {
	RecordServiceCall(service string, outcome string, duration time.Duration)
}
