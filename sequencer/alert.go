package sequencer

import "fmt"

type (
	// AlertPriority tells how severe an alert is. Errors from the control
	// side never abort playback; they surface as alerts while the real-time
	// side keeps replaying its last valid buffer.
	AlertPriority int

	// Alert is a report from a line to the control context: a rejected
	// parameter, a discarded materialization, channel saturation. Alerts are
	// always sent non-blocking; losing one is preferable to stalling a
	// cycle.
	Alert struct {
		Name     string
		Priority AlertPriority
		Message  string
	}
)

const (
	Info AlertPriority = iota
	Warning
	Error
)

func (p AlertPriority) String() string {
	switch p {
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return "info"
}

func (a Alert) String() string {
	return fmt.Sprintf("%s: %s: %s", a.Priority, a.Name, a.Message)
}
