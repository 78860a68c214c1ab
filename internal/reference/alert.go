package reference

import (
	"fmt"
	"strings"

	"delivery-audit/internal/data"
)

const alertHeader = "SABAN_ALERT"

// Alert is one telematics notification in the pipe format
// SABAN_ALERT|name|driver|plate|location|time|speed.
type Alert struct {
	Name     string
	Driver   string
	Plate    string
	Location string
	Time     data.TimeValue
	Speed    string
}

// IsPTO reports whether the alert marks power-take-off (crane) activity, which
// is when the truck is unloading at the customer.
func (a Alert) IsPTO() bool {
	return strings.Contains(strings.ToUpper(a.Name), "PTO")
}

func ParseAlert(line string) (Alert, error) {
	fields := strings.Split(strings.TrimSpace(line), "|")
	if len(fields) != 7 {
		return Alert{}, fmt.Errorf("alert has %d fields, expected 7", len(fields))
	}
	if fields[0] != alertHeader {
		return Alert{}, fmt.Errorf("invalid alert header %q", fields[0])
	}
	tv, err := data.ParseClock(fields[5])
	if err != nil {
		return Alert{}, fmt.Errorf("alert time: %w", err)
	}
	return Alert{
		Name:     strings.TrimSpace(fields[1]),
		Driver:   strings.TrimSpace(fields[2]),
		Plate:    strings.TrimSpace(fields[3]),
		Location: strings.TrimSpace(fields[4]),
		Time:     tv,
		Speed:    strings.TrimSpace(fields[6]),
	}, nil
}
