// Package telemetry turns radio packets into readings and extracts battery voltage from them.
package telemetry

import (
	"encoding/hex"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	FieldSeparator = ","
	VoltageMarker  = "BV:"
	RawPrefix      = "hex:"
)

// Reading is one received packet. Decoded=false means payload is not valid UTF-8
// and only Raw is meaningful.
type Reading struct {
	Time    time.Time
	RSSI    int
	Text    string
	Raw     []byte
	Decoded bool
}

// Message is the journal representation of payload.
func (r Reading) Message() string {
	if r.Decoded {
		return r.Text
	}
	return RawPrefix + hex.EncodeToString(r.Raw)
}

type VoltageSample struct {
	Time    time.Time
	Voltage float64
}

func Decode(raw []byte, rssi int, t time.Time) Reading {
	r := Reading{
		Time: t,
		RSSI: rssi,
		Raw:  make([]byte, len(raw)),
	}
	copy(r.Raw, raw)
	if utf8.Valid(raw) {
		r.Decoded = true
		r.Text = strings.TrimSpace(string(raw))
	}
	return r
}

// ParseVoltage looks at first comma separated token starting with BV:
// and parses decimal volts, trailing V is optional.
func ParseVoltage(text string, t time.Time) (VoltageSample, bool) {
	for _, token := range strings.Split(text, FieldSeparator) {
		token = strings.TrimSpace(token)
		if !strings.HasPrefix(token, VoltageMarker) {
			continue
		}
		v, ok := parseVolts(token[len(VoltageMarker):])
		if !ok {
			return VoltageSample{}, false
		}
		return VoltageSample{Time: t, Voltage: v}, true
	}
	return VoltageSample{}, false
}

func parseVolts(s string) (float64, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "V")
	if s == "" || strings.ContainsAny(s, "xX_") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
