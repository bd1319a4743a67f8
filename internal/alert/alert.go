// Package alert decides when battery voltage alert is raised and cleared.
// Machine emits at most one Intent per state transition. Transition happens on
// voltage test alone, delivery outcome never rolls it back.
package alert

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/battwatch/helpers"
	"github.com/temoto/battwatch/internal/persist"
	"github.com/temoto/battwatch/internal/telemetry"
	"github.com/temoto/battwatch/log2"
)

const DefaultThreshold = 5.0

const persistTag = "alert"

type State uint8

const (
	StateNormal State = iota
	StateAlerted
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateAlerted:
		return "alerted"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

type Kind uint8

const (
	KindInvalid Kind = iota
	KindRaise
	KindClear
)

func (k Kind) String() string {
	switch k {
	case KindRaise:
		return "raise"
	case KindClear:
		return "clear"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

type Intent struct {
	Kind    Kind
	Message string
	Time    time.Time
	Voltage float64
}

func (i Intent) String() string {
	return fmt.Sprintf("%s voltage=%.2f message=%q", i.Kind, i.Voltage, i.Message)
}

type Config struct {
	// only used for Unmarshal, explicit 0 is valid threshold
	XXX_Threshold *float64 `hcl:"threshold"`
	// zero without XXX_Threshold means DefaultThreshold
	Threshold      float64 `hcl:"-"`
	RecoveryMargin float64 `hcl:"recovery_margin"`
	Destination    string  `hcl:"destination"`
	Persist        bool    `hcl:"persist"`
	RetryMax       int     `hcl:"retry_max"`
	RetryDelayMs   int     `hcl:"retry_delay_ms"`
	RetryMaxMs     int     `hcl:"retry_delay_max_ms"`
}

func (c *Config) Validate() error {
	switch {
	case c.XXX_Threshold != nil:
		c.Threshold = *c.XXX_Threshold
	case c.Threshold == 0:
		c.Threshold = DefaultThreshold
	}
	errs := make([]error, 0, 4)
	if math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0) {
		errs = append(errs, errors.NotValidf("alert.threshold=%v", c.Threshold))
	}
	if math.IsNaN(c.RecoveryMargin) || math.IsInf(c.RecoveryMargin, 0) || c.RecoveryMargin < 0 {
		errs = append(errs, errors.NotValidf("alert.recovery_margin=%v must be >= 0", c.RecoveryMargin))
	}
	if c.RetryMax < 0 {
		errs = append(errs, errors.NotValidf("alert.retry_max=%d", c.RetryMax))
	}
	if c.RetryDelayMs < 0 || c.RetryMaxMs < 0 {
		errs = append(errs, errors.NotValidf("alert retry delays must not be negative"))
	}
	return helpers.FoldErrors(errs)
}

// RecoverAt is lowest voltage that clears alert.
func (c *Config) RecoverAt() float64 { return c.Threshold + c.RecoveryMargin }

type Machine struct {
	Log *log2.Log

	mu      sync.Mutex
	config  Config
	state   State
	since   time.Time
	persist persist.Persist
}

// NewMachine starts in Normal, unless persistence is enabled and stored state says otherwise.
func NewMachine(c Config, persistRoot string, log *log2.Log) (*Machine, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	m := &Machine{
		Log:    log,
		config: c,
		state:  StateNormal,
	}
	if err := m.persist.Init(persistTag, m, persistRoot, c.Persist, log); err != nil {
		return nil, errors.Trace(err)
	}
	if err := m.persist.Load(); err != nil {
		return nil, errors.Trace(err)
	}
	if m.state != StateNormal {
		m.Log.Infof("alert restored state=%s since=%s", m.state, m.since.Format(helpers.TimeFormat))
	}
	return m, nil
}

func (m *Machine) Config() Config { return m.config }

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Feed applies one sample. Intent is returned only when sample caused transition.
func (m *Machine) Feed(s telemetry.VoltageSample) (Intent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var intent Intent
	switch {
	case m.state == StateNormal && s.Voltage < m.config.Threshold:
		m.state = StateAlerted
		intent = Intent{
			Kind:    KindRaise,
			Message: RaiseMessage(s.Voltage, m.config.Threshold, s.Time),
		}
	case m.state == StateAlerted && s.Voltage >= m.config.RecoverAt():
		m.state = StateNormal
		intent = Intent{
			Kind:    KindClear,
			Message: ClearMessage(s.Voltage, s.Time),
		}
	default:
		return Intent{}, false
	}
	intent.Time = s.Time
	intent.Voltage = s.Voltage
	m.since = s.Time
	m.Log.Infof("alert transition state=%s voltage=%.2f threshold=%v", m.state, s.Voltage, m.config.Threshold)

	if err := m.persist.Store(); err != nil {
		m.Log.Error(errors.Annotate(err, "alert state is not persisted"))
	}
	return intent, true
}

func RaiseMessage(voltage, threshold float64, t time.Time) string {
	return fmt.Sprintf("ALERT: Battery voltage %.2fV (below %sV) at %s",
		voltage, formatThreshold(threshold), t.Format(helpers.TimeFormat))
}

func ClearMessage(voltage float64, t time.Time) string {
	return fmt.Sprintf("Battery recovered: %.2fV at %s", voltage, t.Format(helpers.TimeFormat))
}

// formatThreshold prints shortest form, keeping at least one decimal: 5 -> "5.0".
func formatThreshold(x float64) string {
	s := strconv.FormatFloat(x, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

const stateVersion byte = 1

// MarshalBinary layout: version, state, unix seconds of last transition (8 bytes big endian).
func (m *Machine) MarshalBinary() ([]byte, error) {
	b := make([]byte, 10)
	b[0] = stateVersion
	b[1] = byte(m.state)
	binary.BigEndian.PutUint64(b[2:], uint64(m.since.Unix()))
	return b, nil
}

func (m *Machine) UnmarshalBinary(b []byte) error {
	if len(b) != 10 || b[0] != stateVersion {
		return errors.NotValidf("alert state len=%d", len(b))
	}
	s := State(b[1])
	if s != StateNormal && s != StateAlerted {
		return errors.NotValidf("alert state=%d", b[1])
	}
	m.state = s
	m.since = time.Unix(int64(binary.BigEndian.Uint64(b[2:])), 0)
	return nil
}
