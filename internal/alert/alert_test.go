package alert

import (
	"io/ioutil"
	"math"
	"os"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/battwatch/internal/telemetry"
	"github.com/temoto/battwatch/log2"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)

func sample(i int, v float64) telemetry.VoltageSample {
	return telemetry.VoltageSample{Time: t0.Add(time.Duration(i) * time.Second), Voltage: v}
}

func testMachine(t testing.TB, c Config) *Machine {
	m, err := NewMachine(c, "", log2.NewTest(t, log2.LDebug))
	require.NoError(t, err)
	return m
}

// feedAll returns compact trace of emitted intents, "." for no intent.
func feedAll(m *Machine, vs ...float64) string {
	s := ""
	for i, v := range vs {
		intent, ok := m.Feed(sample(i, v))
		switch {
		case !ok:
			s += "."
		case intent.Kind == KindRaise:
			s += "R"
		case intent.Kind == KindClear:
			s += "C"
		}
	}
	return s
}

func TestFeed(t *testing.T) {
	t.Parallel()

	type Case struct {
		name   string
		margin float64
		input  []float64
		expect string
		state  State
	}
	cases := []Case{
		{"scenario-1", 0, []float64{6.0, 4.8, 4.5, 5.2}, ".R.C", StateNormal},
		{"scenario-2", 0, []float64{4.9, 4.9}, "R.", StateAlerted},
		{"equal-from-normal", 0, []float64{5.0}, ".", StateNormal},
		{"equal-clears", 0, []float64{4.0, 5.0}, "RC", StateNormal},
		{"repeat-normal", 0, []float64{5.1, 5.5, 7}, "...", StateNormal},
		{"oscillate", 0, []float64{4.9, 5.0, 4.9, 5.0}, "RCRC", StateNormal},
		{"margin-hold", 0.3, []float64{4.9, 5.0, 5.2, 4.8}, "R...", StateAlerted},
		{"margin-clear", 0.3, []float64{4.9, 5.29, 5.3}, "R.C", StateNormal},
		{"negative-voltage", 0, []float64{-1}, "R", StateAlerted},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			m := testMachine(t, Config{Threshold: 5.0, RecoveryMargin: c.margin})
			assert.Equal(t, StateNormal, m.State())
			assert.Equal(t, c.expect, feedAll(m, c.input...))
			assert.Equal(t, c.state, m.State())
		})
	}
}

// Count of intents of each kind equals count of transitions in that direction.
func TestFeedTransitionCount(t *testing.T) {
	t.Parallel()
	m := testMachine(t, Config{Threshold: 5.0})
	vs := []float64{5.5, 4.1, 4.2, 4.9, 5.0, 5.1, 3.3, 3.3, 6, 4.99, 5, 5}
	raises, clears, transitions := 0, 0, 0
	prev := m.State()
	for i, v := range vs {
		intent, ok := m.Feed(sample(i, v))
		cur := m.State()
		if cur != prev {
			transitions++
			require.True(t, ok, "transition without intent at i=%d", i)
		} else {
			require.False(t, ok, "intent without transition at i=%d", i)
		}
		if ok {
			switch intent.Kind {
			case KindRaise:
				raises++
				assert.Equal(t, StateAlerted, cur)
			case KindClear:
				clears++
				assert.Equal(t, StateNormal, cur)
			}
		}
		prev = cur
	}
	assert.Equal(t, 3, raises)
	assert.Equal(t, 3, clears)
	assert.Equal(t, 6, transitions)
}

// Unparsable payloads never reach machine, only valid readings count.
func TestFeedInterleavedMalformed(t *testing.T) {
	t.Parallel()
	m := testMachine(t, Config{Threshold: 5.0})
	payloads := []string{"BV:4.5V", "BV:xyz", "T:22C", "BV:4.4V", "", "BV:NaN", "BV:5.5V"}
	trace := ""
	for i, p := range payloads {
		s, ok := telemetry.ParseVoltage(p, t0.Add(time.Duration(i)*time.Second))
		if !ok {
			trace += "-"
			continue
		}
		if intent, ok := m.Feed(s); ok {
			trace += intent.Kind.String()[:1]
		} else {
			trace += "."
		}
	}
	assert.Equal(t, "r--.--c", trace)
}

func TestScenario3(t *testing.T) {
	t.Parallel()
	m := testMachine(t, Config{Threshold: 5.0})
	s, ok := telemetry.ParseVoltage("T:22C,BV:4.7V,H:60", t0)
	require.True(t, ok)
	assert.Equal(t, 4.7, s.Voltage)
	intent, ok := m.Feed(s)
	require.True(t, ok)
	assert.Equal(t, KindRaise, intent.Kind)
	assert.Equal(t, "ALERT: Battery voltage 4.70V (below 5.0V) at 2024-01-01 00:00:00", intent.Message)
	assert.Equal(t, t0, intent.Time)
	assert.Equal(t, 4.7, intent.Voltage)
}

func TestMessages(t *testing.T) {
	t.Parallel()
	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)
	assert.Equal(t, "ALERT: Battery voltage 3.20V (below 3.5V) at 2024-03-09 14:05:07", RaiseMessage(3.2, 3.5, ts))
	assert.Equal(t, "ALERT: Battery voltage 11.99V (below 12.0V) at 2024-03-09 14:05:07", RaiseMessage(11.994, 12, ts))
	assert.Equal(t, "Battery recovered: 5.20V at 2024-03-09 14:05:07", ClearMessage(5.2, ts))
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	c := Config{}
	require.NoError(t, c.Validate())
	assert.Equal(t, DefaultThreshold, c.Threshold)
	assert.Equal(t, DefaultThreshold, c.RecoverAt())

	zero := 0.0
	c = Config{XXX_Threshold: &zero}
	require.NoError(t, c.Validate())
	assert.Equal(t, 0.0, c.Threshold)
	m, err := NewMachine(c, "", log2.NewTest(t, log2.LDebug))
	require.NoError(t, err)
	_, ok := m.Feed(telemetry.VoltageSample{Voltage: 0.1})
	assert.False(t, ok)
	_, ok = m.Feed(telemetry.VoltageSample{Voltage: -0.1})
	assert.True(t, ok)

	cases := []Config{
		{RecoveryMargin: -0.1},
		{Threshold: math.NaN()},
		{Threshold: math.Inf(1)},
		{RecoveryMargin: math.Inf(1)},
		{RetryMax: -1},
		{RetryDelayMs: -5},
	}
	for _, c := range cases {
		c := c
		assert.True(t, errors.IsNotValid(c.Validate()), "config=%#v", c)
	}

	_, err = NewMachine(Config{RecoveryMargin: -1}, "", log2.NewTest(t, log2.LDebug))
	assert.Error(t, err)
}

func TestPersist(t *testing.T) {
	t.Parallel()
	root, err := ioutil.TempDir("", "battwatch-alert-")
	require.NoError(t, err)
	defer os.RemoveAll(root)
	log := log2.NewTest(t, log2.LDebug)
	c := Config{Threshold: 5.0, Persist: true}

	m1, err := NewMachine(c, root, log)
	require.NoError(t, err)
	_, ok := m1.Feed(sample(1, 4.0))
	require.True(t, ok)

	// restart mid-excursion resumes alerted, no second raise
	m2, err := NewMachine(c, root, log)
	require.NoError(t, err)
	assert.Equal(t, StateAlerted, m2.State())
	assert.Equal(t, ".C", feedAll(m2, 4.0, 5.5))

	m3, err := NewMachine(c, root, log)
	require.NoError(t, err)
	assert.Equal(t, StateNormal, m3.State())

	// disabled persistence always starts normal
	m4, err := NewMachine(Config{Threshold: 5.0}, root, log)
	require.NoError(t, err)
	_, _ = m4.Feed(sample(1, 1))
	m5, err := NewMachine(Config{Threshold: 5.0}, root, log)
	require.NoError(t, err)
	assert.Equal(t, StateNormal, m5.State())
}

func TestMarshalBinary(t *testing.T) {
	t.Parallel()
	m := testMachine(t, Config{})
	_, _ = m.Feed(sample(3, 1))
	b, err := m.MarshalBinary()
	require.NoError(t, err)

	m2 := testMachine(t, Config{})
	require.NoError(t, m2.UnmarshalBinary(b))
	assert.Equal(t, StateAlerted, m2.State())
	assert.Equal(t, t0.Add(3*time.Second).Unix(), m2.since.Unix())

	assert.True(t, errors.IsNotValid(m2.UnmarshalBinary(nil)))
	assert.True(t, errors.IsNotValid(m2.UnmarshalBinary([]byte{stateVersion, 9, 0, 0, 0, 0, 0, 0, 0, 0})))
}

func TestStrings(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "normal", StateNormal.String())
	assert.Equal(t, "alerted", StateAlerted.String())
	assert.Equal(t, "State(7)", State(7).String())
	assert.Equal(t, "raise", KindRaise.String())
	assert.Equal(t, "clear", KindClear.String())
	assert.Equal(t, "Kind(0)", KindInvalid.String())
}
