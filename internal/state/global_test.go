package state_test

import (
	"context"
	"os"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/battwatch/hardware/modem"
	"github.com/temoto/battwatch/internal/alert"
	"github.com/temoto/battwatch/internal/state"
	state_new "github.com/temoto/battwatch/internal/state/new"
	"github.com/temoto/battwatch/log2"
)

type stubRadio struct {
	packets [][]byte
	closed  bool
}

func (r *stubRadio) TryReceive() ([]byte, error) {
	if len(r.packets) == 0 {
		return nil, nil
	}
	p := r.packets[0]
	r.packets = r.packets[1:]
	return p, nil
}
func (r *stubRadio) LastRSSI() int { return -71 }
func (r *stubRadio) Close() error  { r.closed = true; return nil }

type stubModem struct {
	sent   []string
	closed bool
}

func (m *stubModem) SendSMS(ctx context.Context, number, text string) (modem.Response, error) {
	m.sent = append(m.sent, number+" "+text)
	return modem.Response{Raw: "+CMGS: 1\r\nOK\r\n", OK: true}, nil
}
func (m *stubModem) Command(cmd string) (modem.Response, error) {
	return modem.Response{Raw: "OK\r\n", OK: true}, nil
}
func (m *stubModem) Close() error { m.closed = true; return nil }

const testConfig = `
alert {
  threshold = 5
  destination = "+15550100"
}
`

func TestWatchAssembly(t *testing.T) {
	t.Parallel()
	ctx, g := state_new.NewTestContext(t, "test", testConfig)
	radio := &stubRadio{packets: [][]byte{[]byte("T:22C,BV:4.7V,H:60")}}
	m := &stubModem{}
	g.Hardware.Radio.Device = radio
	g.Hardware.Modem.Device = m
	assert.Equal(t, g, state.GetGlobal(ctx))

	loop, err := g.Watch(ctx)
	require.NoError(t, err)
	assert.True(t, loop.Step(ctx))
	assert.Equal(t, alert.StateAlerted, loop.Machine.State())
	require.Len(t, m.sent, 1)
	assert.Contains(t, m.sent[0], "+15550100 ALERT: Battery voltage 4.70V (below 5.0V)")

	j, err := g.Journal()
	require.NoError(t, err)
	require.NoError(t, g.Close())
	assert.True(t, radio.closed)
	assert.True(t, m.closed)
	b, err := os.ReadFile(j.Path())
	require.NoError(t, err)
	assert.Contains(t, string(b), "T:22C,BV:4.7V,H:60")
}

func TestWatchRequiresDestination(t *testing.T) {
	t.Parallel()
	ctx, g := state_new.NewTestContext(t, "test", "")
	g.Hardware.Radio.Device = &stubRadio{}
	g.Hardware.Modem.Device = &stubModem{}
	_, err := g.Watch(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsNotValid(errors.Cause(err)))
}

func TestInitInvalid(t *testing.T) {
	t.Parallel()
	log := log2.NewTest(t, log2.LDebug)
	ctx, g := state_new.NewContext(log, nil)
	cfg := state.MustReadConfig(log, state.NewMockFullReader(map[string]string{
		"main": "alert { recovery_margin = -0.5 }",
	}), "main")
	err := g.Init(ctx, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recovery_margin")
}

func TestErrorHook(t *testing.T) {
	t.Parallel()
	_, g := state_new.NewTestContext(t, "test", testConfig)
	g.Error(errors.New("radio hiccup"), "poll n=%d", 3)
	g.Log.Errorf("second")
	families, err := g.Registry.Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if f.GetName() == "battwatch_logged_errors_total" {
			found = true
			assert.Equal(t, 2.0, f.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found)
}
