package modem

import (
	"time"

	"github.com/juju/errors"
	"github.com/temoto/battwatch/helpers"
)

const (
	DefaultDevice           = "/dev/ttyS0"
	DefaultBaud             = 9600
	DefaultBootDelaySec     = 10
	DefaultCommandTimeoutMs = 1000
	DefaultPromptTimeoutMs  = 1000
	DefaultSendTimeoutMs    = 5000
)

type Config struct {
	Device           string `hcl:"device"`
	Baud             int    `hcl:"baud"`
	BootDelaySec     *int   `hcl:"boot_delay_sec"`
	CommandTimeoutMs int    `hcl:"command_timeout_ms"`
	PromptTimeoutMs  int    `hcl:"prompt_timeout_ms"`
	SendTimeoutMs    int    `hcl:"send_timeout_ms"`
	Charset          string `hcl:"charset"`
	LogDebug         bool   `hcl:"log_debug"`

	testuart Uarter
}

func (c *Config) Validate() error {
	if c.Device == "" {
		c.Device = DefaultDevice
	}
	if c.Baud == 0 {
		c.Baud = DefaultBaud
	}
	if _, ok := baudRates[c.Baud]; !ok && c.testuart == nil {
		return errors.NotValidf("modem.baud=%d", c.Baud)
	}
	if c.BootDelaySec != nil && *c.BootDelaySec < 0 {
		return errors.NotValidf("modem.boot_delay_sec=%d", *c.BootDelaySec)
	}
	if c.CommandTimeoutMs < 0 || c.PromptTimeoutMs < 0 || c.SendTimeoutMs < 0 {
		return errors.NotValidf("modem timeouts must not be negative")
	}
	return nil
}

func (c *Config) BootDelay() time.Duration {
	if c.BootDelaySec == nil {
		return DefaultBootDelaySec * time.Second
	}
	return time.Duration(*c.BootDelaySec) * time.Second
}

func (c *Config) CommandTimeout() time.Duration {
	return helpers.IntMillisecondDefault(c.CommandTimeoutMs, DefaultCommandTimeoutMs*time.Millisecond)
}

func (c *Config) PromptTimeout() time.Duration {
	return helpers.IntMillisecondDefault(c.PromptTimeoutMs, DefaultPromptTimeoutMs*time.Millisecond)
}

func (c *Config) SendTimeout() time.Duration {
	return helpers.IntMillisecondDefault(c.SendTimeoutMs, DefaultSendTimeoutMs*time.Millisecond)
}
