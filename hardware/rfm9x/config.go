package rfm9x

import (
	"io"
	"strconv"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/battwatch/helpers"
	gpio "github.com/temoto/gpio-cdev-go"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"
)

const (
	DefaultFrequencyMHz = 433.0
	DefaultSpiSpeed     = 5 * physic.MegaHertz
	DefaultPreamble     = 8
	BroadcastNode       = 0xff
)

type Config struct { //nolint:maligned
	SpiBus       string  `hcl:"spi_bus"`
	SpiSpeed     string  `hcl:"spi_speed"`
	ResetPinChip string  `hcl:"reset_pin_chip"`
	ResetPin     string  `hcl:"reset_pin"`
	FrequencyMHz float64 `hcl:"frequency_mhz"`
	SpreadFactor int     `hcl:"spreading_factor"`
	Crc          bool    `hcl:"crc"`
	Node         int     `hcl:"node"`
	RawPackets   bool    `hcl:"raw_packets"` // do not strip RadioHead header
	PollMillis   int     `hcl:"poll_ms"`
	LogDebug     bool    `hcl:"log_debug"`

	testhw *hardware
}

func (c *Config) PollDelay() time.Duration {
	return helpers.IntMillisecondDefault(c.PollMillis, 100*time.Millisecond)
}

func (c *Config) Validate() error {
	if c.FrequencyMHz == 0 {
		c.FrequencyMHz = DefaultFrequencyMHz
	}
	if c.FrequencyMHz < 137 || c.FrequencyMHz > 1020 {
		return errors.NotValidf("radio frequency_mhz=%v out of range 137-1020", c.FrequencyMHz)
	}
	if c.SpreadFactor == 0 {
		c.SpreadFactor = 7
	}
	if c.SpreadFactor < 6 || c.SpreadFactor > 12 {
		return errors.NotValidf("radio spreading_factor=%d", c.SpreadFactor)
	}
	if c.Node == 0 {
		c.Node = BroadcastNode
	}
	if c.Node < 0 || c.Node > 0xff {
		return errors.NotValidf("radio node=%d", c.Node)
	}
	if c.testhw == nil && c.SpiBus == "" {
		return errors.NotValidf("radio spi_bus=empty")
	}
	return nil
}

type hardware struct {
	spiTx SpiTxFunc        // used
	reset gpio.LineSetFunc // used, nil when reset pin is not wired
	lines gpio.Lineser     // flush reset line

	spiPort  spi.PortCloser // only for resource cleanup
	gpioChip gpio.Chiper    // only for resource cleanup
}
type SpiTxFunc func(send, recv []byte) error

// Converts config strings to useful hardware talking functions.
func (h *hardware) open(c *Config) error {
	if c.testhw != nil {
		*h = *c.testhw
		return nil
	}

	var err error
	if _, err = host.Init(); err != nil {
		return errors.Annotate(err, "periph/init")
	}

	h.spiPort, err = spireg.Open(c.SpiBus)
	if err != nil {
		return errors.Annotatef(err, "SPI Open bus=%s", c.SpiBus)
	}
	spiSpeed := DefaultSpiSpeed
	if c.SpiSpeed != "" {
		if err = spiSpeed.Set(c.SpiSpeed); err != nil {
			return errors.Annotate(err, "SPI speed parse")
		}
	}
	var spiConn spi.Conn
	spiConn, err = h.spiPort.Connect(spiSpeed, spi.Mode0, 8)
	if err != nil {
		return errors.Annotate(err, "SPI Connect")
	}
	h.spiTx = spiConn.Tx

	if c.ResetPin == "" {
		return nil
	}
	resetLine, err := strconv.ParseUint(c.ResetPin, 10, 16)
	if err != nil {
		return errors.Annotate(err, "reset pin must be number")
	}
	h.gpioChip, err = gpio.Open(c.ResetPinChip, "rfm9x")
	if err != nil {
		return errors.Annotatef(err, "reset pin open chip=%s", c.ResetPinChip)
	}
	h.lines, err = h.gpioChip.OpenLines(gpio.GPIOHANDLE_REQUEST_OUTPUT, "rfm9x", uint32(resetLine))
	if err != nil {
		return errors.Annotatef(err, "reset pin open line=%d", resetLine)
	}
	h.reset = h.lines.SetFunc(uint32(resetLine))
	return nil
}

func (h *hardware) Close() error {
	closers := []io.Closer{
		h.lines,
		h.gpioChip,
		h.spiPort,
	}
	errs := make([]error, len(closers))
	for i, c := range closers {
		if c != nil {
			errs[i] = c.Close()
		}
	}
	return helpers.FoldErrors(errs)
}
