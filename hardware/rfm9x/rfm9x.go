// Package rfm9x is receive-only driver for Semtech SX127x based LoRa modules (HopeRF RFM95/96/98)
// attached over SPI, with optional reset line on GPIO character device.
//
// Packet format is compatible with RadioHead RH_RF95 driver: 4 byte header (to, from, id, flags)
// followed by payload. Header is stripped unless Config.RawPackets.
package rfm9x

import (
	"math"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/battwatch/log2"
)

const modName string = "rfm9x"

const (
	regFifo             = 0x00
	regOpMode           = 0x01
	regFrfMsb           = 0x06
	regFrfMid           = 0x07
	regFrfLsb           = 0x08
	regLna              = 0x0c
	regFifoAddrPtr      = 0x0d
	regFifoTxBaseAddr   = 0x0e
	regFifoRxBaseAddr   = 0x0f
	regFifoRxCurrent    = 0x10
	regIrqFlags         = 0x12
	regRxNbBytes        = 0x13
	regPktSnr           = 0x19
	regPktRssi          = 0x1a
	regModemConfig1     = 0x1d
	regModemConfig2     = 0x1e
	regPreambleMsb      = 0x20
	regPreambleLsb      = 0x21
	regModemConfig3     = 0x26
	regDioMapping1      = 0x40
	regVersion          = 0x42
	regWrite            = 0x80
	expectVersion       = 0x12
	headerLength        = 4
	fifoSize            = 256
	fxoscHz             = 32e6
	lowFrequencyBelowHz = 525e6

	modeLongRange    = 0x80
	modeSleep        = 0x00
	modeStandby      = 0x01
	modeRxContinuous = 0x05
	modeMask         = 0x07

	irqRxDone          = 0x40
	irqPayloadCrcError = 0x20
)

var ErrVersion = errors.New("rfm9x chip version mismatch")

type Stat struct {
	Received uint32
	CrcError uint32
	Filtered uint32
	Short    uint32
}

// Radio is safe for concurrent use, but intended for single polling loop.
type Radio struct {
	Log *log2.Log

	mu       sync.Mutex
	hw       hardware
	config   Config
	lastRSSI int
	lastSNR  float32
	stat     Stat
	buf      [fifoSize + 1]byte
}

func Open(c *Config, log *log2.Log) (*Radio, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	r := &Radio{
		Log:    log,
		config: *c,
	}
	if err := r.hw.open(c); err != nil {
		_ = r.hw.Close()
		return nil, errors.Annotate(err, modName)
	}
	if err := r.init(); err != nil {
		_ = r.hw.Close()
		return nil, errors.Annotate(err, modName)
	}
	return r, nil
}

func (r *Radio) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// sleep mode, best effort
	_ = r.writeReg(regOpMode, modeLongRange|modeSleep)
	return r.hw.Close()
}

// TryReceive returns next packet payload or nil if nothing was received since last call.
// Never blocks longer than few SPI transfers.
func (r *Radio) TryReceive() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	flags, err := r.readReg(regIrqFlags)
	if err != nil {
		return nil, errors.Annotate(err, "read irq flags")
	}
	if flags&irqRxDone == 0 {
		return nil, nil
	}
	// clear all flags
	if err = r.writeReg(regIrqFlags, 0xff); err != nil {
		return nil, errors.Annotate(err, "clear irq flags")
	}
	if flags&irqPayloadCrcError != 0 {
		r.stat.CrcError++
		r.Log.Debugf("%s drop packet crc error", modName)
		return nil, nil
	}

	length, err := r.readReg(regRxNbBytes)
	if err != nil {
		return nil, errors.Annotate(err, "read rx length")
	}
	current, err := r.readReg(regFifoRxCurrent)
	if err != nil {
		return nil, errors.Annotate(err, "read rx address")
	}
	if err = r.writeReg(regFifoAddrPtr, current); err != nil {
		return nil, errors.Annotate(err, "set fifo pointer")
	}
	packet := make([]byte, length)
	if err = r.readBurst(regFifo, packet); err != nil {
		return nil, errors.Annotate(err, "read fifo")
	}
	if err = r.readSignal(); err != nil {
		return nil, errors.Annotate(err, "read signal")
	}
	r.stat.Received++
	r.Log.Debugf("%s packet=%x rssi=%d snr=%.1f", modName, packet, r.lastRSSI, r.lastSNR)

	if r.config.RawPackets {
		return packet, nil
	}
	if len(packet) <= headerLength {
		r.stat.Short++
		r.Log.Debugf("%s drop packet len=%d too short", modName, len(packet))
		return nil, nil
	}
	to := int(packet[0])
	if r.config.Node != BroadcastNode && to != BroadcastNode && to != r.config.Node {
		r.stat.Filtered++
		r.Log.Debugf("%s drop packet to=%d node=%d", modName, to, r.config.Node)
		return nil, nil
	}
	return packet[headerLength:], nil
}

// LastRSSI returns signal strength in dBm of most recent received packet.
func (r *Radio) LastRSSI() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRSSI
}

func (r *Radio) LastSNR() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSNR
}

func (r *Radio) Stat() Stat {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stat
}

func (r *Radio) init() error {
	if r.hw.reset != nil {
		r.hw.reset(0)
		if err := r.hw.lines.Flush(); err != nil {
			return errors.Annotate(err, "reset low")
		}
		time.Sleep(100 * time.Microsecond)
		r.hw.reset(1)
		if err := r.hw.lines.Flush(); err != nil {
			return errors.Annotate(err, "reset high")
		}
		time.Sleep(5 * time.Millisecond)
	}

	version, err := r.readReg(regVersion)
	if err != nil {
		return errors.Annotate(err, "read version")
	}
	if version != expectVersion {
		return errors.Annotatef(ErrVersion, "expected=%02x actual=%02x, check wiring", expectVersion, version)
	}

	// LoRa mode can only be switched in sleep
	if err = r.writeReg(regOpMode, modeLongRange|modeSleep); err != nil {
		return errors.Trace(err)
	}
	time.Sleep(10 * time.Millisecond)
	mode, err := r.readReg(regOpMode)
	if err != nil {
		return errors.Trace(err)
	}
	if mode != modeLongRange|modeSleep {
		return errors.Errorf("failed to enter LoRa sleep mode, op_mode=%02x", mode)
	}

	sf := byte(r.config.SpreadFactor)
	config2 := sf << 4
	if r.config.Crc {
		config2 |= 0x04
	}
	frf := uint32(math.Round(r.config.FrequencyMHz * 1e6 / (fxoscHz / (1 << 19))))
	sequence := []struct {
		reg   byte
		value byte
	}{
		{regFifoTxBaseAddr, 0},
		{regFifoRxBaseAddr, 0},
		{regOpMode, modeLongRange | modeStandby},
		{regPreambleMsb, 0},
		{regPreambleLsb, DefaultPreamble},
		{regFrfMsb, byte(frf >> 16)},
		{regFrfMid, byte(frf >> 8)},
		{regFrfLsb, byte(frf)},
		{regModemConfig1, 0x72}, // BW=125kHz CR=4/5 explicit header
		{regModemConfig2, config2},
		{regModemConfig3, 0x04}, // AGC auto
		{regLna, 0x23},          // max gain, boost on
		{regDioMapping1, 0x00},  // DIO0=RxDone
		{regIrqFlags, 0xff},
		{regOpMode, modeLongRange | modeRxContinuous},
	}
	for _, x := range sequence {
		if err = r.writeReg(x.reg, x.value); err != nil {
			return errors.Annotatef(err, "write reg=%02x", x.reg)
		}
	}
	r.Log.Debugf("%s init complete frequency=%.3fMHz sf=%d crc=%t", modName, r.config.FrequencyMHz, sf, r.config.Crc)
	return nil
}

func (r *Radio) readSignal() error {
	raw, err := r.readReg(regPktRssi)
	if err != nil {
		return err
	}
	snr, err := r.readReg(regPktSnr)
	if err != nil {
		return err
	}
	if r.config.FrequencyMHz*1e6 < lowFrequencyBelowHz {
		r.lastRSSI = int(raw) - 157
	} else {
		r.lastRSSI = int(raw) - 164
	}
	r.lastSNR = float32(int8(snr)) / 4
	return nil
}

func (r *Radio) readReg(reg byte) (byte, error) {
	send := [2]byte{reg &^ regWrite, 0}
	recv := [2]byte{}
	err := r.hw.spiTx(send[:], recv[:])
	return recv[1], err
}

func (r *Radio) readBurst(reg byte, dst []byte) error {
	n := len(dst) + 1
	send := make([]byte, n)
	send[0] = reg &^ regWrite
	recv := r.buf[:n]
	if err := r.hw.spiTx(send, recv); err != nil {
		return err
	}
	copy(dst, recv[1:])
	return nil
}

func (r *Radio) writeReg(reg, value byte) error {
	send := [2]byte{reg | regWrite, value}
	recv := [2]byte{}
	return r.hw.spiTx(send[:], recv[:])
}
