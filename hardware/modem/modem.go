// Package modem talks to SIM800 family GSM modems over serial line using AT commands.
package modem

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/paulrosania/go-charset/charset"
	_ "github.com/paulrosania/go-charset/data"
	"github.com/temoto/battwatch/helpers"
	"github.com/temoto/battwatch/log2"
)

const modName string = "modem"

const (
	ctrlZ  = 0x1a
	prompt = ">"
)

var (
	ErrNotResponding = errors.New("modem is not responding")
	ErrRejected      = errors.New("modem rejected command")
)

// Response is modem output accumulated during one exchange.
type Response struct {
	Raw string
	OK  bool
}

func (r Response) String() string { return strings.TrimSpace(r.Raw) }

type Modem struct {
	Log *log2.Log

	mu      sync.Mutex
	config  Config
	uart    Uarter
	charset string
	buf     [256]byte
}

func Open(ctx context.Context, c *Config, log *log2.Log) (*Modem, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	m := &Modem{
		Log:     log,
		config:  *c,
		uart:    c.testuart,
		charset: c.Charset,
	}
	if m.uart == nil {
		m.uart = NewFileUart()
	}
	if m.charset != "" {
		if _, err := charset.TranslatorTo(m.charset); err != nil {
			return nil, errors.Annotatef(err, "modem.charset=%s", m.charset)
		}
	}
	if err := m.uart.Open(c.Device, c.Baud); err != nil {
		return nil, errors.Annotatef(err, "%s open device=%s", modName, c.Device)
	}

	if d := c.BootDelay(); d > 0 {
		m.Log.Infof("%s waiting %v for modem boot", modName, d)
		select {
		case <-time.After(d):
		case <-ctx.Done():
			_ = m.uart.Close()
			return nil, errors.Trace(ctx.Err())
		}
	}

	if err := m.Probe(); err != nil {
		_ = m.uart.Close()
		return nil, errors.Annotate(err, modName)
	}
	m.Log.Infof("%s ready device=%s baud=%d", modName, c.Device, c.Baud)
	return m, nil
}

func (m *Modem) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uart.Close()
}

// Probe checks that modem answers OK to bare AT.
func (m *Modem) Probe() error {
	r, err := m.Command("AT")
	if err != nil && !IsTimeout(err) {
		return errors.Trace(err)
	}
	if !r.OK {
		return errors.Annotatef(ErrNotResponding, "response=%q", r.Raw)
	}
	return nil
}

// Command sends one AT command and waits for final result code.
func (m *Modem) Command(cmd string) (Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.command(cmd+"\r\n", m.config.CommandTimeout())
}

// SendSMS selects text mode, submits text to number and waits for acknowledgement.
// Returned Response carries everything modem said during submission.
func (m *Modem) SendSMS(ctx context.Context, number, text string) (Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	payload, err := m.encode(text)
	if err != nil {
		return Response{}, errors.Annotate(err, "encode text")
	}

	mode, err := m.command("AT+CMGF=1\r\n", m.config.CommandTimeout())
	if err != nil {
		return mode, errors.Annotate(err, "set text mode")
	}
	if !mode.OK {
		return mode, errors.Annotatef(ErrRejected, "AT+CMGF=1 response=%q", mode.Raw)
	}
	if err = ctx.Err(); err != nil {
		return mode, errors.Trace(err)
	}

	acc := &strings.Builder{}
	if err = m.write(fmt.Sprintf("AT+CMGS=\"%s\"\r", number)); err != nil {
		return Response{}, errors.Annotate(err, "submit")
	}
	// some firmware prompt late or without echo, text is sent regardless
	err = m.readUntil(acc, m.config.PromptTimeout(), func(s string) bool {
		return strings.Contains(s, prompt) || isFinalError(s)
	})
	if err != nil && !IsTimeout(err) {
		return Response{Raw: acc.String()}, errors.Annotate(err, "wait prompt")
	}
	if isFinalError(acc.String()) {
		return Response{Raw: acc.String()}, errors.Annotatef(ErrRejected, "AT+CMGS response=%q", acc.String())
	}
	if err != nil {
		m.Log.Debugf("%s no prompt after CMGS, sending text anyway", modName)
	}

	if err = m.writeBytes(append(payload, ctrlZ)); err != nil {
		return Response{Raw: acc.String()}, errors.Annotate(err, "send text")
	}
	err = m.readUntil(acc, m.config.SendTimeout(), isFinal)
	r := parseResponse(acc.String())
	if err != nil {
		return r, errors.Annotatef(err, "wait acknowledgement response=%q", r.Raw)
	}
	m.Log.Debugf("%s sms number=%s ok=%t response=%q", modName, number, r.OK, r.Raw)
	return r, nil
}

func (m *Modem) command(raw string, timeout time.Duration) (Response, error) {
	if err := m.uart.ResetRead(); err != nil {
		return Response{}, errors.Annotate(err, "reset read")
	}
	if err := m.write(raw); err != nil {
		return Response{}, errors.Trace(err)
	}
	acc := &strings.Builder{}
	err := m.readUntil(acc, timeout, isFinal)
	r := parseResponse(acc.String())
	if m.config.LogDebug {
		m.Log.Debugf("%s command=%q response=%q err=%v", modName, strings.TrimSpace(raw), r.Raw, err)
	}
	return r, err
}

func (m *Modem) write(s string) error { return m.writeBytes([]byte(s)) }

func (m *Modem) writeBytes(b []byte) error {
	return errors.Annotate(helpers.WriteAll(m.uart, b), "write")
}

func (m *Modem) readUntil(acc *strings.Builder, timeout time.Duration, done func(string) bool) error {
	tfinal := time.Now().Add(timeout)
	for {
		remaining := time.Until(tfinal)
		if remaining <= 0 {
			return ErrTimeoutT(fmt.Sprintf("modem response timeout after %v", timeout))
		}
		if remaining > 100*time.Millisecond {
			remaining = 100 * time.Millisecond
		}
		n, err := m.uart.ReadTimeout(m.buf[:], remaining)
		if n > 0 {
			acc.Write(m.buf[:n])
			if done(acc.String()) {
				return nil
			}
		}
		if err != nil && !IsTimeout(err) {
			return errors.Annotate(err, "read")
		}
	}
}

func (m *Modem) encode(text string) ([]byte, error) {
	if m.charset == "" {
		return []byte(text), nil
	}
	tr, err := charset.TranslatorTo(m.charset)
	if err != nil {
		return nil, errors.Trace(err)
	}
	_, b, err := tr.Translate([]byte(text), true)
	if err != nil {
		return nil, errors.Trace(err)
	}
	// translator may reuse its buffer
	return append([]byte(nil), b...), nil
}

// isFinal reports whether modem output ends exchange with final result code.
func isFinal(s string) bool {
	return parseResponse(s).OK || isFinalError(s)
}

func isFinalError(s string) bool {
	for _, line := range splitLines(s) {
		if line == "ERROR" || strings.HasPrefix(line, "+CMS ERROR") || strings.HasPrefix(line, "+CME ERROR") {
			return true
		}
	}
	return false
}

func parseResponse(s string) Response {
	r := Response{Raw: s}
	for _, line := range splitLines(s) {
		if line == "OK" {
			r.OK = true
		}
	}
	return r
}

func splitLines(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == '\r' || r == '\n' })
	lines := fields[:0]
	for _, f := range fields {
		f = strings.TrimSpace(f)
		// prompt has no line end, result code may follow on same line
		for strings.HasPrefix(f, prompt) {
			f = strings.TrimSpace(f[len(prompt):])
		}
		if f != "" {
			lines = append(lines, f)
		}
	}
	return lines
}
