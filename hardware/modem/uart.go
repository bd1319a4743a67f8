package modem

import (
	"os"
	"syscall"
	"time"

	"github.com/juju/errors"
	"golang.org/x/sys/unix"
)

const cFIONREAD = 0x541b

type ErrTimeoutT string

func (e ErrTimeoutT) Error() string { return string(e) }
func (ErrTimeoutT) Timeout() bool   { return true }

type Timeouter interface {
	Timeout() bool
}

func IsTimeout(err error) bool {
	if t, ok := errors.Cause(err).(Timeouter); ok {
		return t.Timeout()
	}
	return false
}

// Uarter is raw serial line.
type Uarter interface {
	Open(path string, baud int) error
	Close() error
	Write(p []byte) (int, error)
	// ReadTimeout returns whatever is available, waiting at most timeout for first byte.
	ReadTimeout(p []byte, timeout time.Duration) (int, error)
	// ResetRead discards unread input.
	ResetRead() error
}

var baudRates = map[int]uint32{
	1200:   unix.B1200,
	2400:   unix.B2400,
	4800:   unix.B4800,
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
}

type fileUart struct {
	f  *os.File
	fd int
}

func NewFileUart() *fileUart { return &fileUart{} }

func (fu *fileUart) Open(path string, baud int) error {
	if fu.f != nil {
		fu.f.Close()
	}
	speed, ok := baudRates[baud]
	if !ok {
		return errors.NotSupportedf("baud rate %d", baud)
	}
	f, err := os.OpenFile(path, syscall.O_RDWR|syscall.O_NOCTTY, 0600)
	if err != nil {
		return errors.Trace(err)
	}
	fd := int(f.Fd())
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		f.Close()
		return errors.Annotatef(err, "tcgets path=%s", path)
	}
	// raw 8N1, no flow control, reads return immediately
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB | unix.CRTSCTS | unix.CBAUD
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL | speed
	t.Ispeed = speed
	t.Ospeed = speed
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 0
	if err = unix.IoctlSetTermios(fd, unix.TCSETSF, t); err != nil {
		f.Close()
		return errors.Annotatef(err, "tcsetsf path=%s", path)
	}
	fu.f = f
	fu.fd = fd
	return nil
}

func (fu *fileUart) Close() error {
	if fu.f == nil {
		return nil
	}
	err := fu.f.Close()
	fu.f = nil
	return err
}

func (fu *fileUart) Write(p []byte) (int, error) { return fu.f.Write(p) }

func (fu *fileUart) ReadTimeout(p []byte, timeout time.Duration) (int, error) {
	if err := waitRead(fu.fd, timeout); err != nil {
		return 0, err
	}
	n, err := syscall.Read(fu.fd, p)
	if n < 0 {
		n = 0
	}
	return n, err
}

func (fu *fileUart) ResetRead() error {
	return unix.IoctlSetInt(fu.fd, unix.TCFLSH, unix.TCIFLUSH)
}

func waitRead(fd int, wait time.Duration) error {
	tfinal := time.Now().Add(wait)
	for {
		n, err := unix.IoctlGetInt(fd, cFIONREAD)
		if err != nil {
			return os.NewSyscallError("FIONREAD", err)
		}
		if n > 0 {
			return nil
		}
		if time.Now().After(tfinal) {
			return ErrTimeoutT("modem read timeout")
		}
		time.Sleep(wait / 16)
	}
}
