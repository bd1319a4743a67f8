// Package journal is append-only CSV log of every received packet.
package journal

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/battwatch/helpers"
	"github.com/temoto/battwatch/internal/telemetry"
	"github.com/temoto/battwatch/log2"
)

const DefaultPath = "lora_log.csv"

var Header = []string{"timestamp", "message", "rssi"}

type Config struct {
	Path string `hcl:"path"`
	// fsync after every record
	Sync bool `hcl:"sync"`
}

type Record struct {
	Time    time.Time
	Message string
	RSSI    int
}

type Journal struct {
	Log *log2.Log

	mu   sync.Mutex
	path string
	sync bool
	f    *os.File
	w    *csv.Writer
}

// Open creates file with header if it does not exist or is empty.
func Open(c Config, log *log2.Log) (*Journal, error) {
	path := c.Path
	if path == "" {
		path = DefaultPath
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Annotate(err, "journal open")
	}
	j := &Journal{
		Log:  log,
		path: path,
		sync: c.Sync,
		f:    f,
		w:    csv.NewWriter(f),
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Annotate(err, "journal stat")
	}
	if fi.Size() == 0 {
		if err = j.write(Header); err != nil {
			f.Close()
			return nil, errors.Annotate(err, "journal header")
		}
		log.Debugf("journal created path=%s", path)
	}
	return j, nil
}

func (j *Journal) Path() string { return j.path }

func (j *Journal) Append(r telemetry.Reading) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.f == nil {
		return errors.New("journal closed")
	}
	record := []string{
		r.Time.Format(helpers.TimeFormat),
		r.Message(),
		strconv.Itoa(r.RSSI),
	}
	return errors.Annotatef(j.write(record), "journal append path=%s", j.path)
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.f == nil {
		return nil
	}
	j.w.Flush()
	err := helpers.FoldErrors([]error{j.w.Error(), j.f.Close()})
	j.f = nil
	return errors.Annotate(err, "journal close")
}

func (j *Journal) write(record []string) error {
	if err := j.w.Write(record); err != nil {
		return err
	}
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		return err
	}
	if j.sync {
		return j.f.Sync()
	}
	return nil
}

// Read calls fn for every record in journal file, header is skipped.
func Read(r io.Reader, fn func(Record) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)
	for line := 1; ; line++ {
		fields, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Annotatef(err, "journal line=%d", line)
		}
		if line == 1 && fields[0] == Header[0] {
			continue
		}
		rec, err := parseRecord(fields)
		if err != nil {
			return errors.Annotatef(err, "journal line=%d", line)
		}
		if err = fn(rec); err != nil {
			return errors.Trace(err)
		}
	}
}

func ReadFile(path string, fn func(Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Trace(err)
	}
	defer f.Close()
	return Read(f, fn)
}

func parseRecord(fields []string) (Record, error) {
	t, err := time.ParseInLocation(helpers.TimeFormat, fields[0], time.Local)
	if err != nil {
		return Record{}, errors.NotValidf("timestamp=%q", fields[0])
	}
	rssi, err := strconv.Atoi(fields[2])
	if err != nil {
		return Record{}, errors.NotValidf("rssi=%q", fields[2])
	}
	return Record{Time: t, Message: fields[1], RSSI: rssi}, nil
}
