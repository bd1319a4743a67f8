package journal

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/battwatch/internal/telemetry"
	"github.com/temoto/battwatch/log2"
)

func testPath(t testing.TB) string {
	dir, err := ioutil.TempDir("", "battwatch-journal-")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "lora_log.csv")
}

func readAll(t testing.TB, path string) string {
	b, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestAppend(t *testing.T) {
	t.Parallel()
	path := testPath(t)
	log := log2.NewTest(t, log2.LDebug)
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)

	j, err := Open(Config{Path: path}, log)
	require.NoError(t, err)
	require.NoError(t, j.Append(telemetry.Decode([]byte("T:22C,BV:4.7V,H:60"), -57, ts)))
	require.NoError(t, j.Append(telemetry.Decode([]byte{0xff, 0x00}, -101, ts.Add(time.Second))))
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())
	assert.Error(t, j.Append(telemetry.Reading{}))

	expect := "timestamp,message,rssi\n" +
		"2024-01-02 03:04:05,\"T:22C,BV:4.7V,H:60\",-57\n" +
		"2024-01-02 03:04:06,hex:ff00,-101\n"
	assert.Equal(t, expect, readAll(t, path))
}

func TestHeaderOnce(t *testing.T) {
	t.Parallel()
	path := testPath(t)
	log := log2.NewTest(t, log2.LDebug)
	for i := 0; i < 3; i++ {
		j, err := Open(Config{Path: path, Sync: true}, log)
		require.NoError(t, err)
		require.NoError(t, j.Append(telemetry.Decode([]byte("BV:5.0V"), -60, time.Now())))
		require.NoError(t, j.Close())
	}
	content := readAll(t, path)
	assert.Equal(t, 1, strings.Count(content, "timestamp,message,rssi"))
	assert.Equal(t, 4, strings.Count(content, "\n"))
}

func TestHeaderWhenEmpty(t *testing.T) {
	t.Parallel()
	path := testPath(t)
	require.NoError(t, ioutil.WriteFile(path, nil, 0644))
	j, err := Open(Config{Path: path}, log2.NewTest(t, log2.LDebug))
	require.NoError(t, err)
	require.NoError(t, j.Close())
	assert.Equal(t, "timestamp,message,rssi\n", readAll(t, path))
}

func TestOpenError(t *testing.T) {
	t.Parallel()
	path := filepath.Join(testPath(t), "no-such-dir", "x.csv")
	_, err := Open(Config{Path: path}, log2.NewTest(t, log2.LDebug))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(errors.Cause(err)))
}

func TestRead(t *testing.T) {
	t.Parallel()
	input := "timestamp,message,rssi\n" +
		"2024-01-02 03:04:05,\"T:22C,BV:4.7V,H:60\",-57\n" +
		"2024-01-02 03:04:06,hex:ff00,-101\n"
	var got []Record
	err := Read(strings.NewReader(input), func(r Record) error {
		got = append(got, r)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "T:22C,BV:4.7V,H:60", got[0].Message)
	assert.Equal(t, -57, got[0].RSSI)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local), got[0].Time)
	assert.Equal(t, "hex:ff00", got[1].Message)
}

func TestReadInvalid(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		input string
	}{
		{"timestamp", "yesterday,x,1\n"},
		{"rssi", "2024-01-02 03:04:05,x,loud\n"},
		{"fields", "2024-01-02 03:04:05,x\n"},
	}
	for _, c := range cases {
		err := Read(strings.NewReader(c.input), func(Record) error { return nil })
		assert.Error(t, err, c.name)
	}

	stop := errors.New("stop")
	err := Read(strings.NewReader("2024-01-02 03:04:05,x,1\n"), func(Record) error { return stop })
	assert.Equal(t, stop, errors.Cause(err))
}
