package modem

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitRead(t *testing.T) {
	t.Parallel()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()
	fd := int(r.Fd())

	err = waitRead(fd, 20*time.Millisecond)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))

	_, err = w.Write([]byte("OK\r\n"))
	require.NoError(t, err)
	require.NoError(t, waitRead(fd, time.Second))
}
