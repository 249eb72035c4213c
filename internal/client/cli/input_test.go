package cli

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rdr(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func stubTerminal(t *testing.T, tty bool, pw []byte, err error) {
	t.Helper()
	oldRead, oldTTY := readPassword, isTerminal
	t.Cleanup(func() { readPassword, isTerminal = oldRead, oldTTY })

	isTerminal = func(int) bool { return tty }
	readPassword = func(int) ([]byte, error) { return pw, err }
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("  hello world \n"), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
	assert.Equal(t, "Name?\n> ", out.String())
}

func TestGetSimpleText_EOF(t *testing.T) {
	var out bytes.Buffer

	got, err := GetSimpleText(rdr("lastline"), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "lastline", got)

	_, err = GetSimpleText(rdr(""), "Name?", &out)
	require.ErrorIs(t, err, io.EOF)
}

func TestGetSecret_Terminal(t *testing.T) {
	stubTerminal(t, true, []byte("1234\n"), nil)
	var out bytes.Buffer

	got, err := GetSecret(rdr("ignored\n"), "PIN: ", &out)
	require.NoError(t, err)
	assert.Equal(t, "1234", got)
	assert.Equal(t, "PIN: \n", out.String())
}

func TestGetSecret_TerminalError(t *testing.T) {
	stubTerminal(t, true, nil, errors.New("boom"))

	_, err := GetSecret(rdr(""), "PIN: ", io.Discard)
	require.Error(t, err)
}

func TestGetSecret_PipedInput(t *testing.T) {
	stubTerminal(t, false, nil, errors.New("must not be called"))

	got, err := GetSecret(rdr("s3cret\n"), "Password: ", io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)
}
