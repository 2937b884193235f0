package iocli

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeStdio подает input через pipe, как при перенаправленном stdin
func pipeStdio(t *testing.T, input string) (*Stdio, *bytes.Buffer) {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	go func() {
		_, _ = w.Write([]byte(input))
		_ = w.Close()
	}()

	var out bytes.Buffer
	return NewStdioFrom(r, &out), &out
}

func TestNewStdio(t *testing.T) {
	assert.NotNil(t, NewStdio())
}

func TestPrintlnAndPrintf(t *testing.T) {
	var out bytes.Buffer
	s := NewStdioFrom(os.Stdin, &out)

	s.Println("hello", "world")
	s.Printf("test %d %s", 1, "abc")
	_, err := s.Write([]byte("!"))
	require.NoError(t, err)

	assert.Equal(t, "hello world\ntest 1 abc!", out.String())
}

func TestReadInput(t *testing.T) {
	s, out := pipeStdio(t, "  user@example.com  \n")

	result, err := s.ReadInput("Email: ")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", result)
	assert.Equal(t, "Email: ", out.String())
}

// Несколько вызовов подряд не теряют буферизованный ввод
func TestReadInput_Sequential(t *testing.T) {
	s, _ := pipeStdio(t, "first\nsecond\nthird")

	for _, want := range []string{"first", "second", "third"} {
		got, err := s.ReadInput("> ")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := s.ReadInput("> ")
	assert.Error(t, err)
}

func TestReadPassword_NotTerminal(t *testing.T) {
	s, _ := pipeStdio(t, "secret-password\n")

	pw, err := s.ReadPassword("Password: ")
	require.NoError(t, err)
	assert.Equal(t, "secret-password", pw)
}
