package main

import (
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    action
		wantErr string
	}{
		{name: "up", args: []string{"-up"}, want: action{kind: actionUp}},
		{name: "up with path", args: []string{"-up", "-path", "/tmp/m"}, want: action{kind: actionUp, path: "/tmp/m"}},
		{name: "down confirmed", args: []string{"-down", "-yes"}, want: action{kind: actionDown}},
		{name: "steps", args: []string{"-steps", "-2"}, want: action{kind: actionSteps, steps: -2}},
		{name: "version", args: []string{"-version"}, want: action{kind: actionVersion}},
		{name: "force zero", args: []string{"-force", "0"}, want: action{kind: actionForce, force: 0}},
		{name: "down unconfirmed", args: []string{"-down"}, wantErr: "-yes"},
		{name: "two actions", args: []string{"-up", "-version"}, wantErr: "only one action"},
		{name: "nothing", args: nil, wantErr: errNoAction.Error()},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseAction(tc.args, io.Discard)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

type fakeRunner struct {
	calls []string
	err   error
}

func (f *fakeRunner) Up() error {
	f.calls = append(f.calls, "up")
	return f.err
}

func (f *fakeRunner) Down() error {
	f.calls = append(f.calls, "down")
	return f.err
}

func (f *fakeRunner) Steps(int) error {
	f.calls = append(f.calls, "steps")
	return f.err
}

func (f *fakeRunner) Force(int) error {
	f.calls = append(f.calls, "force")
	return f.err
}

func (f *fakeRunner) Version() (uint, bool, error) {
	return 3, false, nil
}

func TestApply(t *testing.T) {
	logger := zerolog.Nop()

	r := &fakeRunner{}
	require.NoError(t, apply(r, action{kind: actionUp}, logger))
	require.NoError(t, apply(r, action{kind: actionSteps, steps: 1}, logger))
	require.NoError(t, apply(r, action{kind: actionVersion}, logger))
	assert.Equal(t, []string{"up", "steps"}, r.calls)

	failing := &fakeRunner{err: errors.New("dirty database version 2")}
	err := apply(failing, action{kind: actionForce, force: 2}, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "force version")

	assert.ErrorIs(t, apply(r, action{}, logger), errNoAction)
}
