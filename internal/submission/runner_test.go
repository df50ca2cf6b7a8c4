package submission

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/checker/pkg/storage/objectstore"
)

func TestRun_RequestBody(t *testing.T) {
	f := newFakePlatform(t)
	bundle := testBundle()
	bundle.TestEnv = []objectstore.Object{
		{Key: "env/conftest.py", Bucket: "assets"},
		{Key: "env/fixtures.json", Bucket: "assets"},
	}
	files := []objectstore.Object{
		{Key: "u/S1/b.py", Bucket: "b"},
		{Key: "u/S1/a.py", Bucket: "b"},
	}

	result, err := NewRunner(f.Client(), nil, zap.NewNop()).Run(context.Background(), bundle, files)
	require.NoError(t, err)
	assert.Equal(t, "PASS", result)

	assert.Equal(t, bundle.TestEnv, f.RunRequest.TestEnv)
	assert.Equal(t, files, f.RunRequest.Files)
	assert.Equal(t, "main", f.RunRequest.TestEntry)
}

func TestRun_EmptyListsEncodeAsArrays(t *testing.T) {
	f := newFakePlatform(t)
	bundle := testBundle()
	bundle.TestEnv = nil

	_, err := NewRunner(f.Client(), nil, zap.NewNop()).Run(context.Background(), bundle, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"files":[],"test_env":[],"test_entry":"main"}`, string(f.RunRaw))
}

func TestRun_StreamsOutput(t *testing.T) {
	f := newFakePlatform(t)
	f.RunnerText = "test_add ... ok\ntest_sub ... FAIL\n"
	var stream bytes.Buffer

	result, err := NewRunner(f.Client(), &stream, zap.NewNop()).Run(context.Background(), testBundle(), nil)
	require.NoError(t, err)
	assert.Equal(t, f.RunnerText, result)
	assert.Equal(t, f.RunnerText, stream.String())
}

func TestRun_UsesBundleRunner(t *testing.T) {
	f := newFakePlatform(t)
	bundle := testBundle()
	bundle.RunnerLocation = "https://other-runner.test/x"

	_, err := NewRunner(f.Client(), nil, zap.NewNop()).Run(context.Background(), bundle, nil)
	require.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, 1, f.Calls("other-runner.test"))
	assert.Zero(t, f.Calls(hostRunner))
}

func TestRun_ServerError(t *testing.T) {
	f := newFakePlatform(t)
	f.RunnerStatus = http.StatusServiceUnavailable
	f.RunnerText = "runner busy"
	var stream bytes.Buffer

	_, err := NewRunner(f.Client(), &stream, zap.NewNop()).Run(context.Background(), testBundle(), nil)
	require.ErrorIs(t, err, ErrServer)
	assert.Contains(t, err.Error(), "runner busy")
	assert.Empty(t, stream.String(), "error bodies are not streamed as results")
}
