//go:build linux
// +build linux

package measure

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pairScript = `#!/bin/sh
if [ "$1" = write ]; then
	trap '' PIPE
	yes 2>/dev/null
	exit 0
fi
head -c 65536 >/dev/null
echo "42.000000,65536,4096,0,0,0,0,0,0"
`

func TestExecRunnerConnectsPair(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "pair")
	require.NoError(t, os.WriteFile(bin, []byte(pairScript), 0o755))

	line, err := ExecRunner{Binary: bin}.RunPair(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "42.000000,65536,4096,0,0,0,0,0,0", line)
}

func TestExecRunnerReportsReaderFailure(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "pair")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\nexit 3\n"), 0o755))

	_, err := ExecRunner{Binary: bin}.RunPair(context.Background(), nil, nil)
	assert.Error(t, err)
}
