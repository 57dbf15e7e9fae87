package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCurrent(t *testing.T) {
	cur := Current()
	require.Equal(t, AppProtocol, cur.Protocol)
	require.Equal(t, Version, cur.Software)
	require.EqualValues(t, 1, cur.Protocol.Uint64())
}
