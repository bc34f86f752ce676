package ids

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCounterStartsAtOneAndMonotone(t *testing.T) {
	var c Counter
	require.Equal(t, uint64(1), c.Next())
	require.Equal(t, uint64(2), c.Next())
	require.Equal(t, uint64(3), c.Next())
}

func TestInvalidSentinelsAreZero(t *testing.T) {
	require.Equal(t, RegistryId(0), InvalidRegistryId)
	require.Equal(t, RequestId(0), InvalidRequestId)
	require.Equal(t, AttachmentId(0), InvalidAttachmentId)
}

func TestIDStringers(t *testing.T) {
	require.Equal(t, "registry#7", RegistryId(7).String())
	require.Equal(t, "request#3", RequestId(3).String())
	require.Equal(t, "attachment#9", AttachmentId(9).String())
}
