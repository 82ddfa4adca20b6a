package dagjson

import (
	"testing"

	cid "github.com/ipfs/go-cid"
	ipld "github.com/ipld/go-ipld-prime"
	"github.com/stretchr/testify/require"
)

const (
	testCid1 = "bafkreibme22gw2h7y2h7tg2fhqotaqjucnbc24deqo72b6mkl2egezxhvy"
	testCid2 = "bafy2bzacecnamqgqmifpluoeldx7zzglxcljo6oja4vrmtj7332rphldpdmn2"
)

func mustCid(t *testing.T, s string) cid.Cid {
	t.Helper()
	c, err := cid.Decode(s)
	require.NoError(t, err)
	return c
}

func mustMarshal(t *testing.T, n ipld.Node) string {
	t.Helper()
	data, err := Marshal(n)
	require.NoError(t, err)
	return string(data)
}

func mustUnmarshal(t *testing.T, s string) ipld.Node {
	t.Helper()
	n, err := Unmarshal([]byte(s))
	require.NoError(t, err)
	return n
}

func assertNodeEqual(t *testing.T, want, got ipld.Node) {
	t.Helper()
	require.True(t, ipld.DeepEqual(want, got),
		"node mismatch: want %s, got %s", mustMarshal(t, want), mustMarshal(t, got))
}

// fakeLink implements ipld.Link with no CID behind it; the encoder must
// refuse it.
type fakeLink struct{}

func (fakeLink) Prototype() ipld.LinkPrototype { return nil }
func (fakeLink) String() string                { return "fake" }
