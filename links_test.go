package dagjson

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	cid "github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cidComparer = cmp.Comparer(func(a, b cid.Cid) bool { return a.Equals(b) })

func TestLinksExtraction(t *testing.T) {
	doc := `[123456789959,-34567897654325468,{"/":"` + testCid1 + `"},-456787678,` +
		`{"nested_bool":true},null,{"nested":{"/":"` + testCid2 + `"}},23456543.5]`

	got, err := Links([]byte(doc))
	require.NoError(t, err)

	want := []cid.Cid{mustCid(t, testCid1), mustCid(t, testCid2)}
	if diff := cmp.Diff(want, got, cidComparer); diff != "" {
		t.Errorf("extracted links mismatch (-want +got):\n%s", diff)
	}
}

func TestLinksNoneFound(t *testing.T) {
	got, err := Links([]byte(`{"a":[1,2,{"b":"c"}],"bytes":{"/":{"bytes":"dm14"}}}`))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLinksInvalidDocument(t *testing.T) {
	_, err := Links([]byte(`{"a":1,"a":2}`))
	require.Error(t, err)
	assert.IsType(t, &DuplicateKeyError{}, err)
}

func TestLinksDuplicateCidKeptInOrder(t *testing.T) {
	doc := `[{"/":"` + testCid2 + `"},{"/":"` + testCid1 + `"},{"/":"` + testCid2 + `"}]`
	got, err := Links([]byte(doc))
	require.NoError(t, err)

	want := []cid.Cid{mustCid(t, testCid2), mustCid(t, testCid1), mustCid(t, testCid2)}
	if diff := cmp.Diff(want, got, cidComparer); diff != "" {
		t.Errorf("extracted links mismatch (-want +got):\n%s", diff)
	}
}
