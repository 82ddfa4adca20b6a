// Package dagjson implements the DAG-JSON multicodec: the canonical JSON
// encoding of the IPLD data model.
//
// DAG-JSON is plain JSON plus two reserved single-key object shapes that
// carry the data model kinds JSON lacks:
//
//	{"/":"<cid string>"}           a link
//	{"/":{"bytes":"<base64>"}}     a byte sequence
//
// Byte sequences use the standard base64 alphabet with no padding and no
// line wrapping. Canonical output contains no insignificant whitespace, so
// encoding the same value always yields the same bytes; this matters because
// DAG-JSON blocks are hashed to produce the CIDs that address them.
//
// Encode and Decode fit the ipld.Encoder and ipld.Decoder function
// interfaces and are registered for multicodec code 0x0129, so a
// cidlink-based LinkSystem will find them without further setup. Marshal and
// Unmarshal are byte-slice conveniences over the same logic.
//
// The codec holds no state between calls; all entry points are safe for
// concurrent use.
package dagjson

import (
	"bytes"

	ipld "github.com/ipld/go-ipld-prime"
	"github.com/ipld/go-ipld-prime/multicodec"
	basicnode "github.com/ipld/go-ipld-prime/node/basic"
)

// MulticodecCode is the code for DAG-JSON in the multicodec table.
const MulticodecCode = 0x0129

// maxDepth bounds the recursion of both the encoder and the decoder. The
// wire format has no inherent nesting limit, so without this a hostile
// document could exhaust the call stack.
const maxDepth = 1024

var (
	_ ipld.Encoder = Encode
	_ ipld.Decoder = Decode
)

func init() {
	multicodec.RegisterEncoder(MulticodecCode, Encode)
	multicodec.RegisterDecoder(MulticodecCode, Decode)
}

// Marshal encodes the given node and returns its canonical DAG-JSON bytes.
func Marshal(n ipld.Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(n, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a complete DAG-JSON document into a basicnode value.
// The document must contain exactly one top-level value; anything else
// trailing it is an error.
func Unmarshal(data []byte) (ipld.Node, error) {
	nb := basicnode.Prototype.Any.NewBuilder()
	if err := Decode(nb, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return nb.Build(), nil
}
