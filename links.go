package dagjson

import (
	"bytes"

	cid "github.com/ipfs/go-cid"
	ipld "github.com/ipld/go-ipld-prime"
	cidlink "github.com/ipld/go-ipld-prime/linking/cid"
	basicnode "github.com/ipld/go-ipld-prime/node/basic"
)

// Links returns every CID referenced by the given DAG-JSON document, in
// encounter order. Content-addressed stores use this to learn the outbound
// edges of a block without otherwise interpreting it. The document is fully
// validated along the way; any decode error aborts the extraction.
func Links(data []byte) ([]cid.Cid, error) {
	nb := basicnode.Prototype.Any.NewBuilder()
	if err := Decode(nb, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	var cids []cid.Cid
	if err := collectLinks(nb.Build(), &cids); err != nil {
		return nil, err
	}
	return cids, nil
}

func collectLinks(n ipld.Node, cids *[]cid.Cid) error {
	switch n.Kind() {
	case ipld.Kind_Link:
		lnk, err := n.AsLink()
		if err != nil {
			return err
		}
		if cl, ok := lnk.(cidlink.Link); ok {
			*cids = append(*cids, cl.Cid)
		}
	case ipld.Kind_List:
		itr := n.ListIterator()
		for !itr.Done() {
			_, v, err := itr.Next()
			if err != nil {
				return err
			}
			if err := collectLinks(v, cids); err != nil {
				return err
			}
		}
	case ipld.Kind_Map:
		itr := n.MapIterator()
		for !itr.Done() {
			_, v, err := itr.Next()
			if err != nil {
				return err
			}
			if err := collectLinks(v, cids); err != nil {
				return err
			}
		}
	}
	return nil
}
