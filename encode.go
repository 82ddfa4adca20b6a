package dagjson

import (
	"encoding/base64"
	"io"
	"math"

	ipld "github.com/ipld/go-ipld-prime"
	cidlink "github.com/ipld/go-ipld-prime/linking/cid"
	"github.com/polydawn/refmt/json"
	"github.com/polydawn/refmt/shared"
	"github.com/polydawn/refmt/tok"
)

// Encode walks the given node and writes its canonical DAG-JSON form to w.
// Encode fits the ipld.Encoder function interface.
//
// Map entries are emitted in the order the node's MapIterator yields them;
// the codec does not re-sort keys. Canonically ordered output therefore
// relies on the node presenting its keys in the data model's canonical
// order, which is where ordering policy lives.
func Encode(n ipld.Node, w io.Writer) error {
	return marshal(n, json.NewEncoder(w, json.EncodeOptions{}), 0)
}

func marshal(n ipld.Node, sink shared.TokenSink, depth int) error {
	if depth > maxDepth {
		return &DepthExceededError{Limit: maxDepth}
	}
	var tk tok.Token
	switch n.Kind() {
	case ipld.Kind_Null:
		tk.Type = tok.TNull
		_, err := sink.Step(&tk)
		return err
	case ipld.Kind_Bool:
		v, err := n.AsBool()
		if err != nil {
			return err
		}
		tk.Type = tok.TBool
		tk.Bool = v
		_, err = sink.Step(&tk)
		return err
	case ipld.Kind_Int:
		v, err := n.AsInt()
		if err != nil {
			return err
		}
		tk.Type = tok.TInt
		tk.Int = v
		_, err = sink.Step(&tk)
		return err
	case ipld.Kind_Float:
		v, err := n.AsFloat()
		if err != nil {
			return err
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &UnsupportedValueError{Value: v}
		}
		tk.Type = tok.TFloat64
		tk.Float64 = v
		_, err = sink.Step(&tk)
		return err
	case ipld.Kind_String:
		v, err := n.AsString()
		if err != nil {
			return err
		}
		tk.Type = tok.TString
		tk.Str = v
		_, err = sink.Step(&tk)
		return err
	case ipld.Kind_Bytes:
		v, err := n.AsBytes()
		if err != nil {
			return err
		}
		return marshalBytes(v, sink, &tk)
	case ipld.Kind_Link:
		lnk, err := n.AsLink()
		if err != nil {
			return err
		}
		cl, ok := lnk.(cidlink.Link)
		if !ok {
			return &UnsupportedTypeError{Kind: ipld.Kind_Link, Msg: "only CID-backed links are representable"}
		}
		if !cl.Cid.Defined() {
			return &UnsupportedTypeError{Kind: ipld.Kind_Link, Msg: "link has no CID"}
		}
		return marshalLink(cl.Cid.String(), sink, &tk)
	case ipld.Kind_List:
		tk.Type = tok.TArrOpen
		tk.Length = int(n.Length())
		if _, err := sink.Step(&tk); err != nil {
			return err
		}
		itr := n.ListIterator()
		for !itr.Done() {
			_, v, err := itr.Next()
			if err != nil {
				return err
			}
			if err := marshal(v, sink, depth+1); err != nil {
				return err
			}
		}
		tk.Type = tok.TArrClose
		_, err := sink.Step(&tk)
		return err
	case ipld.Kind_Map:
		tk.Type = tok.TMapOpen
		tk.Length = int(n.Length())
		if _, err := sink.Step(&tk); err != nil {
			return err
		}
		itr := n.MapIterator()
		for !itr.Done() {
			k, v, err := itr.Next()
			if err != nil {
				return err
			}
			ks, err := k.AsString()
			if err != nil {
				return &UnsupportedTypeError{Kind: k.Kind(), Msg: "map keys must be strings"}
			}
			tk.Type = tok.TString
			tk.Str = ks
			if _, err := sink.Step(&tk); err != nil {
				return err
			}
			if err := marshal(v, sink, depth+1); err != nil {
				return err
			}
		}
		tk.Type = tok.TMapClose
		_, err := sink.Step(&tk)
		return err
	default:
		return &UnsupportedTypeError{Kind: n.Kind(), Msg: "no DAG-JSON representation"}
	}
}

// marshalBytes emits {"/":{"bytes":"<base64>"}} with the standard alphabet,
// unpadded, no line wrapping.
func marshalBytes(v []byte, sink shared.TokenSink, tk *tok.Token) error {
	tk.Type = tok.TMapOpen
	tk.Length = 1
	if _, err := sink.Step(tk); err != nil {
		return err
	}
	tk.Type = tok.TString
	tk.Str = "/"
	if _, err := sink.Step(tk); err != nil {
		return err
	}
	tk.Type = tok.TMapOpen
	tk.Length = 1
	if _, err := sink.Step(tk); err != nil {
		return err
	}
	tk.Type = tok.TString
	tk.Str = "bytes"
	if _, err := sink.Step(tk); err != nil {
		return err
	}
	tk.Type = tok.TString
	tk.Str = base64.RawStdEncoding.EncodeToString(v)
	if _, err := sink.Step(tk); err != nil {
		return err
	}
	tk.Type = tok.TMapClose
	if _, err := sink.Step(tk); err != nil {
		return err
	}
	tk.Type = tok.TMapClose
	_, err := sink.Step(tk)
	return err
}

// marshalLink emits {"/":"<cid string>"}.
func marshalLink(s string, sink shared.TokenSink, tk *tok.Token) error {
	tk.Type = tok.TMapOpen
	tk.Length = 1
	if _, err := sink.Step(tk); err != nil {
		return err
	}
	tk.Type = tok.TString
	tk.Str = "/"
	if _, err := sink.Step(tk); err != nil {
		return err
	}
	tk.Type = tok.TString
	tk.Str = s
	if _, err := sink.Step(tk); err != nil {
		return err
	}
	tk.Type = tok.TMapClose
	_, err := sink.Step(tk)
	return err
}
