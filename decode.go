package dagjson

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	cid "github.com/ipfs/go-cid"
	ipld "github.com/ipld/go-ipld-prime"
	cidlink "github.com/ipld/go-ipld-prime/linking/cid"
	"github.com/polydawn/refmt/json"
	"github.com/polydawn/refmt/shared"
	"github.com/polydawn/refmt/tok"
)

// Decode reads a complete DAG-JSON document from r and feeds the value it
// describes into na. Decode fits the ipld.Decoder function interface.
//
// The document must contain exactly one top-level value; any content after
// it other than JSON whitespace is a TrailingDataError. Whitespace between
// tokens is tolerated on the way in, but has no representation in the data
// model, so re-encoding the decoded value always reproduces the canonical
// byte form.
func Decode(na ipld.NodeAssembler, r io.Reader) error {
	cr := &countingReader{r: r}
	st := decodeState{src: json.NewDecoder(cr), r: cr}
	if err := st.next(); err != nil {
		return err
	}
	if err := st.decode(na, 0); err != nil {
		return err
	}
	return st.checkTrailing()
}

// decodeState drives the token source. DAG-JSON's reserved shapes force a
// bounded lookahead after every object open: we cannot call BeginMap until
// we know the object is not going to turn out to be a link or a byte
// sequence. Peeked tokens that turn out to belong to an ordinary map are
// replayed from buf before any new tokens are pulled from the source.
type decodeState struct {
	src shared.TokenSource
	r   *countingReader
	tk  tok.Token   // current token
	buf []tok.Token // peeked but unconsumed tokens, oldest first
}

// next loads the following token into st.tk, draining the replay buffer
// before touching the source.
func (st *decodeState) next() error {
	if len(st.buf) > 0 {
		st.tk = st.buf[0]
		st.buf = st.buf[1:]
		return nil
	}
	st.r.beginSegment()
	if _, err := st.src.Step(&st.tk); err != nil {
		return st.tokenErr(err)
	}
	return st.checkLiteral(&st.tk)
}

// peek returns the i'th token ahead of the current one (0-based) without
// consuming it.
func (st *decodeState) peek(i int) (tok.Token, error) {
	for len(st.buf) <= i {
		st.buf = append(st.buf, tok.Token{})
		st.r.beginSegment()
		if _, err := st.src.Step(&st.buf[len(st.buf)-1]); err != nil {
			return tok.Token{}, st.tokenErr(err)
		}
		if err := st.checkLiteral(&st.buf[len(st.buf)-1]); err != nil {
			return tok.Token{}, err
		}
	}
	return st.buf[i], nil
}

// checkLiteral verifies that a null or bool token was spelled exactly null,
// true, or false in the input. The token source consumes literal bodies
// without reading them, so mangled spellings like "nul" or "trux" would
// otherwise produce valid tokens.
func (st *decodeState) checkLiteral(t *tok.Token) error {
	var lit string
	switch t.Type {
	case tok.TNull:
		lit = "null"
	case tok.TBool:
		lit = "true"
		if !t.Bool {
			lit = "false"
		}
	default:
		return nil
	}
	if !st.r.segEndsWith(lit) {
		return &SyntaxError{Msg: fmt.Sprintf("invalid literal, expected %q", lit), Offset: st.r.n}
	}
	return nil
}

// tokenErr classifies an error surfaced by the token source.
func (st *decodeState) tokenErr(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return &UnexpectedEOFError{Offset: st.r.n}
	}
	var ne *strconv.NumError
	if errors.As(err, &ne) && ne.Err == strconv.ErrRange {
		return &NumberOutOfRangeError{Number: ne.Num}
	}
	return &SyntaxError{Msg: err.Error(), Offset: st.r.n}
}

// decode assembles the value starting at the current token.
func (st *decodeState) decode(na ipld.NodeAssembler, depth int) error {
	switch st.tk.Type {
	case tok.TMapOpen:
		if depth >= maxDepth {
			return &DepthExceededError{Limit: maxDepth}
		}
		return st.decodeMap(na, depth)
	case tok.TArrOpen:
		if depth >= maxDepth {
			return &DepthExceededError{Limit: maxDepth}
		}
		la, err := na.BeginList(-1)
		if err != nil {
			return err
		}
		for {
			if err := st.next(); err != nil {
				return err
			}
			if st.tk.Type == tok.TArrClose {
				return la.Finish()
			}
			if err := st.decode(la.AssembleValue(), depth+1); err != nil {
				return err
			}
		}
	case tok.TMapClose:
		return &SyntaxError{Msg: "unexpected object close", Offset: st.r.n}
	case tok.TArrClose:
		return &SyntaxError{Msg: "unexpected array close", Offset: st.r.n}
	case tok.TNull:
		return na.AssignNull()
	case tok.TBool:
		return na.AssignBool(st.tk.Bool)
	case tok.TInt:
		return na.AssignInt(st.tk.Int)
	case tok.TUint:
		if st.tk.Uint > math.MaxInt64 {
			return &NumberOutOfRangeError{Number: strconv.FormatUint(st.tk.Uint, 10)}
		}
		return na.AssignInt(int64(st.tk.Uint))
	case tok.TFloat64:
		return na.AssignFloat(st.tk.Float64)
	case tok.TString:
		return na.AssignString(st.tk.Str)
	default:
		return &SyntaxError{Msg: fmt.Sprintf("unexpected %s token", st.tk.Type), Offset: st.r.n}
	}
}

// decodeMap is entered with the current token being a map open. It first
// runs the reserved-shape lookahead; if the object is neither a link nor a
// byte sequence, it assembles an ordinary map, replaying whatever the
// lookahead buffered.
func (st *decodeState) decodeMap(na ipld.NodeAssembler, depth int) error {
	handled, err := st.decodeReserved(na)
	if err != nil {
		return err
	}
	if handled {
		return nil
	}

	ma, err := na.BeginMap(-1)
	if err != nil {
		return err
	}
	var seen map[string]struct{}
	for {
		if err := st.next(); err != nil {
			return err
		}
		switch st.tk.Type {
		case tok.TMapClose:
			return ma.Finish()
		case tok.TString:
			// map key
		default:
			return &SyntaxError{Msg: fmt.Sprintf("unexpected %s token while expecting map key", st.tk.Type), Offset: st.r.n}
		}
		key := st.tk.Str
		if seen == nil {
			seen = make(map[string]struct{}, 8)
		}
		if _, dup := seen[key]; dup {
			return &DuplicateKeyError{Key: key}
		}
		seen[key] = struct{}{}
		va, err := ma.AssembleEntry(key)
		if err != nil {
			return err
		}
		if err := st.next(); err != nil {
			return err
		}
		if err := st.decode(va, depth+1); err != nil {
			return err
		}
	}
}

// decodeReserved peeks past a map open for DAG-JSON's two reserved shapes,
// {"/":"<cid>"} and {"/":{"bytes":"<base64>"}}. It reports true when it
// assigned a link or bytes value (the peeked tokens are then consumed), and
// false when the object is ordinary map data (the peeked tokens stay
// buffered for replay). A provably single-key "/" object that matches
// neither shape is an error; reserved-ness requires exactly one key, so an
// object where more keys follow is ordinary data.
//
// The lookahead window is at most six tokens, which is all the reserved
// shapes can span. Shapes that cannot be classified inside the window (for
// example "/" mapping to some larger object) fall back to ordinary map data
// so that decoding stays bounded-memory.
func (st *decodeState) decodeReserved(na ipld.NodeAssembler) (bool, error) {
	t0, err := st.peek(0)
	if err != nil {
		return false, err
	}
	if t0.Type != tok.TString || t0.Str != "/" {
		return false, nil
	}
	t1, err := st.peek(1)
	if err != nil {
		return false, err
	}
	switch t1.Type {
	case tok.TString:
		// Link candidate. It is only a link if the object closes here;
		// another key following means ordinary data.
		t2, err := st.peek(2)
		if err != nil {
			return false, err
		}
		if t2.Type != tok.TMapClose {
			return false, nil
		}
		c, err := cid.Decode(t1.Str)
		if err != nil {
			return false, &InvalidLinkError{Str: t1.Str, Err: err}
		}
		if err := na.AssignLink(cidlink.Link{Cid: c}); err != nil {
			return false, err
		}
		st.buf = st.buf[:0]
		return true, nil
	case tok.TMapOpen:
		// Bytes candidate: {"/":{"bytes":"..."}}.
		t2, err := st.peek(2)
		if err != nil {
			return false, err
		}
		if t2.Type != tok.TString || t2.Str != "bytes" {
			return false, nil
		}
		t3, err := st.peek(3)
		if err != nil {
			return false, err
		}
		if t3.Type != tok.TString {
			return st.badBytesValue(t3)
		}
		t4, err := st.peek(4)
		if err != nil {
			return false, err
		}
		if t4.Type != tok.TMapClose {
			return false, nil
		}
		t5, err := st.peek(5)
		if err != nil {
			return false, err
		}
		if t5.Type != tok.TMapClose {
			return false, nil
		}
		data, err := base64.RawStdEncoding.DecodeString(t3.Str)
		if err != nil {
			return false, &InvalidBytesError{Msg: fmt.Sprintf("cannot decode base64 %q", t3.Str)}
		}
		if err := na.AssignBytes(data); err != nil {
			return false, err
		}
		st.buf = st.buf[:0]
		return true, nil
	case tok.TNull, tok.TBool, tok.TInt, tok.TUint, tok.TFloat64:
		// A scalar under "/". If the object closes right after, it is a
		// single-key reserved object carrying neither a link nor bytes.
		t2, err := st.peek(2)
		if err != nil {
			return false, err
		}
		if t2.Type == tok.TMapClose {
			return false, &SyntaxError{Msg: `reserved "/" key carries neither a link nor bytes`, Offset: st.r.n}
		}
		return false, nil
	default:
		return false, nil
	}
}

// badBytesValue decides whether a non-string value under "bytes" is a
// provable reserved-shape violation (single-key wrapper) or possibly
// ordinary data (more keys follow). Only scalar values can be stepped over
// inside the lookahead window.
func (st *decodeState) badBytesValue(t3 tok.Token) (bool, error) {
	switch t3.Type {
	case tok.TNull, tok.TBool, tok.TInt, tok.TUint, tok.TFloat64:
		t4, err := st.peek(4)
		if err != nil {
			return false, err
		}
		if t4.Type != tok.TMapClose {
			return false, nil
		}
		t5, err := st.peek(5)
		if err != nil {
			return false, err
		}
		if t5.Type != tok.TMapClose {
			return false, nil
		}
		return false, &InvalidBytesError{Msg: "value must be a base64 string"}
	default:
		return false, nil
	}
}

// checkTrailing verifies nothing but JSON whitespace remains after the
// top-level value. When that value was a bare number, the byte that
// terminated it never reaches us (the token source keeps it as scanner
// lookahead), so the shadow number scan is consulted for it first.
func (st *decodeState) checkTrailing() error {
	switch st.tk.Type {
	case tok.TInt, tok.TUint, tok.TFloat64:
		if b, ok := st.r.num.terminator(); ok {
			switch b {
			case ' ', '\t', '\r', '\n':
				// whitespace is fine
			default:
				return &TrailingDataError{Offset: st.r.n - 1}
			}
		}
	}
	var b [1]byte
	for {
		n, err := st.r.Read(b[:])
		if n > 0 {
			switch b[0] {
			case ' ', '\t', '\r', '\n':
				// whitespace is fine
			default:
				return &TrailingDataError{Offset: st.r.n - 1}
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// countingReader sits between the raw input and the token source. It counts
// consumed bytes so errors can report an offset, and it retains a window of
// the bytes behind the token currently being read: the token source consumes
// literal bodies without checking their spelling and keeps its one-byte
// number lookahead in scanner state, so both have to be re-verified from the
// raw byte stream.
type countingReader struct {
	r io.Reader
	n uint64

	tail [8]byte // last bytes of the current segment, oldest first
	tlen int
	seg  uint64 // total bytes consumed this segment
	num  numScan
}

// beginSegment marks the start of a token read; tail, seg and num describe
// everything consumed since the last mark.
func (cr *countingReader) beginSegment() {
	cr.tlen = 0
	cr.seg = 0
	cr.num = numScan{}
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	for _, b := range p[:n] {
		if cr.tlen == len(cr.tail) {
			copy(cr.tail[:], cr.tail[1:])
			cr.tlen--
		}
		cr.tail[cr.tlen] = b
		cr.tlen++
		cr.num.feed(b)
	}
	cr.n += uint64(n)
	cr.seg += uint64(n)
	return n, err
}

// segEndsWith reports whether the bytes consumed in the current segment end
// with the given text.
func (cr *countingReader) segEndsWith(s string) bool {
	if cr.seg < uint64(len(s)) {
		return false
	}
	return string(cr.tail[cr.tlen-len(s):cr.tlen]) == s
}

// numScan shadows the token source's numeric grammar over the raw bytes of
// a segment, recording the byte that terminated a number. The states and
// transitions mirror the tokenizer's own scan exactly, so the two always
// agree on where a number ends.
type numScan struct {
	state   int8
	term    byte
	hasTerm bool
}

const (
	numStart int8 = iota // leading whitespace, sign, or first digit
	numNeg               // read "-"
	numZero              // read a leading "0"
	numInt               // reading integer digits
	numDot               // read the decimal point
	numFrac              // reading fraction digits
	numExp               // read "e" or "E"
	numExpSign           // read the exponent sign
	numExpInt            // reading exponent digits
	numDone
)

func (s *numScan) feed(b byte) {
	digit := '0' <= b && b <= '9'
	switch s.state {
	case numStart:
		switch {
		case b == ' ' || b == '\t' || b == '\r' || b == '\n':
		case b == '-':
			s.state = numNeg
		case b == '0':
			s.state = numZero
		case digit:
			s.state = numInt
		default:
			s.state = numDone
		}
	case numNeg:
		switch {
		case b == '0':
			s.state = numZero
		case digit:
			s.state = numInt
		default:
			s.state = numDone
		}
	case numZero:
		switch {
		case b == '.':
			s.state = numDot
		case b == 'e' || b == 'E':
			s.state = numExp
		default:
			s.end(b)
		}
	case numInt:
		switch {
		case digit:
		case b == '.':
			s.state = numDot
		case b == 'e' || b == 'E':
			s.state = numExp
		default:
			s.end(b)
		}
	case numDot:
		if digit {
			s.state = numFrac
		} else {
			s.state = numDone
		}
	case numFrac:
		switch {
		case digit:
		case b == 'e' || b == 'E':
			s.state = numExp
		default:
			s.end(b)
		}
	case numExp:
		switch {
		case b == '+' || b == '-':
			s.state = numExpSign
		case digit:
			s.state = numExpInt
		default:
			s.state = numDone
		}
	case numExpSign:
		if digit {
			s.state = numExpInt
		} else {
			s.state = numDone
		}
	case numExpInt:
		if !digit {
			s.end(b)
		}
	}
}

// end records the byte that terminated a complete number.
func (s *numScan) end(b byte) {
	s.term = b
	s.hasTerm = true
	s.state = numDone
}

// terminator returns the byte that ended the segment's number, if the
// segment held a complete number followed by one more byte.
func (s *numScan) terminator() (byte, bool) {
	return s.term, s.hasTerm
}
