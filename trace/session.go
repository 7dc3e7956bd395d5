// Package trace records MemBuf script sessions and replays them against a
// fresh VM to detect behavioral drift.
//
// A trace file is a short header followed by the CBOR encoding of a
// Session, optionally zstd compressed:
//
//	"MBTR" | version (1 byte) | flags (1 byte) | payload
package trace

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("membuf.trace")

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("trace: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

const (
	formatVersion byte = 1
	flagZstd      byte = 1 << 0
)

var magic = []byte("MBTR")

// ErrBadHeader is returned when a trace file does not start with a valid
// header.
var ErrBadHeader = errors.New("trace: bad header")

// ---------------------------------------------------------------------------
// Session model
// ---------------------------------------------------------------------------

// Op identifies the kind of a recorded entry.
type Op uint8

const (
	OpDecl     Op = iota + 1 // value declaration
	OpCall                   // method invocation
	OpSnapshot               // final buffer contents
	OpDestroy                // value destruction
	OpAssign                 // value assignment, Var = Args[0]
)

func (o Op) String() string {
	switch o {
	case OpDecl:
		return "decl"
	case OpCall:
		return "call"
	case OpSnapshot:
		return "snapshot"
	case OpDestroy:
		return "destroy"
	case OpAssign:
		return "assign"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// Kind identifies the type of an Arg.
type Kind uint8

const (
	KindNil Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString // transient String value, by content
	KindRef    // declared value, by name
)

// Arg is a serializable script value.
type Arg struct {
	Kind  Kind    `cbor:"1,keyasint"`
	Int   int64   `cbor:"2,keyasint,omitempty"`
	Float float64 `cbor:"3,keyasint,omitempty"`
	Bool  bool    `cbor:"4,keyasint,omitempty"`
	Str   string  `cbor:"5,keyasint,omitempty"`
}

// Equal compares two args. Any two NaNs are equal, since the CBOR
// encoder may shorten a NaN's payload.
func (a Arg) Equal(b Arg) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindInt:
		return a.Int == b.Int
	case KindFloat:
		return a.Float == b.Float || (math.IsNaN(a.Float) && math.IsNaN(b.Float))
	case KindBool:
		return a.Bool == b.Bool
	case KindString, KindRef:
		return a.Str == b.Str
	default:
		return true
	}
}

func (a Arg) String() string {
	switch a.Kind {
	case KindInt:
		return fmt.Sprint(a.Int)
	case KindFloat:
		return fmt.Sprint(a.Float)
	case KindBool:
		return fmt.Sprint(a.Bool)
	case KindString:
		return fmt.Sprintf("%q", a.Str)
	case KindRef:
		return a.Str
	default:
		return "nil"
	}
}

// Entry is one recorded step of a session.
type Entry struct {
	Op   Op  `cbor:"1,keyasint"`
	Line int `cbor:"2,keyasint"`

	// Declarations and snapshots
	Var   string `cbor:"3,keyasint,omitempty"`
	Class string `cbor:"4,keyasint,omitempty"`
	Const bool   `cbor:"5,keyasint,omitempty"`

	// Calls
	Method string `cbor:"6,keyasint,omitempty"`
	Args   []Arg  `cbor:"7,keyasint,omitempty"`
	Result Arg    `cbor:"8,keyasint"`
	// Error is the raised exception's name, empty when the call returned.
	Error string `cbor:"9,keyasint,omitempty"`

	// Snapshots
	Bytes   []byte `cbor:"10,keyasint,omitempty"`
	MaxSize uint32 `cbor:"11,keyasint,omitempty"`
}

// Session is a complete recording.
type Session struct {
	ID      uuid.UUID `cbor:"1,keyasint"`
	Started time.Time `cbor:"2,keyasint"`
	Source  string    `cbor:"3,keyasint,omitempty"`
	Entries []Entry   `cbor:"4,keyasint"`
}

// NewSession starts an empty session for the named source.
func NewSession(source string) *Session {
	return &Session{
		ID:      uuid.New(),
		Started: time.Now(),
		Source:  source,
	}
}

// Calls returns the number of recorded calls.
func (s *Session) Calls() int {
	n := 0
	for _, e := range s.Entries {
		if e.Op == OpCall {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

// Marshal serializes a Session to CBOR bytes.
func Marshal(s *Session) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// Unmarshal deserializes a Session from CBOR bytes.
func Unmarshal(data []byte) (*Session, error) {
	var s Session
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("trace: unmarshal session: %w", err)
	}
	return &s, nil
}

// Write encodes s to w, zstd compressing the payload when compress is set.
func Write(w io.Writer, s *Session, compress bool) error {
	data, err := Marshal(s)
	if err != nil {
		return fmt.Errorf("trace: marshal session: %w", err)
	}

	var flags byte
	if compress {
		flags |= flagZstd
	}
	header := append(append([]byte{}, magic...), formatVersion, flags)
	if _, err := w.Write(header); err != nil {
		return err
	}

	if !compress {
		_, err = w.Write(data)
		return err
	}
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// Read decodes a session written by Write.
func Read(r io.Reader) (*Session, error) {
	header := make([]byte, len(magic)+2)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	if !bytes.Equal(header[:len(magic)], magic) {
		return nil, ErrBadHeader
	}
	if v := header[len(magic)]; v != formatVersion {
		return nil, fmt.Errorf("trace: unsupported format version %d", v)
	}
	flags := header[len(magic)+1]

	payload := r
	if flags&flagZstd != 0 {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		payload = zr
	}
	data, err := io.ReadAll(payload)
	if err != nil {
		return nil, fmt.Errorf("trace: read payload: %w", err)
	}
	return Unmarshal(data)
}

// WriteFile writes s to path.
func WriteFile(path string, s *Session, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := Write(bw, s, compress); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Infof("wrote session %s to %s (%d entries)", s.ID, path, len(s.Entries))
	return nil
}

// ReadFile reads a session from path.
func ReadFile(path string) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := Read(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
