// Package framer turns a record.Codec into a byte-stream abstraction:
// push arbitrary bytes in, pop complete covertext records (or decoded
// payload fragments) out.
//
// spec.md §6 names the stream de-framer only as an external
// collaborator and puts socket chunking itself out of scope.
// original_source/fte/encoder.py's FTESocketWrapper nonetheless
// composes its send/recv directly around a push/pop pair
// (fte.record_layer.Encoder/Decoder, filtered out of the retrieved
// source — only encoder.py survived the original_source extraction).
// This package reconstructs that pure, socket-free buffering contract
// directly from the shape FTESocketWrapper.send/recv exercise it
// through: no socket, no retries, no handshake, exactly the record
// boundary bookkeeping.
//
// One wrinkle record_layer.py hides and this package cannot: Codec.Encode
// always reports bitsEncoded == capacity whenever msb <= capacity, per
// spec.md §4.3 step 2 ("any excess is dropped"). A chunk shorter than the
// language's byte capacity would, encoded bare, come back out of Decode
// padded to a full capacity's worth of (zero) bytes with no way to tell
// where the real data ended. So every chunk this package hands to Encode
// is itself a tiny self-describing frame — a 4-byte big-endian length
// prefix followed by the real bytes — rather than raw payload bytes.
// Chunks that fit within capacity are zero-padded up to capacity after
// the prefix (so Encode's own fixed bitsEncoded is harmless); chunks that
// spill into the AE tail are sized exactly, since the tail's bitsEncoded
// already carries the true length.
package framer

import (
	"encoding/binary"

	"github.com/drand/fte/bigint"
	"github.com/drand/fte/record"
)

// lengthPrefixSize is the width of the chunk-length header framer
// prepends to every plaintext chunk before handing it to Codec.Encode.
const lengthPrefixSize = 4

// Encoder buffers pushed bytes and drains them as covertext records.
// Encoder is not safe for concurrent use; callers needing concurrent
// access must serialize their own Push/Pop calls, matching the
// single-goroutine-per-connection assumption FTESocketWrapper makes.
type Encoder struct {
	Codec     *record.Codec
	Partition string

	pending []byte
}

// Push appends data to the buffer Pop drains from.
func (e *Encoder) Push(data []byte) {
	e.pending = append(e.pending, data...)
}

// Pop drains one record's worth of buffered bytes through Codec.Encode
// and returns the resulting covertext, or (nil, false) once the buffer
// is empty. Call it in a loop after every Push, as FTESocketWrapper.send
// does, since one Push may span more than one record.
func (e *Encoder) Pop() ([]byte, bool) {
	if len(e.pending) == 0 {
		return nil, false
	}

	capacityBytes := e.Codec.Language.Capacity() / 8
	chunk := e.nextChunk(capacityBytes)

	frame := make([]byte, lengthPrefixSize+len(chunk))
	binary.BigEndian.PutUint32(frame, uint32(len(chunk)))
	copy(frame[lengthPrefixSize:], chunk)

	msb := uint64(len(frame)) * 8
	if len(frame) <= capacityBytes {
		// Fits within the language's bare capacity: Encode will report
		// bitsEncoded == capacity regardless, so pad the frame out to
		// exactly that size. The length prefix, not bitsEncoded, is what
		// Decoder trusts to recover the real chunk length.
		padded := make([]byte, capacityBytes)
		copy(padded, frame)
		frame = padded
		msb = uint64(capacityBytes) * 8
	}

	payload := bigint.FromBytes(frame)
	covertext, _, _, err := e.Codec.Encode(msb, payload, e.Partition)
	if err != nil {
		// nextChunk sizes every chunk to fit within the codec's free
		// capacity plus, when allowed, its full AE tail budget; Encode
		// cannot fail on a chunk built that way.
		panic("framer: encode failed on a chunk sized to fit: " + err.Error())
	}
	e.pending = e.pending[len(chunk):]
	return covertext, true
}

// nextChunk returns the prefix of pending that the next Encode call will
// consume whole, after accounting for the lengthPrefixSize header: up to
// the language's free byte capacity, plus, when the codec allows an AE
// tail, up to MaxCellSize additional bytes. Capped this way, msb -
// capacity never exceeds 8*MaxCellSize, so the tail Decode later
// reconstructs is always within its own max_cell_size bound.
func (e *Encoder) nextChunk(capacityBytes int) []byte {
	max := capacityBytes - lengthPrefixSize
	if e.Codec.AllowAEBits {
		max += e.Codec.MaxCellSize
	}
	if max < 0 {
		max = 0
	}
	if len(e.pending) < max {
		return e.pending
	}
	return e.pending[:max]
}

// Decoder buffers received bytes and pops out decoded payload fragments
// in the order they were encoded. Like Encoder, it is not safe for
// concurrent use.
type Decoder struct {
	Codec     *record.Codec
	Partition string

	pending []byte
}

// Push appends received bytes to the buffer Pop scans for complete
// records.
func (d *Decoder) Push(data []byte) {
	d.pending = append(d.pending, data...)
}

// Pop returns the next fully-buffered record's decoded payload, or
// (nil, false) if no complete record is available yet. A decode failure
// on an already-complete record is neither retried nor skipped: Pop
// returns (nil, false) and leaves the record at the front of the buffer.
// It has no resync logic and will repeatedly fail to make progress past
// a corrupted record, the same way FTESocketWrapper.recv has no recovery
// path for a decode error other than propagating it to the caller.
func (d *Decoder) Pop() ([]byte, bool) {
	n, err := d.Codec.GetMsgLen(d.pending, d.Partition)
	if err != nil {
		return nil, false
	}
	if len(d.pending) < n {
		return nil, false
	}

	bitsDecoded, payload, _, err := d.Codec.Decode(d.pending[:n], d.Partition)
	if err != nil {
		return nil, false
	}
	d.pending = d.pending[n:]

	// bitsDecoded/8 is the frame's byte length. With an AE tail,
	// bitsDecoded is the msb Encoder passed, a multiple of 8; without one
	// it is the language capacity, whose whole bytes are the capacityBytes
	// the frame was padded to.
	frame := payload.Bytes(int(bitsDecoded / 8))
	if len(frame) < lengthPrefixSize {
		return nil, false
	}
	dataLen := binary.BigEndian.Uint32(frame[:lengthPrefixSize])
	data := frame[lengthPrefixSize:]
	if uint64(dataLen) > uint64(len(data)) {
		return nil, false
	}
	return data[:dataLen], true
}
