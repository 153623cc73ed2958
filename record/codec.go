// Package record implements the record codec: spec.md §4.3. Given a
// Language (the DFA engine, §4.2) and an AE primitive (the encrypted
// covertext header, §6), it packs a plaintext bit string plus a 16-byte
// encrypted header into a single covertext record, and inverts the
// operation.
package record

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/drand/fte/aeadheader"
	"github.com/drand/fte/bigint"
	"github.com/drand/fte/dfa"
	"github.com/drand/fte/log"
	"github.com/drand/fte/metrics"
)

// Language is the subset of *dfa.Language the codec depends on; kept as
// an interface so tests can substitute a fake language without building
// a real DFA table.
type Language interface {
	Capacity() int
	FixedSliceLength() (n int, fixed bool)
	Rank(x []byte) (*bigint.Int, error)
	Unrank(c *bigint.Int) ([]byte, error)
}

// languageAdapter adapts *dfa.Language to the Language interface above.
type languageAdapter struct{ *dfa.Language }

func (a languageAdapter) FixedSliceLength() (int, bool) { return a.N, a.FixedSlice }

// Wrap adapts a concrete *dfa.Language for use as a Codec's Language.
func Wrap(l *dfa.Language) Language { return languageAdapter{l} }

// Codec implements spec.md §4.3's encode/decode. It is stateless aside
// from its immutable Language and keyed AE primitive: every call is a
// pure function of its inputs, per spec.md §4.3 "State machine".
type Codec struct {
	Language    Language
	AE          aeadheader.Primitive
	AllowAEBits bool
	MaxCellSize int
	Logger      log.Logger

	// Name labels this codec's metrics (fte_records_encoded_total{language=Name},
	// ...). Left empty, every Codec built outside the registry package
	// still works, just under an empty language label.
	Name string

	// Rand supplies the 8 random header-padding bytes; defaults to
	// crypto/rand.Reader. Exposed for deterministic tests only.
	Rand io.Reader
}

// logger returns this codec's logger, tagged with its language name so
// every line it emits is attributable without the call site repeating it.
func (c *Codec) logger() log.Logger {
	base := c.Logger
	if base == nil {
		base = log.DefaultLogger()
	}
	return log.ForLanguage(base, c.Name)
}

func (c *Codec) rand() io.Reader {
	if c.Rand != nil {
		return c.Rand
	}
	return rand.Reader
}

// Encode packs the low msb bits of payload into one covertext record,
// per spec.md §4.3.
func (c *Codec) Encode(msb uint64, payload *bigint.Int, partition string) (covertext []byte, bitsEncoded uint64, remainder *bigint.Int, err error) {
	capacity := uint64(c.Language.Capacity())
	n, fixedSlice := c.Language.FixedSliceLength()

	var low *bigint.Int
	var tailBits uint64
	var tailBytes []byte

	switch {
	case msb <= capacity || !c.AllowAEBits:
		if msb > capacity && !c.AllowAEBits {
			return nil, 0, nil, ErrInvalidInput
		}
		low = payload
		bitsEncoded = capacity
	default:
		high, l := bigint.PeelOff(uint(msb), uint(capacity), payload)
		low = l
		tailBits = msb - capacity
		tailBytes = high.Bytes(int((tailBits + 7) / 8))
		bitsEncoded = msb
	}

	var headerPlain [aeadheader.HeaderSize]byte
	if _, err := io.ReadFull(c.rand(), headerPlain[:8]); err != nil {
		return nil, 0, nil, fmt.Errorf("record: generating header padding: %w", err)
	}
	binary.BigEndian.PutUint64(headerPlain[8:], tailBits)

	headerCipher, err := c.AE.EncryptHeader(headerPlain)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("record: encrypting header: %w", err)
	}
	h := bigint.FromBytes(headerCipher[:])

	cPrime := bigint.Add(low, bigint.Lsh(h, uint(capacity)))

	unrankStart := time.Now()
	body, err := c.Language.Unrank(cPrime)
	metrics.UnrankSeconds.WithLabelValues(c.Name).Observe(time.Since(unrankStart).Seconds())
	if err != nil {
		log.ForPartition(c.logger(), partition).Errorw("unrank failed", "error", err)
		return nil, 0, nil, fmt.Errorf("record: %w", err)
	}
	if fixedSlice && len(body) != n {
		return nil, 0, nil, fmt.Errorf("record: unrank produced %d bytes, want exactly %d", len(body), n)
	}

	covertext = append(body, tailBytes...)
	metrics.RecordsEncoded.WithLabelValues(c.Name).Inc()
	return covertext, bitsEncoded, bigint.Zero(), nil
}

// Decode inverts Encode, per spec.md §4.3.
func (c *Codec) Decode(x []byte, partition string) (bitsDecoded uint64, payload *bigint.Int, leftover []byte, err error) {
	n, _ := c.Language.FixedSliceLength()
	capacity := uint64(c.Language.Capacity())

	if len(x) < n {
		metrics.DecodeFailures.WithLabelValues(c.Name, ReasonShort).Inc()
		return 0, nil, nil, decodeFailure(ReasonShort)
	}

	rankStart := time.Now()
	cPrime, err := c.Language.Rank(x[:n])
	metrics.RankSeconds.WithLabelValues(c.Name).Observe(time.Since(rankStart).Seconds())
	if err != nil {
		log.ForPartition(c.logger(), partition).Debugw("rank failed during decode", "error", err)
		metrics.DecodeFailures.WithLabelValues(c.Name, ReasonRank).Inc()
		return 0, nil, nil, decodeFailure(ReasonRank)
	}

	totalHeaderBits := uint(128 + capacity)
	if cPrime.BitLen() > int(totalHeaderBits) {
		// A well-formed encode() never produces a rank this large; a
		// corrupted or adversarial covertext can. Treat it the same as
		// any other malformed header rather than letting PeelOff panic.
		metrics.DecodeFailures.WithLabelValues(c.Name, ReasonHeader).Inc()
		return 0, nil, nil, decodeFailure(ReasonHeader)
	}
	h, low := bigint.PeelOff(totalHeaderBits, uint(capacity), cPrime)

	headerCipherBytes := h.Bytes(16)
	if len(headerCipherBytes) != 16 {
		metrics.DecodeFailures.WithLabelValues(c.Name, ReasonHeader).Inc()
		return 0, nil, nil, decodeFailure(ReasonHeader)
	}
	var headerCipher [aeadheader.HeaderSize]byte
	copy(headerCipher[:], headerCipherBytes)

	headerPlain, err := c.AE.DecryptHeader(headerCipher)
	if err != nil {
		metrics.DecodeFailures.WithLabelValues(c.Name, ReasonHeader).Inc()
		return 0, nil, nil, decodeFailure(ReasonHeader)
	}
	tailBits := binary.BigEndian.Uint64(headerPlain[8:])
	tailBytes := int((tailBits + 7) / 8)

	if tailBytes > c.MaxCellSize {
		log.ForPartition(c.logger(), partition).Warnw("oversized tail declared in header", "tail_bytes", tailBytes)
		metrics.DecodeFailures.WithLabelValues(c.Name, ReasonHeader).Inc()
		return 0, nil, nil, decodeFailure(ReasonHeader)
	}
	if len(x) < n+tailBytes {
		metrics.DecodeFailures.WithLabelValues(c.Name, ReasonAEBytes).Inc()
		return 0, nil, nil, decodeFailure(ReasonAEBytes)
	}

	payload = low
	if tailBits > 0 {
		tailValue := bigint.FromBytes(x[n : n+tailBytes])
		payload = bigint.Add(bigint.Lsh(tailValue, uint(capacity)), low)
	}
	bitsDecoded = capacity + tailBits
	leftover = x[n+tailBytes:]
	metrics.RecordsDecoded.WithLabelValues(c.Name).Inc()
	return bitsDecoded, payload, leftover, nil
}

// GetMsgLen returns the total length (body + tail) of the next complete
// record at the front of x, per spec.md §4.3. It is the hook a streaming
// de-framer (the framer package) uses to find record boundaries.
func (c *Codec) GetMsgLen(x []byte, partition string) (int, error) {
	n, _ := c.Language.FixedSliceLength()
	capacity := uint64(c.Language.Capacity())

	if len(x) < n {
		return 0, decodeFailure(ReasonShort)
	}
	cPrime, err := c.Language.Rank(x[:n])
	if err != nil {
		return 0, decodeFailure(ReasonRank)
	}

	totalHeaderBits := uint(128 + capacity)
	if cPrime.BitLen() > int(totalHeaderBits) {
		return 0, decodeFailure(ReasonHeader)
	}
	h, _ := bigint.PeelOff(totalHeaderBits, uint(capacity), cPrime)
	headerCipherBytes := h.Bytes(16)
	if len(headerCipherBytes) != 16 {
		return 0, decodeFailure(ReasonHeader)
	}
	var headerCipher [aeadheader.HeaderSize]byte
	copy(headerCipher[:], headerCipherBytes)

	headerPlain, err := c.AE.DecryptHeader(headerCipher)
	if err != nil {
		return 0, decodeFailure(ReasonHeader)
	}
	tailBits := binary.BigEndian.Uint64(headerPlain[8:])
	tailBytes := int((tailBits + 7) / 8)
	if tailBytes > c.MaxCellSize {
		return 0, decodeFailure(ReasonHeader)
	}
	return n + tailBytes, nil
}
