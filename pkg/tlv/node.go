// Package tlv implements the BER-TLV (ISO/IEC 8825-1 subset used by EMV)
// codec, lookups over decoded trees, and the struct-tag mapping used by the
// EMV templates.
package tlv

import (
	"errors"
	"fmt"

	"github.com/gregLibert/paycard/pkg/bits"
)

// BER-TLV ENCODING (EMV Book 3, Annex B):
//
// TAG:
//   - Bits 8-7 of the first byte: class (universal, application, context, private).
//   - Bit 6: constructed (1) or primitive (0).
//   - Bits 5-1 all set ('1F'): the tag number continues in the next bytes,
//     each subsequent byte having bit 8 set while more bytes follow.
//     Examples: '5A' (PAN), '9F38' (PDOL), 'BF0C' (FCI discretionary data).
//
// LENGTH:
//   - '00'-'7F': short form, the byte is the length.
//   - '81' XX: one length byte follows (128-255).
//   - '82' XX XX: two length bytes follow, big endian. '83'/'84' likewise.
//   - '80' (indefinite) is not allowed in EMV.
//
// VALUE:
//   - Primitive tags carry raw bytes (BCD, ASCII, binary: interpretation is
//     left to the caller).
//   - Constructed tags carry a concatenation of nested TLV objects.
//
// Bytes '00' and 'FF' may pad the space between objects and are skipped.

const (
	// MaxTagBytes is the longest tag the codec accepts. EMV never exceeds 3.
	MaxTagBytes = 4

	// MaxLengthBytes is the longest long-form length accepted ('84' + 4 bytes).
	MaxLengthBytes = 4

	// MaxDepth bounds the nesting of constructed objects.
	MaxDepth = 32
)

// Tag is a BER tag, its bytes packed big endian ('9F38' -> 0x9F38).
type Tag uint32

// Bytes returns the encoded tag bytes.
func (t Tag) Bytes() []byte {
	switch {
	case t > 0xFFFFFF:
		return []byte{byte(t >> 24), byte(t >> 16), byte(t >> 8), byte(t)}
	case t > 0xFFFF:
		return []byte{byte(t >> 16), byte(t >> 8), byte(t)}
	case t > 0xFF:
		return []byte{byte(t >> 8), byte(t)}
	default:
		return []byte{byte(t)}
	}
}

// first returns the leading tag byte, which carries class and form.
func (t Tag) first() byte {
	return t.Bytes()[0]
}

// IsConstructed reports whether the tag announces nested TLV objects.
func (t Tag) IsConstructed() bool {
	return bits.IsSet(t.first(), 6)
}

// Class returns the two class bits (0 universal, 1 application, 2 context, 3 private).
func (t Tag) Class() byte {
	return bits.GetRange(t.first(), 8, 7)
}

// String returns the tag in upper-case hex, the notation used by EMV books.
func (t Tag) String() string {
	return fmt.Sprintf("%X", t.Bytes())
}

// Node is one decoded TLV object.
// For constructed tags Value still holds the raw nested bytes and Children
// holds their decoded form.
type Node struct {
	Tag      Tag
	Value    []byte
	Children []Node
}

// IsConstructed reports whether the node's tag is constructed.
func (n Node) IsConstructed() bool {
	return n.Tag.IsConstructed()
}

// ErrMalformed is wrapped by every DecodeError.
var ErrMalformed = errors.New("tlv: malformed data")

// ErrorKind classifies a decode failure.
type ErrorKind int

const (
	// Truncated means a tag, length or value runs past the end of its buffer.
	Truncated ErrorKind = iota + 1
	// InvalidTag means the tag is longer than MaxTagBytes.
	InvalidTag
	// InvalidLength means an indefinite or oversized length field.
	InvalidLength
	// TooDeep means nesting exceeded MaxDepth.
	TooDeep
)

func (k ErrorKind) String() string {
	switch k {
	case Truncated:
		return "truncated"
	case InvalidTag:
		return "invalid tag"
	case InvalidLength:
		return "invalid length"
	case TooDeep:
		return "nesting too deep"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// DecodeError reports where decoding stopped. Offset is relative to the
// buffer given to Decode.
type DecodeError struct {
	Kind   ErrorKind
	Offset int
	Tag    Tag // zero when the tag itself could not be read
}

func (e *DecodeError) Error() string {
	if e.Tag != 0 {
		return fmt.Sprintf("tlv: %s at offset %d (tag %s)", e.Kind, e.Offset, e.Tag)
	}
	return fmt.Sprintf("tlv: %s at offset %d", e.Kind, e.Offset)
}

func (e *DecodeError) Unwrap() error {
	return ErrMalformed
}

// Decode parses a sequence of BER-TLV objects.
//
// It returns every object it could delimit together with the first error met.
// A malformed child stops the decoding of its parent's remaining children,
// but the parent (whose span is known) and its following siblings are still
// returned. A malformed top-level object ends the scan since nothing after it
// can be delimited. Decode never reads outside data.
func Decode(data []byte) ([]Node, error) {
	return decode(data, 0, 0)
}

func decode(data []byte, base, depth int) ([]Node, error) {
	var (
		nodes    []Node
		firstErr error
	)

	pos := 0
	for pos < len(data) {
		if data[pos] == 0x00 || data[pos] == 0xFF {
			pos++
			continue
		}

		start := pos

		tag, n, kind := readTag(data[pos:])
		if kind != 0 {
			return nodes, first(firstErr, &DecodeError{Kind: kind, Offset: base + start})
		}
		pos += n

		length, n, kind := readLength(data[pos:])
		if kind != 0 {
			return nodes, first(firstErr, &DecodeError{Kind: kind, Offset: base + pos, Tag: tag})
		}
		pos += n

		if length > uint64(len(data)-pos) {
			return nodes, first(firstErr, &DecodeError{Kind: Truncated, Offset: base + start, Tag: tag})
		}

		end := pos + int(length)
		node := Node{Tag: tag, Value: data[pos:end]}

		if tag.IsConstructed() {
			if depth+1 > MaxDepth {
				firstErr = first(firstErr, &DecodeError{Kind: TooDeep, Offset: base + pos, Tag: tag})
			} else {
				children, err := decode(node.Value, base+pos, depth+1)
				node.Children = children
				if err != nil {
					firstErr = first(firstErr, err)
				}
			}
		}

		nodes = append(nodes, node)
		pos = end
	}

	return nodes, firstErr
}

func first(existing, next error) error {
	if existing != nil {
		return existing
	}
	return next
}

// ParseTag reads one tag from the start of b and returns it with its size.
// Data object lists (tag and length pairs, no values) are walked with it.
func ParseTag(b []byte) (Tag, int, error) {
	tag, n, kind := readTag(b)
	if kind != 0 {
		return 0, 0, &DecodeError{Kind: kind}
	}
	return tag, n, nil
}

// readTag returns the tag, its size in bytes, or a failure kind.
func readTag(b []byte) (Tag, int, ErrorKind) {
	if len(b) == 0 {
		return 0, 0, Truncated
	}

	tag := Tag(b[0])
	if bits.GetRange(b[0], 5, 1) != 0x1F {
		return tag, 1, 0
	}

	for i := 1; ; i++ {
		if i >= MaxTagBytes {
			return 0, 0, InvalidTag
		}
		if i >= len(b) {
			return 0, 0, Truncated
		}
		tag = tag<<8 | Tag(b[i])
		if !bits.IsSet(b[i], 8) {
			return tag, i + 1, 0
		}
	}
}

// readLength returns the value length, the size of the length field, or a failure kind.
func readLength(b []byte) (uint64, int, ErrorKind) {
	if len(b) == 0 {
		return 0, 0, Truncated
	}

	if !bits.IsSet(b[0], 8) {
		return uint64(b[0]), 1, 0
	}

	count := int(b[0] & 0x7F)
	if count == 0 || count > MaxLengthBytes {
		return 0, 0, InvalidLength
	}
	if len(b) < 1+count {
		return 0, 0, Truncated
	}

	var length uint64
	for _, c := range b[1 : 1+count] {
		length = length<<8 | uint64(c)
	}
	return length, 1 + count, 0
}
