package tlv

import (
	"fmt"

	"github.com/moov-io/bertlv"
)

// Encode builds the BER-TLV encoding of a single primitive object.
func Encode(tag Tag, value []byte) ([]byte, error) {
	return EncodeNodes([]Node{{Tag: tag, Value: value}})
}

// EncodeNodes encodes a sequence of nodes. Constructed nodes with Children
// are encoded from the children (Value is ignored); otherwise Value is used.
func EncodeNodes(nodes []Node) ([]byte, error) {
	packets := make([]bertlv.TLV, 0, len(nodes))
	for _, n := range nodes {
		packets = append(packets, toPacket(n))
	}

	out, err := bertlv.Encode(packets)
	if err != nil {
		return nil, fmt.Errorf("bertlv encode failed: %w", err)
	}
	return out, nil
}

// Primitive returns a primitive node.
func Primitive(tag Tag, value []byte) Node {
	return Node{Tag: tag, Value: value}
}

// Constructed returns a constructed node wrapping children.
func Constructed(tag Tag, children ...Node) Node {
	return Node{Tag: tag, Children: children}
}

func toPacket(n Node) bertlv.TLV {
	p := bertlv.TLV{Tag: n.Tag.String()}
	if len(n.Children) == 0 {
		p.Value = n.Value
		return p
	}

	p.TLVs = make([]bertlv.TLV, 0, len(n.Children))
	for _, c := range n.Children {
		p.TLVs = append(p.TLVs, toPacket(c))
	}
	return p
}
