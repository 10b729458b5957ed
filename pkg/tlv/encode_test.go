package tlv

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/moov-io/bertlv"
)

// shape drops the raw value of constructed nodes so that decoded trees can be
// compared with trees built by Constructed.
func shape(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = Node{Tag: n.Tag, Value: n.Value}
		if n.IsConstructed() {
			out[i].Value = nil
			out[i].Children = shape(n.Children)
		}
	}
	return out
}

func TestEncode_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		tag   Tag
		value []byte
	}{
		{"Short value", 0x5A, Hex("4111111111111111")},
		{"Two byte tag", 0x9F38, Hex("9F66 04 9F02 06")},
		{"81 length", 0x9F4B, bytes.Repeat([]byte{0x11}, 200)},
		{"82 length", 0x9F4B, bytes.Repeat([]byte{0x22}, 300)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := Encode(tt.tag, tt.value)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			nodes, err := Decode(enc)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if len(nodes) != 1 {
				t.Fatalf("got %d nodes", len(nodes))
			}
			if nodes[0].Tag != tt.tag || !bytes.Equal(nodes[0].Value, tt.value) {
				t.Errorf("round trip changed node: %s %X", nodes[0].Tag, nodes[0].Value)
			}
		})
	}
}

func TestEncodeNodes_NestedRoundTrip(t *testing.T) {
	tree := []Node{
		Constructed(0x6F,
			Primitive(0x84, []byte("2PAY.SYS.DDF01")),
			Constructed(0xA5,
				Primitive(0x50, []byte("VISA")),
				Constructed(0xBF0C,
					Constructed(0x61,
						Primitive(0x4F, Hex("A0000000031010")),
						Primitive(0x87, Hex("01")),
					),
				),
			),
		),
	}

	enc, err := EncodeNodes(tree)
	if err != nil {
		t.Fatalf("EncodeNodes() error = %v", err)
	}

	decoded, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if diff := cmp.Diff(tree, shape(decoded)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	reenc, err := EncodeNodes(decoded)
	if err != nil {
		t.Fatalf("re-encode error = %v", err)
	}
	if !bytes.Equal(enc, reenc) {
		t.Errorf("re-encoding differs:\n%X\n%X", enc, reenc)
	}
}

func TestDecode_AgreesWithBertlv(t *testing.T) {
	data := Hex(
		"77 12",
		"82 02 1980",
		"94 0C 08010100 10010301 18010200",
	)

	packets, err := bertlv.Decode(data)
	if err != nil {
		t.Fatalf("bertlv.Decode() error = %v", err)
	}
	nodes, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if len(packets) != len(nodes) || len(packets[0].TLVs) != len(nodes[0].Children) {
		t.Fatalf("structure differs: %d/%d", len(packets), len(nodes))
	}
	for i, p := range packets[0].TLVs {
		c := nodes[0].Children[i]
		if !bytes.Equal(p.Value, c.Value) {
			t.Errorf("child %d value %X vs %X", i, p.Value, c.Value)
		}
	}
}
