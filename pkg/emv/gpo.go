package emv

import (
	"errors"
	"fmt"

	"github.com/gregLibert/paycard/pkg/iso7816"
	"github.com/gregLibert/paycard/pkg/tlv"
)

// GET PROCESSING OPTIONS (EMV Book 3, 6.5.8):
//
// C-APDU: 80 A8 00 00 Lc [83 L <PDOL answer>] 00
//
// R-APDU, format 1: 80 L <AIP (2)> <AFL (4*n)>
// R-APDU, format 2: 77 L ... 82 02 <AIP> ... 94 L <AFL> ...
//
// A format 2 template may carry other objects (Track 2 on some kernels).

// ErrResponseFormat is returned for a GPO answer that is neither format 1
// nor format 2.
var ErrResponseFormat = errors.New("emv: unknown GPO response format")

// GetProcessingOptions builds GPO with the PDOL answer wrapped in tag '83'.
// A nil answer gives the empty template '83 00'.
func GetProcessingOptions(pdolAnswer []byte) (*iso7816.CommandAPDU, error) {
	data := []byte{byte(TagCommandTemplate), 0x00}
	if len(pdolAnswer) > 0 {
		var err error
		if data, err = tlv.Encode(TagCommandTemplate, pdolAnswer); err != nil {
			return nil, fmt.Errorf("GPO command template: %w", err)
		}
	}

	ins, _ := iso7816.NewInstruction(iso7816.INS_GET_PROCESSING_OPTIONS)
	return iso7816.NewCommandAPDU(emvClass, ins, 0x00, 0x00, data, iso7816.MaxShortLe), nil
}

// ProcessingOptions is a decoded GPO answer.
type ProcessingOptions struct {
	AIP []byte
	AFL []AFLEntry
	// Nodes is the decoded answer, scanned for card fields.
	Nodes []tlv.Node
}

// ParseProcessingOptions decodes a GPO answer in either format.
func ParseProcessingOptions(data []byte) (*ProcessingOptions, error) {
	nodes, err := tlv.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("GPO decode failed: %w", err)
	}

	po := &ProcessingOptions{Nodes: nodes}

	if n, ok := tlv.Find(nodes, TagResponseFormat1); ok {
		if len(n.Value) < 2 {
			return nil, fmt.Errorf("format 1 answer of %d bytes: %w", len(n.Value), ErrResponseFormat)
		}
		po.AIP = n.Value[:2]
		po.AFL = ParseAFL(n.Value[2:])
		return po, nil
	}

	tmpl, ok := tlv.Find(nodes, TagResponseFormat2)
	if !ok {
		return nil, ErrResponseFormat
	}
	if aip, ok := tlv.Find(tmpl.Children, TagAIP); ok {
		po.AIP = aip.Value
	}
	if afl, ok := tlv.Find(tmpl.Children, TagAFL); ok {
		po.AFL = ParseAFL(afl.Value)
	}
	return po, nil
}
