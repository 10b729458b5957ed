package emv

import (
	"errors"
	"fmt"
	"strings"

	"github.com/moov-io/bertlv"

	"github.com/gregLibert/paycard/pkg/tlv"
)

// FILE CONTROL INFORMATION (EMV Book 1, 11.3.4):
//
// 6F FCI Template
//    84 DF Name                          (PPSE name or AID)
//    A5 FCI Proprietary Template
//       50   Application Label           (ADF only)
//       87   Application Priority        (ADF only)
//       9F38 PDOL                        (ADF only)
//       BF0C FCI Issuer Discretionary Data
//            61 Directory Entry          (PPSE only, repeated)
//               4F AID, 50 Label, 87 Priority
//
// The same template answers SELECT PPSE and SELECT AID.

// ErrNoFCITemplate is returned when a SELECT answer does not start with '6F'.
var ErrNoFCITemplate = errors.New("emv: missing FCI template (6F)")

// FCI is the template returned by a successful SELECT.
type FCI struct {
	DFName              []byte                 `tlv:"84"`
	ProprietaryTemplate FCIProprietaryTemplate `tlv:"A5"`

	Unknown []bertlv.TLV `tlv:",unknown"`

	// Nodes is the decoded 6F template, kept for field scanning.
	Nodes []tlv.Node
}

// FCIProprietaryTemplate is tag 'A5'.
type FCIProprietaryTemplate struct {
	ApplicationLabel             []byte `tlv:"50" fmt:"ascii"`
	ApplicationPriorityIndicator []byte `tlv:"87" fmt:"int"`
	SFI                          []byte `tlv:"88"`
	PDOL                         []byte `tlv:"9F38"`
	LanguagePreference           []byte `tlv:"5F2D" fmt:"ascii"`
	IssuerCodeTableIndex         []byte `tlv:"9F11" fmt:"int"`
	ApplicationPreferredName     []byte `tlv:"9F12" fmt:"ascii"`

	IssuerDiscretionaryData *FCIIssuerDiscretionaryData `tlv:"BF0C"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// FCIIssuerDiscretionaryData is tag 'BF0C'. In a PPSE answer it lists the
// applications available over the contactless interface.
type FCIIssuerDiscretionaryData struct {
	Applications []ApplicationTemplate `tlv:"61"`

	LogEntry                           []byte `tlv:"9F4D"`
	IssuerIdentificationNumberExtended []byte `tlv:"9F0C"`
	IssuerCountryCodeAlpha3            []byte `tlv:"5F56" fmt:"ascii"`
	IssuerCountryCodeAlpha2            []byte `tlv:"5F55" fmt:"ascii"`
	BankIdentifierCode                 []byte `tlv:"5F54" fmt:"ascii"`
	IBAN                               []byte `tlv:"5F53" fmt:"ascii"`
	IssuerURL                          []byte `tlv:"5F50" fmt:"ascii"`
	IssuerIdentificationNumber         []byte `tlv:"42"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// ApplicationTemplate is a PPSE directory entry (tag '61').
type ApplicationTemplate struct {
	AID                          []byte `tlv:"4F"`
	ApplicationLabel             []byte `tlv:"50" fmt:"ascii"`
	ApplicationPriorityIndicator []byte `tlv:"87" fmt:"int"`
	ApplicationPreferredName     []byte `tlv:"9F12" fmt:"ascii"`
	KernelIdentifier             []byte `tlv:"9F2A"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// ParseFCI decodes the data of a SELECT answer. Malformed TLV is reported
// as a wrapped *tlv.DecodeError.
func ParseFCI(data []byte) (*FCI, error) {
	if len(data) == 0 {
		return nil, ErrNoFCITemplate
	}

	nodes, err := tlv.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("FCI decode failed: %w", err)
	}

	tmpl, ok := tlv.Find(nodes, TagFCITemplate)
	if !ok {
		return nil, ErrNoFCITemplate
	}

	fci := &FCI{Nodes: []tlv.Node{tmpl}}
	if err := tlv.UnmarshalNodes(tmpl.Children, fci); err != nil {
		return nil, fmt.Errorf("failed to map FCI: %w", err)
	}

	return fci, nil
}

// Applications returns the directory entries of a PPSE answer.
func (f *FCI) Applications() []ApplicationTemplate {
	if f.ProprietaryTemplate.IssuerDiscretionaryData == nil {
		return nil
	}
	return f.ProprietaryTemplate.IssuerDiscretionaryData.Applications
}

// PDOL returns the Processing Options Data Object List, nil when absent.
func (f *FCI) PDOL() []byte {
	return f.ProprietaryTemplate.PDOL
}

// Describe renders the FCI for debug logs.
func (f *FCI) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== EMV FCI TEMPLATE ===")

	tlv.WriteStructFields(&sb, "FCI", f)
	tlv.WriteStructFields(&sb, "Proprietary", f.ProprietaryTemplate)

	if dd := f.ProprietaryTemplate.IssuerDiscretionaryData; dd != nil {
		tlv.WriteStructFields(&sb, "Discretionary", dd)
		for i, app := range dd.Applications {
			tlv.WriteStructFields(&sb, fmt.Sprintf("App[%d]", i+1), app)
		}
	}

	return sb.String()
}
