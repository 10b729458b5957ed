package iso7816

import "fmt"

// SELECT (ISO/IEC 7816-4, section 11.2.2), INS 'A4'.
//
//   P1  selection method: by file ID, by DF name (AID), by path...
//   P2  bits 4-3 response template (FCI, FCP, FMD, none)
//       bits 2-1 occurrence (first, last, next, previous)
//
// Contact cards running T=0 cannot take Lc and Le together, so the generic
// builder omits Le when data is present and relies on 61XX. Contactless
// cards (ISO/IEC 14443-4) carry case 4 fine and payment cards expect it:
// SelectByName always sends Le '00'.

// SelectionMethod is P1 of SELECT.
type SelectionMethod byte

const (
	SelectByFileID          SelectionMethod = 0x00
	SelectChildDF           SelectionMethod = 0x01
	SelectEFUnderCurrentDF  SelectionMethod = 0x02
	SelectParentDF          SelectionMethod = 0x03
	SelectByDFName          SelectionMethod = 0x04
	SelectPathFromMF        SelectionMethod = 0x08
	SelectPathFromCurrentDF SelectionMethod = 0x09
)

var selectionMethodNames = map[SelectionMethod]string{
	SelectByFileID:          "Select by File ID",
	SelectChildDF:           "Select Child DF",
	SelectEFUnderCurrentDF:  "Select EF under current DF",
	SelectParentDF:          "Select Parent DF",
	SelectByDFName:          "Select by DF Name (AID)",
	SelectPathFromMF:        "Select Path from MF",
	SelectPathFromCurrentDF: "Select Path from Current DF",
}

func (s SelectionMethod) String() string {
	if name, ok := selectionMethodNames[s]; ok {
		return name
	}
	return fmt.Sprintf("SelectionMethod(0x%02X)", byte(s))
}

// FileOccurrence is bits 2-1 of P2.
type FileOccurrence byte

const (
	FirstOrOnlyOccurrence FileOccurrence = 0b00
	LastOccurrence        FileOccurrence = 0b01
	NextOccurrence        FileOccurrence = 0b10
	PreviousOccurrence    FileOccurrence = 0b11
)

func (f FileOccurrence) String() string {
	switch f {
	case FirstOrOnlyOccurrence:
		return "First/Only"
	case LastOccurrence:
		return "Last"
	case NextOccurrence:
		return "Next"
	case PreviousOccurrence:
		return "Previous"
	}
	return fmt.Sprintf("FileOccurrence(%d)", byte(f))
}

// SelectionControl is bits 4-3 of P2.
type SelectionControl byte

const (
	ReturnFCI    SelectionControl = 0b0000
	ReturnFCP    SelectionControl = 0b0100
	ReturnFMD    SelectionControl = 0b1000
	ReturnNoData SelectionControl = 0b1100
)

func (s SelectionControl) String() string {
	switch s {
	case ReturnFCI:
		return "Return FCI"
	case ReturnFCP:
		return "Return FCP"
	case ReturnFMD:
		return "Return FMD"
	case ReturnNoData:
		return "No Response Data"
	}
	return fmt.Sprintf("SelectionControl(%d)", byte(s))
}

// NewSelectCommand builds a SELECT in its T=0 compatible form: Le is only
// sent when there is no command data and a response is wanted.
func NewSelectCommand(
	cla Class,
	method SelectionMethod,
	occurrence FileOccurrence,
	ctrl SelectionControl,
	data []byte,
) *CommandAPDU {
	ne := 0
	if len(data) == 0 && ctrl != ReturnNoData {
		ne = MaxShortLe
	}
	return newSelect(cla, method, occurrence, ctrl, data, ne)
}

// SelectByAID selects an application by AID, T=0 compatible.
func SelectByAID(cla Class, aid []byte) *CommandAPDU {
	return NewSelectCommand(cla, SelectByDFName, FirstOrOnlyOccurrence, ReturnFCI, aid)
}

// SelectByName selects a DF by name (a PSE/PPSE name or an AID) as a case 4
// command with Le '00', the form contactless payment cards expect.
func SelectByName(cla Class, name []byte) *CommandAPDU {
	return newSelect(cla, SelectByDFName, FirstOrOnlyOccurrence, ReturnFCI, name, MaxShortLe)
}

func newSelect(
	cla Class,
	method SelectionMethod,
	occurrence FileOccurrence,
	ctrl SelectionControl,
	data []byte,
	ne int,
) *CommandAPDU {
	ins, _ := NewInstruction(INS_SELECT)
	p2 := byte(ctrl) | byte(occurrence)
	return NewCommandAPDU(cla, ins, byte(method), p2, data, ne)
}
