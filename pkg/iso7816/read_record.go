package iso7816

import "fmt"

// READ RECORD (ISO/IEC 7816-4, section 11.3.3), INS 'B2'.
//
//   P1  record number, or record identifier, depending on P2 bit 3
//   P2  bits 8-4 SFI (0 = current EF)
//       bit 3    1 = P1 is a record number
//       bits 2-1 occurrence or range
//
// EMV reads one record per command: P2 = (SFI << 3) | '100'.
// The command is case 2 and always asks for Le '00'.

// ReadRecordMode is bits 3-1 of P2.
type ReadRecordMode byte

const (
	RefByID_FirstOccurrence    ReadRecordMode = 0b000
	RefByID_LastOccurrence     ReadRecordMode = 0b001
	RefByID_NextOccurrence     ReadRecordMode = 0b010
	RefByID_PreviousOccurrence ReadRecordMode = 0b011

	RefByNum_ReadP1              ReadRecordMode = 0b100
	RefByNum_ReadAllFromP1       ReadRecordMode = 0b101
	RefByNum_ReadAllFromLastToP1 ReadRecordMode = 0b110
)

var readRecordModeNames = map[ReadRecordMode]string{
	RefByID_FirstOccurrence:      "Ref ID: First Occurrence",
	RefByID_LastOccurrence:       "Ref ID: Last Occurrence",
	RefByID_NextOccurrence:       "Ref ID: Next Occurrence",
	RefByID_PreviousOccurrence:   "Ref ID: Previous Occurrence",
	RefByNum_ReadP1:              "Ref Num: Read Record P1",
	RefByNum_ReadAllFromP1:       "Ref Num: Read All from P1",
	RefByNum_ReadAllFromLastToP1: "Ref Num: Read All from Last to P1",
}

func (m ReadRecordMode) String() string {
	if name, ok := readRecordModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("ReadRecordMode(0x%X)", byte(m))
}

// MaxSFI is the largest short file identifier P2 can carry.
const MaxSFI = 30

// NewReadRecordCommand builds READ RECORD. SFI values above 31 do not fit
// P2 and are masked.
func NewReadRecordCommand(cla Class, sfi byte, p1 byte, mode ReadRecordMode) *CommandAPDU {
	ins, _ := NewInstruction(INS_READ_RECORD)
	p2 := (sfi&0x1F)<<3 | byte(mode)&0x07
	return NewCommandAPDU(cla, ins, p1, p2, nil, MaxShortLe)
}

// ReadRecord reads record number recordNumber of sfi.
func ReadRecord(cla Class, sfi byte, recordNumber byte) *CommandAPDU {
	return NewReadRecordCommand(cla, sfi, recordNumber, RefByNum_ReadP1)
}
