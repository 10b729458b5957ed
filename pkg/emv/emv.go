// Package emv holds the EMV contactless building blocks the driver strings
// together: PPSE and application FCI templates, candidate ordering, PDOL and
// GET PROCESSING OPTIONS, the Application File Locator and the extraction of
// cardholder fields from records.
package emv

import (
	"github.com/gregLibert/paycard/pkg/iso7816"
	"github.com/gregLibert/paycard/pkg/tlv"
)

// PPSEName is the DF name of the Proximity Payment System Environment.
const PPSEName = "2PAY.SYS.DDF01"

// Tags read by this package.
const (
	TagFCITemplate        tlv.Tag = 0x6F
	TagFCIProprietary     tlv.Tag = 0xA5
	TagFCIDiscretionary   tlv.Tag = 0xBF0C
	TagDFName             tlv.Tag = 0x84
	TagApplication        tlv.Tag = 0x61
	TagAID                tlv.Tag = 0x4F
	TagApplicationLabel   tlv.Tag = 0x50
	TagPriority           tlv.Tag = 0x87
	TagPDOL               tlv.Tag = 0x9F38
	TagCommandTemplate    tlv.Tag = 0x83
	TagResponseFormat1    tlv.Tag = 0x80
	TagResponseFormat2    tlv.Tag = 0x77
	TagAIP                tlv.Tag = 0x82
	TagAFL                tlv.Tag = 0x94
	TagRecordTemplate     tlv.Tag = 0x70
	TagPAN                tlv.Tag = 0x5A
	TagTrack2             tlv.Tag = 0x57
	TagExpiry             tlv.Tag = 0x5F24
	TagHolderName         tlv.Tag = 0x5F20
	TagHolderNameExtended tlv.Tag = 0x9F0B
)

// Interindustry class on the basic channel.
var basicClass, _ = iso7816.NewClass(0x00)

// Proprietary class used by EMV payment commands.
var emvClass, _ = iso7816.NewClass(0x80)

// SelectPPSE builds SELECT '2PAY.SYS.DDF01'.
func SelectPPSE() *iso7816.CommandAPDU {
	return iso7816.SelectByName(basicClass, []byte(PPSEName))
}

// SelectApplication builds SELECT by AID.
func SelectApplication(aid []byte) *iso7816.CommandAPDU {
	return iso7816.SelectByName(basicClass, aid)
}

// ReadRecord builds READ RECORD for one record of sfi.
func ReadRecord(sfi, record byte) *iso7816.CommandAPDU {
	return iso7816.ReadRecord(basicClass, sfi, record)
}
