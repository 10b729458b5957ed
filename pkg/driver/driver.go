// Package driver runs the EMV contactless read sequence over one card link:
// SELECT PPSE, SELECT the first application that answers, GET PROCESSING
// OPTIONS, then READ RECORD over every range of the AFL.
package driver

import (
	"errors"
	"fmt"

	"github.com/pion/logging"

	"github.com/gregLibert/paycard/internal/logutil"
	"github.com/gregLibert/paycard/pkg/emv"
	"github.com/gregLibert/paycard/pkg/iso7816"
	"github.com/gregLibert/paycard/pkg/scheme"
	"github.com/gregLibert/paycard/pkg/tlv"
)

// DefaultLockStatusWords are the status words that mean the contactless
// interface of the card is disabled: '6A81' (function not supported).
var DefaultLockStatusWords = []iso7816.StatusWord{iso7816.SW_ERR_FUNC_NOT_SUPPORTED}

// Kind is the protocol level result of a read.
type Kind int

const (
	// Fields means a card number was read.
	Fields Kind = iota + 1
	// NoUsableData means the card was not understood or held no card number.
	NoUsableData
	// SecurityLocked means the card answered with a lock status word.
	SecurityLocked
)

func (k Kind) String() string {
	switch k {
	case Fields:
		return "Fields"
	case NoUsableData:
		return "NoUsableData"
	case SecurityLocked:
		return "SecurityLocked"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Outcome is what a read produced. Fields, Scheme, AID and Label are only
// set for the Fields kind.
type Outcome struct {
	Kind   Kind
	Fields emv.Fields
	Scheme scheme.Scheme
	AID    []byte
	Label  string
}

// Config tunes a Driver. The zero value is usable.
type Config struct {
	// LockStatusWords defaults to DefaultLockStatusWords when nil.
	LockStatusWords []iso7816.StatusWord

	// Schemes defaults to scheme.DefaultTable() when nil.
	Schemes scheme.Table

	// Terminal answers the PDOL. Defaults to emv.DefaultTerminal().
	Terminal *emv.Terminal

	LoggerFactory logging.LoggerFactory
}

// Driver reads one card. It is not safe for concurrent use.
type Driver struct {
	client   *iso7816.Client
	locks    []iso7816.StatusWord
	schemes  scheme.Table
	terminal emv.Terminal
	log      logging.LeveledLogger
}

// New creates a Driver over card.
func New(card iso7816.Transmitter, config Config) *Driver {
	d := &Driver{
		client:   iso7816.NewClient(card),
		locks:    config.LockStatusWords,
		schemes:  config.Schemes,
		terminal: emv.DefaultTerminal(),
		log:      logutil.Logger(config.LoggerFactory, "driver"),
	}
	if d.locks == nil {
		d.locks = DefaultLockStatusWords
	}
	if d.schemes == nil {
		d.schemes = scheme.DefaultTable()
	}
	if config.Terminal != nil {
		d.terminal = *config.Terminal
	}
	return d
}

// errLocked stops the sequence when a lock status word is seen.
var errLocked = errors.New("card locked")

// errNoData stops the sequence without an error for the caller.
var errNoData = errors.New("no usable data")

// Read runs the whole sequence. The returned error is either a transport
// error (wrapping iso7816.ErrTransport) or malformed card data (wrapping a
// *tlv.DecodeError); negative status words are reported through the Outcome.
func (d *Driver) Read() (Outcome, error) {
	r := &read{Driver: d}

	out, err := r.run()
	switch {
	case errors.Is(err, errLocked):
		return Outcome{Kind: SecurityLocked}, nil
	case errors.Is(err, errNoData):
		return Outcome{Kind: NoUsableData}, nil
	case err != nil:
		return Outcome{}, err
	}
	return out, nil
}

// read is the working state of one Read call.
type read struct {
	*Driver

	extractor emv.Extractor
	selected  emv.Candidate
	records   int
}

func (r *read) run() (Outcome, error) {
	candidates, err := r.selectPPSE()
	if err != nil {
		return Outcome{}, err
	}

	adf, err := r.selectApplication(candidates)
	if err != nil {
		return Outcome{}, err
	}
	if adf != nil {
		r.extractor.Scan(adf.Nodes)
	}

	afl, err := r.processingOptions(adf)
	if err != nil {
		return Outcome{}, err
	}

	if err := r.readRecords(afl); err != nil {
		return Outcome{}, err
	}

	fields := r.extractor.Fields()
	if !fields.HasPAN() {
		r.log.Infof("no card number after %d records", r.records)
		return Outcome{}, errNoData
	}

	s := r.schemes.Classify(r.selected.AID, fields.PAN)
	r.log.Debugf("card read: scheme %s, AID %X", s, r.selected.AID)

	return Outcome{
		Kind:   Fields,
		Fields: fields,
		Scheme: s,
		AID:    r.selected.AID,
		Label:  r.selected.Label,
	}, nil
}

func (r *read) selectPPSE() ([]emv.Candidate, error) {
	trace, err := r.send("SELECT PPSE", emv.SelectPPSE())
	if err != nil {
		return nil, err
	}
	if err := r.checkLock("SELECT PPSE", trace.Status()); err != nil {
		return nil, err
	}
	if trace.Status() != iso7816.SW_NO_ERROR {
		r.log.Infof("PPSE not available: %s", trace.Status())
		return nil, errNoData
	}

	fci, err := emv.ParseFCI(trace.Data())
	if errors.Is(err, emv.ErrNoFCITemplate) {
		r.log.Warnf("PPSE answer without FCI template")
		return nil, errNoData
	}
	if err != nil {
		return nil, fmt.Errorf("PPSE: %w", err)
	}
	r.log.Tracef("%s", fci.Describe())

	candidates := emv.Candidates(fci)
	if len(candidates) == 0 {
		r.log.Infof("PPSE lists no application")
		return nil, errNoData
	}
	return candidates, nil
}

// selectApplication tries the candidates in order. The FCI is nil when the
// card accepted the selection without a usable template.
func (r *read) selectApplication(candidates []emv.Candidate) (*emv.FCI, error) {
	for _, c := range candidates {
		trace, err := r.send("SELECT AID", emv.SelectApplication(c.AID))
		if err != nil {
			return nil, err
		}
		if err := r.checkLock("SELECT AID", trace.Status()); err != nil {
			return nil, err
		}
		if trace.Status() != iso7816.SW_NO_ERROR {
			r.log.Debugf("application %s refused: %s", c, trace.Status())
			continue
		}

		r.selected = c
		r.log.Debugf("application %s selected", c)

		fci, err := emv.ParseFCI(trace.Data())
		if errors.Is(err, emv.ErrNoFCITemplate) {
			r.log.Warnf("application %X answered without FCI template", c.AID)
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("application FCI: %w", err)
		}
		r.log.Tracef("%s", fci.Describe())
		if r.selected.Label == "" {
			r.selected.Label = string(fci.ProprietaryTemplate.ApplicationLabel)
		}
		return fci, nil
	}

	r.log.Infof("none of %d applications could be selected", len(candidates))
	return nil, errNoData
}

func (r *read) processingOptions(adf *emv.FCI) ([]emv.AFLEntry, error) {
	var answer []byte
	if adf != nil && len(adf.PDOL()) > 0 {
		dol, err := emv.ParseDOL(adf.PDOL())
		if err != nil {
			return nil, fmt.Errorf("PDOL: %w", err)
		}
		if answer, err = r.terminal.Answer(dol); err != nil {
			return nil, fmt.Errorf("PDOL answer: %w", err)
		}
	}

	cmd, err := emv.GetProcessingOptions(answer)
	if err != nil {
		return nil, err
	}

	trace, err := r.send("GPO", cmd)
	if err != nil {
		return nil, err
	}
	if err := r.checkLock("GPO", trace.Status()); err != nil {
		return nil, err
	}

	switch trace.Status() {
	case iso7816.SW_NO_ERROR:
	case iso7816.SW_ERR_COND_OF_USE_NOT_SAT:
		r.log.Infof("GPO refused (%s), reading without AFL", trace.Status())
		return nil, nil
	default:
		r.log.Infof("GPO failed: %s", trace.Status())
		return nil, errNoData
	}

	po, err := emv.ParseProcessingOptions(trace.Data())
	if errors.Is(err, emv.ErrResponseFormat) {
		r.log.Warnf("GPO answer format not recognised, reading without AFL")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GPO: %w", err)
	}

	r.extractor.Scan(po.Nodes)
	return po.AFL, nil
}

func (r *read) readRecords(afl []emv.AFLEntry) error {
	for _, entry := range afl {
		if !entry.Valid() {
			r.log.Warnf("skipping AFL entry %s", entry)
			continue
		}

		for _, rec := range entry.Records() {
			trace, err := r.send("READ RECORD", emv.ReadRecord(entry.SFI, rec))
			if err != nil {
				return err
			}
			if trace.Status() != iso7816.SW_NO_ERROR {
				r.log.Debugf("SFI %d record %d: %s", entry.SFI, rec, trace.Status())
				continue
			}
			r.records++

			nodes, err := tlv.Decode(trace.Data())
			if err != nil {
				return fmt.Errorf("SFI %d record %d: %w", entry.SFI, rec, err)
			}
			r.log.Tracef("SFI %d record %d\n%s", entry.SFI, rec, tlv.Dump(nodes))
			r.extractor.Scan(nodes)
		}
	}
	return nil
}

func (r *read) send(step string, cmd *iso7816.CommandAPDU) (iso7816.Trace, error) {
	trace, err := r.client.Send(cmd)
	if len(trace) > 0 {
		r.log.Tracef("%s\n%s", step, trace.Describe())
	}
	if err != nil {
		return trace, fmt.Errorf("%s: %w", step, err)
	}
	return trace, nil
}

func (r *read) checkLock(step string, sw iso7816.StatusWord) error {
	for _, lock := range r.locks {
		if sw == lock {
			r.log.Infof("%s answered lock status %s", step, sw)
			return errLocked
		}
	}
	return nil
}
