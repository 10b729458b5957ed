package iso7816

import (
	"fmt"
	"strings"
)

// Transaction is one C-APDU and the R-APDU it produced.
type Transaction struct {
	Command  *CommandAPDU
	Response *ResponseAPDU
}

// IsSuccess reports whether the response ended with a success status.
// A missing response is a failure.
func (t *Transaction) IsSuccess() bool {
	if t.Response == nil {
		return false
	}
	return t.Response.Status.IsSuccess()
}

// Trace is the ordered list of transactions behind one logical command:
// the original command, then any GET RESPONSE or Le correction it needed.
// The outcome of the logical command is the outcome of the last transaction.
type Trace []Transaction

// Last returns the final transaction, or nil for an empty trace.
func (t Trace) Last() *Transaction {
	if len(t) == 0 {
		return nil
	}
	return &t[len(t)-1]
}

// IsSuccess reports whether the final transaction succeeded.
func (t Trace) IsSuccess() bool {
	last := t.Last()
	if last == nil {
		return false
	}
	return last.IsSuccess()
}

// Status returns the final status word, 0 when the trace is empty.
func (t Trace) Status() StatusWord {
	last := t.Last()
	if last == nil || last.Response == nil {
		return 0
	}
	return last.Response.Status
}

// Data returns the response data of the logical command. Pieces sent with
// '61XX' are joined in order; a '6CXX' answer starts over since the command
// is sent again.
func (t Trace) Data() []byte {
	var out []byte
	for _, tx := range t {
		if tx.Response == nil {
			continue
		}
		if tx.Response.Status.SW1() == 0x6C {
			out = nil
			continue
		}
		out = append(out, tx.Response.Data...)
	}
	return out
}

// Describe renders the conversation, one block per transaction, for debug logs.
func (t Trace) Describe() string {
	var sb strings.Builder

	for i, tx := range t {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "[%d] >> %s", i+1, tx.Command)
		if len(tx.Command.Data) > 0 {
			fmt.Fprintf(&sb, "\n    Data:    %X", tx.Command.Data)
		}
		if tx.Response == nil {
			sb.WriteString("\n    << no response")
			continue
		}

		marker := "[OK]"
		if !tx.Response.Status.IsSuccess() {
			marker = "[!!]"
		}
		fmt.Fprintf(&sb, "\n    << %s %s", marker, tx.Response.Status.Verbose())
		if len(tx.Response.Data) > 0 {
			fmt.Fprintf(&sb, "\n    Payload: %X", tx.Response.Data)
		}
	}

	return sb.String()
}
