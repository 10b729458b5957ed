/*
Package iso7816 implements the command/response layer of ISO/IEC 7816-4 as
used by contactless payment cards (ISO/IEC 14443-4 carries the same APDUs).

# Exchanges

Every exchange is synchronous and half-duplex:
 1. The terminal sends a Command APDU (header CLA INS P1 P2, optional body).
 2. The card answers with a Response APDU (optional data, then SW1 SW2).

The physical link is abstracted by Transmitter. Client sits on top of it and
resolves the two transport-level status words a logical command may produce:

  - '61XX': XX more bytes are waiting, fetched with GET RESPONSE.
  - '6CXX': wrong Le, the command is sent again with Le = XX.

Client.Send returns the whole conversation as a Trace. Only link failures are
reported as errors (wrapping ErrTransport); every status word, including
failures such as '6A82', is data for the caller to interpret.

# Usage

	client := iso7816.NewClient(card)
	cls, _ := iso7816.NewClass(0x00)

	trace, err := client.Send(iso7816.SelectByAID(cls, aid))
	if errors.Is(err, iso7816.ErrTransport) {
	    // card gone: the session is over
	}

	if trace.Status() == iso7816.SW_NO_ERROR {
	    fci := trace.Data()
	    // ...
	}
*/
package iso7816
