// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmd

import (
	"bytes"
	"errors"
	"fmt"
)

// responseMarker is the first byte of a marked control point response.
const responseMarker = 0xf0

// ControlResponse is a device response to a control point command.
type ControlResponse struct {
	Opcode Command
	Type   MeasureType
	Status Status
	// Parameters holds the reassembled response parameters.
	// It is only populated for successful responses.
	Parameters []byte
	// More is the continuation flag of the first response
	// packet. It is set when the parameters were reassembled
	// from more than one notification.
	More bool
}

// parseResponse decodes the first notification of a control point
// response.
//
// Marked responses are laid out as
//
//	| 0x f0 | opcode | type | status | more | parameters... |
//
// and bare responses omit the marker byte. The more byte and
// parameters are optional.
func parseResponse(buf []byte, framing Framing) (ControlResponse, error) {
	off, err := responseOffset(buf, framing)
	if err != nil {
		return ControlResponse{}, err
	}

	resp := ControlResponse{
		Opcode: Command(buf[off]),
		Type:   MeasureType(buf[off+1]),
		Status: Status(buf[off+2]),
	}
	if resp.Opcode == Null || resp.Opcode > MeasureStop {
		return ControlResponse{}, fmt.Errorf("%w: unknown response op-code: %#x", ErrInvalidData, buf)
	}
	if !resp.Type.Valid() {
		return ControlResponse{}, fmt.Errorf("%w: unknown response measurement type: %#x", ErrInvalidData, buf)
	}
	if !resp.Status.Valid() {
		return ControlResponse{}, fmt.Errorf("%w: unknown response status: %#x", ErrInvalidData, buf)
	}
	if resp.Status != StatusSuccess {
		return resp, nil
	}

	rest := buf[off+3:]
	if len(rest) != 0 {
		resp.More = rest[0] != 0
		resp.Parameters = bytes.Clone(rest[1:])
	}
	return resp, nil
}

// responseOffset returns the offset of the op-code in a control point
// response after checking that the header is complete.
func responseOffset(buf []byte, framing Framing) (int, error) {
	marked := framing == FramingMarked || (framing == FramingAuto && len(buf) != 0 && buf[0] == responseMarker)
	if !marked {
		if len(buf) < 3 {
			return 0, fmt.Errorf("%w: short response: %#x", ErrInvalidData, buf)
		}
		return 0, nil
	}
	if len(buf) < 4 {
		return 0, fmt.Errorf("%w: short response: %#x", ErrInvalidData, buf)
	}
	if buf[0] != responseMarker {
		return 0, fmt.Errorf("%w: missing response marker: %#x", ErrInvalidData, buf)
	}
	return 1, nil
}

// txState is the state of a control point transaction.
type txState int

const (
	txIdle txState = iota
	txAwaitingFirst
	txAwaitingMore
	txComplete
	txFailed
)

func (s txState) String() string {
	switch s {
	case txIdle:
		return "idle"
	case txAwaitingFirst:
		return "awaiting first"
	case txAwaitingMore:
		return "awaiting more"
	case txComplete:
		return "complete"
	case txFailed:
		return "failed"
	default:
		return fmt.Sprintf("txState(%d)", int(s))
	}
}

var errIllegalTransition = errors.New("illegal transaction transition")

// transaction correlates a control point command with the notifications
// that make up its response.
//
//	idle ─begin→ awaiting first ─┬→ complete
//	                             ├→ failed
//	                             └→ awaiting more ─┬→ awaiting more
//	                                               └→ complete
type transaction struct {
	state   txState
	framing Framing

	cmd Command
	typ MeasureType

	resp ControlResponse
	err  error
}

func newTransaction(cmd Command, typ MeasureType, framing Framing) *transaction {
	return &transaction{cmd: cmd, typ: typ, framing: framing}
}

// begin moves the transaction to the awaiting first state once the command
// has been written.
func (t *transaction) begin() error {
	if t.state != txIdle {
		return fmt.Errorf("%w: begin in %s state", errIllegalTransition, t.state)
	}
	t.state = txAwaitingFirst
	return nil
}

// feed offers a control point notification to the transaction. It returns
// false if the notification does not belong to the transaction and was
// ignored. Feeding a transaction that is not awaiting a response returns
// an error.
func (t *transaction) feed(buf []byte) (bool, error) {
	switch t.state {
	case txAwaitingFirst:
		off, err := responseOffset(buf, t.framing)
		if err != nil {
			t.fail(err)
			return true, nil
		}
		// Responses for other commands or types, including types
		// not known here, belong to someone else.
		if Command(buf[off]) != t.cmd || MeasureType(buf[off+1]) != t.typ {
			return false, nil
		}
		resp, err := parseResponse(buf, t.framing)
		if err != nil {
			t.fail(err)
			return true, nil
		}
		t.resp = resp
		switch {
		case resp.Status != StatusSuccess:
			t.fail(&StatusError{Response: resp})
		case resp.More:
			t.state = txAwaitingMore
		default:
			t.state = txComplete
		}
		return true, nil

	case txAwaitingMore:
		if len(buf) == 0 {
			t.fail(fmt.Errorf("%w: empty continuation packet", ErrInvalidData))
			return true, nil
		}
		if buf[0] == 0 {
			t.state = txComplete
			return true, nil
		}
		t.resp.Parameters = append(t.resp.Parameters, buf[1:]...)
		return true, nil

	default:
		return false, fmt.Errorf("%w: feed in %s state", errIllegalTransition, t.state)
	}
}

func (t *transaction) fail(err error) {
	t.err = err
	t.state = txFailed
}

// done returns whether the transaction has reached a terminal state.
func (t *transaction) done() bool {
	return t.state == txComplete || t.state == txFailed
}

// result returns the response and the error of a terminated transaction.
// A failed transaction due to a device status retains the response.
func (t *transaction) result() (ControlResponse, error) {
	if !t.done() {
		return ControlResponse{}, fmt.Errorf("%w: result in %s state", errIllegalTransition, t.state)
	}
	return t.resp, t.err
}
