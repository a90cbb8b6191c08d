package scan

import (
	"context"
	"sync"
)

type DecoderState string

const (
	DecoderStopped  DecoderState = "STOPPED"
	DecoderStarting DecoderState = "STARTING"
	DecoderScanning DecoderState = "SCANNING"
)

// Decoder turns camera frames into decoded text. Stop must be safe to call
// when the decoder never started.
type Decoder interface {
	Start(ctx context.Context, onDecoded func(text string), onError func(err error)) error
	Stop(ctx context.Context) error
	State() DecoderState
}

// PushDecoder is a Decoder fed from outside the process: the browser decodes
// frames and pushes the text in through the API.
type PushDecoder struct {
	mu        sync.Mutex
	state     DecoderState
	onDecoded func(string)
	onError   func(error)
	startErr  error
}

func NewPushDecoder() *PushDecoder {
	return &PushDecoder{state: DecoderStopped}
}

func (d *PushDecoder) Start(_ context.Context, onDecoded func(string), onError func(error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.startErr; err != nil {
		d.startErr = nil
		return err
	}
	if d.state != DecoderStopped {
		return ErrDecoderRunning
	}

	d.state = DecoderStarting
	d.onDecoded = onDecoded
	d.onError = onError
	d.state = DecoderScanning
	return nil
}

func (d *PushDecoder) Stop(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.state = DecoderStopped
	d.onDecoded = nil
	d.onError = nil
	return nil
}

func (d *PushDecoder) State() DecoderState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// FailNextStart makes the next Start return err, for clients that could not
// open the camera.
func (d *PushDecoder) FailNextStart(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.startErr = err
}

// Push delivers decoded text. It returns false when the decoder is not
// scanning, in which case the text is dropped.
func (d *PushDecoder) Push(text string) bool {
	d.mu.Lock()
	cb := d.onDecoded
	scanning := d.state == DecoderScanning
	d.mu.Unlock()

	if !scanning || cb == nil {
		return false
	}
	cb(text)
	return true
}

// Fail forwards a decoder error while scanning.
func (d *PushDecoder) Fail(err error) {
	d.mu.Lock()
	cb := d.onError
	d.mu.Unlock()

	if cb != nil {
		cb(err)
	}
}
