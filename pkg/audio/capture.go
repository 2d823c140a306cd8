package audio

import "context"

// DefaultSampleRate is the sample rate the dictation pipeline runs at.
// Whisper models are trained on 16 kHz mono audio.
const DefaultSampleRate = 16000

// Capture is the contract implemented by microphone backends. A backend is
// constructed with the [Ring] it writes into, so the real-time data callback
// needs no shared globals — the ring reference travels with the device handle.
//
// The data callback must treat Ring.Write as its only interaction with the
// rest of the process: no locks, no allocation, no logging from the
// real-time context.
type Capture interface {
	// Start opens the input device and begins delivering samples to the ring.
	// The ctx bounds device initialisation only; capture continues until Stop.
	Start(ctx context.Context) error

	// Stop pauses capture. The device may be started again.
	Stop() error

	// Close releases the device. The Capture must not be used afterwards.
	Close() error
}

// Device describes an available audio input device.
type Device struct {
	// Name is the human-readable device name reported by the backend.
	Name string

	// Default reports whether the backend considers this the default input.
	Default bool
}
