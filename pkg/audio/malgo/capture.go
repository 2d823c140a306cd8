// Package malgo implements the [audio.Capture] contract on top of the
// miniaudio library via the gen2brain/malgo bindings. It opens a mono
// float32 capture device at the pipeline sample rate and writes every
// delivered frame batch straight into the session's ring buffer.
package malgo

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	malgolib "github.com/gen2brain/malgo"

	"github.com/MrWong99/murmur/pkg/audio"
)

// Compile-time assertion that Capture satisfies audio.Capture.
var _ audio.Capture = (*Capture)(nil)

// Option is a functional option for configuring a Capture.
type Option func(*Capture)

// WithSampleRate sets the capture sample rate in Hz. Defaults to
// [audio.DefaultSampleRate] (16 kHz).
func WithSampleRate(rate int) Option {
	return func(c *Capture) { c.sampleRate = rate }
}

// WithDevice selects the input device whose name contains the given
// substring (case-insensitive). An empty string selects the system default.
func WithDevice(name string) Option {
	return func(c *Capture) { c.deviceName = name }
}

// Capture is a miniaudio-backed microphone capture. It owns the malgo
// context and device and forwards samples to the ring it was built with.
type Capture struct {
	ring       *audio.Ring
	sampleRate int
	deviceName string

	mu      sync.Mutex
	ctx     *malgolib.AllocatedContext
	device  *malgolib.Device
	started bool

	// scratch is reused by the data callback to decode f32 PCM without
	// allocating in the real-time context. Sized lazily to the largest
	// frame batch seen.
	scratch []float32
}

// New creates a Capture that writes into ring. The device is not opened
// until Start.
func New(ring *audio.Ring, opts ...Option) *Capture {
	c := &Capture{
		ring:       ring,
		sampleRate: audio.DefaultSampleRate,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Start initialises the miniaudio context and capture device and begins
// streaming samples into the ring. Safe to call again after Stop.
func (c *Capture) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("malgo: context already cancelled: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil
	}

	if c.ctx == nil {
		mctx, err := malgolib.InitContext(nil, malgolib.ContextConfig{}, func(message string) {
			slog.Debug("miniaudio", "message", strings.TrimSpace(message))
		})
		if err != nil {
			return fmt.Errorf("malgo: init context: %w", err)
		}
		c.ctx = mctx
	}

	if c.device == nil {
		cfg := malgolib.DefaultDeviceConfig(malgolib.Capture)
		cfg.Capture.Format = malgolib.FormatF32
		cfg.Capture.Channels = 1
		cfg.SampleRate = uint32(c.sampleRate)

		if c.deviceName != "" {
			id, err := c.findDevice(c.deviceName)
			if err != nil {
				return err
			}
			cfg.Capture.DeviceID = id.Pointer()
		}

		callbacks := malgolib.DeviceCallbacks{
			Data: c.onSamples,
		}
		dev, err := malgolib.InitDevice(c.ctx.Context, cfg, callbacks)
		if err != nil {
			return fmt.Errorf("malgo: init capture device: %w", err)
		}
		c.device = dev
	}

	if err := c.device.Start(); err != nil {
		return fmt.Errorf("malgo: start capture device: %w", err)
	}
	c.started = true

	slog.Info("audio capture started", "sample_rate", c.sampleRate, "device", c.deviceName)
	return nil
}

// onSamples is the real-time data callback. It decodes the f32 PCM bytes
// into the reusable scratch buffer and writes them to the ring. Overflow is
// handled inside Ring.Write (samples dropped, never blocking).
func (c *Capture) onSamples(_, input []byte, frameCount uint32) {
	n := int(frameCount)
	if n == 0 || len(input) < n*4 {
		return
	}
	if cap(c.scratch) < n {
		// Only grows on the first oversized batch; steady state is
		// allocation-free.
		c.scratch = make([]float32, n)
	}
	buf := c.scratch[:n]
	for i := range n {
		buf[i] = math.Float32frombits(binary.LittleEndian.Uint32(input[i*4:]))
	}
	c.ring.Write(buf)
}

// Stop pauses the capture device. Samples already in the ring remain
// readable.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started || c.device == nil {
		return nil
	}
	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("malgo: stop capture device: %w", err)
	}
	c.started = false
	return nil
}

// Close releases the device and the miniaudio context.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	if c.ctx != nil {
		err := c.ctx.Uninit()
		c.ctx.Free()
		c.ctx = nil
		if err != nil {
			return fmt.Errorf("malgo: uninit context: %w", err)
		}
	}
	c.started = false
	return nil
}

// Devices lists the available capture devices. The malgo context must not be
// in use by a started device while enumerating; call before Start or after
// Stop.
func (c *Capture) Devices() ([]audio.Device, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx == nil {
		mctx, err := malgolib.InitContext(nil, malgolib.ContextConfig{}, nil)
		if err != nil {
			return nil, fmt.Errorf("malgo: init context: %w", err)
		}
		c.ctx = mctx
	}

	infos, err := c.ctx.Devices(malgolib.Capture)
	if err != nil {
		return nil, fmt.Errorf("malgo: enumerate devices: %w", err)
	}

	devices := make([]audio.Device, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, audio.Device{
			Name:    info.Name(),
			Default: info.IsDefault != 0,
		})
	}
	return devices, nil
}

// findDevice resolves a case-insensitive name substring to a device ID.
// Must be called with mu held and a valid context.
func (c *Capture) findDevice(name string) (malgolib.DeviceID, error) {
	infos, err := c.ctx.Devices(malgolib.Capture)
	if err != nil {
		return malgolib.DeviceID{}, fmt.Errorf("malgo: enumerate devices: %w", err)
	}
	needle := strings.ToLower(name)
	for _, info := range infos {
		if strings.Contains(strings.ToLower(info.Name()), needle) {
			return info.ID, nil
		}
	}
	return malgolib.DeviceID{}, errors.New("malgo: no capture device matches " + fmt.Sprintf("%q", name))
}
