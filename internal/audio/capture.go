// internal/audio/capture.go
// Package audio acquires the probed signal through a sound-card input.
package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

var (
	ErrNotInitialized = errors.New("audio capture not initialized")
	ErrAlreadyRunning = errors.New("audio capture already running")
	ErrNotRunning     = errors.New("audio capture not running")
	// ErrDeviceOutOfRange indicates the requested device index does not exist
	ErrDeviceOutOfRange = errors.New("device index out of range")
)

// Config holds audio capture configuration
type Config struct {
	DeviceIndex int    // -1 for default device (from config: device_index)
	SampleRate  uint32 // (from config: sample_rate)
	Channels    uint32 // the first channel is probed
	BufferSize  uint32 // frames per callback (from config: buffer_size)
}

// DefaultConfig returns a mono 48 kHz capture on the default device
func DefaultConfig() Config {
	return Config{
		DeviceIndex: -1,
		SampleRate:  48000,
		Channels:    1,
		BufferSize:  512,
	}
}

// blockQueueSize bounds the captured blocks waiting for a reader
const blockQueueSize = 64

// Block is one captured period of interleaved samples. Start is the stream
// position of its first frame, so gaps left by dropped blocks stay visible.
type Block struct {
	Start   uint64
	Samples []float32
}

// SampleCallback is called from the audio thread with each new block.
// It must not block.
type SampleCallback func(samples []float32)

// Capture streams float32 blocks (-1.0 to 1.0, interleaved) from a capture device.
type Capture struct {
	config Config

	mu     sync.Mutex // guards ctx and device
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	running     atomic.Bool
	closed      atomic.Bool
	closeOnce   sync.Once
	callbackPtr atomic.Pointer[SampleCallback]

	// sendMu orders deliveries against closing Samples
	sendMu   sync.RWMutex
	position uint64 // frames produced, written only by the audio thread
	dropped  atomic.Uint64

	// Samples receives each captured block. Closed by Close.
	Samples chan Block
}

// New creates a capture; call Init before Start.
func New(cfg Config) *Capture {
	return &Capture{
		config:  cfg,
		Samples: make(chan Block, blockQueueSize),
	}
}

// Config returns the capture configuration
func (c *Capture) Config() Config {
	return c.config
}

// SetCallback sets a callback invoked from the audio thread with every block.
func (c *Capture) SetCallback(cb SampleCallback) {
	if cb == nil {
		c.callbackPtr.Store(nil)
		return
	}
	c.callbackPtr.Store(&cb)
}

// Init initializes the audio backend
func (c *Capture) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}
	c.ctx = ctx
	return nil
}

// ListDevices returns available capture devices
func (c *Capture) ListDevices() ([]malgo.DeviceInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listDevices()
}

func (c *Capture) listDevices() ([]malgo.DeviceInfo, error) {
	if c.ctx == nil {
		return nil, ErrNotInitialized
	}
	infos, err := c.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	return infos, nil
}

// Start begins streaming. Capture stops when ctx is cancelled.
func (c *Capture) Start(ctx context.Context) error {
	if c.running.Load() {
		return ErrAlreadyRunning
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx == nil {
		return ErrNotInitialized
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.SampleRate = c.config.SampleRate
	deviceConfig.PeriodSizeInFrames = c.config.BufferSize
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = c.config.Channels

	if c.config.DeviceIndex >= 0 {
		devices, err := c.listDevices()
		if err != nil {
			return err
		}
		if c.config.DeviceIndex >= len(devices) {
			return fmt.Errorf("%w: %d (have %d devices)",
				ErrDeviceOutOfRange, c.config.DeviceIndex, len(devices))
		}
		deviceConfig.Capture.DeviceID = devices[c.config.DeviceIndex].ID.Pointer()
	}

	onRecvFrames := func(_, inputSamples []byte, _ uint32) {
		if len(inputSamples) == 0 {
			return
		}
		c.deliver(bytesToFloat32(inputSamples))
	}

	device, err := malgo.InitDevice(c.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onRecvFrames,
	})
	if err != nil {
		return fmt.Errorf("init device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("start device: %w", err)
	}

	c.device = device
	c.running.Store(true)

	go func() {
		<-ctx.Done()
		_ = c.Stop()
	}()

	return nil
}

// deliver hands a block to the callback and queues it without blocking the
// audio thread. A block is dropped, and its frames counted, when the reader
// falls behind. Nothing is sent once Close has begun.
func (c *Capture) deliver(samples []float32) {
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()

	if c.closed.Load() {
		return
	}
	if cb := c.callbackPtr.Load(); cb != nil {
		(*cb)(samples)
	}

	channels := max(int(c.config.Channels), 1)
	frames := uint64(len(samples) / channels)
	block := Block{Start: c.position, Samples: samples}
	c.position += frames

	select {
	case c.Samples <- block:
	default:
		c.dropped.Add(frames)
	}
}

// DroppedFrames returns how many frames were discarded because the reader fell behind
func (c *Capture) DroppedFrames() uint64 {
	return c.dropped.Load()
}

// Stop stops streaming
func (c *Capture) Stop() error {
	if !c.running.CompareAndSwap(true, false) {
		return ErrNotRunning
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopDevice()
	return nil
}

func (c *Capture) stopDevice() {
	if c.device != nil {
		_ = c.device.Stop()
		c.device.Uninit()
		c.device = nil
	}
}

// Close stops streaming, releases the backend and closes Samples.
func (c *Capture) Close() error {
	c.closed.Store(true)

	c.mu.Lock()
	c.running.Store(false)
	c.stopDevice()

	var err error
	if c.ctx != nil {
		if uerr := c.ctx.Uninit(); uerr != nil {
			err = fmt.Errorf("uninit context: %w", uerr)
		}
		c.ctx.Free()
		c.ctx = nil
	}
	c.mu.Unlock()

	c.sendMu.Lock()
	c.closeOnce.Do(func() {
		close(c.Samples)
	})
	c.sendMu.Unlock()
	return err
}

// IsRunning returns true if capture is active
func (c *Capture) IsRunning() bool {
	return c.running.Load()
}

// bytesToFloat32 decodes little-endian float32 samples. Trailing bytes that
// do not form a whole sample are ignored.
func bytesToFloat32(data []byte) []float32 {
	samples := make([]float32, len(data)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return samples
}
