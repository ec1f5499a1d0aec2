package audio

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
)

// malgoWorker implements Worker using malgo, following the teacher's
// MalgoCapturer device lifecycle (InitContext -> InitDevice -> Start, torn
// down in reverse), extended with clip accumulation, a readiness handshake,
// and a lock-free level meter.
type malgoWorker struct {
	config Config

	device  *malgo.Device
	ctx     *malgo.AllocatedContext
	frames  chan Frame
	errors  chan error
	running atomic.Bool

	// levelBits stores the IEEE-754 bit pattern of the current RMS level
	// estimate. The audio callback thread must never allocate or block, so
	// the level is published via a single atomic store rather than a mutex
	// or channel send.
	levelBits atomic.Uint64

	mu  sync.Mutex
	pcm []int16
}

func newMalgoWorker(config Config) (*malgoWorker, error) {
	return &malgoWorker{
		config: config,
		frames: make(chan Frame, 32),
		errors: make(chan error, 8),
	}, nil
}

func (w *malgoWorker) Start(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return fmt.Errorf("capture worker is already running")
	}

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		w.running.Store(false)
		return fmt.Errorf("initialize malgo context: %w", err)
	}
	w.ctx = malgoCtx

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = w.config.Channels
	deviceConfig.SampleRate = w.config.SampleRate
	deviceConfig.PeriodSizeInFrames = w.config.BufferFrames
	if w.config.DeviceID != "" {
		if id, ok := deviceIDFromStableID(malgoCtx, w.config.DeviceID); ok {
			deviceConfig.Capture.DeviceID = id
		}
	}

	ready := make(chan struct{}, 1)
	var signalOnce sync.Once

	var callbacks malgo.DeviceCallbacks
	callbacks.Data = func(_, input []byte, frameCount uint32) {
		signalOnce.Do(func() { ready <- struct{}{} })
		w.onData(input, frameCount)
	}

	device, err := malgo.InitDevice(w.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		w.ctx.Uninit()
		w.ctx.Free()
		w.running.Store(false)
		return fmt.Errorf("initialize capture device: %w", err)
	}
	w.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		w.ctx.Uninit()
		w.ctx.Free()
		w.running.Store(false)
		return fmt.Errorf("start capture device: %w", err)
	}

	select {
	case <-ready:
	case <-time.After(StartReadyTimeout):
		w.teardown()
		w.running.Store(false)
		return fmt.Errorf("capture device produced no frames within %s", StartReadyTimeout)
	case <-ctx.Done():
		w.teardown()
		w.running.Store(false)
		return ctx.Err()
	}

	return nil
}

// onData runs on malgo's audio callback thread: it must not allocate beyond
// the fixed-size copy below, block, or touch a mutex that a slow consumer
// could hold, so the accumulated-PCM buffer is the only lock-guarded state
// and the level meter is published lock-free.
func (w *malgoWorker) onData(input []byte, frameCount uint32) {
	samples := bytesToS16LE(input)

	sum := 0.0
	for _, s := range samples {
		f := float64(s) / 32768.0
		sum += f * f
	}
	rms := 0.0
	if len(samples) > 0 {
		rms = math.Sqrt(sum / float64(len(samples)))
	}
	w.levelBits.Store(math.Float64bits(rms))

	w.mu.Lock()
	w.pcm = append(w.pcm, samples...)
	w.mu.Unlock()

	frame := Frame{PCM16: samples, Timestamp: time.Now()}
	select {
	case w.frames <- frame:
	default:
		select {
		case w.errors <- fmt.Errorf("frame buffer overflow, dropping %d frames", frameCount):
		default:
		}
	}
}

func bytesToS16LE(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(uint16(b[2*i]) | uint16(b[2*i+1])<<8)
	}
	return out
}

func (w *malgoWorker) Level() float64 {
	return math.Float64frombits(w.levelBits.Load())
}

func (w *malgoWorker) Stop() ([]byte, error) {
	if !w.running.CompareAndSwap(true, false) {
		return nil, fmt.Errorf("capture worker is not running")
	}

	w.teardown()

	w.mu.Lock()
	pcm := w.pcm
	w.pcm = nil
	w.mu.Unlock()

	return EncodeWAV(pcm, w.config.SampleRate, uint16(w.config.Channels))
}

func (w *malgoWorker) Abort() {
	if !w.running.CompareAndSwap(true, false) {
		return
	}
	w.teardown()
	w.mu.Lock()
	w.pcm = nil
	w.mu.Unlock()
}

func (w *malgoWorker) teardown() {
	if w.device != nil {
		w.device.Stop()
		w.device.Uninit()
		w.device = nil
	}
	if w.ctx != nil {
		w.ctx.Uninit()
		w.ctx.Free()
		w.ctx = nil
	}
}

func (w *malgoWorker) Frames() <-chan Frame { return w.frames }
func (w *malgoWorker) Errors() <-chan error { return w.errors }
func (w *malgoWorker) IsRunning() bool      { return w.running.Load() }

func deviceIDFromStableID(ctx *malgo.AllocatedContext, stableID string) (malgo.DeviceID, bool) {
	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return malgo.DeviceID{}, false
	}
	for _, info := range infos {
		if slugifyDeviceName(info.Name()) == stableID {
			return info.ID, true
		}
	}
	return malgo.DeviceID{}, false
}
