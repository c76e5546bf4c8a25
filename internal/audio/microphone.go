//go:build portaudio
// +build portaudio

package audio

import (
	"encoding/binary"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// MicrophoneSource captures 16-bit mono PCM from the default input
// device via portaudio.
type MicrophoneSource struct {
	stream     *portaudio.Stream
	sampleRate int
	samples    []int16
}

// NewMicrophoneSource opens the default input device at the given sample
// rate with the given frame size in bytes.
func NewMicrophoneSource(sampleRate, frameBytes int) (*MicrophoneSource, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}

	framesPerBuffer := frameBytes / 2
	samples := make([]int16, framesPerBuffer)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), framesPerBuffer, samples)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("opening stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("starting stream: %w", err)
	}

	return &MicrophoneSource{stream: stream, sampleRate: sampleRate, samples: samples}, nil
}

// Read blocks until one frame of samples is captured, then encodes it as
// little-endian PCM into buf.
func (m *MicrophoneSource) Read(buf []byte) (int, error) {
	if err := m.stream.Read(); err != nil {
		return 0, fmt.Errorf("reading from stream: %w", err)
	}
	n := len(m.samples)
	if len(buf) < n*2 {
		n = len(buf) / 2
	}
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:(i+1)*2], uint16(m.samples[i]))
	}
	return n * 2, nil
}

// Close stops the stream and releases the device.
func (m *MicrophoneSource) Close() error {
	if m.stream != nil {
		m.stream.Stop()
		m.stream.Close()
	}
	portaudio.Terminate()
	return nil
}
