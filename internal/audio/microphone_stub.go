//go:build !portaudio
// +build !portaudio

package audio

import "errors"

// MicrophoneSource is unavailable without the portaudio build tag.
type MicrophoneSource struct{}

// NewMicrophoneSource fails on builds without portaudio support.
func NewMicrophoneSource(sampleRate, frameBytes int) (*MicrophoneSource, error) {
	return nil, errors.New("microphone capture requires building with -tags portaudio")
}

func (m *MicrophoneSource) Read(buf []byte) (int, error) {
	return 0, errors.New("microphone unavailable")
}

func (m *MicrophoneSource) Close() error { return nil }
