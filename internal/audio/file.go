package audio

import (
	"fmt"
	"os"
	"time"
)

// FileSource replays a raw 16-bit LE mono PCM file, paced to real time
// so the downstream transcriber sees a live-like stream.
type FileSource struct {
	f          *os.File
	sampleRate int
	paced      bool
	lastRead   time.Time
}

// NewFileSource opens a raw PCM file for paced playback.
func NewFileSource(path string, sampleRate int, paced bool) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening audio file: %w", err)
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &FileSource{f: f, sampleRate: sampleRate, paced: paced}, nil
}

// Read fills buf with the next PCM frame. When pacing is on, it sleeps
// for the frame's wall-clock duration before returning.
func (s *FileSource) Read(buf []byte) (int, error) {
	n, err := s.f.Read(buf)
	if err != nil {
		return n, err
	}
	if s.paced {
		// bytes -> duration: 2 bytes per sample, mono
		frameDur := time.Duration(n/2) * time.Second / time.Duration(s.sampleRate)
		elapsed := time.Since(s.lastRead)
		if !s.lastRead.IsZero() && elapsed < frameDur {
			time.Sleep(frameDur - elapsed)
		}
		s.lastRead = time.Now()
	}
	return n, nil
}

// Close closes the underlying file, unblocking a pending Read.
func (s *FileSource) Close() error {
	return s.f.Close()
}
