// Package audio provides the audio source capability: blocking frame
// reads of raw 16-bit mono PCM.
package audio

// Source yields successive raw PCM frames. Read blocks until the buffer
// is filled or the source ends; Close releases the device and unblocks a
// pending Read.
type Source interface {
	Read(buf []byte) (int, error)
	Close() error
}
