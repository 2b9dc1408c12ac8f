// Package audio streams mono waveforms from audio files.
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Source yields mono samples in [-1, 1] at a fixed sample rate.
// Read fills dst and returns io.EOF once the waveform is exhausted.
type Source interface {
	SampleRate() int
	Read(dst []float64) (int, error)
	Close() error
}

const readBlock = 4096

const wavFormatIEEEFloat = 3

// ErrUnsupportedWAV is returned by OpenWAV for WAV encodings it cannot
// stream, such as IEEE float. Open decodes those through ffmpeg instead.
var ErrUnsupportedWAV = errors.New("unsupported wav encoding")

// WAVSource streams a PCM WAV file, downmixing to mono.
type WAVSource struct {
	file     *os.File
	dec      *wav.Decoder
	rate     int
	channels int
	scale    float64
	offset   float64
	buf      *goaudio.IntBuffer
	pending  []float64
	onClose  func() error
}

// OpenWAV opens a PCM WAV file for streaming.
func OpenWAV(path string) (*WAVSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		_ = file.Close()
		return nil, fmt.Errorf("not a valid wav file: %s", path)
	}
	if dec.WavAudioFormat == wavFormatIEEEFloat {
		_ = file.Close()
		return nil, fmt.Errorf("%w: IEEE float samples in %s", ErrUnsupportedWAV, path)
	}
	if err := dec.FwdToPCM(); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to find PCM data: %w", err)
	}
	channels := int(dec.NumChans)
	if channels <= 0 || dec.SampleRate == 0 || dec.BitDepth == 0 {
		_ = file.Close()
		return nil, fmt.Errorf("unsupported wav format in %s", path)
	}
	half := float64(int64(1) << (dec.BitDepth - 1))
	offset := 0.0
	if dec.BitDepth == 8 {
		// 8-bit PCM is unsigned with silence at 128.
		offset = half
	}
	return &WAVSource{
		file:     file,
		dec:      dec,
		rate:     int(dec.SampleRate),
		channels: channels,
		scale:    half,
		offset:   offset,
		buf: &goaudio.IntBuffer{
			Format: &goaudio.Format{NumChannels: channels, SampleRate: int(dec.SampleRate)},
			Data:   make([]int, readBlock*channels),
		},
	}, nil
}

// SampleRate implements Source.
func (s *WAVSource) SampleRate() int {
	return s.rate
}

// Read implements Source.
func (s *WAVSource) Read(dst []float64) (int, error) {
	n := 0
	for n < len(dst) {
		if len(s.pending) == 0 {
			if err := s.fill(); err != nil {
				if n > 0 && errors.Is(err, io.EOF) {
					return n, nil
				}
				return n, err
			}
		}
		c := copy(dst[n:], s.pending)
		s.pending = s.pending[c:]
		n += c
	}
	return n, nil
}

func (s *WAVSource) fill() error {
	got, err := s.dec.PCMBuffer(s.buf)
	if err != nil {
		return fmt.Errorf("failed to read PCM buffer: %w", err)
	}
	frames := got / s.channels
	if frames == 0 {
		return io.EOF
	}
	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < s.channels; c++ {
			sum += float64(s.buf.Data[i*s.channels+c]) - s.offset
		}
		mono[i] = sum / float64(s.channels) / s.scale
	}
	s.pending = mono
	return nil
}

// Close implements Source.
func (s *WAVSource) Close() error {
	err := s.file.Close()
	if s.onClose != nil {
		if cerr := s.onClose(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// WriteWAV writes mono samples in [-1, 1] as a 16-bit PCM WAV file.
func WriteWAV(path string, samples []float64, sampleRate int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := wav.NewEncoder(file, sampleRate, 16, 1, 1)
	data := make([]int, len(samples))
	for i, v := range samples {
		if v > 1 {
			v = 1
		}
		if v < -1 {
			v = -1
		}
		data[i] = int(v * 32767)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to finalize wav: %w", err)
	}
	return file.Close()
}

// SliceSource serves samples from memory. It is used for generated signals and tests.
type SliceSource struct {
	Samples []float64
	Rate    int
	pos     int
}

// SampleRate implements Source.
func (s *SliceSource) SampleRate() int {
	return s.Rate
}

// Read implements Source.
func (s *SliceSource) Read(dst []float64) (int, error) {
	if s.pos >= len(s.Samples) {
		return 0, io.EOF
	}
	n := copy(dst, s.Samples[s.pos:])
	s.pos += n
	return n, nil
}

// Close implements Source.
func (s *SliceSource) Close() error {
	return nil
}
