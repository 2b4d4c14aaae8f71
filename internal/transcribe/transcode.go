package transcribe

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// Transcoder converts a compressed audio file into a waveform file the
// recognizer accepts.
type Transcoder interface {
	Transcode(src, dst string) error
}

// MP3ToWAV decodes MP3 and writes 16-bit mono PCM WAV at the source sample rate.
type MP3ToWAV struct{}

// wavPCMFormat is the WAVE format tag for integer PCM.
const wavPCMFormat = 1

// Transcode implements Transcoder.
func (MP3ToWAV) Transcode(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // path comes from TempPaths
	if err != nil {
		return fmt.Errorf("failed to open mp3: %w", err)
	}
	defer in.Close()

	dec, err := mp3.NewDecoder(in)
	if err != nil {
		return fmt.Errorf("failed to decode mp3: %w", err)
	}

	pcm, err := io.ReadAll(dec)
	if err != nil {
		return fmt.Errorf("failed to decode mp3: %w", err)
	}

	return writeWAV(dst, downmix(pcm), dec.SampleRate())
}

// downmix converts go-mp3 output (interleaved stereo, 16-bit little endian)
// to mono samples by averaging both channels. A trailing partial frame is
// dropped.
func downmix(pcm []byte) []int {
	const frameSize = 4
	samples := make([]int, 0, len(pcm)/frameSize)
	for i := 0; i+frameSize <= len(pcm); i += frameSize {
		left := int(int16(binary.LittleEndian.Uint16(pcm[i:])))
		right := int(int16(binary.LittleEndian.Uint16(pcm[i+2:])))
		samples = append(samples, (left+right)/2)
	}
	return samples
}

// writeWAV encodes mono 16-bit samples into dst.
func writeWAV(dst string, samples []int, sampleRate int) (err error) {
	out, err := os.Create(dst) //nolint:gosec // path comes from TempPaths
	if err != nil {
		return fmt.Errorf("failed to create wav: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close wav: %w", cerr)
		}
	}()

	enc := wav.NewEncoder(out, sampleRate, 16, 1, wavPCMFormat)
	buf := &audio.IntBuffer{
		Data:           samples,
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize wav: %w", err)
	}
	return nil
}
