package clips

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"

	"github.com/voiceclock/voiceclock/audio/pcm"
)

const (
	resampleQuality = 4
	streamChunk     = 1024
)

var decoders = map[string]func(io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error){
	".wav": func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) { return wav.Decode(rc) },
	".mp3": mp3.Decode,
}

func supported(ext string) bool {
	_, ok := decoders[strings.ToLower(ext)]
	return ok
}

// decodeFile decodes a WAV or MP3 file and converts it to format.
func decodeFile(path string, format pcm.Format) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(path))
	decode, ok := decoders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stream, source, err := decode(f)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	return render(stream, source.SampleRate, format)
}

// render drains s, resampling from rate to the target format.
func render(s beep.Streamer, rate beep.SampleRate, format pcm.Format) ([]byte, error) {
	target := beep.SampleRate(format.SampleRate)
	if rate != target {
		s = beep.Resample(resampleQuality, rate, target, s)
	}

	var out []byte
	buf := make([][2]float64, streamChunk)
	for {
		n, ok := s.Stream(buf)
		out = format.AppendStereo(out, buf[:n])
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("no samples")
	}
	return out, nil
}
