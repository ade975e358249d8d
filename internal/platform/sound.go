package platform

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"autotimer/internal/core/model"
	"autotimer/internal/core/notify"
)

const (
	sampleRate   = 44100
	fadeDuration = 8 * time.Millisecond
	toneGap      = 40 * time.Millisecond
	// soundTimeout caps a single playback, a burst lasts well under a second.
	soundTimeout = 5 * time.Second
)

// SoundPlayer plays synthesized bursts or a custom sound file through the
// system audio player.
type SoundPlayer struct {
	mu       sync.Mutex
	cacheDir string
	cached   map[string]string
	logger   *slog.Logger
}

// NewSoundPlayer creates a player caching rendered bursts in the temp dir.
func NewSoundPlayer(logger *slog.Logger) *SoundPlayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &SoundPlayer{
		cacheDir: filepath.Join(os.TempDir(), "autotimer-sounds"),
		cached:   make(map[string]string),
		logger:   logger.With(slog.String("component", "sound")),
	}
}

// PlaySound plays the request, preferring an existing custom file.
func (player *SoundPlayer) PlaySound(ctx context.Context, request model.SoundRequest) error {
	ctx, cancel := context.WithTimeout(ctx, soundTimeout)
	defer cancel()

	if request.CustomPath != "" {
		if _, err := os.Stat(request.CustomPath); err == nil {
			return playFile(ctx, request.CustomPath, request.VolumePercent)
		}
		player.logger.Debug("custom sound missing, playing built-in burst", slog.String("path", request.CustomPath))
	}
	if request.VolumePercent <= 0 {
		return nil
	}
	path, err := player.render(request)
	if err != nil {
		return err
	}
	// Volume is baked into the rendered samples.
	return playFile(ctx, path, 100)
}

// Beep emits the system alert sound.
func (player *SoundPlayer) Beep(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, soundTimeout)
	defer cancel()
	return systemBeep(ctx)
}

func (player *SoundPlayer) render(request model.SoundRequest) (string, error) {
	key := burstKey(request)
	player.mu.Lock()
	defer player.mu.Unlock()
	if path, ok := player.cached[key]; ok {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	if err := os.MkdirAll(player.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create sound cache: %w", err)
	}
	var buffer bytes.Buffer
	if err := writeBurstWAV(&buffer, request.Tones, request.VolumePercent); err != nil {
		return "", err
	}
	path := filepath.Join(player.cacheDir, key+".wav")
	if err := os.WriteFile(path, buffer.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write sound cache: %w", err)
	}
	player.cached[key] = path
	return path, nil
}

func burstKey(request model.SoundRequest) string {
	key := fmt.Sprintf("burst-v%d", request.VolumePercent)
	for _, tone := range request.Tones {
		key += fmt.Sprintf("-%.0f_%d", tone.FrequencyHz, tone.Duration.Milliseconds())
	}
	return key
}

// writeBurstWAV renders tones as 16-bit mono PCM, separated by short gaps.
func writeBurstWAV(buffer *bytes.Buffer, tones []model.Tone, volumePercent int) error {
	if len(tones) == 0 {
		return errors.New("sound burst has no tones")
	}
	volume := math.Max(0, math.Min(1, float64(volumePercent)/100))
	gapSamples := samplesFor(toneGap)
	fadeSamples := samplesFor(fadeDuration)

	var samples []int16
	for i, tone := range tones {
		count := samplesFor(tone.Duration)
		for n := 0; n < count; n++ {
			envelope := 1.0
			if n < fadeSamples {
				envelope = float64(n) / float64(fadeSamples)
			} else if remaining := count - n; remaining < fadeSamples {
				envelope = float64(remaining) / float64(fadeSamples)
			}
			value := math.Sin(2*math.Pi*tone.FrequencyHz*float64(n)/sampleRate) * envelope * volume
			samples = append(samples, int16(value*math.MaxInt16))
		}
		if i < len(tones)-1 {
			samples = append(samples, make([]int16, gapSamples)...)
		}
	}

	dataSize := uint32(len(samples) * 2)
	header := struct {
		ChunkID       [4]byte
		ChunkSize     uint32
		Format        [4]byte
		Subchunk1ID   [4]byte
		Subchunk1Size uint32
		AudioFormat   uint16
		NumChannels   uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		Subchunk2ID   [4]byte
		Subchunk2Size uint32
	}{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   1,
		SampleRate:    sampleRate,
		ByteRate:      sampleRate * 2,
		BlockAlign:    2,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
	if err := binary.Write(buffer, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}
	if err := binary.Write(buffer, binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("write wav samples: %w", err)
	}
	return nil
}

func samplesFor(d time.Duration) int {
	return int(d.Seconds() * sampleRate)
}

// runFirstAvailable runs the first candidate whose binary is on PATH.
func runFirstAvailable(ctx context.Context, candidates [][]string) error {
	for _, candidate := range candidates {
		if _, err := exec.LookPath(candidate[0]); err != nil {
			continue
		}
		if err := exec.CommandContext(ctx, candidate[0], candidate[1:]...).Run(); err != nil {
			return fmt.Errorf("%s: %w", candidate[0], err)
		}
		return nil
	}
	return notify.ErrChannelUnavailable
}
