package audio

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

// TTSService provides text-to-speech functionality backed by a file cache
type TTSService struct {
	audioDir string
	baseURL  string
	client   *http.Client
}

const (
	ttsRequestTimeout = 10 * time.Second
	googleTTSURL      = "https://translate.google.com/translate_tts"
)

type TTSOption func(*TTSService)

// WithTTSBaseURL points synthesis at another endpoint
func WithTTSBaseURL(u string) TTSOption {
	return func(s *TTSService) { s.baseURL = u }
}

// NewTTSService creates a new TTS service
func NewTTSService(audioDir string, opts ...TTSOption) *TTSService {
	s := &TTSService{
		audioDir: audioDir,
		baseURL:  googleTTSURL,
		client:   &http.Client{Timeout: ttsRequestTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FileName is the cache file name for text spoken in lang
func FileName(text, lang string) string {
	sum := blake2b.Sum256([]byte(baseLanguage(lang) + "\x00" + strings.TrimSpace(text)))
	return fmt.Sprintf("%s_%s.mp3", baseLanguage(lang), hex.EncodeToString(sum[:])[:20])
}

// Synthesize converts text to speech and returns the path of the cached MP3
func (s *TTSService) Synthesize(ctx context.Context, text, lang string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("nothing to synthesize")
	}

	path := filepath.Join(s.audioDir, FileName(text, lang))
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := os.MkdirAll(s.audioDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create audio directory: %w", err)
	}
	if err := s.generateUsingGoogleTTS(ctx, text, lang, path); err != nil {
		return "", fmt.Errorf("failed to generate audio: %w", err)
	}
	return path, nil
}

// generateUsingGoogleTTS uses Google Translate's text-to-speech endpoint,
// which needs no API key
func (s *TTSService) generateUsingGoogleTTS(ctx context.Context, text, lang, outputPath string) error {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("q", text)
	params.Set("tl", baseLanguage(lang))
	params.Set("client", "tw-ob")
	params.Set("textlen", fmt.Sprintf("%d", len([]rune(text))))

	ctx, cancel := context.WithTimeout(ctx, ttsRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	// Set user agent (required by Google)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	// Write to a temp file first so a failed download never leaves a truncated cache entry
	tmp, err := os.CreateTemp(filepath.Dir(outputPath), ".tts-*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	return os.Rename(tmp.Name(), outputPath)
}

// BatchSynthesize warms the cache for several texts in one language
func (s *TTSService) BatchSynthesize(ctx context.Context, texts []string, lang string) (map[string]string, error) {
	results := make(map[string]string)
	for _, text := range texts {
		path, err := s.Synthesize(ctx, text, lang)
		if err != nil {
			return results, fmt.Errorf("failed to generate audio for '%s': %w", text, err)
		}
		results[text] = path
	}
	return results, nil
}

// Delete removes a cached audio file
func (s *TTSService) Delete(filename string) error {
	err := os.Remove(filepath.Join(s.audioDir, filepath.Base(filename)))
	if os.IsNotExist(err) {
		return nil // Already deleted
	}
	return err
}

// List returns every cached MP3 file name
func (s *TTSService) List() ([]string, error) {
	files, err := os.ReadDir(s.audioDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read audio directory: %w", err)
	}

	var audioFiles []string
	for _, file := range files {
		if !file.IsDir() && filepath.Ext(file.Name()) == ".mp3" {
			audioFiles = append(audioFiles, file.Name())
		}
	}
	return audioFiles, nil
}

// Prune deletes cached files not modified within maxAge and reports how many went
func (s *TTSService) Prune(maxAge time.Duration) (int, error) {
	files, err := s.List()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, name := range files {
		info, err := os.Stat(filepath.Join(s.audioDir, name))
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := s.Delete(name); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
