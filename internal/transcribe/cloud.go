package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// DefaultCloudTimeout bounds a cloud request when no timeout is configured.
const DefaultCloudTimeout = 30 * time.Second

// CloudOptions configures the cloud transcription backend.
type CloudOptions struct {
	APIKey  string
	BaseURL string // OpenAI-compatible base, e.g. https://api.groq.com/openai/v1
	Model   string
	Timeout time.Duration
}

// CloudTranscriber uploads audio to a Groq-compatible transcription
// endpoint. The request body is built in memory per call and never
// retained past the call.
type CloudTranscriber struct {
	opts   CloudOptions
	client *http.Client
}

// NewCloudTranscriber validates the credential and builds the client.
// Returns ErrAuth when no API key is configured.
func NewCloudTranscriber(opts CloudOptions) (*CloudTranscriber, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("no API key configured: %w", ErrAuth)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultCloudTimeout
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	return &CloudTranscriber{
		opts: opts,
		client: &http.Client{
			Timeout: opts.Timeout,
		},
	}, nil
}

// Close is a no-op; the HTTP client holds no resources worth releasing.
func (t *CloudTranscriber) Close() error { return nil }

// Transcribe encodes the samples as a 16-bit WAV in memory and POSTs them
// as multipart form data with a Bearer credential. A single attempt: no
// automatic retry, so failed audio is never re-submitted without the
// user's consent.
func (t *CloudTranscriber) Transcribe(ctx context.Context, req Request) (Result, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = t.opts.Model
	}

	wavData, err := encodeWAV(req.Samples, req.SampleRate)
	if err != nil {
		return Result{}, fmt.Errorf("encode wav: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return Result{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(wavData); err != nil {
		return Result{}, fmt.Errorf("write form file: %w", err)
	}
	if err := writer.WriteField("model", model); err != nil {
		return Result{}, fmt.Errorf("write model field: %w", err)
	}
	if err := writer.WriteField("response_format", "json"); err != nil {
		return Result{}, fmt.Errorf("write response_format field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Result{}, fmt.Errorf("close multipart writer: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.opts.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.opts.BaseURL+"/audio/transcriptions", &body)
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+t.opts.APIKey)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("%v: %w", err, ErrNetwork)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", ErrNetwork)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Result{}, fmt.Errorf("HTTP %d: %s: %w", resp.StatusCode, remoteMessage(respBody), ErrAuth)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Result{}, fmt.Errorf("HTTP %d: %s: %w", resp.StatusCode, remoteMessage(respBody), ErrRemote)
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Result{}, fmt.Errorf("decode response: %v: %w", err, ErrRemote)
	}

	return Result{
		Text:    strings.TrimSpace(parsed.Text),
		Backend: "cloud",
		Elapsed: time.Since(start),
	}, nil
}

// remoteMessage extracts the error message from an OpenAI-style error body,
// falling back to the trimmed raw body.
func remoteMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// encodeWAV renders float32 samples as a mono 16-bit PCM WAV held entirely
// in memory. The audio never touches disk.
func encodeWAV(samples []float32, sampleRate int) ([]byte, error) {
	buf := &seekBuffer{}
	enc := wav.NewEncoder(buf, sampleRate, 16, 1, 1)

	ints := make([]int, len(samples))
	for i, s := range samples {
		switch {
		case s > 1:
			s = 1
		case s < -1:
			s = -1
		}
		ints[i] = int(s * 32767)
	}

	pcm := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           ints,
	}
	if err := enc.Write(pcm); err != nil {
		return nil, fmt.Errorf("wav encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("wav finalize: %w", err)
	}
	return buf.data, nil
}

// seekBuffer is an in-memory io.WriteSeeker for the WAV encoder, which
// seeks back to patch the RIFF header on Close.
type seekBuffer struct {
	data []byte
	pos  int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	if need := b.pos + len(p); need > len(b.data) {
		if need > cap(b.data) {
			grown := make([]byte, need)
			copy(grown, b.data)
			b.data = grown
		} else {
			b.data = b.data[:need]
		}
	}
	copy(b.data[b.pos:], p)
	b.pos += len(p)
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = int64(b.pos) + offset
	case io.SeekEnd:
		pos = int64(len(b.data)) + offset
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	if pos < 0 {
		return 0, fmt.Errorf("seek: negative position %d", pos)
	}
	b.pos = int(pos)
	return pos, nil
}
