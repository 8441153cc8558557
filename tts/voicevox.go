package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// VoicevoxClient talks to a locally running VOICEVOX engine.
type VoicevoxClient struct {
	base string
	hc   *http.Client
}

func NewVoicevoxClient(base string) *VoicevoxClient {
	return &VoicevoxClient{
		base: strings.TrimRight(base, "/"),
		// Synthesis of a long paragraph can take a while.
		hc: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Synthesize produces WAV audio for text at the requested speed scale
// (1.0 is normal) using the engine's two-step query/synthesis protocol.
func (c *VoicevoxClient) Synthesize(ctx context.Context, text string, speaker int, speed float64) ([]byte, error) {
	query, err := c.audioQuery(ctx, text, speaker)
	if err != nil {
		return nil, err
	}
	query["speedScale"] = speed
	return c.synthesis(ctx, query, speaker)
}

func (c *VoicevoxClient) audioQuery(ctx context.Context, text string, speaker int) (map[string]any, error) {
	params := url.Values{}
	params.Set("text", text)
	params.Set("speaker", strconv.Itoa(speaker))

	body, err := c.post(ctx, "/audio_query?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("audio query failed: %w", err)
	}

	var query map[string]any
	if err := json.Unmarshal(body, &query); err != nil {
		return nil, fmt.Errorf("unable to decode audio query: %w", err)
	}
	return query, nil
}

func (c *VoicevoxClient) synthesis(ctx context.Context, query map[string]any, speaker int) ([]byte, error) {
	data, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("unable to encode audio query: %w", err)
	}

	params := url.Values{}
	params.Set("speaker", strconv.Itoa(speaker))

	body, err := c.post(ctx, "/synthesis?"+params.Encode(), data)
	if err != nil {
		return nil, fmt.Errorf("synthesis failed: %w", err)
	}
	return body, nil
}

func (c *VoicevoxClient) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to reach VOICEVOX engine at %s, is it running? %w", c.base, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("VOICEVOX engine returned %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	return data, nil
}
