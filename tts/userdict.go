package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Symbols VOICEVOX does not read on its own. Registered in the engine's
// user dictionary before synthesis.
var userDictWords = []struct {
	Surface       string
	Pronunciation string
}{
	{"①", "イチ"}, {"②", "ニ"}, {"③", "サン"}, {"④", "ヨン"}, {"⑤", "ゴ"},
	{"⑥", "ロク"}, {"⑦", "ナナ"}, {"⑧", "ハチ"}, {"⑨", "キュウ"},
	{"Ⅰ", "イチ"}, {"Ⅱ", "ニ"}, {"Ⅲ", "サン"}, {"Ⅳ", "ヨン"}, {"Ⅴ", "ゴ"},
	{"Ⅵ", "ロク"}, {"Ⅶ", "ナナ"}, {"Ⅷ", "ハチ"}, {"Ⅸ", "キュウ"}, {"Ⅹ", "ジュウ"},
	{"ⓐ", "エイ"}, {"ⓑ", "ビイ"}, {"ⓒ", "シイ"}, {"ⓓ", "ディー"}, {"ⓔ", "イー"}, {"ⓕ", "エフ"},
	{"〜", "カラ"}, {"～", "カラ"},
}

// EnsureUserDict registers missing symbol pronunciations in the engine's
// user dictionary. Failures are logged and ignored, synthesis still works
// without them.
func (c *VoicevoxClient) EnsureUserDict(ctx context.Context, log *zap.Logger) {
	registered, err := c.userDict(ctx)
	if err != nil {
		log.Warn("Unable to read VOICEVOX user dictionary", zap.Error(err))
		return
	}

	for _, w := range userDictWords {
		if registered[w.Surface] {
			continue
		}
		if err := c.addUserDictWord(ctx, w.Surface, w.Pronunciation); err != nil {
			log.Warn("Unable to register dictionary word",
				zap.String("surface", w.Surface), zap.Error(err))
			continue
		}
		log.Debug("Dictionary word registered",
			zap.String("surface", w.Surface), zap.String("pronunciation", w.Pronunciation))
	}
}

// userDict returns the set of surfaces already registered.
func (c *VoicevoxClient) userDict(ctx context.Context) (map[string]bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/user_dict", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("VOICEVOX engine returned %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	var words map[string]struct {
		Surface string `json:"surface"`
	}
	if err := json.Unmarshal(data, &words); err != nil {
		return nil, fmt.Errorf("unable to decode user dictionary: %w", err)
	}

	surfaces := make(map[string]bool, len(words))
	for _, w := range words {
		surfaces[w.Surface] = true
	}
	return surfaces, nil
}

func (c *VoicevoxClient) addUserDictWord(ctx context.Context, surface, pronunciation string) error {
	params := url.Values{}
	params.Set("surface", surface)
	params.Set("pronunciation", pronunciation)
	params.Set("accent_type", "1")
	params.Set("word_type", "PROPER_NOUN")
	params.Set("priority", "5")

	_, err := c.post(ctx, "/user_dict_word?"+params.Encode(), nil)
	return err
}
