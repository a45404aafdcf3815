package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bassimeledath/aristo-bites/internal/config"
	"github.com/bassimeledath/aristo-bites/internal/subtitles"
	"github.com/bassimeledath/aristo-bites/processing"
)

type fakeSpeech struct {
	mu     sync.Mutex
	voices []string
	err    error
}

func (f *fakeSpeech) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	f.voices = append(f.voices, voiceID)
	f.mu.Unlock()
	return []byte("voice:" + text), nil
}

type fakeImages struct {
	mu      sync.Mutex
	prompts []string
	err     error
}

func (f *fakeImages) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return "https://provider.fake/" + strings.ReplaceAll(prompt, " ", "-") + ".png", nil
}

type fakeClips struct {
	mu     sync.Mutex
	inputs [][2]string
}

func (f *fakeClips) GenerateClip(ctx context.Context, prompt, imageURL string) (string, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, [2]string{prompt, imageURL})
	n := len(f.inputs)
	f.mu.Unlock()
	return fmt.Sprintf("https://clips.fake/%d.mp4", n), nil
}

type fakeHeads struct {
	face     string
	audioURL string
	seconds  int
}

func (f *fakeHeads) TalkingHead(ctx context.Context, faceURL, audioURL string, audioSeconds int) (string, error) {
	f.face, f.audioURL, f.seconds = faceURL, audioURL, audioSeconds
	return "https://heads.fake/intro.mp4", nil
}

// fakeScenes returns exactly the asked-for count unless forceCount is set.
type fakeScenes struct {
	forceCount int
}

func (f *fakeScenes) ExtractScenes(ctx context.Context, script string, n int) ([]processing.SceneDescription, error) {
	count := n
	if f.forceCount != 0 {
		count = f.forceCount
	}
	descs := make([]processing.SceneDescription, count)
	for i := range descs {
		descs[i] = processing.SceneDescription{
			ImageDescription: fmt.Sprintf("image desc %d", i+1),
			VideoDescription: fmt.Sprintf("video desc %d", i+1),
		}
	}
	return descs, nil
}

type fakeStore struct {
	mu        sync.Mutex
	uploads   []string
	downloads []string
}

func (f *fakeStore) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	f.mu.Lock()
	f.uploads = append(f.uploads, key)
	f.mu.Unlock()
	return "https://cdn.fake/" + key, nil
}

func (f *fakeStore) UploadFile(ctx context.Context, key, path, contentType string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.uploads = append(f.uploads, key)
	f.mu.Unlock()
	return "https://cdn.fake/" + key, nil
}

func (f *fakeStore) Download(ctx context.Context, url, dest string) error {
	f.mu.Lock()
	f.downloads = append(f.downloads, url)
	f.mu.Unlock()
	return os.WriteFile(dest, []byte("asset:"+url), 0o644)
}

type fakeMedia struct {
	mu  sync.Mutex
	ops []string
}

// Duration keys off the synthesized text embedded in the local file.
func (f *fakeMedia) Duration(ctx context.Context, path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	if strings.Contains(string(data), "intro script") {
		return 3.2, nil
	}
	return 12.0, nil
}

func (f *fakeMedia) record(op, output string) error {
	f.mu.Lock()
	f.ops = append(f.ops, op)
	f.mu.Unlock()
	return os.WriteFile(output, []byte(op), 0o644)
}

func (f *fakeMedia) Concat(ctx context.Context, inputs []string, output string) error {
	for _, in := range inputs {
		if _, err := os.Stat(in); err != nil {
			return err
		}
	}
	return f.record(fmt.Sprintf("concat:%d", len(inputs)), output)
}

func (f *fakeMedia) MuxAudio(ctx context.Context, videoPath, audioPath, output string) error {
	return f.record("mux", output)
}

func (f *fakeMedia) ExtractAudio(ctx context.Context, videoPath, output string) error {
	return f.record("extract", output)
}

func (f *fakeMedia) BurnSubtitles(ctx context.Context, videoPath, srtPath, output string) error {
	if _, err := os.Stat(srtPath); err != nil {
		return err
	}
	return f.record("burn", output)
}

type fakeScribe struct{}

func (f *fakeScribe) Transcribe(ctx context.Context, path string) ([]subtitles.Segment, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return []subtitles.Segment{{Start: 0, End: 2, Text: "Welcome to AristoBites."}}, nil
}

type testDeps struct {
	speech *fakeSpeech
	images *fakeImages
	clips  *fakeClips
	heads  *fakeHeads
	scenes *fakeScenes
	store  *fakeStore
	media  *fakeMedia
}

func newTestAssembler(t *testing.T, d *testDeps) *Assembler {
	t.Helper()
	cfg := config.PipelineConfig{
		SceneSeconds:     5,
		SceneConcurrency: 2,
		WorkDir:          t.TempDir(),
	}
	deps := Deps{
		Speech: d.speech,
		Images: d.images,
		Clips:  d.clips,
		Heads:  d.heads,
		Scenes: d.scenes,
		Store:  d.store,
		Scribe: &fakeScribe{},
		Media:  d.media,
	}
	return NewAssembler(deps, cfg, zap.NewNop())
}

func defaultDeps() *testDeps {
	return &testDeps{
		speech: &fakeSpeech{},
		images: &fakeImages{},
		clips:  &fakeClips{},
		heads:  &fakeHeads{},
		scenes: &fakeScenes{},
		store:  &fakeStore{},
		media:  &fakeMedia{},
	}
}

func TestGenerateAssets(t *testing.T) {
	d := defaultDeps()
	a := newTestAssembler(t, d)

	assets, err := a.GenerateAssets(context.Background(),
		"intro script welcome everyone",
		"a monologue about stoic time management and mortality",
		"series-voice",
		"https://faces.fake/narrator.png",
	)
	require.NoError(t, err)

	// 12s of body narration at 5s per scene rounds up to 3 scenes.
	require.Len(t, assets.Scenes, 3)
	for i, s := range assets.Scenes {
		assert.Equal(t, i+1, s.Number)
		assert.Equal(t, fmt.Sprintf("image desc %d", i+1), s.ImageDescription)
		assert.Equal(t, fmt.Sprintf("video desc %d", i+1), s.VideoDescription)
		assert.True(t, strings.HasPrefix(s.ImageURL, "https://cdn.fake/images/"), s.ImageURL)
		assert.True(t, strings.HasPrefix(s.ClipURL, "https://clips.fake/"), s.ClipURL)
	}

	assert.True(t, strings.HasPrefix(assets.IntroAudioURL, "https://cdn.fake/audio/"))
	assert.True(t, strings.HasPrefix(assets.BodyAudioURL, "https://cdn.fake/audio/"))
	assert.Equal(t, "https://heads.fake/intro.mp4", assets.IntroVideoURL)

	// 3.2s of intro audio plus the 0.5s of slack rounds up to 4.
	assert.Equal(t, 4, d.heads.seconds)
	assert.Equal(t, "https://faces.fake/narrator.png", d.heads.face)
	assert.Equal(t, assets.IntroAudioURL, d.heads.audioURL)

	assert.Equal(t, []string{"series-voice", "series-voice"}, d.speech.voices)

	// Clips must animate the re-hosted keyframes, not the provider URLs.
	for _, in := range d.clips.inputs {
		assert.True(t, strings.HasPrefix(in[1], "https://cdn.fake/images/"), in[1])
	}
}

func TestGenerateAssetsSceneCountMismatch(t *testing.T) {
	d := defaultDeps()
	d.scenes = &fakeScenes{forceCount: 2}
	a := newTestAssembler(t, d)

	_, err := a.GenerateAssets(context.Background(), "intro script", "body words", "", "face")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "number of scenes (2) does not match the expected number of images (3)")
}

func TestGenerateAssetsImageFailure(t *testing.T) {
	d := defaultDeps()
	d.images = &fakeImages{err: fmt.Errorf("flux offline")}
	a := newTestAssembler(t, d)

	_, err := a.GenerateAssets(context.Background(), "intro script", "body words", "", "face")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scene")
	assert.Contains(t, err.Error(), "flux offline")
}

func TestGenerateAssetsSpeechFailure(t *testing.T) {
	d := defaultDeps()
	d.speech = &fakeSpeech{err: fmt.Errorf("voice quota exhausted")}
	a := newTestAssembler(t, d)

	_, err := a.GenerateAssets(context.Background(), "intro script", "body words", "", "face")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "voice quota exhausted")
}

func TestAssembleEpisode(t *testing.T) {
	d := defaultDeps()
	a := newTestAssembler(t, d)

	url, err := a.AssembleEpisode(context.Background(),
		"https://heads.fake/intro.mp4",
		[]string{"https://clips.fake/1.mp4", "https://clips.fake/2.mp4", "https://clips.fake/3.mp4"},
		"https://cdn.fake/audio/body.mp3",
	)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://cdn.fake/videos/"), url)
	assert.True(t, strings.HasSuffix(url, ".mp4"), url)

	// intro + 3 clips + body audio
	assert.Len(t, d.store.downloads, 5)

	// clips concat, audio mux, intro+main concat, audio extract, subtitle burn
	assert.Equal(t, []string{"concat:3", "mux", "concat:2", "extract", "burn"}, d.media.ops)
}

func TestAssembleEpisodeIncompleteInputs(t *testing.T) {
	d := defaultDeps()
	a := newTestAssembler(t, d)

	_, err := a.AssembleEpisode(context.Background(), "", []string{"clip"}, "audio")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assembly inputs incomplete")

	_, err = a.AssembleEpisode(context.Background(), "intro", nil, "audio")
	require.Error(t, err)

	_, err = a.AssembleEpisode(context.Background(), "intro", []string{"clip"}, "")
	require.Error(t, err)
}
