package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bassimeledath/aristo-bites/internal/config"
	"github.com/bassimeledath/aristo-bites/internal/subtitles"
	"github.com/bassimeledath/aristo-bites/processing"
)

// The assembler depends on behavior, not on concrete service clients, so
// stages can be exercised with fakes.

type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

type ClipGenerator interface {
	GenerateClip(ctx context.Context, prompt, imageURL string) (string, error)
}

type TalkingHeadGenerator interface {
	TalkingHead(ctx context.Context, faceURL, audioURL string, audioSeconds int) (string, error)
}

type SceneDescriber interface {
	ExtractScenes(ctx context.Context, script string, n int) ([]processing.SceneDescription, error)
}

type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	UploadFile(ctx context.Context, key, path, contentType string) (string, error)
	Download(ctx context.Context, url, dest string) error
}

type Transcriber interface {
	Transcribe(ctx context.Context, path string) ([]subtitles.Segment, error)
}

type MediaToolchain interface {
	Duration(ctx context.Context, path string) (float64, error)
	Concat(ctx context.Context, inputs []string, output string) error
	MuxAudio(ctx context.Context, videoPath, audioPath, output string) error
	ExtractAudio(ctx context.Context, videoPath, output string) error
	BurnSubtitles(ctx context.Context, videoPath, srtPath, output string) error
}

// Deps bundles everything the assembler calls out to.
type Deps struct {
	Speech SpeechSynthesizer
	Images ImageGenerator
	Clips  ClipGenerator
	Heads  TalkingHeadGenerator
	Scenes SceneDescriber
	Store  ObjectStore
	Scribe Transcriber
	Media  MediaToolchain
}

// Scene carries one generated scene's descriptions and artifact URLs.
type Scene struct {
	Number           int
	ImageDescription string
	VideoDescription string
	ImageURL         string
	ClipURL          string
}

// Assets is everything the assets stage produced for an episode.
type Assets struct {
	IntroAudioURL string
	BodyAudioURL  string
	IntroVideoURL string
	Scenes        []Scene
}

// Assembler turns narration text into per-scene assets and stitches them
// into the final subtitled episode video. It holds no database state; the
// worker handlers persist what it returns.
type Assembler struct {
	deps Deps
	cfg  config.PipelineConfig
	log  *zap.Logger
}

func NewAssembler(deps Deps, cfg config.PipelineConfig, log *zap.Logger) *Assembler {
	return &Assembler{deps: deps, cfg: cfg, log: log}
}

// GenerateAssets produces all per-episode media: intro narration audio plus
// its talking-head clip, and body narration audio plus one image and one
// animated clip per scene. The intro and main branches run concurrently;
// scene generation inside the main branch is bounded by a semaphore.
func (a *Assembler) GenerateAssets(ctx context.Context, intro, body, voiceID, faceURL string) (*Assets, error) {
	workDir, err := os.MkdirTemp(a.cfg.WorkDir, "assets-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	assets := &Assets{}

	g, ctx := errgroup.WithContext(ctx)

	// Intro branch: narration audio, then the talking head synced to it.
	g.Go(func() error {
		audioURL, audioPath, err := a.synthesizeToStore(ctx, intro, voiceID, workDir)
		if err != nil {
			return fmt.Errorf("intro audio: %w", err)
		}
		assets.IntroAudioURL = audioURL

		dur, err := a.deps.Media.Duration(ctx, audioPath)
		if err != nil {
			return fmt.Errorf("intro duration: %w", err)
		}
		// Half a second of slack keeps the lip-sync from clipping the
		// final word.
		seconds := int(math.Ceil(dur + 0.50))

		videoURL, err := a.deps.Heads.TalkingHead(ctx, faceURL, audioURL, seconds)
		if err != nil {
			return fmt.Errorf("intro video: %w", err)
		}
		assets.IntroVideoURL = videoURL
		return nil
	})

	// Main branch: narration audio, scene descriptions, then one image and
	// clip per scene.
	g.Go(func() error {
		audioURL, audioPath, err := a.synthesizeToStore(ctx, body, voiceID, workDir)
		if err != nil {
			return fmt.Errorf("body audio: %w", err)
		}
		assets.BodyAudioURL = audioURL

		dur, err := a.deps.Media.Duration(ctx, audioPath)
		if err != nil {
			return fmt.Errorf("body duration: %w", err)
		}
		n := a.sceneCount(dur)

		descs, err := a.deps.Scenes.ExtractScenes(ctx, body, n)
		if err != nil {
			return fmt.Errorf("scene descriptions: %w", err)
		}
		if len(descs) != n {
			return fmt.Errorf("number of scenes (%d) does not match the expected number of images (%d)", len(descs), n)
		}

		scenes := make([]Scene, n)
		sg, sctx := errgroup.WithContext(ctx)
		sg.SetLimit(a.sceneConcurrency())
		for i, desc := range descs {
			sg.Go(func() error {
				scene, err := a.generateScene(sctx, i+1, desc, workDir)
				if err != nil {
					return fmt.Errorf("scene %d: %w", i+1, err)
				}
				scenes[i] = *scene
				return nil
			})
		}
		if err := sg.Wait(); err != nil {
			return err
		}
		assets.Scenes = scenes
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	a.log.Info("generated episode assets",
		zap.Int("scenes", len(assets.Scenes)),
		zap.String("intro_video", assets.IntroVideoURL))
	return assets, nil
}

// synthesizeToStore renders speech, uploads the mp3, and keeps a local copy
// for duration probing.
func (a *Assembler) synthesizeToStore(ctx context.Context, text, voiceID, workDir string) (url, path string, err error) {
	audio, err := a.deps.Speech.Synthesize(ctx, text, voiceID)
	if err != nil {
		return "", "", err
	}

	key := fmt.Sprintf("audio/%s.mp3", uuid.New().String())
	url, err = a.deps.Store.Upload(ctx, key, bytes.NewReader(audio), "audio/mpeg")
	if err != nil {
		return "", "", err
	}

	path = filepath.Join(workDir, filepath.Base(key))
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return "", "", fmt.Errorf("write local audio: %w", err)
	}
	return url, path, nil
}

func (a *Assembler) generateScene(ctx context.Context, number int, desc processing.SceneDescription, workDir string) (*Scene, error) {
	providerURL, err := a.deps.Images.GenerateImage(ctx, desc.ImageDescription)
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}

	// Provider URLs expire, so the keyframe is re-hosted before anything
	// downstream references it.
	id := uuid.New().String()
	localImage := filepath.Join(workDir, fmt.Sprintf("image_%s.png", id))
	if err := a.deps.Store.Download(ctx, providerURL, localImage); err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	imageURL, err := a.deps.Store.UploadFile(ctx, fmt.Sprintf("images/%s.png", id), localImage, "image/png")
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	clipURL, err := a.deps.Clips.GenerateClip(ctx, desc.VideoDescription, imageURL)
	if err != nil {
		return nil, fmt.Errorf("clip: %w", err)
	}

	return &Scene{
		Number:           number,
		ImageDescription: desc.ImageDescription,
		VideoDescription: desc.VideoDescription,
		ImageURL:         imageURL,
		ClipURL:          clipURL,
	}, nil
}

// AssembleEpisode downloads the generated assets, stitches them into one
// video with the body narration muxed under the scene clips, burns in
// whisper subtitles, and uploads the result. Returns the final video URL.
func (a *Assembler) AssembleEpisode(ctx context.Context, introVideoURL string, clipURLs []string, bodyAudioURL string) (string, error) {
	if introVideoURL == "" || bodyAudioURL == "" || len(clipURLs) == 0 {
		return "", fmt.Errorf("assembly inputs incomplete: intro=%t clips=%d audio=%t",
			introVideoURL != "", len(clipURLs), bodyAudioURL != "")
	}

	workDir, err := os.MkdirTemp(a.cfg.WorkDir, "assembly-*")
	if err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	introPath := filepath.Join(workDir, "intro.mp4")
	if err := a.deps.Store.Download(ctx, introVideoURL, introPath); err != nil {
		return "", fmt.Errorf("download intro: %w", err)
	}

	clipPaths := make([]string, len(clipURLs))
	for i, u := range clipURLs {
		p := filepath.Join(workDir, fmt.Sprintf("clip_%03d.mp4", i))
		if err := a.deps.Store.Download(ctx, u, p); err != nil {
			return "", fmt.Errorf("download clip %d: %w", i+1, err)
		}
		clipPaths[i] = p
	}

	audioPath := filepath.Join(workDir, "body.mp3")
	if err := a.deps.Store.Download(ctx, bodyAudioURL, audioPath); err != nil {
		return "", fmt.Errorf("download body audio: %w", err)
	}

	mainSilent := filepath.Join(workDir, "main_silent.mp4")
	if err := a.deps.Media.Concat(ctx, clipPaths, mainSilent); err != nil {
		return "", fmt.Errorf("concat clips: %w", err)
	}

	mainPath := filepath.Join(workDir, "main.mp4")
	if err := a.deps.Media.MuxAudio(ctx, mainSilent, audioPath, mainPath); err != nil {
		return "", fmt.Errorf("mux body audio: %w", err)
	}

	combinedPath := filepath.Join(workDir, "combined.mp4")
	if err := a.deps.Media.Concat(ctx, []string{introPath, mainPath}, combinedPath); err != nil {
		return "", fmt.Errorf("concat intro and main: %w", err)
	}

	combinedAudio := filepath.Join(workDir, "combined.mp3")
	if err := a.deps.Media.ExtractAudio(ctx, combinedPath, combinedAudio); err != nil {
		return "", fmt.Errorf("extract audio: %w", err)
	}

	segments, err := a.deps.Scribe.Transcribe(ctx, combinedAudio)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}

	srtPath := filepath.Join(workDir, "episode.srt")
	if err := subtitles.WriteSRT(segments, srtPath); err != nil {
		return "", err
	}

	finalPath := filepath.Join(workDir, "final.mp4")
	if err := a.deps.Media.BurnSubtitles(ctx, combinedPath, srtPath, finalPath); err != nil {
		return "", fmt.Errorf("burn subtitles: %w", err)
	}

	url, err := a.deps.Store.UploadFile(ctx, fmt.Sprintf("videos/%s.mp4", uuid.New().String()), finalPath, "video/mp4")
	if err != nil {
		return "", fmt.Errorf("upload final video: %w", err)
	}

	a.log.Info("assembled episode video",
		zap.String("url", url),
		zap.Int("clips", len(clipURLs)))
	return url, nil
}

// sceneCount is one clip per SceneSeconds of narration, rounded up.
func (a *Assembler) sceneCount(audioSeconds float64) int {
	per := a.cfg.SceneSeconds
	if per <= 0 {
		per = 5
	}
	n := int(math.Ceil(audioSeconds / float64(per)))
	if n < 1 {
		n = 1
	}
	return n
}

func (a *Assembler) sceneConcurrency() int {
	if a.cfg.SceneConcurrency > 0 {
		return a.cfg.SceneConcurrency
	}
	return 2
}
