package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/kikiluvv/replaycoach/internal/analysis"
	"github.com/kikiluvv/replaycoach/internal/config"
	"github.com/kikiluvv/replaycoach/internal/feedback"
	"github.com/kikiluvv/replaycoach/internal/metrics"
	"github.com/kikiluvv/replaycoach/internal/profile"
	"github.com/kikiluvv/replaycoach/internal/video/videotest"
	"github.com/rs/zerolog"
	. "github.com/smartystreets/goconvey/convey"
)

type stubCompleter struct {
	text  string
	err   error
	calls atomic.Int32
}

func (s *stubCompleter) Complete(_ context.Context, _, _ string, _ int) (string, error) {
	s.calls.Add(1)
	return s.text, s.err
}

func newTestPipeline(opener *videotest.Opener, client feedback.Completer, opts ...Option) *Pipeline {
	logger := zerolog.New(io.Discard)
	var gen *feedback.Generator
	if client != nil {
		gen = feedback.NewGenerator(logger, client)
	}
	return New(logger, analysis.NewExtractor(logger, opener), gen, opts...)
}

func testProfile() profile.Profile {
	p, _ := profile.Parse([]byte(`{"name":"ace","role":"entry"}`))
	return p
}

func TestPipelineRun(t *testing.T) {
	Convey("Given a pipeline with a 10-frame gray video and a stubbed model", t, func() {
		opener := videotest.NewOpener()
		opener.Add("match.mp4", videotest.UniformVideo(10, 30, 128))
		client := &stubCompleter{text: "OK\n"}
		p := newTestPipeline(opener, client)

		Convey("When the pipeline runs and writes its result", func() {
			result, err := p.Run(context.Background(), "match.mp4", testProfile())
			So(err, ShouldBeNil)

			out := filepath.Join(t.TempDir(), "analysis_output.json")
			So(WriteResult(out, result), ShouldBeNil)

			data, err := os.ReadFile(out)
			So(err, ShouldBeNil)

			var decoded map[string]any
			So(json.Unmarshal(data, &decoded), ShouldBeNil)

			Convey("Then the output holds the stats and the model text", func() {
				stats := decoded["stats"].(map[string]any)
				So(stats["frames"], ShouldEqual, 10.0)
				So(stats["fps"], ShouldEqual, 30.0)
				So(stats["avg_brightness"], ShouldEqual, 128.0)
				So(stats["kills"], ShouldEqual, 0.0)
				So(stats["deaths"], ShouldEqual, 0.0)
				So(stats["accuracy"], ShouldEqual, 0.0)
				So(stats["kill_events"], ShouldResemble, []any{})
				So(stats["death_events"], ShouldResemble, []any{})
				So(decoded["feedback"], ShouldEqual, "OK")
				So(client.calls.Load(), ShouldEqual, int32(1))
			})

			Convey("Then the file is indented with two spaces", func() {
				So(string(data), ShouldStartWith, "{\n  \"stats\": {\n    \"frames\": 10,")
			})
		})

		Convey("When the video is missing", func() {
			result, err := p.Run(context.Background(), "absent.mp4", testProfile())

			Convey("Then it fails before calling the model", func() {
				So(errors.Is(err, analysis.ErrVideoNotFound), ShouldBeTrue)
				So(result, ShouldBeNil)
				So(client.calls.Load(), ShouldEqual, int32(0))
			})
		})

		Convey("When the model fails", func() {
			client.err = errors.New("upstream 503")
			result, err := p.Run(context.Background(), "match.mp4", testProfile())

			Convey("Then no partial result is returned", func() {
				So(errors.Is(err, feedback.ErrGeneration), ShouldBeTrue)
				So(result, ShouldBeNil)
			})
		})
	})

	Convey("Given a pipeline without a generator", t, func() {
		opener := videotest.NewOpener()
		opener.Add("match.mp4", videotest.UniformVideo(2, 30, 10))
		p := newTestPipeline(opener, nil)

		Convey("Then statistics still work", func() {
			So(p.CanGenerateFeedback(), ShouldBeFalse)
			stats, err := p.Analyze(context.Background(), "match.mp4")
			So(err, ShouldBeNil)
			So(stats.Frames, ShouldEqual, 2)
		})

		Convey("Then a full run is refused without decoding", func() {
			_, err := p.Run(context.Background(), "match.mp4", testProfile())
			So(errors.Is(err, ErrNoGenerator), ShouldBeTrue)
			So(opener.Opened(), ShouldBeEmpty)
		})
	})
}

func TestPipelineMetrics(t *testing.T) {
	Convey("Given a pipeline recording metrics", t, func() {
		m := metrics.NewManager()
		opener := videotest.NewOpener()
		opener.Add("ok.mp4", videotest.UniformVideo(4, 30, 50))
		broken := videotest.UniformVideo(4, 30, 50)
		broken.FailAt = 2
		broken.Err = errors.New("bad packet")
		opener.Add("broken.mp4", broken)

		p := newTestPipeline(opener, &stubCompleter{text: "fine"}, WithMetrics(m))

		_, _ = p.Analyze(context.Background(), "ok.mp4")
		_, _ = p.Run(context.Background(), "ok.mp4", testProfile())
		_, _ = p.Analyze(context.Background(), "broken.mp4")
		_, _ = p.Analyze(context.Background(), "missing.mp4")

		rec := httptest.NewRecorder()
		m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		body := rec.Body.String()

		So(body, ShouldContainSubstring, `replaycoach_analyses_total{outcome="success"} 2`)
		So(body, ShouldContainSubstring, `replaycoach_analyses_total{outcome="decode_error"} 1`)
		So(body, ShouldContainSubstring, `replaycoach_analyses_total{outcome="video_not_found"} 1`)
		So(body, ShouldContainSubstring, "replaycoach_frames_reported_total 8")
	})
}

func TestWriteResultFailure(t *testing.T) {
	Convey("Given an output path in a missing directory", t, func() {
		out := filepath.Join(t.TempDir(), "no", "such", "dir", "out.json")

		Convey("Then WriteResult reports ErrWriteOutput", func() {
			err := WriteResult(out, &Result{Stats: analysis.NewStats(0, 0, 0)})
			So(errors.Is(err, ErrWriteOutput), ShouldBeTrue)
		})
	})
}

func TestPipelineWithFFmpeg(t *testing.T) {
	videotest.SkipIfNoFFmpeg(t)

	var prompts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prompts.Add(1)
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "Player Profile") {
			t.Errorf("prompt missing profile section: %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"1","object":"chat.completion","model":"gpt-4o",`+
			`"choices":[{"index":0,"message":{"role":"assistant","content":"  Push mid early.  "}}]}`)
	}))
	defer srv.Close()

	cfg := config.New()
	cfg.LLM.APIKey = "test-key"
	cfg.LLM.BaseURL = srv.URL

	p, err := NewFromConfig(zerolog.New(io.Discard), cfg)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	if !p.CanGenerateFeedback() {
		t.Fatal("expected feedback to be enabled with an api key")
	}

	path := videotest.WriteGrayVideo(t, t.TempDir(), 10, 30, 128)
	result, err := p.Run(context.Background(), path, testProfile())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Stats.Frames != 10 || result.Stats.FPS != 30 {
		t.Errorf("unexpected stats %+v", result.Stats)
	}
	if d := result.Stats.AvgBrightness - 128; d > 3 || d < -3 {
		t.Errorf("expected brightness near 128, got %v", result.Stats.AvgBrightness)
	}
	if result.Feedback != "Push mid early." {
		t.Errorf("unexpected feedback %q", result.Feedback)
	}
	if prompts.Load() != 1 {
		t.Errorf("expected one model request, got %d", prompts.Load())
	}
}

func TestNewFromConfigWithoutAPIKey(t *testing.T) {
	videotest.SkipIfNoFFmpeg(t)

	cfg := config.New()
	cfg.LLM.APIKey = ""

	p, err := NewFromConfig(zerolog.New(io.Discard), cfg)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	if p.CanGenerateFeedback() {
		t.Error("feedback should be disabled without an api key")
	}
}
