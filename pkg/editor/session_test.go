package editor

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/dixieflatline76/Retouch/asset"
	"github.com/dixieflatline76/Retouch/pkg/export"
	"github.com/dixieflatline76/Retouch/pkg/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) (*Session, *recorder) {
	t.Helper()
	rec := &recorder{}
	s, err := NewSession(Options{
		Faces:    asset.NewManager(),
		Previews: export.NewPreviewStore(),
		Notifier: rec,
	})
	require.NoError(t, err)
	return s, rec
}

func loadJPEG(t *testing.T, s *Session, name string, w, h int) {
	t.Helper()
	data := encodeTestImage(t, createTestImage(w, h, color.NRGBA{120, 90, 60, 255}), imaging.JPEG)
	require.NoError(t, s.Load(context.Background(), name, data))
}

func TestNewSession(t *testing.T) {
	_, err := NewSession(Options{Resampler: "bicubic"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewSession(Options{DefaultQuality: 500})
	assert.ErrorIs(t, err, ErrInvalidInput)

	s, err := NewSession(Options{DefaultQuality: 65})
	require.NoError(t, err)
	assert.Equal(t, export.Settings{Format: export.FormatOriginal, Quality: 65}, s.ExportSettings())
}

func TestSessionWithoutSource(t *testing.T) {
	s, rec := newTestSession(t)
	ctx := context.Background()

	assert.False(t, s.Loaded())
	assert.NoError(t, s.SetAdjustments(ctx, render.Adjustments{Brightness: 150, Contrast: 100, Saturation: 100, Resize: 50}))
	_, err := s.AddOverlay(ctx)
	assert.NoError(t, err)
	assert.NoError(t, s.SetExportSettings(ctx, export.Settings{Format: export.FormatPNG, Quality: 80}))
	assert.Empty(t, s.PreviewURL())

	_, err = s.Download(ctx)
	assert.ErrorIs(t, err, render.ErrSourceNotLoaded)
	assert.Equal(t, "Error", rec.last().Title)
	assert.Equal(t, "Failed to generate image for download", rec.last().Description)

	_, err = s.SuggestBackground()
	assert.ErrorIs(t, err, render.ErrSourceNotLoaded)
	assert.ErrorIs(t, s.Upscale(ctx, 2), render.ErrSourceNotLoaded)
}

func TestSessionLoad(t *testing.T) {
	t.Run("RejectsNonImage", func(t *testing.T) {
		s, rec := newTestSession(t)
		err := s.Load(context.Background(), "notes.txt", []byte("just text"))
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Equal(t, Notification{
			Title:       "Invalid file format",
			Description: "Please upload an image file (JPG, PNG, WebP, etc.)",
			Severity:    SeverityError,
		}, rec.last())
		assert.False(t, s.Loaded())
	})

	t.Run("PublishesPreview", func(t *testing.T) {
		s, _ := newTestSession(t)
		loadJPEG(t, s, "holiday.jpg", 64, 48)

		url := s.PreviewURL()
		assert.True(t, strings.HasPrefix(url, export.PreviewPrefix))
		assert.True(t, strings.HasSuffix(url, ".jpg"))

		stats := s.Stats()
		assert.Equal(t, render.Dimensions{Width: 64, Height: 48}, stats.Processed)
		assert.Positive(t, stats.ProcessedBytes)
		assert.Equal(t, stats.OriginalBytes-stats.ProcessedBytes, stats.Savings)
		assert.NotEmpty(t, stats.ProcessedSize)
	})

	t.Run("NewUploadStartsOver", func(t *testing.T) {
		s, _ := newTestSession(t)
		ctx := context.Background()
		loadJPEG(t, s, "a.jpg", 40, 30)
		_, err := s.AddOverlay(ctx)
		require.NoError(t, err)
		require.NoError(t, s.UpdateAdjustments(ctx, func(a *render.Adjustments) { a.Brightness = 150 }))

		loadJPEG(t, s, "b.jpg", 20, 10)
		assert.Empty(t, s.Overlays())
		assert.Equal(t, render.DefaultAdjustments(), s.Adjustments())
		assert.Equal(t, render.Dimensions{Width: 20, Height: 10}, s.Stats().Processed)
	})
}

func TestSessionResizeScenario(t *testing.T) {
	s, rec := newTestSession(t)
	ctx := context.Background()
	loadJPEG(t, s, "holiday.jpg", 800, 600)

	require.NoError(t, s.UpdateAdjustments(ctx, func(a *render.Adjustments) { a.Resize = 50 }))
	assert.Equal(t, render.Dimensions{Width: 400, Height: 300}, s.Stats().Processed)
	assert.Equal(t, render.Dimensions{Width: 800, Height: 600}, s.Stats().Original)

	result, err := s.Download(ctx)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", result.MIMEType)
	assert.Equal(t, "holiday-optimized.jpg", result.Filename)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(result.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 400, cfg.Width)
	assert.Equal(t, 300, cfg.Height)

	assert.Equal(t, Notification{Title: "Download complete", Description: "Image saved as holiday-optimized.jpg", Severity: SeveritySuccess}, rec.last())
}

func TestSessionNamelessUpload(t *testing.T) {
	img := createTestImage(40, 30, color.NRGBA{30, 160, 90, 255})
	webpData, err := export.Encode(context.Background(), img, export.Target{MIMEType: export.MIMEWebP, Extension: ".webp", Quality: 80, UseQuality: true})
	require.NoError(t, err)

	tests := []struct {
		name     string
		data     []byte
		wantMIME string
		wantFile string
	}{
		{"PNG", encodeTestImage(t, img, imaging.PNG), "image/png", "image-optimized.png"},
		{"WebP", webpData, "image/webp", "image-optimized.webp"},
		{"JPEG", encodeTestImage(t, img, imaging.JPEG), "image/jpeg", "image-optimized.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSession(t)
			ctx := context.Background()
			require.NoError(t, s.Load(ctx, "", tt.data))

			result, err := s.Download(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMIME, result.MIMEType)
			assert.Equal(t, tt.wantFile, result.Filename)
			assert.True(t, strings.HasSuffix(result.Filename, result.Extension))
		})
	}
}

func TestSessionNotifiesAfterUnlock(t *testing.T) {
	var s *Session
	seen := make(chan Snapshot, 4)
	s, err := NewSession(Options{
		Faces: asset.NewManager(),
		Notifier: NotifierFunc(func(n Notification) {
			// A notifier may call back into the session.
			seen <- s.Snapshot()
		}),
	})
	require.NoError(t, err)
	loadJPEG(t, s, "callback.jpg", 40, 30)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := s.AddOverlay(context.Background())
		assert.NoError(t, err)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("AddOverlay blocked on its own notification")
	}
	require.Len(t, seen, 1)
	snap := <-seen
	assert.Len(t, snap.Overlays, 1, "notification is delivered after the change is complete")
}

func TestSessionUpscale(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	loadJPEG(t, s, "photo.jpg", 800, 600)
	require.NoError(t, s.UpdateAdjustments(ctx, func(a *render.Adjustments) { a.Resize = 50 }))

	o, err := s.AddOverlay(ctx)
	require.NoError(t, err)
	o, err = s.UpdateOverlay(ctx, o.ID, OverlayPatch{X: ptr(350), Y: ptr(280)})
	require.NoError(t, err)

	require.NoError(t, s.Upscale(ctx, 2))
	assert.Equal(t, render.Dimensions{Width: 800, Height: 600}, s.Stats().Processed)
	assert.Equal(t, 100.0, s.Adjustments().Resize)

	overlays := s.Overlays()
	require.Len(t, overlays, 1)
	assert.Equal(t, 350, overlays[0].X, "coordinates are not rescaled")
	assert.Equal(t, 280, overlays[0].Y)

	// Resizing now works relative to the upscaled baseline.
	require.NoError(t, s.UpdateAdjustments(ctx, func(a *render.Adjustments) { a.Resize = 50 }))
	assert.Equal(t, render.Dimensions{Width: 400, Height: 300}, s.Stats().Processed)

	require.NoError(t, s.Reset(ctx))
	assert.Equal(t, render.Dimensions{Width: 800, Height: 600}, s.Stats().Processed)
}

func TestSessionRemoveBackground(t *testing.T) {
	ctx := context.Background()
	load := func(t *testing.T) *Session {
		s, _ := newTestSession(t)
		data := encodeTestImage(t, halfTransparent(40, 20), imaging.PNG)
		require.NoError(t, s.Load(ctx, "cutout.png", data))
		require.NoError(t, s.SetExportSettings(ctx, export.Settings{Format: export.FormatJPG, Quality: 80}))
		return s
	}

	t.Run("SolidColorUnderlay", func(t *testing.T) {
		s := load(t)
		require.NoError(t, s.SetBackground(ctx, BackgroundMode{Color: "#ff0000"}))
		assert.Zero(t, s.composite.NRGBAAt(5, 5).A, "nothing underlaid before removal")

		require.NoError(t, s.RemoveBackground(ctx))
		assert.Equal(t, color.NRGBA{255, 0, 0, 255}, s.composite.NRGBAAt(5, 5))
		assert.Equal(t, color.NRGBA{0, 0, 255, 255}, s.composite.NRGBAAt(35, 5))
		assert.Equal(t, "image/jpeg", s.Snapshot().Target.MIMEType, "not forced to png")

		require.NoError(t, s.SetBackground(ctx, BackgroundMode{Color: "#00ff00"}))
		assert.Equal(t, color.NRGBA{0, 255, 0, 255}, s.composite.NRGBAAt(5, 5))
	})

	t.Run("TransparentForcesPNG", func(t *testing.T) {
		s := load(t)
		require.NoError(t, s.RemoveBackground(ctx))
		require.NoError(t, s.SetBackground(ctx, BackgroundMode{Transparent: true, Color: "#ff0000"}))

		assert.Zero(t, s.composite.NRGBAAt(5, 5).A)
		result, err := s.Download(ctx)
		require.NoError(t, err)
		assert.Equal(t, "image/png", result.MIMEType)
		assert.Equal(t, "cutout-optimized.png", result.Filename)
	})

	t.Run("TransparencyNotification", func(t *testing.T) {
		s, rec := newTestSession(t)
		require.NoError(t, s.SetBackground(ctx, BackgroundMode{Transparent: true}))
		assert.Equal(t, "Transparency enabled", rec.last().Title)
		assert.Equal(t, "Background will be transparent when downloaded", rec.last().Description)
	})

	t.Run("InvalidColor", func(t *testing.T) {
		s := load(t)
		assert.ErrorIs(t, s.SetBackground(ctx, BackgroundMode{Color: "red"}), ErrInvalidInput)
		assert.Equal(t, DefaultBackground(), s.Background())
	})
}

func TestSessionRecomposeStages(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	loadJPEG(t, s, "stages.jpg", 120, 80)

	imageLayer, textLayer := s.imageLayer, s.textLayer

	t.Run("ExportSettingsOnlyReencode", func(t *testing.T) {
		before := s.composite
		require.NoError(t, s.SetExportSettings(ctx, export.Settings{Format: export.FormatWebP, Quality: 50}))
		assert.Same(t, imageLayer, s.imageLayer)
		assert.Same(t, textLayer, s.textLayer)
		assert.Same(t, before, s.composite)
		assert.True(t, strings.HasSuffix(s.PreviewURL(), ".webp"))
	})

	t.Run("OverlaysSkipImageLayer", func(t *testing.T) {
		o, err := s.AddOverlay(ctx)
		require.NoError(t, err)
		assert.Same(t, imageLayer, s.imageLayer)
		assert.NotSame(t, textLayer, s.textLayer)

		require.NoError(t, s.DeleteOverlay(ctx, o.ID))
		assert.Same(t, imageLayer, s.imageLayer)
	})

	t.Run("AdjustmentsRunFullChain", func(t *testing.T) {
		require.NoError(t, s.UpdateAdjustments(ctx, func(a *render.Adjustments) { a.Saturation = 50 }))
		assert.NotSame(t, imageLayer, s.imageLayer)
	})

	t.Run("InvalidAdjustmentsRejected", func(t *testing.T) {
		current := s.imageLayer
		err := s.UpdateAdjustments(ctx, func(a *render.Adjustments) { a.Brightness = 250 })
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Equal(t, 100.0, s.Adjustments().Brightness)
		assert.Same(t, current, s.imageLayer)
	})
}

func TestSessionOverlays(t *testing.T) {
	s, rec := newTestSession(t)
	ctx := context.Background()
	loadJPEG(t, s, "text.jpg", 200, 120)
	plain := append([]uint8(nil), s.composite.Pix...)

	o, err := s.AddOverlay(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Text added", rec.last().Title)
	assert.NotEqual(t, plain, s.composite.Pix, "text is drawn")

	_, err = s.UpdateOverlay(ctx, o.ID, OverlayPatch{Color: ptr("#12")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, s.DeleteOverlay(ctx, o.ID))
	assert.Empty(t, s.Overlays())
	assert.Equal(t, plain, s.composite.Pix, "round trip restores the image")

	assert.ErrorIs(t, s.DeleteOverlay(ctx, o.ID), ErrOverlayNotFound)
}

func TestSessionIdempotentRender(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	loadJPEG(t, s, "same.jpg", 90, 70)

	adj := render.Adjustments{Brightness: 130, Contrast: 80, Saturation: 120, Resize: 60, NoiseReduction: 20, Sharpen: 10}
	require.NoError(t, s.SetAdjustments(ctx, adj))
	first := s.Stats()
	firstPix := append([]uint8(nil), s.composite.Pix...)

	require.NoError(t, s.SetAdjustments(ctx, adj))
	assert.Equal(t, first, s.Stats())
	assert.Equal(t, firstPix, s.composite.Pix)
}

func TestSessionPreviewRevocation(t *testing.T) {
	previews := export.NewPreviewStore()
	s, err := NewSession(Options{Faces: asset.NewManager(), Previews: previews})
	require.NoError(t, err)
	ctx := context.Background()
	loadJPEG(t, s, "p.jpg", 30, 30)

	urls := map[string]bool{s.PreviewURL(): true}
	for i := 0; i < 5; i++ {
		require.NoError(t, s.UpdateAdjustments(ctx, func(a *render.Adjustments) { a.Brightness = float64(100 + i) }))
		urls[s.PreviewURL()] = true
	}

	assert.Len(t, urls, 6)
	assert.Equal(t, 1, previews.Len())
	assert.Equal(t, 5, previews.Revoked())
	assert.Equal(t, s.PreviewURL(), previews.Current())
}

func TestSessionReset(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	loadJPEG(t, s, "r.jpg", 100, 50)

	require.NoError(t, s.SetAdjustments(ctx, render.Adjustments{Brightness: 10, Contrast: 20, Saturation: 30, Resize: 40, NoiseReduction: 50, Sharpen: 60}))
	require.NoError(t, s.SetExportSettings(ctx, export.Settings{Format: export.FormatPNG, Quality: 20}))
	_, err := s.AddOverlay(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx))
	assert.Equal(t, render.DefaultAdjustments(), s.Adjustments())
	assert.Equal(t, export.DefaultSettings(), s.ExportSettings())
	assert.Len(t, s.Overlays(), 1)
	assert.Equal(t, render.Dimensions{Width: 100, Height: 50}, s.Stats().Processed)
}

func TestSessionSuggestBackgroundAndCompare(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	data := encodeTestImage(t, createTestImage(32, 32, color.NRGBA{0, 0, 200, 255}), imaging.PNG)
	require.NoError(t, s.Load(ctx, "blue.png", data))

	hex, err := s.SuggestBackground()
	require.NoError(t, err)
	suggested, err := render.ParseHexColor(hex)
	require.NoError(t, err)
	assert.Greater(t, suggested.B, uint8(150))
	assert.Less(t, suggested.R, uint8(30))

	sizes, err := s.CompareFormats(ctx)
	require.NoError(t, err)
	assert.Len(t, sizes, 3)
}

func TestSessionWithEnhancer(t *testing.T) {
	s, rec := newTestSession(t)
	loadJPEG(t, s, "old.jpg", 60, 40)

	sched := NewManualScheduler()
	e := NewEnhancer(s, EnhancerOptions{Scheduler: sched, Notifier: rec, StepDelay: testStepDelay, DoneDisplayDelay: testDoneDelay})

	require.NoError(t, e.Restore())
	sched.Advance(5 * testStepDelay)
	assert.Equal(t, render.Adjustments{Brightness: 100, Contrast: 115, Saturation: 110, Resize: 100, NoiseReduction: 60, Sharpen: 40}, s.Adjustments())

	sched.Advance(testDoneDelay)
	require.NoError(t, e.Upscale(1.5))
	sched.Advance(5 * testStepDelay)
	assert.Equal(t, render.Dimensions{Width: 90, Height: 60}, s.Stats().Processed)
	assert.Equal(t, "Image upscaled", rec.last().Title)
}
