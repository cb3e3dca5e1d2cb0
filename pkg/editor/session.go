package editor

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/dixieflatline76/Retouch/pkg/export"
	"github.com/dixieflatline76/Retouch/pkg/render"
	"github.com/dixieflatline76/Retouch/util"
	"github.com/dixieflatline76/Retouch/util/log"
)

// stage is the first pipeline step a change invalidates.
type stage int

const (
	stageImage stage = iota
	stageText
	stageMerge
	stageEncode
)

// Stats describes the latest composited result.
type Stats struct {
	Original       render.Dimensions `json:"original"`
	Processed      render.Dimensions `json:"processed"`
	OriginalBytes  int64             `json:"original_bytes"`
	ProcessedBytes int64             `json:"processed_bytes"`
	Savings        int64             `json:"savings"`
	OriginalSize   string            `json:"original_size"`
	ProcessedSize  string            `json:"processed_size"`
}

// Snapshot is a consistent read of the whole session.
type Snapshot struct {
	Loaded            bool                 `json:"loaded"`
	Filename          string               `json:"filename,omitempty"`
	Native            export.Native        `json:"native"`
	Adjustments       render.Adjustments   `json:"adjustments"`
	Overlays          []render.TextOverlay `json:"overlays"`
	Background        BackgroundMode       `json:"background"`
	BackgroundApplied bool                 `json:"background_applied"`
	Export            export.Settings      `json:"export"`
	Target            export.Target        `json:"target"`
	DownloadName      string               `json:"download_name,omitempty"`
	PreviewURL        string               `json:"preview_url,omitempty"`
	Stats             Stats                `json:"stats"`
}

// Options configures a Session.
type Options struct {
	Faces          render.FaceSource
	Previews       *export.PreviewStore
	Notifier       Notifier
	Resampler      string
	DefaultQuality int
}

// Session owns one image being edited and every surface derived from it.
// Each mutator re-runs the pipeline from the first stage it invalidates
// before returning, so readers never observe a half-rendered state.
type Session struct {
	mu sync.Mutex

	faces          render.FaceSource
	previews       *export.PreviewStore
	notifier       Notifier
	resampler      imaging.ResampleFilter
	defaultQuality int

	source            *Source
	baseline          render.Dimensions
	adjustments       render.Adjustments
	overlays          OverlayList
	background        BackgroundMode
	backgroundApplied bool
	settings          export.Settings
	layerResampler    imaging.ResampleFilter

	imageLayer *image.NRGBA
	textLayer  *image.NRGBA
	composite  *image.NRGBA
	target     export.Target
	previewURL string
	stats      Stats

	// notifications raised under mu, sent by unlock
	pending []Notification
}

// NewSession creates an empty session. Until an image is loaded every
// recomposition is a no-op.
func NewSession(opts Options) (*Session, error) {
	resampler, err := render.ResamplerByName(opts.Resampler)
	if err != nil {
		return nil, invalid(err)
	}
	if opts.Previews == nil {
		opts.Previews = export.NewPreviewStore()
	}
	if opts.DefaultQuality == 0 {
		opts.DefaultQuality = export.DefaultQuality
	}

	s := &Session{
		faces:          opts.Faces,
		previews:       opts.Previews,
		notifier:       opts.Notifier,
		resampler:      resampler,
		defaultQuality: opts.DefaultQuality,
	}
	s.resetLocked()
	if err := s.settings.Validate(); err != nil {
		return nil, invalid(err)
	}
	return s, nil
}

// notifyLocked queues a notification until the lock is released, so a slow
// notifier never holds up other session calls.
func (s *Session) notifyLocked(title, description string, severity Severity) {
	s.pending = append(s.pending, Notification{Title: title, Description: description, Severity: severity})
}

// unlock releases mu and then delivers the queued notifications in order.
func (s *Session) unlock() {
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, n := range pending {
		notify(s.notifier, n.Title, n.Description, n.Severity)
	}
}

func (s *Session) defaultSettings() export.Settings {
	return export.Settings{Format: export.FormatOriginal, Quality: s.defaultQuality}
}

func (s *Session) resetLocked() {
	s.adjustments = render.DefaultAdjustments()
	s.overlays.Clear()
	s.background = DefaultBackground()
	s.backgroundApplied = false
	s.settings = s.defaultSettings()
	s.layerResampler = s.resampler
	s.imageLayer, s.textLayer, s.composite = nil, nil, nil
	s.target = export.Target{}
	s.stats = Stats{}
	if s.source != nil {
		s.baseline = s.source.Dimensions
	}
}

// Load replaces the session's image with an uploaded file and starts over
// with default settings.
func (s *Session) Load(ctx context.Context, name string, data []byte) error {
	src, err := LoadSource(name, data)
	if err != nil {
		log.Printf("Editor: rejected upload %q: %v", name, err)
		notify(s.notifier, "Invalid file format", "Please upload an image file (JPG, PNG, WebP, etc.)", SeverityError)
		return err
	}

	s.mu.Lock()
	defer s.unlock()

	if s.previewURL != "" {
		s.previews.Revoke(s.previewURL)
		s.previewURL = ""
	}
	s.source = src
	s.resetLocked()
	log.Printf("Editor: loaded %s (%s, %s, %s)", name, src.Dimensions, src.Native.MIMEType, util.FormatBytes(src.Bytes))
	return s.recomposeLocked(ctx, stageImage)
}

// Loaded reports whether an image has been loaded.
func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.unlock()
	return s.source != nil
}

func (s *Session) Adjustments() render.Adjustments {
	s.mu.Lock()
	defer s.unlock()
	return s.adjustments
}

// SetAdjustments replaces every adjustment and re-renders the full chain.
func (s *Session) SetAdjustments(ctx context.Context, adj render.Adjustments) error {
	return s.UpdateAdjustments(ctx, func(a *render.Adjustments) { *a = adj })
}

// UpdateAdjustments lets fn edit a copy of the adjustments. The copy is
// only committed if it validates.
func (s *Session) UpdateAdjustments(ctx context.Context, fn func(*render.Adjustments)) error {
	s.mu.Lock()
	defer s.unlock()

	next := s.adjustments
	fn(&next)
	if err := next.Validate(); err != nil {
		return invalid(err)
	}
	s.adjustments = next
	return s.recomposeLocked(ctx, stageImage)
}

// Reset restores default adjustments and export settings and returns the
// baseline to the original dimensions. Overlays and background are kept.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.unlock()

	s.adjustments = render.DefaultAdjustments()
	s.settings = s.defaultSettings()
	s.layerResampler = s.resampler
	if s.source != nil {
		s.baseline = s.source.Dimensions
	}
	return s.recomposeLocked(ctx, stageImage)
}

func (s *Session) Overlays() []render.TextOverlay {
	s.mu.Lock()
	defer s.unlock()
	return s.overlays.Items()
}

// AddOverlay appends a default overlay on top of the others.
func (s *Session) AddOverlay(ctx context.Context) (render.TextOverlay, error) {
	s.mu.Lock()
	defer s.unlock()

	o := s.overlays.Add()
	s.notifyLocked("Text added", "Edit the text and its position in the text panel", SeverityInfo)
	return o, s.recomposeLocked(ctx, stageText)
}

func (s *Session) UpdateOverlay(ctx context.Context, id string, patch OverlayPatch) (render.TextOverlay, error) {
	s.mu.Lock()
	defer s.unlock()

	o, err := s.overlays.Update(id, patch)
	if err != nil {
		return render.TextOverlay{}, err
	}
	return o, s.recomposeLocked(ctx, stageText)
}

func (s *Session) DeleteOverlay(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.unlock()

	if err := s.overlays.Delete(id); err != nil {
		return err
	}
	return s.recomposeLocked(ctx, stageText)
}

func (s *Session) Background() BackgroundMode {
	s.mu.Lock()
	defer s.unlock()
	return s.background
}

// SetBackground switches the background mode. Once the background has been
// removed, the image layer is redrawn over the new color.
func (s *Session) SetBackground(ctx context.Context, mode BackgroundMode) error {
	if err := mode.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.unlock()

	wasTransparent := s.background.Transparent
	s.background = mode
	if mode.Transparent && !wasTransparent {
		s.notifyLocked("Transparency enabled", "Background will be transparent when downloaded", SeverityInfo)
	}

	from := stageEncode
	if s.backgroundApplied {
		from = stageImage
	}
	return s.recomposeLocked(ctx, from)
}

// SuggestBackground returns the dominant color of the loaded image.
func (s *Session) SuggestBackground() (string, error) {
	s.mu.Lock()
	src := s.source
	s.unlock()

	if src == nil {
		return "", render.ErrSourceNotLoaded
	}
	return SuggestBackground(src.Image), nil
}

func (s *Session) ExportSettings() export.Settings {
	s.mu.Lock()
	defer s.unlock()
	return s.settings
}

// SetExportSettings changes the output format and quality. Only the encode
// step is re-run.
func (s *Session) SetExportSettings(ctx context.Context, settings export.Settings) error {
	format, err := export.ParseFormat(string(settings.Format))
	if err != nil {
		return invalid(err)
	}
	settings.Format = format
	if err := settings.Validate(); err != nil {
		return invalid(err)
	}

	s.mu.Lock()
	defer s.unlock()

	s.settings = settings
	return s.recomposeLocked(ctx, stageEncode)
}

// Upscale multiplies the current processed dimensions by factor and makes
// them the new baseline at 100%. Overlays keep their absolute coordinates.
func (s *Session) Upscale(ctx context.Context, factor float64) error {
	s.mu.Lock()
	defer s.unlock()

	if s.source == nil {
		return render.ErrSourceNotLoaded
	}
	processed := s.baseline.Scale(s.adjustments.Resize)
	s.baseline = processed.Multiply(factor)
	s.adjustments.Resize = 100
	s.layerResampler = imaging.Lanczos
	log.Debugf("Editor: upscale x%v %s -> %s", factor, processed, s.baseline)
	return s.recomposeLocked(ctx, stageImage)
}

// RemoveBackground marks the background as removed. There is no
// segmentation: the whole image is the foreground, drawn over the solid
// background color unless the mode is transparent.
func (s *Session) RemoveBackground(ctx context.Context) error {
	s.mu.Lock()
	defer s.unlock()

	if s.source == nil {
		return render.ErrSourceNotLoaded
	}
	s.backgroundApplied = true
	return s.recomposeLocked(ctx, stageImage)
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.unlock()
	return s.stats
}

// PreviewURL is the URL of the current preview, or "" before the first
// successful render.
func (s *Session) PreviewURL() string {
	s.mu.Lock()
	defer s.unlock()
	return s.previewURL
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.unlock()

	snap := Snapshot{
		Loaded:            s.source != nil,
		Adjustments:       s.adjustments,
		Overlays:          s.overlays.Items(),
		Background:        s.background,
		BackgroundApplied: s.backgroundApplied,
		Export:            s.settings,
		Target:            s.target,
		PreviewURL:        s.previewURL,
		Stats:             s.stats,
	}
	if s.source != nil {
		snap.Filename = s.source.Name
		snap.Native = s.source.Native
		if s.target.Extension != "" {
			snap.DownloadName = export.Filename(s.source.Name, s.target.Extension)
		}
	}
	return snap
}

// Download encodes the current composite for saving.
func (s *Session) Download(ctx context.Context) (export.Result, error) {
	s.mu.Lock()
	defer s.unlock()

	result, err := s.downloadLocked(ctx)
	if err != nil {
		log.Printf("Editor: download failed: %v", err)
		s.notifyLocked("Error", "Failed to generate image for download", SeverityError)
		return export.Result{}, err
	}
	s.notifyLocked("Download complete", "Image saved as "+result.Filename, SeveritySuccess)
	return result, nil
}

func (s *Session) downloadLocked(ctx context.Context) (export.Result, error) {
	if s.source == nil {
		return export.Result{}, render.ErrSourceNotLoaded
	}
	if s.composite == nil {
		if err := s.recomposeLocked(ctx, stageImage); err != nil {
			return export.Result{}, err
		}
	}

	target := export.Resolve(s.settings, s.background.Transparent, s.source.Native)
	data, err := export.Encode(ctx, s.composite, target)
	if err != nil {
		return export.Result{}, err
	}
	return export.Result{
		Data:      data,
		MIMEType:  target.MIMEType,
		Extension: target.Extension,
		Filename:  export.Filename(s.source.Name, target.Extension),
	}, nil
}

// CompareFormats reports the encoded size of the current composite in each
// lossy and lossless format at the session's quality.
func (s *Session) CompareFormats(ctx context.Context) ([]export.FormatSize, error) {
	s.mu.Lock()
	composite, quality := s.composite, s.settings.Quality
	s.unlock()

	if composite == nil {
		return nil, render.ErrSourceNotLoaded
	}
	// Surfaces are replaced, never written to, so composite can be read
	// without the lock.
	return export.CompareFormats(ctx, composite, quality)
}

func (s *Session) layerOptions() (render.LayerOptions, error) {
	opts := render.LayerOptions{Resampler: s.layerResampler}
	if s.backgroundApplied && !s.background.Transparent {
		col, err := render.ParseHexColor(s.background.Color)
		if err != nil {
			return opts, invalid(err)
		}
		opts.Underlay = col
	}
	return opts, nil
}

// recomposeLocked runs render -> text -> merge -> encode starting at from.
func (s *Session) recomposeLocked(ctx context.Context, from stage) error {
	if s.source == nil {
		return nil
	}
	if s.composite == nil {
		from = stageImage
	}

	if err := s.runStages(ctx, from); err != nil {
		log.Printf("Editor: recompose failed: %v", err)
		s.notifyLocked("Error", err.Error(), SeverityError)
		return err
	}
	return nil
}

func (s *Session) runStages(ctx context.Context, from stage) error {
	if from <= stageImage {
		opts, err := s.layerOptions()
		if err != nil {
			return err
		}
		layer, err := render.RenderLayer(s.source.Image, s.baseline, s.adjustments, opts)
		if err != nil {
			return fmt.Errorf("image layer: %w", err)
		}
		s.imageLayer = layer
	}

	if from <= stageText {
		text, err := render.RenderText(s.overlays.Items(), render.DimensionsOf(s.imageLayer), s.faces)
		if err != nil {
			return fmt.Errorf("text layer: %w", err)
		}
		s.textLayer = text
	}

	if from <= stageMerge {
		merged, err := render.Merge(s.imageLayer, s.textLayer)
		if err != nil {
			return fmt.Errorf("merge: %w", err)
		}
		s.composite = merged
	}

	target := export.Resolve(s.settings, s.background.Transparent, s.source.Native)
	data, err := export.Encode(ctx, s.composite, target)
	if err != nil {
		return err
	}

	s.target = target
	s.previewURL = s.previews.Publish(target.MIMEType, target.Extension, data)
	s.stats = newStats(s.source, render.DimensionsOf(s.composite), int64(len(data)))
	return nil
}

func newStats(src *Source, processed render.Dimensions, processedBytes int64) Stats {
	return Stats{
		Original:       src.Dimensions,
		Processed:      processed,
		OriginalBytes:  src.Bytes,
		ProcessedBytes: processedBytes,
		Savings:        src.Bytes - processedBytes,
		OriginalSize:   util.FormatBytes(src.Bytes),
		ProcessedSize:  util.FormatBytes(processedBytes),
	}
}
