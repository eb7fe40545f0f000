package options

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"lofi/internal/services"
	"lofi/internal/textutil"
)

// SourceKind distinguishes uploaded files from remote URLs.
type SourceKind int

const (
	SourceUpload SourceKind = iota
	SourceRemote
)

func (k SourceKind) String() string {
	if k == SourceRemote {
		return "remote"
	}
	return "upload"
}

// MediaKind is the output container family.
type MediaKind int

const (
	KindVideo MediaKind = iota
	KindCompactAudio
	KindDefaultAudio
)

func (k MediaKind) String() string {
	switch k {
	case KindCompactAudio:
		return "compact-audio"
	case KindDefaultAudio:
		return "default-audio"
	default:
		return "video"
	}
}

// Extension returns the output file extension including the dot.
func (k MediaKind) Extension() string {
	switch k {
	case KindCompactAudio:
		return ".mp3"
	case KindDefaultAudio:
		return ".aac"
	default:
		return ".mp4"
	}
}

// ContentType returns the MIME type used when serving the output.
func (k MediaKind) ContentType() string {
	switch k {
	case KindCompactAudio:
		return "audio/mpeg"
	case KindDefaultAudio:
		return "audio/aac"
	default:
		return "video/mp4"
	}
}

// Request carries the raw user choices for one conversion.
type Request struct {
	UseRemote bool
	RemoteURL string

	// HasUpload is false when the upload field was absent altogether.
	HasUpload  bool
	UploadName string

	Downscale    bool
	FastPreset   bool
	AudioOnly    bool
	CompactAudio bool
}

// Dirs names the directories a job writes into.
type Dirs struct {
	Upload    string
	Converted string
}

// Source describes where the job's media comes from.
type Source struct {
	Kind SourceKind
	// URL is set for remote sources.
	URL string
	// Filename is the client supplied name of an upload.
	Filename string
}

// Spec is the fully resolved, immutable description of one job.
type Spec struct {
	ID     string
	Source Source

	Downscale    bool
	FastPreset   bool
	AudioOnly    bool
	CompactAudio bool

	Profile Profile
	Kind    MediaKind

	// InputPath is where an upload is saved. Empty for remote sources.
	InputPath string
	// StagingDir and StagingPrefix locate a staged download.
	StagingDir    string
	StagingPrefix string
	// OutputPath is the transcoder's destination.
	OutputPath string
}

// Staged reports whether the source is downloaded to disk before transcoding.
func (s Spec) Staged() bool {
	return s.Source.Kind == SourceRemote && s.Downscale
}

// StagingTemplate is the fetcher output template for staged downloads; the
// fetcher substitutes the real extension for %(ext)s.
func (s Spec) StagingTemplate() string {
	return filepath.Join(s.StagingDir, s.StagingPrefix+"%(ext)s")
}

// ExtraArgs returns the encoder arguments from the profile.
func (s Spec) ExtraArgs() []string {
	return s.Profile.ExtraArgs()
}

// OutputName is the base name of the output file.
func (s Spec) OutputName() string {
	return filepath.Base(s.OutputPath)
}

const (
	MessageURLRequired    = "YouTube URL is required."
	MessageURLInvalid     = "YouTube URL is invalid."
	MessageNoFilePart     = "No file part"
	MessageNoSelectedFile = "No selected file"
)

// Resolver validates requests and produces Specs.
type Resolver struct {
	Profile Profile
	Dirs    Dirs
	// NewID generates job identifiers; uuid.NewString when nil.
	NewID func() string
}

// NewResolver constructs a Resolver with random identifiers.
func NewResolver(profile Profile, dirs Dirs) *Resolver {
	return &Resolver{Profile: profile, Dirs: dirs}
}

// Resolve validates req and assigns the job's identity and paths.
func (r *Resolver) Resolve(req Request) (Spec, error) {
	source, err := resolveSource(req)
	if err != nil {
		return Spec{}, err
	}
	if strings.TrimSpace(r.Dirs.Upload) == "" || strings.TrimSpace(r.Dirs.Converted) == "" {
		return Spec{}, services.Wrap(services.ErrConfiguration, "options", "resolve", "upload and converted directories are required", nil)
	}

	id := r.newID()
	spec := Spec{
		ID:           id,
		Source:       source,
		Downscale:    req.Downscale,
		FastPreset:   req.FastPreset,
		AudioOnly:    req.AudioOnly,
		CompactAudio: req.CompactAudio,
		Profile:      r.Profile,
		Kind:         mediaKind(req.AudioOnly, req.CompactAudio),
	}
	spec.OutputPath = filepath.Join(r.Dirs.Converted, id+spec.Kind.Extension())

	switch source.Kind {
	case SourceUpload:
		spec.InputPath = filepath.Join(r.Dirs.Upload, id+textutil.SafeExtension(source.Filename))
	case SourceRemote:
		if spec.Staged() {
			spec.StagingDir = r.Dirs.Upload
			spec.StagingPrefix = id + "."
		}
	}
	return spec, nil
}

func (r *Resolver) newID() string {
	if r.NewID != nil {
		if id := strings.TrimSpace(r.NewID()); id != "" {
			return id
		}
	}
	return uuid.NewString()
}

func resolveSource(req Request) (Source, error) {
	if req.UseRemote {
		url := strings.TrimSpace(req.RemoteURL)
		if url == "" {
			return Source{}, services.Validation(MessageURLRequired)
		}
		// A leading dash would be read by the fetcher as an option.
		if strings.HasPrefix(url, "-") {
			return Source{}, services.Validation(MessageURLInvalid)
		}
		return Source{Kind: SourceRemote, URL: url}, nil
	}
	if !req.HasUpload {
		return Source{}, services.Validation(MessageNoFilePart)
	}
	if strings.TrimSpace(req.UploadName) == "" {
		return Source{}, services.Validation(MessageNoSelectedFile)
	}
	return Source{Kind: SourceUpload, Filename: req.UploadName}, nil
}

func mediaKind(audioOnly, compact bool) MediaKind {
	switch {
	case audioOnly && compact:
		return KindCompactAudio
	case audioOnly:
		return KindDefaultAudio
	default:
		return KindVideo
	}
}

// Describe renders a one-line summary for logs and history.
func (s Spec) Describe() string {
	src := s.Source.URL
	if s.Source.Kind == SourceUpload {
		src = s.Source.Filename
	}
	return fmt.Sprintf("%s %s -> %s (%s)", s.Source.Kind, src, s.OutputName(), s.Profile.Acceleration())
}
