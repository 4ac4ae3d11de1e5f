package memfs

import (
	"time"

	"github.com/mutagen-io/memfs/pkg/memfs/attr"
	"github.com/mutagen-io/memfs/pkg/memfs/errs"
	"github.com/mutagen-io/memfs/pkg/memfs/memfslog"
	"github.com/mutagen-io/memfs/pkg/memfs/pathtype"
)

// Feature names one of the optional capabilities a Configuration may
// disable, per spec.md §6's supportedFeatures option.
type Feature string

const (
	// FeatureLinks gates hard-link style multi-entry linking of a single
	// regular file.
	FeatureLinks Feature = "LINKS"
	// FeatureSymbolicLinks gates symbolic link creation
	// (CreateSymbolicLink); path lookup follows symbolic links without
	// checking it.
	FeatureSymbolicLinks Feature = "SYMBOLIC_LINKS"
	// FeatureFileChannel gates OpenFileChannel (and so its async wrapper).
	// The input and output streams, ReadFile and WriteFile also open their
	// content through OpenFileChannel, so they fail with Unsupported too
	// when it is disabled; there is no stream-only access mode.
	FeatureFileChannel Feature = "FILE_CHANNEL"
	// FeatureSecureDirectoryStream names directory-relative (as opposed to
	// path-relative) operations. FileSystem has no such operations, and no
	// operation checks this feature.
	FeatureSecureDirectoryStream Feature = "SECURE_DIRECTORY_STREAM"
)

// defaultBlockSize is used when WithBlockSize is not given, per spec.md §6.
const defaultBlockSize = 8192

// Configuration is the immutable, fully-resolved set of options a
// FileSystem is built from. Construct one with NewConfiguration (or the
// Unix/OSX/Windows convenience builders) rather than by field assignment.
type Configuration struct {
	pathType *pathtype.PathType

	roots            []string
	workingDirectory string

	pathEqualityUsesCanonicalForm bool

	blockSize    int
	maxSize      int64
	maxCacheSize int64

	attributeViews         []string
	defaultAttributeValues map[string]any

	watchInterval time.Duration

	supportedFeatures map[Feature]bool

	logger *memfslog.Logger
}

// state is the mutable option-accumulation target Options apply against;
// NewConfiguration resolves it into an immutable Configuration.
type state struct {
	flavor                        pathtype.Flavor
	flavorSet                     bool
	canonicalNormalization        pathtype.Normalization
	displayNormalization          pathtype.Normalization
	normalizationSet              bool
	roots                         []string
	workingDirectory              string
	pathEqualityUsesCanonicalForm bool
	blockSize                     int
	maxSize                       int64
	maxCacheSize                  int64
	attributeViews                []string
	defaultAttributeValues        map[string]any
	watchInterval                 time.Duration
	supportedFeatures             map[Feature]bool
	logger                        *memfslog.Logger
}

// Option configures a Configuration under construction. It cannot be
// implemented outside this package, matching the teacher's
// pkg/local.EndpointOption closed-interface idiom.
type Option interface {
	apply(*state)
}

// functionOption adapts a plain closure to Option, the same
// functionEndpointOption wrapper the teacher uses in
// pkg/local/endpoint_options.go.
type functionOption struct {
	applier func(*state)
}

func (o *functionOption) apply(s *state) { o.applier(s) }

func newFunctionOption(applier func(*state)) Option {
	return &functionOption{applier: applier}
}

// WithPathType selects the path flavor (Unix, OS X, or Windows) the
// filesystem parses and renders paths with.
func WithPathType(flavor pathtype.Flavor) Option {
	return newFunctionOption(func(s *state) {
		s.flavor = flavor
		s.flavorSet = true
	})
}

// WithNameNormalization overrides the flavor's default canonical and
// display normalization sets.
func WithNameNormalization(canonical, display pathtype.Normalization) Option {
	return newFunctionOption(func(s *state) {
		s.canonicalNormalization = canonical
		s.displayNormalization = display
		s.normalizationSet = true
	})
}

// WithRoots sets the filesystem's root paths (one for Unix/OS X, one or
// more drive/UNC roots for Windows). Each must be a bare root string valid
// for the configured path type (e.g. "/" or `C:\`).
func WithRoots(roots ...string) Option {
	return newFunctionOption(func(s *state) {
		s.roots = append([]string(nil), roots...)
	})
}

// WithWorkingDirectory sets the absolute path new relative lookups resolve
// against. It must name a directory under one of the configured roots.
func WithWorkingDirectory(path string) Option {
	return newFunctionOption(func(s *state) {
		s.workingDirectory = path
	})
}

// WithPathEqualityUsesCanonicalForm controls whether JimfsPath.Equals
// compares canonical or display forms.
func WithPathEqualityUsesCanonicalForm(useCanonical bool) Option {
	return newFunctionOption(func(s *state) {
		s.pathEqualityUsesCanonicalForm = useCanonical
	})
}

// WithBlockSize sets HeapDisk's fixed block size in bytes (default 8192).
func WithBlockSize(bytes int) Option {
	return newFunctionOption(func(s *state) {
		s.blockSize = bytes
	})
}

// WithMaxSize sets HeapDisk's total capacity in bytes (rounded down to a
// multiple of the block size).
func WithMaxSize(bytes int64) Option {
	return newFunctionOption(func(s *state) {
		s.maxSize = bytes
	})
}

// WithMaxCacheSize sets HeapDisk's free-block cache capacity in bytes:
// heapdisk.Unbounded (-1) for unbounded, 0 to disable the cache, or a
// positive byte count.
func WithMaxCacheSize(bytes int64) Option {
	return newFunctionOption(func(s *state) {
		s.maxCacheSize = bytes
	})
}

// WithAttributeViews enables the given attribute views (and everything
// they transitively inherit). Defaults to {basic, owner, posix, unix} when
// not specified.
func WithAttributeViews(views ...string) Option {
	return newFunctionOption(func(s *state) {
		s.attributeViews = append([]string(nil), views...)
	})
}

// WithDefaultAttributeValues overrides the computed default for one or more
// "view:name" attributes applied to every newly created file.
func WithDefaultAttributeValues(values map[string]any) Option {
	return newFunctionOption(func(s *state) {
		merged := make(map[string]any, len(s.defaultAttributeValues)+len(values))
		for k, v := range s.defaultAttributeValues {
			merged[k] = v
		}
		for k, v := range values {
			merged[k] = v
		}
		s.defaultAttributeValues = merged
	})
}

// WithWatchPollingInterval sets the PollingWatchService's poll interval
// (default one second).
func WithWatchPollingInterval(interval time.Duration) Option {
	return newFunctionOption(func(s *state) {
		s.watchInterval = interval
	})
}

// WithSupportedFeatures restricts the filesystem to exactly the given
// feature set; an operation gated on a feature not in this set fails with
// Unsupported. Defaults to every feature enabled.
func WithSupportedFeatures(features ...Feature) Option {
	return newFunctionOption(func(s *state) {
		set := make(map[Feature]bool, len(features))
		for _, f := range features {
			set[f] = true
		}
		s.supportedFeatures = set
	})
}

// WithLogger attaches a logger the watch service's background goroutine
// uses to report overrun polls; nil (the default) means no logging.
func WithLogger(logger *memfslog.Logger) Option {
	return newFunctionOption(func(s *state) {
		s.logger = logger
	})
}

// NewConfiguration resolves a Configuration from the given options, laid
// over built-in defaults, matching the teacher's layered
// defaults-then-overrides configuration merge idiom.
func NewConfiguration(opts ...Option) (Configuration, error) {
	s := &state{
		flavor:           pathtype.FlavorUnix,
		roots:            []string{"/"},
		workingDirectory: "/",
		blockSize:        defaultBlockSize,
		maxSize:          -1,
		maxCacheSize:     0,
		attributeViews:   []string{attr.ViewBasic, attr.ViewOwner, attr.ViewPosix, attr.ViewUnix},
		watchInterval:    time.Second,
	}

	for _, opt := range opts {
		opt.apply(s)
	}

	if s.maxSize < 0 {
		s.maxSize = 1 << 40 // 1 TiB: large enough to behave as "unbounded" for an in-memory filesystem's tests.
	}

	var pt *pathtype.PathType
	var err error
	if s.normalizationSet {
		pt, err = pathtype.New(s.flavor, s.canonicalNormalization, s.displayNormalization)
	} else {
		switch s.flavor {
		case pathtype.FlavorOSX:
			pt = pathtype.OSX()
		case pathtype.FlavorWindows:
			pt = pathtype.Windows()
		default:
			pt = pathtype.Unix()
		}
	}
	if err != nil {
		return Configuration{}, err
	}

	if len(s.roots) == 0 {
		return Configuration{}, errs.New(errs.InvalidArgument, "at least one root is required")
	}

	supportedFeatures := s.supportedFeatures
	if supportedFeatures == nil {
		supportedFeatures = map[Feature]bool{
			FeatureLinks:                 true,
			FeatureSymbolicLinks:         true,
			FeatureFileChannel:           true,
			FeatureSecureDirectoryStream: true,
		}
	}

	return Configuration{
		pathType:                      pt,
		roots:                         s.roots,
		workingDirectory:              s.workingDirectory,
		pathEqualityUsesCanonicalForm: s.pathEqualityUsesCanonicalForm,
		blockSize:                     s.blockSize,
		maxSize:                       s.maxSize,
		maxCacheSize:                  s.maxCacheSize,
		attributeViews:                s.attributeViews,
		defaultAttributeValues:        s.defaultAttributeValues,
		watchInterval:                 s.watchInterval,
		supportedFeatures:             supportedFeatures,
		logger:                        s.logger,
	}, nil
}

// Unix builds a Configuration for the Unix flavor with its conventional
// single root ("/") and working directory, overridable by opts.
func Unix(opts ...Option) (Configuration, error) {
	base := []Option{
		WithPathType(pathtype.FlavorUnix),
		WithRoots("/"),
		WithWorkingDirectory("/"),
	}
	return NewConfiguration(append(base, opts...)...)
}

// OSX builds a Configuration for the case-insensitive OS X flavor,
// overridable by opts.
func OSX(opts ...Option) (Configuration, error) {
	base := []Option{
		WithPathType(pathtype.FlavorOSX),
		WithRoots("/"),
		WithWorkingDirectory("/"),
	}
	return NewConfiguration(append(base, opts...)...)
}

// Windows builds a Configuration for the Windows flavor with a single
// "C:\" drive root and working directory, overridable by opts.
func Windows(opts ...Option) (Configuration, error) {
	base := []Option{
		WithPathType(pathtype.FlavorWindows),
		WithRoots(`C:\`),
		WithWorkingDirectory(`C:\`),
	}
	return NewConfiguration(append(base, opts...)...)
}

// SupportsFeature reports whether feature is enabled in this configuration.
func (c Configuration) SupportsFeature(feature Feature) bool {
	return c.supportedFeatures[feature]
}
