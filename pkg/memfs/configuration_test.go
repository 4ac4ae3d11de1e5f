package memfs

import (
	"testing"
	"time"

	"github.com/mutagen-io/memfs/pkg/memfs/errs"
	"github.com/mutagen-io/memfs/pkg/memfs/pathtype"
)

func TestNewConfigurationDefaults(t *testing.T) {
	cfg, err := NewConfiguration()
	if err != nil {
		t.Fatalf("unable to build default configuration: %v", err)
	}
	if cfg.blockSize != defaultBlockSize {
		t.Fatalf("expected default block size %d, got %d", defaultBlockSize, cfg.blockSize)
	}
	if len(cfg.roots) != 1 || cfg.roots[0] != "/" {
		t.Fatalf("expected default root [\"/\"], got %v", cfg.roots)
	}
	if cfg.pathType.Flavor() != pathtype.FlavorUnix {
		t.Fatalf("expected default flavor Unix, got %v", cfg.pathType.Flavor())
	}
	for _, feature := range []Feature{FeatureLinks, FeatureSymbolicLinks, FeatureFileChannel, FeatureSecureDirectoryStream} {
		if !cfg.SupportsFeature(feature) {
			t.Fatalf("expected feature %s to default to enabled", feature)
		}
	}
}

func TestNewConfigurationRejectsEmptyRoots(t *testing.T) {
	if _, err := NewConfiguration(WithRoots()); !errs.Is(err, errs.InvalidArgument) {
		t.Fatalf("expected InvalidArgument for an empty root set, got %v", err)
	}
}

func TestWithSupportedFeaturesRestrictsToGivenSet(t *testing.T) {
	cfg, err := NewConfiguration(WithSupportedFeatures(FeatureLinks))
	if err != nil {
		t.Fatalf("unable to build configuration: %v", err)
	}
	if !cfg.SupportsFeature(FeatureLinks) {
		t.Fatal("expected FeatureLinks to remain enabled")
	}
	if cfg.SupportsFeature(FeatureSymbolicLinks) {
		t.Fatal("expected FeatureSymbolicLinks to be disabled")
	}
}

func TestWithDefaultAttributeValuesMerges(t *testing.T) {
	cfg, err := NewConfiguration(
		WithDefaultAttributeValues(map[string]any{"posix:permissions": "rw-r--r--"}),
		WithDefaultAttributeValues(map[string]any{"owner:owner": "root"}),
	)
	if err != nil {
		t.Fatalf("unable to build configuration: %v", err)
	}
	if cfg.defaultAttributeValues["posix:permissions"] != "rw-r--r--" {
		t.Fatalf("expected posix:permissions to survive the second merge, got %v", cfg.defaultAttributeValues)
	}
	if cfg.defaultAttributeValues["owner:owner"] != "root" {
		t.Fatalf("expected owner:owner to be present, got %v", cfg.defaultAttributeValues)
	}
}

func TestOSXConfigurationIsCaseInsensitive(t *testing.T) {
	cfg, err := OSX()
	if err != nil {
		t.Fatalf("unable to build configuration: %v", err)
	}
	if cfg.pathType.Flavor() != pathtype.FlavorOSX {
		t.Fatalf("expected flavor OSX, got %v", cfg.pathType.Flavor())
	}
	if !cfg.pathType.CanonicalizeName("Foo").Equal(cfg.pathType.CanonicalizeName("FOO")) {
		t.Fatal("expected names differing only in case to be equal under OSX")
	}
}

func TestWindowsConfigurationUsesDriveRoot(t *testing.T) {
	cfg, err := Windows()
	if err != nil {
		t.Fatalf("unable to build configuration: %v", err)
	}
	if len(cfg.roots) != 1 || cfg.roots[0] != `C:\` {
		t.Fatalf(`expected default root ["C:\\"], got %v`, cfg.roots)
	}
}

func TestWithWatchPollingIntervalOverridesDefault(t *testing.T) {
	cfg, err := NewConfiguration(WithWatchPollingInterval(5 * time.Millisecond))
	if err != nil {
		t.Fatalf("unable to build configuration: %v", err)
	}
	if cfg.watchInterval != 5*time.Millisecond {
		t.Fatalf("expected watch interval 5ms, got %v", cfg.watchInterval)
	}
}
