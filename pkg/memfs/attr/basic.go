package attr

import (
	"reflect"
	"time"

	"github.com/mutagen-io/memfs/pkg/memfs/tree"
)

var timeType = reflect.TypeOf(time.Time{})

// basicProvider implements the "basic" view: the attributes every file
// carries regardless of kind.
type basicProvider struct{}

func (basicProvider) ViewName() string   { return ViewBasic }
func (basicProvider) Inherits() []string { return nil }

func (basicProvider) Schema() map[string]reflect.Type {
	return map[string]reflect.Type{
		"fileKey":          reflect.TypeOf(uint64(0)),
		"size":             reflect.TypeOf(int64(0)),
		"isDirectory":      reflect.TypeOf(false),
		"isRegularFile":    reflect.TypeOf(false),
		"isSymbolicLink":   reflect.TypeOf(false),
		"isOther":          reflect.TypeOf(false),
		"creationTime":     timeType,
		"lastModifiedTime": timeType,
		"lastAccessTime":   timeType,
	}
}

func (basicProvider) DefaultValues(userDefaults map[string]any) map[string]any {
	// basic's values are entirely computed from the file itself (see
	// Read); there is nothing for a caller to default, and any values
	// computed here would be immediately overwritten at creation time by
	// the file's real identity, kind, and timestamps.
	return map[string]any{}
}

func (basicProvider) Settable(name string) bool {
	switch name {
	case "creationTime", "lastModifiedTime", "lastAccessTime":
		return true
	default:
		return false
	}
}

func (basicProvider) Read(file *tree.File, _ map[string]any) map[string]any {
	return map[string]any{
		"fileKey":          file.ID(),
		"size":             regularFileSize(file),
		"isDirectory":      file.IsDirectory(),
		"isRegularFile":    file.IsRegularFile(),
		"isSymbolicLink":   file.IsSymbolicLink(),
		"isOther":          false,
		"creationTime":     file.CreationTime(),
		"lastModifiedTime": file.LastModifiedTime(),
		"lastAccessTime":   file.LastAccessTime(),
	}
}

func regularFileSize(file *tree.File) int64 {
	if !file.IsRegularFile() {
		return 0
	}
	return file.RegularFile().Size()
}
