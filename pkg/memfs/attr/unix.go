package attr

import (
	"os"
	"reflect"
	"time"

	"github.com/mutagen-io/memfs/pkg/memfs/tree"
)

// unixProvider implements the "unix" view: a read-only set of attributes
// derived from basic, owner, and posix.
type unixProvider struct{}

func (unixProvider) ViewName() string   { return ViewUnix }
func (unixProvider) Inherits() []string { return []string{ViewBasic, ViewOwner, ViewPosix} }

func (unixProvider) Schema() map[string]reflect.Type {
	return map[string]reflect.Type{
		"uid":   reflect.TypeOf(uint32(0)),
		"gid":   reflect.TypeOf(uint32(0)),
		"dev":   reflect.TypeOf(uint64(0)),
		"rdev":  reflect.TypeOf(uint64(0)),
		"ino":   reflect.TypeOf(uint64(0)),
		"mode":  reflect.TypeOf(os.FileMode(0)),
		"ctime": timeType,
		"nlink": reflect.TypeOf(int32(0)),
	}
}

func (unixProvider) DefaultValues(userDefaults map[string]any) map[string]any {
	// unix has no settable attributes of its own; every value is derived
	// at read time from the inherited views and the file's link count.
	return map[string]any{}
}

func (unixProvider) Settable(string) bool { return false }

func (unixProvider) Read(file *tree.File, inherited map[string]any) map[string]any {
	mode := os.FileMode(0)
	if permissions, ok := inherited["permissions"].(os.FileMode); ok {
		mode = permissions
	}
	switch {
	case file.IsDirectory():
		mode |= os.ModeDir
	case file.IsSymbolicLink():
		mode |= os.ModeSymlink
	}

	ctime, _ := inherited["creationTime"].(time.Time)

	return map[string]any{
		"uid":   uint32(0),
		"gid":   uint32(0),
		"dev":   uint64(0),
		"rdev":  uint64(0),
		"ino":   file.ID(),
		"mode":  mode,
		"ctime": ctime,
		"nlink": file.LinkCount(),
	}
}
