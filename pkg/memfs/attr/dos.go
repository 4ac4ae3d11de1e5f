package attr

import (
	"reflect"

	"github.com/mutagen-io/memfs/pkg/memfs/tree"
)

// dosProvider implements the "dos" view: the four legacy FAT/NTFS
// attribute bits, layered on top of basic.
type dosProvider struct{}

func (dosProvider) ViewName() string   { return ViewDOS }
func (dosProvider) Inherits() []string { return []string{ViewBasic} }

func (dosProvider) Schema() map[string]reflect.Type {
	boolType := reflect.TypeOf(false)
	return map[string]reflect.Type{
		"readonly": boolType,
		"hidden":   boolType,
		"archive":  boolType,
		"system":   boolType,
	}
}

func (dosProvider) DefaultValues(userDefaults map[string]any) map[string]any {
	return map[string]any{
		"readonly": false,
		"hidden":   false,
		"archive":  false,
		"system":   false,
	}
}

func (dosProvider) Settable(name string) bool {
	switch name {
	case "readonly", "hidden", "archive", "system":
		return true
	default:
		return false
	}
}

func (dosProvider) Read(file *tree.File, inherited map[string]any) map[string]any {
	result := map[string]any{}
	for k, v := range inherited {
		result[k] = v
	}
	for _, name := range []string{"readonly", "hidden", "archive", "system"} {
		v, _ := file.Attribute("dos:" + name)
		result[name] = v
	}
	return result
}
