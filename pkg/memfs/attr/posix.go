package attr

import (
	"os"
	"reflect"

	"github.com/mutagen-io/memfs/pkg/memfs/tree"
)

// posixProvider implements the "posix" view, layered on top of basic and
// owner.
type posixProvider struct{}

func (posixProvider) ViewName() string   { return ViewPosix }
func (posixProvider) Inherits() []string { return []string{ViewBasic, ViewOwner} }

func (posixProvider) Schema() map[string]reflect.Type {
	return map[string]reflect.Type{
		"permissions": reflect.TypeOf(os.FileMode(0)),
		"group":       userPrincipalType,
	}
}

func (posixProvider) DefaultValues(userDefaults map[string]any) map[string]any {
	permissions := os.FileMode(0644)
	if v, ok := userDefaults["permissions"].(os.FileMode); ok {
		permissions = v
	}
	group := UserPrincipal{Name: "nobody"}
	if v, ok := userDefaults["group"].(UserPrincipal); ok {
		group = v
	}
	return map[string]any{"permissions": permissions, "group": group}
}

func (posixProvider) Settable(name string) bool {
	switch name {
	case "permissions", "group":
		return true
	default:
		return false
	}
}

func (posixProvider) Read(file *tree.File, inherited map[string]any) map[string]any {
	permissions, _ := file.Attribute("posix:permissions")
	group, _ := file.Attribute("posix:group")
	result := map[string]any{"permissions": permissions, "group": group}
	for k, v := range inherited {
		result[k] = v
	}
	result["permissions"] = permissions
	result["group"] = group
	return result
}
