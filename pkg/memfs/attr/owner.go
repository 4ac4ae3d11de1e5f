package attr

import (
	"reflect"

	"github.com/mutagen-io/memfs/pkg/memfs/tree"
)

// UserPrincipal identifies a file owner or group by name, standing in for
// the Java original's UserPrincipal/GroupPrincipal types.
type UserPrincipal struct {
	Name string
}

var userPrincipalType = reflect.TypeOf(UserPrincipal{})

// ownerProvider implements the "owner" view.
type ownerProvider struct{}

func (ownerProvider) ViewName() string   { return ViewOwner }
func (ownerProvider) Inherits() []string { return nil }

func (ownerProvider) Schema() map[string]reflect.Type {
	return map[string]reflect.Type{
		"owner": userPrincipalType,
	}
}

func (ownerProvider) DefaultValues(userDefaults map[string]any) map[string]any {
	owner := UserPrincipal{Name: "nobody"}
	if v, ok := userDefaults["owner"].(UserPrincipal); ok {
		owner = v
	}
	return map[string]any{"owner": owner}
}

func (ownerProvider) Settable(name string) bool {
	return name == "owner"
}

func (ownerProvider) Read(file *tree.File, _ map[string]any) map[string]any {
	v, _ := file.Attribute("owner:owner")
	return map[string]any{"owner": v}
}
