package attr

import (
	"reflect"

	"github.com/mutagen-io/memfs/pkg/memfs/tree"
)

// AclEntry is a single access control entry, stored and returned verbatim
// (no enforcement semantics), matching spec.md §4.5's "acl is stored
// verbatim".
type AclEntry struct {
	Principal  UserPrincipal
	Type       string
	Permission []string
	Flags      []string
}

var aclEntriesType = reflect.TypeOf([]AclEntry{})

// aclProvider implements the "acl" view, layered on top of owner.
type aclProvider struct{}

func (aclProvider) ViewName() string   { return ViewACL }
func (aclProvider) Inherits() []string { return []string{ViewOwner} }

func (aclProvider) Schema() map[string]reflect.Type {
	return map[string]reflect.Type{
		"acl": aclEntriesType,
	}
}

func (aclProvider) DefaultValues(userDefaults map[string]any) map[string]any {
	if v, ok := userDefaults["acl"].([]AclEntry); ok {
		return map[string]any{"acl": v}
	}
	return map[string]any{"acl": []AclEntry{}}
}

func (aclProvider) Settable(name string) bool {
	return name == "acl"
}

func (aclProvider) Read(file *tree.File, inherited map[string]any) map[string]any {
	result := map[string]any{}
	for k, v := range inherited {
		result[k] = v
	}
	acl, _ := file.Attribute("acl:acl")
	result["acl"] = acl
	return result
}
