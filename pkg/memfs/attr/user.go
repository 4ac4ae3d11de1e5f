package attr

import (
	"reflect"

	"github.com/mutagen-io/memfs/pkg/memfs/tree"
)

// userProvider implements the "user" view: arbitrary byte-array named
// attributes with no fixed schema. Schema returns nil, which
// AttributeService treats as "any name, typed []byte" rather than "no
// names permitted".
type userProvider struct{}

func (userProvider) ViewName() string   { return ViewUser }
func (userProvider) Inherits() []string { return nil }

func (userProvider) Schema() map[string]reflect.Type { return nil }

func (userProvider) DefaultValues(userDefaults map[string]any) map[string]any {
	defaults := make(map[string]any, len(userDefaults))
	for k, v := range userDefaults {
		if b, ok := v.([]byte); ok {
			defaults[k] = b
		}
	}
	return defaults
}

func (userProvider) Settable(string) bool { return true }

// Read is unused for the user view: its dynamic attribute set is listed
// directly from the file's stored attributes by AttributeService, since a
// fixed Provider.Read signature cannot enumerate names it doesn't know in
// advance.
func (userProvider) Read(*tree.File, map[string]any) map[string]any {
	return map[string]any{}
}
