package attr

import (
	"github.com/mutagen-io/memfs/pkg/memfs/pathtype"
	"github.com/mutagen-io/memfs/pkg/memfs/tree"
)

// ListUserAttributes returns the names of every "user:" attribute set on
// file whose bare name matches pattern (compiled with pt's canonical
// normalization, so a case-folding path flavor also case-folds attribute
// name patterns — reusing the same glob matcher as path lookups rather
// than a second hand-rolled one).
func ListUserAttributes(file *tree.File, pt *pathtype.PathType, pattern string) ([]string, error) {
	matcher, err := pt.CompilePattern(pattern)
	if err != nil {
		return nil, err
	}

	var names []string
	for name := range file.AttributesByView(ViewUser) {
		ok, err := matcher.Matches(name)
		if err != nil {
			return nil, err
		}
		if ok {
			names = append(names, name)
		}
	}
	return names, nil
}
