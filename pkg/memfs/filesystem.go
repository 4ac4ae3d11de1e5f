// Package memfs is the top-level handle onto an in-memory, hierarchical
// filesystem: Configuration assembles the flavor, roots, block allocator,
// and enabled attribute views; FileSystem ties pathtype, tree, lookup,
// heapdisk, channel, attr, watch, state, and streamio together into the
// public operations described in spec.md.
package memfs

import (
	"context"
	"io"
	"sync"

	"github.com/mutagen-io/memfs/pkg/memfs/attr"
	"github.com/mutagen-io/memfs/pkg/memfs/channel"
	"github.com/mutagen-io/memfs/pkg/memfs/errs"
	"github.com/mutagen-io/memfs/pkg/memfs/heapdisk"
	"github.com/mutagen-io/memfs/pkg/memfs/jimfspath"
	"github.com/mutagen-io/memfs/pkg/memfs/lookup"
	"github.com/mutagen-io/memfs/pkg/memfs/state"
	"github.com/mutagen-io/memfs/pkg/memfs/streamio"
	"github.com/mutagen-io/memfs/pkg/memfs/tree"
	"github.com/mutagen-io/memfs/pkg/memfs/watch"
)

// FileSystem is a single in-memory filesystem instance, configured for one
// path flavor and one set of roots.
type FileSystem struct {
	config Configuration

	// treeMu is the filesystem-wide file-tree lock described in spec.md §5:
	// held (shared) across lookup and attribute reads, and (exclusive)
	// across the look-up-then-mutate sequences of create, delete, and
	// move, so that those compound operations are atomic from observers'
	// perspective even though each Directory also has its own entry-table
	// mutex for individual Link/Unlink/Get calls.
	treeMu sync.RWMutex

	tree        *tree.FileTree
	disk        *heapdisk.HeapDisk
	attrService *attr.Service

	watchService *watch.PollingWatchService
	state        *state.FileSystemState

	workDir *tree.DirectoryEntry
}

// New builds a FileSystem from a resolved Configuration, installing its
// roots and resolving its working directory.
func New(cfg Configuration) (*FileSystem, error) {
	disk, err := heapdisk.New(cfg.blockSize, cfg.maxSize, cfg.maxCacheSize)
	if err != nil {
		return nil, err
	}

	attrService, err := attr.NewService(cfg.attributeViews...)
	if err != nil {
		return nil, err
	}

	ft := tree.NewFileTree()
	for _, raw := range cfg.roots {
		parsed, err := jimfspath.Parse(cfg.pathType, raw)
		if err != nil {
			return nil, errs.Wrap(errs.InvalidArgument, err, "invalid root").WithPath(raw)
		}
		if !parsed.IsAbsolute() || len(parsed.Names()) != 0 {
			return nil, errs.Newf(errs.InvalidArgument, "root must be a bare absolute path: %s", raw)
		}

		rootDir := ft.NewDirectory()
		if err := attrService.SetInitialAttributes(rootDir, cfg.defaultAttributeValues, nil); err != nil {
			return nil, err
		}
		if err := ft.SetRoot(tree.RootKeyForName(parsed.Root()), rootDir); err != nil {
			return nil, err
		}
	}

	watchService := watch.New(cfg.watchInterval, cfg.logger)
	fsState := state.New(func() error { return watchService.Close() }, cfg.logger)

	fs := &FileSystem{
		config:       cfg,
		tree:         ft,
		disk:         disk,
		attrService:  attrService,
		watchService: watchService,
		state:        fsState,
	}

	workDirPath, err := jimfspath.Parse(cfg.pathType, cfg.workingDirectory)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, err, "invalid working directory").WithPath(cfg.workingDirectory)
	}
	workDirEntry, err := lookup.Lookup(ft, nil, workDirPath, lookup.Follow)
	if err != nil {
		return nil, err
	}
	if !workDirEntry.Exists() || !workDirEntry.File.IsDirectory() {
		return nil, errs.New(errs.NotDirectory, "working directory is not a directory").WithPath(cfg.workingDirectory)
	}
	fs.workDir = workDirEntry

	return fs, nil
}

// Configuration returns the Configuration this filesystem was built from.
func (fs *FileSystem) Configuration() Configuration {
	return fs.config
}

// resolve parses rawPath under this filesystem's path type and resolves it
// against the working directory, without acquiring treeMu; callers hold
// treeMu themselves at whatever granularity their operation needs.
func (fs *FileSystem) resolve(rawPath string, opts lookup.LinkOptions) (*tree.DirectoryEntry, error) {
	if err := fs.state.CheckOpen(); err != nil {
		return nil, err
	}
	p, err := jimfspath.Parse(fs.config.pathType, rawPath)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, err, "invalid path").WithPath(rawPath)
	}
	return lookup.Lookup(fs.tree, fs.workDir, p, opts)
}

// Exists reports whether rawPath resolves to a concrete file, following a
// trailing symbolic link.
func (fs *FileSystem) Exists(rawPath string) bool {
	fs.treeMu.RLock()
	defer fs.treeMu.RUnlock()
	entry, err := fs.resolve(rawPath, lookup.Follow)
	return err == nil && entry.Exists()
}

// CreateDirectory creates an empty directory at rawPath, failing with
// AlreadyExists if an entry is already present.
func (fs *FileSystem) CreateDirectory(rawPath string) error {
	fs.treeMu.Lock()
	defer fs.treeMu.Unlock()

	entry, err := fs.resolve(rawPath, lookup.NoFollow)
	if err != nil {
		return err
	}
	if entry.Exists() {
		return errs.Newf(errs.AlreadyExists, "already exists: %s", rawPath).WithPath(rawPath)
	}

	dir := fs.tree.NewDirectory()
	if err := fs.attrService.SetInitialAttributes(dir, fs.config.defaultAttributeValues, nil); err != nil {
		return err
	}
	return entry.Parent.Link(entry.Name, dir)
}

// CreateFile creates an empty regular file at rawPath, failing with
// AlreadyExists if an entry is already present.
func (fs *FileSystem) CreateFile(rawPath string) error {
	fs.treeMu.Lock()
	defer fs.treeMu.Unlock()

	entry, err := fs.resolve(rawPath, lookup.NoFollow)
	if err != nil {
		return err
	}
	if entry.Exists() {
		return errs.Newf(errs.AlreadyExists, "already exists: %s", rawPath).WithPath(rawPath)
	}

	file := tree.NewRegularFile(fs.tree.NewID(), fs.disk)
	if err := fs.attrService.SetInitialAttributes(file, fs.config.defaultAttributeValues, nil); err != nil {
		return err
	}
	return entry.Parent.Link(entry.Name, file)
}

// CreateSymbolicLink creates a symbolic link at rawPath whose stored target
// is the raw, unparsed targetPath string.
func (fs *FileSystem) CreateSymbolicLink(rawPath, targetPath string) error {
	if !fs.config.SupportsFeature(FeatureSymbolicLinks) {
		return errs.New(errs.Unsupported, "symbolic links are not supported by this configuration")
	}

	fs.treeMu.Lock()
	defer fs.treeMu.Unlock()

	entry, err := fs.resolve(rawPath, lookup.NoFollow)
	if err != nil {
		return err
	}
	if entry.Exists() {
		return errs.Newf(errs.AlreadyExists, "already exists: %s", rawPath).WithPath(rawPath)
	}

	link := tree.NewSymbolicLink(fs.tree.NewID(), targetPath)
	if err := fs.attrService.SetInitialAttributes(link, fs.config.defaultAttributeValues, nil); err != nil {
		return err
	}
	return entry.Parent.Link(entry.Name, link)
}

// CreateLink creates a new directory entry at rawPath referring to the
// same regular file identity as existingPath (a hard link): both paths
// then share one link count, one set of attributes, and one content
// stream.
func (fs *FileSystem) CreateLink(rawPath, existingPath string) error {
	if !fs.config.SupportsFeature(FeatureLinks) {
		return errs.New(errs.Unsupported, "hard links are not supported by this configuration")
	}

	fs.treeMu.Lock()
	defer fs.treeMu.Unlock()

	existing, err := fs.resolve(existingPath, lookup.Follow)
	if err != nil {
		return err
	}
	if !existing.Exists() {
		return errs.New(errs.NotFound, "no such file or directory").WithPath(existingPath)
	}
	if existing.File.IsDirectory() {
		return errs.New(errs.InvalidArgument, "cannot create a hard link to a directory").WithPath(existingPath)
	}

	entry, err := fs.resolve(rawPath, lookup.NoFollow)
	if err != nil {
		return err
	}
	if entry.Exists() {
		return errs.Newf(errs.AlreadyExists, "already exists: %s", rawPath).WithPath(rawPath)
	}

	return entry.Parent.Link(entry.Name, existing.File)
}

// Delete removes the entry at rawPath, failing with DirectoryNotEmpty if it
// names a non-empty directory. It operates on the entry itself rather than
// a trailing symbolic link's target.
func (fs *FileSystem) Delete(rawPath string) error {
	fs.treeMu.Lock()
	defer fs.treeMu.Unlock()

	entry, err := fs.resolve(rawPath, lookup.NoFollow)
	if err != nil {
		return err
	}
	if !entry.Exists() {
		return errs.New(errs.NotFound, "no such file or directory").WithPath(rawPath)
	}
	if entry.File.IsDirectory() && !entry.File.Directory().IsEmpty() {
		return errs.New(errs.DirectoryNotEmpty, "directory not empty").WithPath(rawPath)
	}

	_, err = entry.Parent.Unlink(entry.Name)
	return err
}

// Move atomically relocates the entry at sourcePath to destinationPath,
// preserving file identity. It fails with AlreadyExists if destinationPath
// is already occupied (unconditionally: there is no replace-existing
// variant, per spec.md §4.2) and fails with an error naming "sub" if
// sourcePath is a directory and destinationPath would place it inside its
// own subtree.
func (fs *FileSystem) Move(sourcePath, destinationPath string) error {
	fs.treeMu.Lock()
	defer fs.treeMu.Unlock()

	source, err := fs.resolve(sourcePath, lookup.NoFollow)
	if err != nil {
		return err
	}
	if !source.Exists() {
		return errs.New(errs.NotFound, "no such file or directory").WithPath(sourcePath)
	}

	destination, err := fs.resolve(destinationPath, lookup.NoFollow)
	if err != nil {
		return err
	}
	if destination.Exists() {
		return errs.Newf(errs.AlreadyExists, "already exists: %s", destinationPath).WithPath(destinationPath)
	}

	if source.File.IsDirectory() {
		if err := lookup.CheckNotSubdirectory(source.File.Directory(), destination.Parent); err != nil {
			return err
		}
	}

	if _, err := source.Parent.Unlink(source.Name); err != nil {
		return err
	}
	if err := destination.Parent.Link(destination.Name, source.File); err != nil {
		// Roll back the unlink so a failed destination link never strands
		// the file unreachable from both paths.
		_ = source.Parent.Link(source.Name, source.File)
		return err
	}
	return nil
}

// List returns the display names of rawPath's directory entries, sorted as
// per spec.md §3 (by display string, excluding "." and "..").
func (fs *FileSystem) List(rawPath string) ([]string, error) {
	fs.treeMu.RLock()
	defer fs.treeMu.RUnlock()

	entry, err := fs.resolve(rawPath, lookup.Follow)
	if err != nil {
		return nil, err
	}
	if !entry.Exists() {
		return nil, errs.New(errs.NotFound, "no such file or directory").WithPath(rawPath)
	}
	if !entry.File.IsDirectory() {
		return nil, errs.New(errs.NotDirectory, "not a directory").WithPath(rawPath)
	}

	names := entry.File.Directory().Snapshot()
	result := make([]string, len(names))
	for i, n := range names {
		result[i] = n.Display()
	}
	return result, nil
}

// OpenFileChannel opens a FileChannel onto the regular file at rawPath,
// creating it first if create is true and no entry yet exists. The
// returned channel is registered with the filesystem's resource state so
// that closing the filesystem closes it.
func (fs *FileSystem) OpenFileChannel(rawPath string, opts channel.OpenOptions, create bool) (*channel.FileChannel, error) {
	if !fs.config.SupportsFeature(FeatureFileChannel) {
		return nil, errs.New(errs.Unsupported, "file channels are not supported by this configuration")
	}

	file, err := fs.resolveOrCreateRegularFile(rawPath, create)
	if err != nil {
		return nil, err
	}

	ch, err := channel.New(file, opts)
	if err != nil {
		return nil, err
	}
	if _, err := fs.state.Register(ch); err != nil {
		ch.Close()
		return nil, err
	}
	return ch, nil
}

// resolveOrCreateRegularFile resolves rawPath to its regular File, creating
// an empty one under the filesystem-wide lock when create is true and no
// entry exists yet.
func (fs *FileSystem) resolveOrCreateRegularFile(rawPath string, create bool) (*tree.File, error) {
	fs.treeMu.Lock()
	defer fs.treeMu.Unlock()

	entry, err := fs.resolve(rawPath, lookup.Follow)
	if err != nil {
		return nil, err
	}

	if entry.Exists() {
		if entry.File.IsDirectory() {
			return nil, errs.New(errs.IsDirectory, "is a directory").WithPath(rawPath)
		}
		if !entry.File.IsRegularFile() {
			return nil, errs.New(errs.InvalidArgument, "not a regular file").WithPath(rawPath)
		}
		return entry.File, nil
	}

	if !create {
		return nil, errs.New(errs.NotFound, "no such file or directory").WithPath(rawPath)
	}

	file := tree.NewRegularFile(fs.tree.NewID(), fs.disk)
	if err := fs.attrService.SetInitialAttributes(file, fs.config.defaultAttributeValues, nil); err != nil {
		return nil, err
	}
	if err := entry.Parent.Link(entry.Name, file); err != nil {
		return nil, err
	}
	return file, nil
}

// OpenInputStream opens a read-only stream onto rawPath's content. ctx
// bounds every Read call made through the returned stream.
func (fs *FileSystem) OpenInputStream(ctx context.Context, rawPath string) (*streamio.JimfsInputStream, error) {
	ch, err := fs.OpenFileChannel(rawPath, channel.OpenOptions{Read: true}, false)
	if err != nil {
		return nil, err
	}
	return streamio.NewInputStream(ctx, ch), nil
}

// OpenOutputStream opens a write-only stream onto rawPath's content,
// creating the file if it does not exist. append selects whether writes
// land at the file's current end rather than at position zero. ctx bounds
// every Write call made through the returned stream.
func (fs *FileSystem) OpenOutputStream(ctx context.Context, rawPath string, appendMode bool) (*streamio.JimfsOutputStream, error) {
	ch, err := fs.OpenFileChannel(rawPath, channel.OpenOptions{Write: true, Append: appendMode}, true)
	if err != nil {
		return nil, err
	}
	return streamio.NewOutputStream(ctx, ch), nil
}

// WriteFile creates rawPath if it does not exist, truncates it to zero
// length, and writes data to it in a single call, the way spec.md's
// end-to-end "write" scenario uses the library.
func (fs *FileSystem) WriteFile(ctx context.Context, rawPath string, data []byte) error {
	ch, err := fs.OpenFileChannel(rawPath, channel.OpenOptions{Write: true}, true)
	if err != nil {
		return err
	}
	out := streamio.NewOutputStream(ctx, ch)
	defer out.Close()
	if err := ch.Truncate(ctx, 0); err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

// ReadFile reads the entirety of rawPath's content.
func (fs *FileSystem) ReadFile(ctx context.Context, rawPath string) ([]byte, error) {
	in, err := fs.OpenInputStream(ctx, rawPath)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return io.ReadAll(in)
}

// GetAttribute returns the value stored for a "view:name" key on the file
// at rawPath.
func (fs *FileSystem) GetAttribute(rawPath, key string) (any, error) {
	fs.treeMu.RLock()
	defer fs.treeMu.RUnlock()

	entry, err := fs.resolve(rawPath, lookup.Follow)
	if err != nil {
		return nil, err
	}
	if !entry.Exists() {
		return nil, errs.New(errs.NotFound, "no such file or directory").WithPath(rawPath)
	}
	return fs.attrService.GetAttribute(entry.File, key)
}

// SetAttribute sets a single "view:name" attribute on the file at rawPath.
func (fs *FileSystem) SetAttribute(rawPath, key string, value any) error {
	fs.treeMu.RLock()
	defer fs.treeMu.RUnlock()

	entry, err := fs.resolve(rawPath, lookup.Follow)
	if err != nil {
		return err
	}
	if !entry.Exists() {
		return errs.New(errs.NotFound, "no such file or directory").WithPath(rawPath)
	}
	return fs.attrService.SetAttribute(entry.File, key, value)
}

// ReadAttributes reads one or more attributes (or, with a single "view:*"
// key, every attribute visible through view) from the file at rawPath.
func (fs *FileSystem) ReadAttributes(rawPath string, keys ...string) (map[string]any, error) {
	fs.treeMu.RLock()
	defer fs.treeMu.RUnlock()

	entry, err := fs.resolve(rawPath, lookup.Follow)
	if err != nil {
		return nil, err
	}
	if !entry.Exists() {
		return nil, errs.New(errs.NotFound, "no such file or directory").WithPath(rawPath)
	}
	return fs.attrService.ReadAttributes(entry.File, keys...)
}

// DeleteUserAttribute removes a "user:name" attribute from the file at
// rawPath.
func (fs *FileSystem) DeleteUserAttribute(rawPath, name string) error {
	fs.treeMu.RLock()
	defer fs.treeMu.RUnlock()

	entry, err := fs.resolve(rawPath, lookup.Follow)
	if err != nil {
		return err
	}
	if !entry.Exists() {
		return errs.New(errs.NotFound, "no such file or directory").WithPath(rawPath)
	}
	return fs.attrService.DeleteUserAttribute(entry.File, name)
}

// GetFileAttributeView returns a late-binding View over the given view
// name for rawPath, re-resolving rawPath on every call so the View
// survives a rename of its target. It returns nil if view is not enabled
// in this filesystem's configuration.
func (fs *FileSystem) GetFileAttributeView(rawPath, view string) *attr.View {
	lookupFn := func() (*tree.File, error) {
		fs.treeMu.RLock()
		defer fs.treeMu.RUnlock()
		entry, err := fs.resolve(rawPath, lookup.Follow)
		if err != nil {
			return nil, err
		}
		if !entry.Exists() {
			return nil, errs.New(errs.NotFound, "no such file or directory").WithPath(rawPath)
		}
		return entry.File, nil
	}
	return fs.attrService.GetFileAttributeView(lookupFn, view)
}

// RegisterWatch registers rawPath (which must name a directory) with the
// filesystem's polling watch service for the given event kinds.
func (fs *FileSystem) RegisterWatch(rawPath string, kinds ...watch.EventKind) (*watch.Key, error) {
	fs.treeMu.RLock()
	entry, err := fs.resolve(rawPath, lookup.Follow)
	fs.treeMu.RUnlock()
	if err != nil {
		return nil, err
	}
	if !entry.Exists() {
		return nil, errs.New(errs.NotFound, "no such file or directory").WithPath(rawPath)
	}
	return fs.watchService.Register(entry.File, kinds...)
}

// Take blocks until a previously registered watch.Key has events ready, or
// ctx is done.
func (fs *FileSystem) Take(ctx context.Context) (*watch.Key, error) {
	return fs.watchService.Take(ctx)
}

// Close closes every resource the filesystem has handed out (channels,
// streams, the watch service), then evicts every file from the tree, per
// spec.md §2's "closing the filesystem closes every registered resource
// and evicts all files". Close is idempotent.
func (fs *FileSystem) Close() error {
	err := fs.state.Close()
	fs.tree.Evict()
	return err
}
