package codec

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/relaycore/reactor/pkg/batch"
	"github.com/relaycore/reactor/pkg/diag"
	"github.com/relaycore/reactor/pkg/engine"
)

// Storage abstracts the byte-level persistence backend, grounded on
// the teacher's composables/storage.go Storage interface (same
// Load/Save-over-a-key shape). Implementations must be safe for
// concurrent use.
type Storage interface {
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
}

// Deleter is an optional Storage extension: backends that support it
// let PersistedStore clean up the previous version's key per spec.md
// §6's "previous-version cleanup".
type Deleter interface {
	Delete(key string) error
}

// FileStorage implements Storage over the local filesystem, one file
// per key under baseDir — a direct port of the teacher's FileStorage
// (composables/storage.go), with error reporting routed through
// pkg/diag instead of a directly-injected observability.ErrorReporter,
// since diag is already this module's single error-reporting spine
// (and itself bridges to pkg/observability via diag.SetSink).
type FileStorage struct {
	baseDir string
}

// NewFileStorage constructs a FileStorage rooted at baseDir. The
// directory is created lazily on first Save.
func NewFileStorage(baseDir string) *FileStorage {
	return &FileStorage{baseDir: baseDir}
}

func (fs *FileStorage) Load(key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(fs.baseDir, sanitizeKey(key)))
	if err != nil {
		if !os.IsNotExist(err) {
			diag.CaptureError("codec: file storage load failed", err)
		}
		return nil, err
	}
	return data, nil
}

func (fs *FileStorage) Save(key string, data []byte) error {
	if err := os.MkdirAll(fs.baseDir, 0o755); err != nil {
		diag.CaptureError("codec: file storage mkdir failed", err)
		return err
	}
	if err := os.WriteFile(filepath.Join(fs.baseDir, sanitizeKey(key)), data, 0o644); err != nil {
		diag.CaptureError("codec: file storage save failed", err)
		return err
	}
	return nil
}

func (fs *FileStorage) Delete(key string) error {
	err := os.Remove(filepath.Join(fs.baseDir, sanitizeKey(key)))
	if err != nil && !os.IsNotExist(err) {
		diag.CaptureError("codec: file storage delete failed", err)
		return err
	}
	return nil
}

// sanitizeKey replaces path separators the persisted-key scheme's
// "://" and "@" introduce with filesystem-safe characters.
func sanitizeKey(key string) string {
	out := make([]rune, 0, len(key))
	for _, r := range key {
		switch r {
		case '/', ':', '@':
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

// Key builds spec.md §6's illustrative persisted-state key:
// "<prefix>-<scope>://<name>@<version>".
func Key(prefix, scope, name string, version int) string {
	return fmt.Sprintf("%s-%s://%s@%d", prefix, scope, name, version)
}

// PersistedStore ties a reactive handle to a Storage backend: it loads
// and applies any existing snapshot at construction, then re-encodes
// and saves the handle's current snapshot after every debounced burst
// of mutations (spec.md §6: "read on construction and rewritten on
// every debounced mutation").
type PersistedStore struct {
	handle  engine.Handle
	storage Storage
	codec   SnapshotCodec

	prefix, scope, name string
	version             int

	deb         *batch.Debouncer
	unsubscribe func()
}

// Options configures a PersistedStore. Codec defaults to JSON, Debounce
// defaults to 100ms, and Version defaults to 1.
type Options struct {
	Prefix, Scope, Name string
	Version             int
	Codec               SnapshotCodec
	Debounce            time.Duration
}

// NewPersistedStore constructs a PersistedStore, immediately attempting
// to load and apply any snapshot already saved under the current
// key. handle must implement engine.Restorer for the load path to take
// effect; if it doesn't, construction proceeds (the handle simply keeps
// its constructor-supplied initial value) and a violation is
// diagnosed only if a snapshot was actually found and couldn't be
// applied.
func NewPersistedStore(handle engine.Handle, storage Storage, opts Options) *PersistedStore {
	if opts.Codec == nil {
		opts.Codec = JSON
	}
	if opts.Version == 0 {
		opts.Version = 1
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 100 * time.Millisecond
	}

	ps := &PersistedStore{
		handle:  handle,
		storage: storage,
		codec:   opts.Codec,
		prefix:  opts.Prefix,
		scope:   opts.Scope,
		name:    opts.Name,
		version: opts.Version,
	}

	ps.load()
	ps.deb = batch.NewDebouncer(opts.Debounce, ps.save)
	ps.unsubscribe = engine.Subscribe(handle.Meta(), func(c engine.StateChange) {
		if c.Type == engine.ChangeInit {
			return
		}
		ps.deb.Trigger()
	}, false, false)
	return ps
}

func (ps *PersistedStore) key() string {
	return Key(ps.prefix, ps.scope, ps.name, ps.version)
}

func (ps *PersistedStore) load() {
	data, err := ps.storage.Load(ps.key())
	if err != nil {
		return
	}
	restorer, ok := ps.handle.(engine.Restorer)
	if !ok {
		diag.CaptureViolation("persisted snapshot found but handle is not a Restorer", ps.handle.HandleID(), nil)
		return
	}
	var decoded any
	if err := ps.codec.Decode(data, &decoded); err != nil {
		diag.CaptureError("codec: failed to decode persisted snapshot", err)
		return
	}
	if err := restorer.RestoreSnapshot(decoded); err != nil {
		diag.CaptureError("codec: failed to apply persisted snapshot", err)
	}
}

func (ps *PersistedStore) save() {
	data, err := ps.codec.Encode(ps.handle.Snapshot())
	if err != nil {
		diag.CaptureError("codec: failed to encode snapshot for persistence", err)
		return
	}
	if err := ps.storage.Save(ps.key(), data); err != nil {
		return
	}
	if d, ok := ps.storage.(Deleter); ok && ps.version > 1 {
		_ = d.Delete(Key(ps.prefix, ps.scope, ps.name, ps.version-1))
	}
}

// Flush forces an immediate save, bypassing the debounce window.
func (ps *PersistedStore) Flush() {
	ps.deb.Flush()
}

// Destroy detaches the store from its handle and stops debounced saves.
func (ps *PersistedStore) Destroy() {
	ps.deb.Stop()
	ps.unsubscribe()
}
