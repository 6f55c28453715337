package mount

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/jingkaihe/zygiskhost/internal/errx"
	"github.com/jingkaihe/zygiskhost/pkg/api"
)

// NamespaceSource hands out the path of a mount namespace handle.
type NamespaceSource interface {
	UpdateMountNamespace(ctx context.Context, kind api.MountNamespace) (string, error)
}

// Manager moves the calling thread into daemon-provided mount namespaces.
type Manager struct {
	source NamespaceSource
	setns  func(fd int) error
	open   func(path string) (int, error)
	logger *slog.Logger
}

// NewManager creates a manager backed by source.
func NewManager(source NamespaceSource, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		source: source,
		setns:  func(fd int) error { return unix.Setns(fd, unix.CLONE_NEWNS) },
		open: func(path string) (int, error) {
			return unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
		},
		logger: logger.With("component", "mount"),
	}
}

// Switch asks the daemon for the namespace of kind and joins it. It returns
// the path that was joined.
func (m *Manager) Switch(ctx context.Context, kind api.MountNamespace) (string, error) {
	path, err := m.source.UpdateMountNamespace(ctx, kind)
	if err != nil {
		return "", errx.Wrap(ErrNamespaceRequest, err)
	}
	if !strings.HasPrefix(path, "/proc/") {
		return path, errx.With(ErrNamespacePath, ": %q", path)
	}

	fd, err := m.open(path)
	if err != nil {
		return path, errx.Wrap(ErrOpenNamespace, err)
	}
	defer unix.Close(fd)

	if err := m.setns(fd); err != nil {
		return path, errx.Wrap(ErrSetns, err)
	}
	m.logger.Debug("switched mount namespace", "kind", kind.String(), "path", path)
	return path, nil
}
