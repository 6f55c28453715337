// Package daemon talks to the privileged root daemon that hands out module
// binaries, process classification and mount namespace handles.
package daemon

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/sys/unix"

	"github.com/jingkaihe/zygiskhost/internal/errx"
	"github.com/jingkaihe/zygiskhost/pkg/api"
)

// Client is the daemon contract used during specialization. Descriptors
// returned by a Client are owned by the caller.
type Client interface {
	ReadModules(ctx context.Context) ([]api.ModuleDescriptor, error)
	GetProcessFlags(ctx context.Context, uid int) (api.ProcessFlags, error)
	UpdateMountNamespace(ctx context.Context, kind api.MountNamespace) (string, error)
	CacheMountNamespace(ctx context.Context, pid int) error
	SystemServerStarted(ctx context.Context) error
	ConnectCompanion(ctx context.Context, moduleID int) (int, error)
	GetModuleDir(ctx context.Context, moduleID int) (int, error)
}

const (
	maxPacket = 64 << 10
	maxFds    = 64
)

// SocketClient opens one SOCK_SEQPACKET connection per request.
type SocketClient struct {
	socket     string
	timeout    time.Duration
	invocation string
	logger     *slog.Logger
}

// NewSocketClient creates a client for the daemon listening on socket.
// invocation is stamped on every request.
func NewSocketClient(socket string, timeout time.Duration, invocation string, logger *slog.Logger) *SocketClient {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = api.DefaultDaemonTimeout
	}
	return &SocketClient{
		socket:     socket,
		timeout:    timeout,
		invocation: invocation,
		logger:     logger.With("component", "daemon", "invocation", invocation),
	}
}

func (c *SocketClient) ReadModules(ctx context.Context) ([]api.ModuleDescriptor, error) {
	resp, fds, err := c.roundTrip(ctx, Request{Op: OpReadModules})
	if err != nil {
		return nil, err
	}
	paired := len(fds) == len(resp.Modules)
	if !paired {
		closeAll(fds)
	}
	descs := make([]api.ModuleDescriptor, len(resp.Modules))
	for i, m := range resp.Modules {
		descs[i] = api.ModuleDescriptor{Name: m.Name, Path: m.Path, Fd: -1}
		if paired {
			descs[i].Fd = fds[i]
		}
	}
	return descs, nil
}

func (c *SocketClient) GetProcessFlags(ctx context.Context, uid int) (api.ProcessFlags, error) {
	resp, fds, err := c.roundTrip(ctx, Request{Op: OpGetProcessFlags, UID: uid})
	closeAll(fds)
	if err != nil {
		return 0, err
	}
	return api.ProcessFlags(resp.Flags), nil
}

func (c *SocketClient) UpdateMountNamespace(ctx context.Context, kind api.MountNamespace) (string, error) {
	if kind != api.MountNamespaceClean && kind != api.MountNamespaceRoot {
		return "", errx.With(ErrBadNamespace, ": %d", kind)
	}
	resp, fds, err := c.roundTrip(ctx, Request{Op: OpUpdateMountNamespace, Namespace: kind})
	closeAll(fds)
	if err != nil {
		return "", err
	}
	return resp.Path, nil
}

func (c *SocketClient) CacheMountNamespace(ctx context.Context, pid int) error {
	_, fds, err := c.roundTrip(ctx, Request{Op: OpCacheMountNamespace, PID: pid})
	closeAll(fds)
	return err
}

func (c *SocketClient) SystemServerStarted(ctx context.Context) error {
	_, fds, err := c.roundTrip(ctx, Request{Op: OpSystemServerStarted})
	closeAll(fds)
	return err
}

// ConnectCompanion returns the request connection itself once the daemon
// accepted it; the module talks to its companion over that socket.
func (c *SocketClient) ConnectCompanion(ctx context.Context, moduleID int) (int, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return -1, err
	}
	defer conn.Close()

	_, fds, err := c.exchange(conn, Request{Op: OpConnectCompanion, ModuleID: moduleID})
	closeAll(fds)
	if err != nil {
		return -1, err
	}

	raw, err := conn.SyscallConn()
	if err != nil {
		return -1, errx.Wrap(ErrDial, err)
	}
	fd := -1
	var dupErr error
	if err := raw.Control(func(s uintptr) {
		fd, dupErr = unix.FcntlInt(s, unix.F_DUPFD_CLOEXEC, 0)
	}); err != nil {
		return -1, errx.Wrap(ErrDial, err)
	}
	if dupErr != nil {
		return -1, errx.Wrap(ErrDial, dupErr)
	}
	// The duplicate shares the runtime's non-blocking file status.
	if err := unix.SetNonblock(fd, false); err != nil {
		unix.Close(fd)
		return -1, errx.Wrap(ErrDial, err)
	}
	return fd, nil
}

func (c *SocketClient) GetModuleDir(ctx context.Context, moduleID int) (int, error) {
	_, fds, err := c.roundTrip(ctx, Request{Op: OpGetModuleDir, ModuleID: moduleID})
	if err != nil {
		closeAll(fds)
		return -1, err
	}
	if len(fds) == 0 {
		return -1, errx.With(ErrMissingFd, ": module %d", moduleID)
	}
	closeAll(fds[1:])
	return fds[0], nil
}

func (c *SocketClient) roundTrip(ctx context.Context, req Request) (*Response, []int, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer conn.Close()
	return c.exchange(conn, req)
}

func (c *SocketClient) dial(ctx context.Context) (*net.UnixConn, error) {
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "unixpacket", c.socket)
	if err != nil {
		return nil, errx.Wrap(ErrDial, err)
	}
	uc := conn.(*net.UnixConn)
	if err := uc.SetDeadline(deadline); err != nil {
		uc.Close()
		return nil, errx.Wrap(ErrDial, err)
	}
	return uc, nil
}

func (c *SocketClient) exchange(conn *net.UnixConn, req Request) (*Response, []int, error) {
	req.Invocation = c.invocation
	data, err := cbor.Marshal(req)
	if err != nil {
		return nil, nil, errx.Wrap(ErrEncode, err)
	}
	if _, err := conn.Write(data); err != nil {
		return nil, nil, errx.Wrap(ErrSend, err)
	}

	buf := make([]byte, maxPacket)
	oob := make([]byte, unix.CmsgSpace(maxFds*4))
	n, oobn, _, _, err := conn.ReadMsgUnix(buf, oob)
	if err != nil {
		return nil, nil, errx.Wrap(ErrReceive, err)
	}
	fds, err := parseRights(oob[:oobn])
	if err != nil {
		return nil, nil, errx.Wrap(ErrReceive, err)
	}

	var resp Response
	if err := cbor.Unmarshal(buf[:n], &resp); err != nil {
		closeAll(fds)
		return nil, nil, errx.Wrap(ErrDecode, err)
	}
	if !resp.OK {
		closeAll(fds)
		return nil, nil, errx.With(ErrRejected, ": %s: %s", req.Op, resp.Error)
	}
	c.logger.Debug("daemon request", "op", req.Op.String(), "fds", len(fds))
	return &resp, fds, nil
}

func parseRights(oob []byte) ([]int, error) {
	if len(oob) == 0 {
		return nil, nil
	}
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, err
	}
	var fds []int
	for i := range msgs {
		rights, err := unix.ParseUnixRights(&msgs[i])
		if err != nil {
			continue
		}
		fds = append(fds, rights...)
	}
	return fds, nil
}

func closeAll(fds []int) {
	for _, fd := range fds {
		unix.Close(fd)
	}
}
