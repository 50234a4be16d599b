package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"

	"go.lsp.dev/jsonrpc2"

	"gh-issues/internal/logging"
	"gh-issues/internal/panel"
)

// Methods spoken with an IDE side-panel host.
const (
	MethodIntent  = "panel/intent"
	MethodMessage = "panel/message"
	MethodDispose = "panel/dispose"
	MethodAttach  = "panel/attach"
)

type Controller interface {
	Attach(s panel.Sink)
	Detach()
	Handle(ctx context.Context, intent panel.Intent)
}

type server struct {
	ctx    context.Context
	conn   jsonrpc2.Conn
	ctrl   Controller
	logger *slog.Logger
	wg     sync.WaitGroup

	mu       sync.Mutex
	detached bool
}

// Serve binds ctrl to a JSON-RPC peer on rwc and blocks until the peer goes
// away or ctx is cancelled.
func Serve(ctx context.Context, rwc io.ReadWriteCloser, ctrl Controller, logger *slog.Logger) error {
	s := &server{
		ctx:    ctx,
		conn:   jsonrpc2.NewConn(jsonrpc2.NewStream(rwc)),
		ctrl:   ctrl,
		logger: logging.OrDiscard(logger).With("component", "bridge"),
	}
	ctrl.Attach(s)
	defer ctrl.Detach()

	s.conn.Go(ctx, s.handle)
	select {
	case <-s.conn.Done():
	case <-ctx.Done():
		_ = s.conn.Close()
		<-s.conn.Done()
	}
	s.wg.Wait()
	if err := s.conn.Err(); err != nil && !closedErr(err) && ctx.Err() == nil {
		return err
	}
	return nil
}

func closedErr(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed)
}

// Post implements panel.Sink.
func (s *server) Post(msg panel.Message) {
	b, err := panel.EncodeMessage(msg)
	if err != nil {
		s.logger.Error("encode message", "type", panel.MessageType(msg), "err", err)
		return
	}
	if err := s.conn.Notify(s.ctx, MethodMessage, json.RawMessage(b)); err != nil {
		s.logger.Warn("push message", "type", panel.MessageType(msg), "err", err)
	}
}

func (s *server) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	switch req.Method() {
	case MethodIntent:
		intent, ok := panel.DecodeIntent(req.Params())
		if !ok {
			s.logger.Debug("ignoring malformed intent", "params", string(req.Params()))
			return reply(ctx, nil, nil)
		}
		// A host that disposed its view and sends again has reopened it.
		s.attach()
		// Intents may block on the network; the read loop must keep going.
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.ctrl.Handle(s.ctx, intent)
		}()
		return reply(ctx, nil, nil)
	case MethodAttach:
		s.attach()
		return reply(ctx, nil, nil)
	case MethodDispose:
		s.mu.Lock()
		s.detached = true
		s.mu.Unlock()
		s.ctrl.Detach()
		return reply(ctx, nil, nil)
	default:
		return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
	}
}

func (s *server) attach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.detached {
		return
	}
	s.detached = false
	s.ctrl.Attach(s)
}

type stdio struct {
	in  io.Reader
	out io.Writer
}

func (s stdio) Read(p []byte) (int, error)  { return s.in.Read(p) }
func (s stdio) Write(p []byte) (int, error) { return s.out.Write(p) }
func (s stdio) Close() error                { return nil }

// Stdio pairs the process's standard streams into one connection.
func Stdio() io.ReadWriteCloser {
	return stdio{in: os.Stdin, out: os.Stdout}
}
