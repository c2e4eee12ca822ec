package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/clusterfs/internal/logger"
	"github.com/marmos91/clusterfs/internal/protocol/cdp"
	"github.com/marmos91/clusterfs/internal/ratelimiter"
)

// errLineTooLong is returned when an instruction line does not fit in
// MaxLineLength bytes.
var errLineTooLong = errors.New("instruction line too long")

// Connection serves one client. Instructions are handled strictly in order;
// the next line is not read until the previous response has been flushed.
type Connection struct {
	server    *TCPAdapter
	conn      net.Conn
	sessionID string
	reader    *bufio.Reader
	writer    *bufio.Writer
	limiter   *ratelimiter.RateLimiter
}

// NewConnection wraps an accepted socket.
func NewConnection(server *TCPAdapter, conn net.Conn) *Connection {
	return &Connection{
		server:    server,
		conn:      conn,
		sessionID: uuid.New().String(),
		reader:    bufio.NewReaderSize(conn, server.config.MaxLineLength),
		writer:    bufio.NewWriter(conn),
		limiter: ratelimiter.New(
			server.config.RateLimit.RequestsPerSecond,
			server.config.RateLimit.Burst,
		),
	}
}

// Serve handles instructions until the client disconnects, an I/O error or
// timeout occurs, or ctx is cancelled. Panics are recovered so one client
// cannot take the server down.
func (c *Connection) Serve(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic in connection handler for session %s (%s): %v",
				c.sessionID, c.conn.RemoteAddr(), r)
		}
		_ = c.conn.Close()
	}()

	clientAddr := c.conn.RemoteAddr().String()

	c.resetIdleDeadline()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Session %s closed due to context cancellation", c.sessionID)
			return
		case <-c.server.shutdown:
			logger.Debug("Session %s closed due to server shutdown", c.sessionID)
			return
		default:
		}

		err := c.handleInstruction(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				logger.Debug("Connection from %s closed by client", clientAddr)
			case isTimeout(err):
				logger.Debug("Connection from %s timed out: %v", clientAddr, err)
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				logger.Debug("Connection from %s cancelled: %v", clientAddr, err)
			case errors.Is(err, errLineTooLong), errors.Is(err, cdp.ErrPayloadTruncated):
				logger.Warn("Closing connection from %s: %v", clientAddr, err)
			default:
				logger.Debug("Error handling instruction from %s: %v", clientAddr, err)
			}
			return
		}

		c.resetIdleDeadline()
	}
}

// handleInstruction reads one line, dispatches it and flushes the response.
// Empty lines are skipped without a response.
func (c *Connection) handleInstruction(ctx context.Context) error {
	if c.server.config.Timeouts.Read > 0 {
		deadline := time.Now().Add(c.server.config.Timeouts.Read)
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}
	}

	line, err := c.reader.ReadSlice('\n')
	atEOF := false
	if err != nil {
		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			return fmt.Errorf("%w: more than %d bytes", errLineTooLong, c.server.config.MaxLineLength)
		case errors.Is(err, io.EOF) && len(line) > 0:
			// Unterminated last line: answer it, then stop
			atEOF = true
		default:
			return err
		}
	}

	cmd := cdp.ParseCommand(line)
	if cmd == nil {
		if atEOF {
			return io.EOF
		}
		return nil
	}

	logger.Info("Rcvd: %s", cmd.Line)
	logger.Debug("Session %s: %s", c.sessionID, cmd.Instruction)

	throttled, err := c.limiter.Acquire(ctx)
	if throttled {
		c.server.metrics.RecordRateLimited()
	}
	if err != nil {
		return err
	}

	if c.server.config.Timeouts.Write > 0 {
		deadline := time.Now().Add(c.server.config.Timeouts.Write)
		if err := c.conn.SetWriteDeadline(deadline); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}

	start := time.Now()
	res, err := c.server.handler.Handle(ctx, cmd, c.reader, c.writer)
	if err == nil {
		err = c.writer.Flush()
	}
	duration := time.Since(start)

	c.server.metrics.RecordCommand(res.Instruction, duration, statusLabel(res, err))
	if res.BytesIn > 0 {
		c.server.metrics.RecordBytesTransferred("write", res.BytesIn)
	}
	if res.BytesOut > 0 {
		c.server.metrics.RecordBytesTransferred("read", res.BytesOut)
	}

	if err != nil {
		return err
	}

	logger.Info("Sent: %s", res.Reply)

	if atEOF {
		return io.EOF
	}
	return nil
}

func (c *Connection) resetIdleDeadline() {
	if c.server.config.Timeouts.Idle <= 0 {
		return
	}
	if err := c.conn.SetDeadline(time.Now().Add(c.server.config.Timeouts.Idle)); err != nil {
		logger.Warn("Failed to reset deadline for session %s: %v", c.sessionID, err)
	}
}

func statusLabel(res cdp.Result, err error) string {
	if err != nil {
		return "io_error"
	}
	return res.Status
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
