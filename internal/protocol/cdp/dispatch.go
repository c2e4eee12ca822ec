package cdp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/marmos91/clusterfs/internal/logger"
	"github.com/marmos91/clusterfs/pkg/disk"
	"github.com/marmos91/clusterfs/pkg/store/content"
)

// Status codes reported in Result.Status. They are stable, low-cardinality
// labels for metrics; the client sees the full error line instead.
const (
	StatusOK            = "ok"
	StatusUsage         = "usage"
	StatusUnknown       = "unknown_instruction"
	StatusFileExists    = "file_exists"
	StatusNoSpace       = "no_space"
	StatusNoIdentifiers = "no_identifiers"
	StatusNoSuchFile    = "no_such_file"
	StatusInvalidRange  = "invalid_range"
	StatusStoreError    = "store_error"
)

// InstructionUnknown labels lines whose first token is not an instruction.
const InstructionUnknown = "UNKNOWN"

// Disk is the locked container the dispatcher drives. *disk.Disk
// implements it.
type Disk interface {
	Store(ctx context.Context, name string, data []byte) (disk.StoreResult, error)
	Read(ctx context.Context, name string, offset, length int64) (disk.ReadResult, error)
	Delete(ctx context.Context, name string) (int, error)
	List(ctx context.Context) []string
	Capacity() int64
}

// Result summarizes one handled instruction.
type Result struct {
	// Instruction is the recognized instruction or InstructionUnknown.
	Instruction string

	// Status is one of the Status* codes.
	Status string

	// Reply is the status line sent to the client, without "\n". For DIR
	// it summarizes the listing.
	Reply string

	// BytesIn is the STORE payload consumed from the client.
	BytesIn int64

	// BytesOut is the READ data sent after the status line.
	BytesOut int64
}

// reply is what a handler wants written back.
type reply struct {
	status  string
	head    string
	body    []byte
	in      int64
	summary string
}

func okReply(head string) reply {
	return reply{status: StatusOK, head: head}
}

func errorReply(status, msg string) reply {
	return reply{status: status, head: ErrorLine(msg)}
}

// instructionHandler handles one instruction whose arity was already
// checked. payload is the connection's buffered reader, positioned just
// after the instruction line. A returned error means the connection can
// no longer be used.
type instructionHandler func(ctx context.Context, h *Handler, cmd *Command, payload io.Reader) (reply, error)

// instructionInfo describes one entry of the dispatch table.
type instructionInfo struct {
	Name    string
	Argc    int
	Usage   string
	Handler instructionHandler
}

var dispatchTable map[string]*instructionInfo

func init() {
	dispatchTable = map[string]*instructionInfo{
		InstructionStore: {
			Name:    InstructionStore,
			Argc:    3,
			Usage:   MsgStoreUsage,
			Handler: handleStore,
		},
		InstructionRead: {
			Name:    InstructionRead,
			Argc:    4,
			Usage:   MsgReadUsage,
			Handler: handleRead,
		},
		InstructionDelete: {
			Name:    InstructionDelete,
			Argc:    2,
			Usage:   MsgDeleteUsage,
			Handler: handleDelete,
		},
		InstructionDir: {
			Name:    InstructionDir,
			Argc:    1,
			Usage:   MsgDirUsage,
			Handler: handleDir,
		},
	}
}

// ErrPayloadTruncated is returned by Handle when the client closed the
// connection (or the read failed) before the whole STORE payload arrived.
var ErrPayloadTruncated = errors.New("cdp: payload truncated")

// Handler dispatches parsed commands against a Disk.
//
// Handler holds no per-connection state and is shared by every connection.
type Handler struct {
	disk Disk
}

// NewHandler creates a dispatcher for d.
func NewHandler(d Disk) *Handler {
	return &Handler{disk: d}
}

// Handle runs cmd and writes the response to w.
//
// STORE payload bytes are consumed from payload. The returned error is
// non-nil only for transport failures (truncated payload, failed write);
// protocol and storage errors are answered on w and reported in Result.
func (h *Handler) Handle(ctx context.Context, cmd *Command, payload io.Reader, w io.Writer) (Result, error) {
	info, ok := dispatchTable[cmd.Instruction]
	if !ok {
		r := errorReply(StatusUnknown, MsgUnknownCommand)
		return h.send(InstructionUnknown, r, w)
	}

	if cmd.Argc() != info.Argc {
		return h.send(info.Name, errorReply(StatusUsage, info.Usage), w)
	}

	r, err := info.Handler(ctx, h, cmd, payload)
	if err != nil {
		return Result{Instruction: info.Name, BytesIn: r.in}, err
	}

	return h.send(info.Name, r, w)
}

func (h *Handler) send(instruction string, r reply, w io.Writer) (Result, error) {
	summary := r.summary
	if summary == "" {
		summary, _, _ = strings.Cut(r.head, "\n")
	}

	res := Result{
		Instruction: instruction,
		Status:      r.status,
		Reply:       summary,
		BytesIn:     r.in,
	}

	if _, err := io.WriteString(w, r.head); err != nil {
		return res, fmt.Errorf("write status: %w", err)
	}
	if len(r.body) > 0 {
		n, err := w.Write(r.body)
		res.BytesOut = int64(n)
		if err != nil {
			return res, fmt.Errorf("write data: %w", err)
		}
	}

	return res, nil
}

// ============================================================================
// Instruction Handlers
// ============================================================================

func handleStore(ctx context.Context, h *Handler, cmd *Command, payload io.Reader) (reply, error) {
	name := cmd.Args[0]
	size := parseNonNegative(cmd.Args[1])
	if size < 0 {
		return errorReply(StatusUsage, MsgStoreBytes), nil
	}

	// Larger than the whole disk: skip the payload instead of buffering it
	if size > h.disk.Capacity() {
		n, err := io.CopyN(io.Discard, payload, size)
		if err != nil {
			return reply{in: n}, fmt.Errorf("%w: %d of %d bytes: %w", ErrPayloadTruncated, n, size, err)
		}
		logger.Debug("STORE %s: discarded %d byte payload larger than the disk", name, size)
		r := errorReply(StatusNoSpace, MsgNoSpace)
		r.in = n
		return r, nil
	}

	data := make([]byte, size)
	n, err := io.ReadFull(payload, data)
	if err != nil {
		return reply{in: int64(n)}, fmt.Errorf("%w: %d of %d bytes: %w", ErrPayloadTruncated, n, size, err)
	}

	r := storeReply(ctx, h.disk, name, data)
	r.in = size
	return r, nil
}

func storeReply(ctx context.Context, d Disk, name string, data []byte) reply {
	_, err := d.Store(ctx, name, data)
	switch {
	case err == nil:
		return okReply(ACK)
	case errors.Is(err, disk.ErrFileExists):
		return errorReply(StatusFileExists, MsgFileExists)
	case errors.Is(err, disk.ErrNoSpace):
		return errorReply(StatusNoSpace, MsgNoSpace)
	case errors.Is(err, disk.ErrNoIdentifiers):
		return errorReply(StatusNoIdentifiers, MsgNoIdentifiers)
	case errors.Is(err, content.ErrCannotCreate), errors.Is(err, content.ErrInvalidContentID):
		logger.Warn("STORE %s: %v", name, err)
		return errorReply(StatusStoreError, MsgCannotCreate(name))
	default:
		logger.Warn("STORE %s: %v", name, err)
		return errorReply(StatusStoreError, MsgCannotWrite(name))
	}
}

func handleRead(ctx context.Context, h *Handler, cmd *Command, _ io.Reader) (reply, error) {
	name := cmd.Args[0]
	offset := parseNonNegative(cmd.Args[1])
	length := parseNonNegative(cmd.Args[2])
	if offset < 0 || length < 0 {
		return errorReply(StatusUsage, MsgReadRange), nil
	}

	res, err := h.disk.Read(ctx, name, offset, length)
	switch {
	case err == nil:
		r := okReply(ReadHeader(res.Size))
		r.body = res.Data
		return r, nil
	case errors.Is(err, disk.ErrNoSuchFile):
		return errorReply(StatusNoSuchFile, MsgNoSuchFile), nil
	case errors.Is(err, disk.ErrInvalidRange):
		return errorReply(StatusInvalidRange, MsgInvalidRange), nil
	default:
		logger.Warn("READ %s: %v", name, err)
		return errorReply(StatusStoreError, MsgCannotRead(name)), nil
	}
}

func handleDelete(ctx context.Context, h *Handler, cmd *Command, _ io.Reader) (reply, error) {
	name := cmd.Args[0]

	if _, err := h.disk.Delete(ctx, name); err != nil {
		if !errors.Is(err, disk.ErrNoSuchFile) {
			logger.Warn("DELETE %s: %v", name, err)
		}
		return errorReply(StatusNoSuchFile, MsgNoSuchFile), nil
	}

	return okReply(ACK), nil
}

func handleDir(ctx context.Context, h *Handler, _ *Command, _ io.Reader) (reply, error) {
	names := h.disk.List(ctx)
	r := okReply(DirListing(names))
	r.summary = fmt.Sprintf("Directory (%d files)", len(names))
	return r, nil
}
