package cdp

import (
	"fmt"
	"strconv"
	"strings"
)

// ACK is the bare success status line.
const ACK = "ACK\n"

// Error messages, sent as "ERROR: <message>\n".
const (
	MsgFileExists      = "FILE EXISTS"
	MsgNoSpace         = "NOT ENOUGH MEMORY AVAILABLE"
	MsgNoIdentifiers   = "NO IDENTIFIERS AVAILABLE"
	MsgNoSuchFile      = "NO SUCH FILE"
	MsgInvalidRange    = "INVALID BYTE RANGE"
	MsgUnknownCommand  = "First argument must be STORE, READ, DELETE, or DIR"
	MsgStoreUsage      = "STORE command must be in the form 'STORE <filename> <bytes>'"
	MsgStoreBytes      = "The <bytes> argument must be a positive integer"
	MsgReadUsage       = "READ command must be in the form 'READ <filename> <byte_offset> <length>'"
	MsgReadRange       = "Byte-offset and length need to be positive integers"
	MsgDeleteUsage     = "DELETE command must be in the form 'DELETE <filename>'"
	MsgDirUsage        = "DIR command must be in the form 'DIR'"
	msgCannotCreateFmt = "COULD NOT CREATE FILE '%s'"
	msgCannotWriteFmt  = "COULD NOT WRITE TO FILE '%s'"
	msgCannotReadFmt   = "COULD NOT READ FROM FILE '%s'"
)

// MsgCannotCreate is the message for a store that could not create name.
func MsgCannotCreate(name string) string { return fmt.Sprintf(msgCannotCreateFmt, name) }

// MsgCannotWrite is the message for a store that could not write name.
func MsgCannotWrite(name string) string { return fmt.Sprintf(msgCannotWriteFmt, name) }

// MsgCannotRead is the message for a store that could not read name.
func MsgCannotRead(name string) string { return fmt.Sprintf(msgCannotReadFmt, name) }

// ErrorLine formats msg as an error status line.
func ErrorLine(msg string) string {
	return "ERROR: " + msg + "\n"
}

// ReadHeader is the status line preceding READ data.
func ReadHeader(size int64) string {
	return "ACK " + strconv.FormatInt(size, 10) + "\n"
}

// DirListing encodes the DIR response: the count, then one name per line.
func DirListing(names []string) string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(len(names)))
	sb.WriteByte('\n')
	for _, name := range names {
		sb.WriteString(name)
		sb.WriteByte('\n')
	}
	return sb.String()
}
