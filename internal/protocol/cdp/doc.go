// Package cdp implements the clustered disk protocol: newline-terminated
// ASCII instructions, each answered with one ASCII status line, optionally
// followed by raw bytes (READ) or a listing (DIR).
//
// Instructions:
//
//	STORE <name> <bytes>\n<payload>   -> ACK\n
//	READ <name> <offset> <length>\n   -> ACK <size>\n<length bytes>
//	DELETE <name>\n                   -> ACK\n
//	DIR\n                             -> <count>\n<name>\n...
//
// Every failure is a single "ERROR: <message>\n" line.
package cdp
