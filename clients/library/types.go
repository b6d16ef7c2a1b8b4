package inodelib

import (
	"github.com/AnishMulay/inodestore/internal/communication"
)

// InodeClient talks to one inode store node. Every call is a single request
// and the client keeps no state of its own beyond the connection.
type InodeClient struct {
	ServerAddr string
	ClientID   string
	Comm       communication.Communicator
}
