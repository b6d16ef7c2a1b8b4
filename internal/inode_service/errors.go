package inode_service

import "errors"

var (
	ErrNoFreeInodes    = errors.New("no free inodes available")
	ErrInvalidInode    = errors.New("invalid inode or file already deleted")
	ErrInvalidPosition = errors.New("invalid block slot position")
)
