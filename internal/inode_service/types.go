package inode_service

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// MaxInodes is the fixed size of the inode table.
	MaxInodes = 1000

	// SlotCount is the number of block pointers per inode: DirectSlots direct ones,
	// then single, double and triple indirect.
	SlotCount   = 8
	DirectSlots = 5

	DefaultPermissions = "rwxrwxrwx"
)

type InodeType int

const (
	TypeRegular InodeType = iota
	TypeDirectory
	TypeSymlink
)

// Tag is the ls-style type character.
func (t InodeType) Tag() string {
	switch t {
	case TypeDirectory:
		return "d"
	case TypeSymlink:
		return "l"
	default:
		return "-"
	}
}

func (t InodeType) String() string {
	switch t {
	case TypeDirectory:
		return "directory"
	case TypeSymlink:
		return "symlink"
	default:
		return "regular"
	}
}

func (t InodeType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *InodeType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "regular":
		*t = TypeRegular
	case "directory":
		*t = TypeDirectory
	case "symlink":
		*t = TypeSymlink
	default:
		return fmt.Errorf("unknown inode type %q", string(text))
	}
	return nil
}

// BlockSlot is one block pointer of an inode. The zero value is unassigned.
type BlockSlot struct {
	block    int
	assigned bool
}

func Unassigned() BlockSlot {
	return BlockSlot{}
}

func Assigned(block int) BlockSlot {
	return BlockSlot{block: block, assigned: true}
}

// Block returns the referenced block index and whether the slot is assigned.
func (s BlockSlot) Block() (int, bool) {
	return s.block, s.assigned
}

func (s BlockSlot) IsAssigned() bool {
	return s.assigned
}

func (s BlockSlot) String() string {
	if !s.assigned {
		return "-"
	}
	return fmt.Sprintf("%d", s.block)
}

// MarshalJSON encodes an unassigned slot as null.
func (s BlockSlot) MarshalJSON() ([]byte, error) {
	if !s.assigned {
		return []byte("null"), nil
	}
	return json.Marshal(s.block)
}

func (s *BlockSlot) UnmarshalJSON(data []byte) error {
	var block *int
	if err := json.Unmarshal(data, &block); err != nil {
		return err
	}
	if block == nil {
		*s = Unassigned()
		return nil
	}
	*s = Assigned(*block)
	return nil
}

// Inode is a fixed-size file record. Size zero marks the record as free.
type Inode struct {
	Slot int    `json:"slot"`
	Name string `json:"name,omitempty"`

	// CreationDate is YYYYMMDD and CreationTime is HHMMSS; zero when not recorded.
	CreationDate int `json:"creationDate"`
	CreationTime int `json:"creationTime"`

	Size        int       `json:"size"`
	Permissions string    `json:"permissions"`
	LinkCount   int       `json:"linkCount"`
	Type        InodeType `json:"type"`

	Blocks [SlotCount]BlockSlot `json:"blocks"`
}

func (i Inode) InUse() bool {
	return i.Size > 0
}

// DirectBlocks lists the assigned direct slots in slot order.
func (i Inode) DirectBlocks() []int {
	blocks := make([]int, 0, DirectSlots)
	for _, slot := range i.Blocks[:DirectSlots] {
		if b, ok := slot.Block(); ok {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// CreatedAt rebuilds the creation timestamp, or the zero time when unset.
func (i Inode) CreatedAt() time.Time {
	if i.CreationDate == 0 {
		return time.Time{}
	}
	return time.Date(
		i.CreationDate/10000, time.Month(i.CreationDate/100%100), i.CreationDate%100,
		i.CreationTime/10000, i.CreationTime/100%100, i.CreationTime%100,
		0, time.Local,
	)
}

func dateStamp(t time.Time) (int, int) {
	return t.Year()*10000 + int(t.Month())*100 + t.Day(),
		t.Hour()*10000 + t.Minute()*100 + t.Second()
}

// Stamp records t as the creation date and time. A zero t leaves both unset.
func (i *Inode) Stamp(t time.Time) {
	if t.IsZero() {
		i.CreationDate, i.CreationTime = 0, 0
		return
	}
	i.CreationDate, i.CreationTime = dateStamp(t)
}

// FreeInode returns the record every table slot starts as.
func FreeInode(slot int) Inode {
	return Inode{
		Slot:        slot,
		Permissions: DefaultPermissions,
		Type:        TypeRegular,
	}
}
