package inmemory

import (
	"errors"
	"reflect"
	"testing"
	"time"

	is "github.com/AnishMulay/inodestore/internal/inode_service"
	"github.com/AnishMulay/inodestore/internal/log_service/zaplog"
)

func newTable() *InMemoryInodeService {
	return NewInMemoryInodeService(zaplog.NewNop())
}

func TestInMemoryInodeService_FindFreeSlot(t *testing.T) {
	tests := []struct {
		name     string
		setupFn  func(*InMemoryInodeService)
		wantSlot int
		wantErr  error
	}{
		{
			name:     "empty table yields slot zero",
			wantSlot: 0,
		},
		{
			name: "lowest free slot wins",
			setupFn: func(s *InMemoryInodeService) {
				for i := 0; i < 4; i++ {
					_ = s.Occupy(i, "f", 10, time.Time{})
				}
				_ = s.Release(1, func(int) error { return nil })
			},
			wantSlot: 1,
		},
		{
			name: "full table",
			setupFn: func(s *InMemoryInodeService) {
				for i := 0; i < is.MaxInodes; i++ {
					_ = s.Occupy(i, "f", 1, time.Time{})
				}
			},
			wantErr: is.ErrNoFreeInodes,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTable()
			if tt.setupFn != nil {
				tt.setupFn(s)
			}

			slot, err := s.FindFreeSlot()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("FindFreeSlot() error = %v, want %v", err, tt.wantErr)
				return
			}
			if tt.wantErr == nil && slot != tt.wantSlot {
				t.Errorf("FindFreeSlot() = %v, want %v", slot, tt.wantSlot)
			}
		})
	}
}

func TestInMemoryInodeService_Occupy(t *testing.T) {
	s := newTable()
	created := time.Date(2024, time.March, 9, 14, 5, 30, 0, time.Local)

	if err := s.Occupy(3, "notes.txt", 55, created); err != nil {
		t.Fatalf("Occupy() error = %v", err)
	}

	inode, err := s.Get(3)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if inode.Size != 55 {
		t.Errorf("Occupy() size = %v, want %v", inode.Size, 55)
	}
	if inode.LinkCount != 1 {
		t.Errorf("Occupy() linkCount = %v, want 1", inode.LinkCount)
	}
	if inode.Type != is.TypeRegular {
		t.Errorf("Occupy() type = %v, want regular", inode.Type)
	}
	if inode.Permissions != is.DefaultPermissions {
		t.Errorf("Occupy() permissions = %v, want %v", inode.Permissions, is.DefaultPermissions)
	}
	if inode.CreationDate != 20240309 || inode.CreationTime != 140530 {
		t.Errorf("Occupy() creation = %v %v, want 20240309 140530", inode.CreationDate, inode.CreationTime)
	}
	if !inode.CreatedAt().Equal(created) {
		t.Errorf("CreatedAt() = %v, want %v", inode.CreatedAt(), created)
	}

	if err := s.Occupy(3, "again", 10, time.Time{}); !errors.Is(err, is.ErrInvalidInode) {
		t.Errorf("Occupy() on used slot error = %v, want %v", err, is.ErrInvalidInode)
	}
	if err := s.Occupy(4, "empty", 0, time.Time{}); !errors.Is(err, is.ErrInvalidInode) {
		t.Errorf("Occupy() with zero size error = %v, want %v", err, is.ErrInvalidInode)
	}
	if err := s.Occupy(is.MaxInodes, "out", 1, time.Time{}); !errors.Is(err, is.ErrInvalidInode) {
		t.Errorf("Occupy() out of range error = %v, want %v", err, is.ErrInvalidInode)
	}

	_ = s.Occupy(0, "plain", 1, time.Time{})
	unstamped, _ := s.Get(0)
	if unstamped.CreationDate != 0 || unstamped.CreationTime != 0 {
		t.Errorf("Occupy() without time stamped %v %v", unstamped.CreationDate, unstamped.CreationTime)
	}
}

func TestInMemoryInodeService_BlocksOf(t *testing.T) {
	s := newTable()
	_ = s.Occupy(0, "a", 40, time.Time{})
	_ = s.AssignBlock(0, 0, 9)
	_ = s.AssignBlock(0, 1, 8)
	_ = s.AssignBlock(0, 3, 6)
	// indirect slots are never reported
	_ = s.AssignBlock(0, 5, 2)

	blocks, err := s.BlocksOf(0)
	if err != nil {
		t.Fatalf("BlocksOf() error = %v", err)
	}
	if want := []int{9, 8, 6}; !reflect.DeepEqual(blocks, want) {
		t.Errorf("BlocksOf() = %v, want %v", blocks, want)
	}

	if _, err := s.BlocksOf(1); !errors.Is(err, is.ErrInvalidInode) {
		t.Errorf("BlocksOf() free slot error = %v, want %v", err, is.ErrInvalidInode)
	}
	if _, err := s.BlocksOf(-1); !errors.Is(err, is.ErrInvalidInode) {
		t.Errorf("BlocksOf() negative slot error = %v, want %v", err, is.ErrInvalidInode)
	}
	if err := s.AssignBlock(0, is.SlotCount, 1); !errors.Is(err, is.ErrInvalidPosition) {
		t.Errorf("AssignBlock() bad position error = %v, want %v", err, is.ErrInvalidPosition)
	}
}

func TestInMemoryInodeService_Release(t *testing.T) {
	s := newTable()
	_ = s.Occupy(2, "a", 30, time.Time{})
	_ = s.AssignBlock(2, 0, 4)
	_ = s.AssignBlock(2, 1, 3)
	_ = s.AssignBlock(2, 2, 1)

	var released []int
	err := s.Release(2, func(block int) error {
		released = append(released, block)
		return nil
	})
	if err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if want := []int{4, 3, 1}; !reflect.DeepEqual(released, want) {
		t.Errorf("Release() released %v, want %v in slot order", released, want)
	}

	inode, _ := s.Get(2)
	if inode.InUse() {
		t.Errorf("Release() left inode in use with size %v", inode.Size)
	}
	for i, slot := range inode.Blocks {
		if slot.IsAssigned() {
			t.Errorf("Release() left slot %d assigned", i)
		}
	}

	if err := s.Release(2, func(int) error { return nil }); !errors.Is(err, is.ErrInvalidInode) {
		t.Errorf("Release() twice error = %v, want %v", err, is.ErrInvalidInode)
	}
}

func TestInMemoryInodeService_ReleaseReportsBlockErrors(t *testing.T) {
	s := newTable()
	_ = s.Occupy(0, "a", 20, time.Time{})
	_ = s.AssignBlock(0, 0, 1)
	_ = s.AssignBlock(0, 1, 2)

	boom := errors.New("boom")
	err := s.Release(0, func(block int) error {
		if block == 1 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("Release() error = %v, want %v", err, boom)
	}
	if inode, _ := s.Get(0); inode.InUse() {
		t.Errorf("Release() should free the record even when a block fails")
	}
}

func TestInMemoryInodeService_ListAndReset(t *testing.T) {
	s := newTable()
	_ = s.Occupy(5, "b", 10, time.Time{})
	_ = s.Occupy(1, "a", 10, time.Time{})

	list := s.List()
	if len(list) != 2 || list[0].Slot != 1 || list[1].Slot != 5 {
		t.Errorf("List() = %+v, want slots 1 and 5 in order", list)
	}
	if s.InUseCount() != 2 {
		t.Errorf("InUseCount() = %v, want 2", s.InUseCount())
	}

	s.Reset()
	if s.InUseCount() != 0 {
		t.Errorf("Reset() left %v inodes in use", s.InUseCount())
	}
}
