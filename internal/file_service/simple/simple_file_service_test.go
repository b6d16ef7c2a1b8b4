package simple

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	bs "github.com/AnishMulay/inodestore/internal/block_service"
	blockmem "github.com/AnishMulay/inodestore/internal/block_service/inmemory"
	fsvc "github.com/AnishMulay/inodestore/internal/file_service"
	is "github.com/AnishMulay/inodestore/internal/inode_service"
	inodemem "github.com/AnishMulay/inodestore/internal/inode_service/inmemory"
	"github.com/AnishMulay/inodestore/internal/log_service/zaplog"
)

func newFileService(t *testing.T, capacity int, bopts bs.Options, opts fsvc.Options) *SimpleFileService {
	t.Helper()
	ls := zaplog.NewNop()
	fs := NewSimpleFileService(
		blockmem.NewInMemoryBlockService(ls, bopts),
		inodemem.NewInMemoryInodeService(ls),
		ls,
		opts,
	)
	if err := fs.Initialize(capacity); err != nil {
		t.Fatalf("Initialize(%d) error = %v", capacity, err)
	}
	return fs
}

func TestSimpleFileService_CreateFile(t *testing.T) {
	tests := []struct {
		name       string
		capacity   int
		opts       fsvc.Options
		setupFn    func(*SimpleFileService)
		size       int
		wantErr    error
		wantSlot   int
		wantBlocks []int
	}{
		{
			name:       "small file gets one block from the stack top",
			capacity:   10,
			size:       7,
			wantBlocks: []int{9},
		},
		{
			name:       "exact multiple of block size",
			capacity:   10,
			size:       30,
			wantBlocks: []int{9, 8, 7},
		},
		{
			name:       "six blocks needed, capped at five direct slots",
			capacity:   10,
			size:       55,
			wantBlocks: []int{9, 8, 7, 6, 5},
		},
		{
			name:       "whole disk is accepted but only five blocks are backed",
			capacity:   10,
			size:       100,
			wantBlocks: []int{9, 8, 7, 6, 5},
		},
		{
			name:     "size exceeds disk",
			capacity: 10,
			size:     1001,
			wantErr:  fsvc.ErrSizeExceedsDisk,
		},
		{
			name:     "one byte over the disk",
			capacity: 10,
			size:     101,
			wantErr:  fsvc.ErrSizeExceedsDisk,
		},
		{
			name:     "zero bytes cannot be represented",
			capacity: 10,
			size:     0,
			wantErr:  fsvc.ErrInvalidSize,
		},
		{
			name:     "negative size",
			capacity: 10,
			size:     -4,
			wantErr:  fsvc.ErrInvalidSize,
		},
		{
			name:     "oversized rejected when asked to",
			capacity: 10,
			opts:     fsvc.Options{RejectOversized: true},
			size:     51,
			wantErr:  fsvc.ErrFileTooLarge,
		},
		{
			name:       "five blocks still fit when rejecting oversized",
			capacity:   10,
			opts:       fsvc.Options{RejectOversized: true},
			size:       50,
			wantBlocks: []int{9, 8, 7, 6, 5},
		},
		{
			name:     "second file takes the next inode slot",
			capacity: 10,
			setupFn: func(fs *SimpleFileService) {
				_, _ = fs.CreateFile("first", 10)
			},
			size:       20,
			wantSlot:   1,
			wantBlocks: []int{8, 7},
		},
		{
			name:     "disk exhausted mid-way leaves the file partially backed",
			capacity: 3,
			size:     30,
			setupFn: func(fs *SimpleFileService) {
				_, _ = fs.AllocateBlock()
			},
			wantBlocks: []int{1, 0},
		},
		{
			name:     "disk exhausted mid-way rolls back when asked to",
			capacity: 3,
			opts:     fsvc.Options{RollbackOnExhaustion: true},
			size:     30,
			setupFn: func(fs *SimpleFileService) {
				_, _ = fs.AllocateBlock()
			},
			wantErr: bs.ErrNoFreeBlocks,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFileService(t, tt.capacity, bs.Options{}, tt.opts)
			if tt.setupFn != nil {
				tt.setupFn(fs)
			}

			slot, err := fs.CreateFile("file", tt.size)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateFile() error = %v, want %v", err, tt.wantErr)
				return
			}
			if tt.wantErr != nil {
				return
			}

			if slot != tt.wantSlot {
				t.Errorf("CreateFile() slot = %v, want %v", slot, tt.wantSlot)
			}

			inode, err := fs.Inode(slot)
			if err != nil {
				t.Fatalf("Inode() error = %v", err)
			}
			if inode.Size != tt.size {
				t.Errorf("CreateFile() inode.Size = %v, want %v", inode.Size, tt.size)
			}
			if inode.LinkCount != 1 || inode.Type != is.TypeRegular {
				t.Errorf("CreateFile() inode = %+v, want link count 1 and regular type", inode)
			}

			blocks, err := fs.BlocksOccupiedBy(slot)
			if err != nil {
				t.Fatalf("BlocksOccupiedBy() error = %v", err)
			}
			if !reflect.DeepEqual(blocks, tt.wantBlocks) {
				t.Errorf("BlocksOccupiedBy() = %v, want %v", blocks, tt.wantBlocks)
			}
		})
	}
}

func TestSimpleFileService_RollbackRestoresState(t *testing.T) {
	fs := newFileService(t, 4, bs.Options{}, fsvc.Options{RollbackOnExhaustion: true})
	_, _ = fs.AllocateBlock()
	_, _ = fs.AllocateBlock()

	before := fs.ListBlockStates()
	if _, err := fs.CreateFile("big", 40); !errors.Is(err, bs.ErrNoFreeBlocks) {
		t.Fatalf("CreateFile() error = %v, want %v", err, bs.ErrNoFreeBlocks)
	}

	if after := fs.ListBlockStates(); !reflect.DeepEqual(before, after) {
		t.Errorf("rollback changed block states: before %v, after %v", before, after)
	}
	if fs.Stats().InodesInUse != 0 {
		t.Errorf("rollback left an inode in use")
	}

	// the stack order is restored too
	for _, want := range []int{1, 0} {
		got, err := fs.AllocateBlock()
		if err != nil || got != want {
			t.Errorf("AllocateBlock() = %v, %v; want %v", got, err, want)
		}
	}
}

func TestSimpleFileService_ExhaustInodes(t *testing.T) {
	fs := newFileService(t, is.MaxInodes, bs.Options{}, fsvc.Options{})

	for i := 0; i < is.MaxInodes; i++ {
		slot, err := fs.CreateFile("f", 1)
		if err != nil {
			t.Fatalf("CreateFile() #%d error = %v", i, err)
		}
		if slot != i {
			t.Fatalf("CreateFile() #%d slot = %v, want %v", i, slot, i)
		}
	}

	if _, err := fs.CreateFile("one-too-many", 1); !errors.Is(err, is.ErrNoFreeInodes) {
		t.Errorf("CreateFile() error = %v, want %v", err, is.ErrNoFreeInodes)
	}
}

func TestSimpleFileService_DeleteFile(t *testing.T) {
	fs := newFileService(t, 10, bs.Options{}, fsvc.Options{})

	slot, err := fs.CreateFile("a", 55)
	if err != nil {
		t.Fatalf("CreateFile() error = %v", err)
	}
	if free := fs.LargestCreatableFileBlocks(); free != 5 {
		t.Fatalf("free blocks after create = %v, want 5", free)
	}

	if err := fs.DeleteFile(slot); err != nil {
		t.Fatalf("DeleteFile() error = %v", err)
	}
	if free := fs.LargestCreatableFileBlocks(); free != 10 {
		t.Errorf("free blocks after delete = %v, want 10", free)
	}

	// blocks went back in slot order, so the last slot's block is on top
	var got []int
	for i := 0; i < 5; i++ {
		b, err := fs.AllocateBlock()
		if err != nil {
			t.Fatalf("AllocateBlock() error = %v", err)
		}
		got = append(got, b)
	}
	if want := []int{5, 6, 7, 8, 9}; !reflect.DeepEqual(got, want) {
		t.Errorf("allocation order after delete = %v, want %v", got, want)
	}

	if _, err := fs.Inode(slot); !errors.Is(err, is.ErrInvalidInode) {
		t.Errorf("Inode() after delete error = %v, want %v", err, is.ErrInvalidInode)
	}
}

func TestSimpleFileService_DeleteInvalid(t *testing.T) {
	tests := []struct {
		name   string
		handle int
	}{
		{name: "negative slot", handle: -1},
		{name: "slot past the table", handle: is.MaxInodes},
		{name: "free slot", handle: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFileService(t, 10, bs.Options{}, fsvc.Options{})
			if err := fs.DeleteFile(tt.handle); !errors.Is(err, is.ErrInvalidInode) {
				t.Errorf("DeleteFile(%d) error = %v, want %v", tt.handle, err, is.ErrInvalidInode)
			}
			if _, err := fs.BlocksOccupiedBy(tt.handle); !errors.Is(err, is.ErrInvalidInode) {
				t.Errorf("BlocksOccupiedBy(%d) error = %v, want %v", tt.handle, err, is.ErrInvalidInode)
			}
		})
	}

	fs := newFileService(t, 10, bs.Options{}, fsvc.Options{})
	slot, _ := fs.CreateFile("a", 5)
	_ = fs.DeleteFile(slot)
	if err := fs.DeleteFile(slot); !errors.Is(err, is.ErrInvalidInode) {
		t.Errorf("DeleteFile() twice error = %v, want %v", err, is.ErrInvalidInode)
	}
}

func TestSimpleFileService_MarkDefectiveOnLiveFile(t *testing.T) {
	fs := newFileService(t, 10, bs.Options{}, fsvc.Options{})
	slot, _ := fs.CreateFile("a", 25)
	blocks, _ := fs.BlocksOccupiedBy(slot)
	victim := blocks[1]

	if err := fs.MarkDefective(victim); err != nil {
		t.Fatalf("MarkDefective() error = %v", err)
	}

	if state := fs.ListBlockStates()[victim].State; state != bs.StateDefective {
		t.Errorf("block %d state = %v, want defective", victim, state)
	}
	after, _ := fs.BlocksOccupiedBy(slot)
	if !reflect.DeepEqual(after, blocks) {
		t.Errorf("BlocksOccupiedBy() = %v, want %v unchanged", after, blocks)
	}

	report := fs.IntegrityReport()
	if len(report) != 1 || report[0].Intact || !reflect.DeepEqual(report[0].DefectiveBlocks, []int{victim}) {
		t.Errorf("IntegrityReport() = %+v, want one corrupted file with block %d", report, victim)
	}

	// deleting the file does not resurrect the defective block
	_ = fs.DeleteFile(slot)
	if state := fs.ListBlockStates()[victim].State; state != bs.StateDefective {
		t.Errorf("block %d state after delete = %v, want defective", victim, state)
	}
	if free := fs.LargestCreatableFileBlocks(); free != 9 {
		t.Errorf("free blocks = %v, want 9", free)
	}
}

func TestSimpleFileService_MarkDefectiveStrict(t *testing.T) {
	fs := newFileService(t, 10, bs.Options{StrictDefective: true}, fsvc.Options{})
	slot, _ := fs.CreateFile("a", 15)
	blocks, _ := fs.BlocksOccupiedBy(slot)

	if err := fs.MarkDefective(blocks[0]); !errors.Is(err, bs.ErrBlockInUse) {
		t.Errorf("MarkDefective() error = %v, want %v", err, bs.ErrBlockInUse)
	}
	if err := fs.MarkDefective(0); err != nil {
		t.Errorf("MarkDefective() free block error = %v", err)
	}
	if err := fs.MarkDefective(10); !errors.Is(err, bs.ErrInvalidBlockIndex) {
		t.Errorf("MarkDefective() out of range error = %v, want %v", err, bs.ErrInvalidBlockIndex)
	}
}

func TestSimpleFileService_LargestFileReports(t *testing.T) {
	tests := []struct {
		name        string
		capacity    int
		allocate    int
		wantLegacy  int
		wantCorrect int
	}{
		{name: "plenty free", capacity: 20, allocate: 0, wantLegacy: 20, wantCorrect: 5},
		{name: "six free", capacity: 10, allocate: 4, wantLegacy: 6, wantCorrect: 5},
		{name: "exactly five", capacity: 10, allocate: 5, wantLegacy: 5, wantCorrect: 5},
		{name: "three free", capacity: 10, allocate: 7, wantLegacy: 3, wantCorrect: 3},
		{name: "nothing free", capacity: 2, allocate: 2, wantLegacy: 0, wantCorrect: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFileService(t, tt.capacity, bs.Options{}, fsvc.Options{})
			for i := 0; i < tt.allocate; i++ {
				_, _ = fs.AllocateBlock()
			}

			if got := fs.LargestCreatableFileBlocks(); got != tt.wantLegacy {
				t.Errorf("LargestCreatableFileBlocks() = %v, want %v", got, tt.wantLegacy)
			}
			if got := fs.MaxAddressableBlocks(); got != tt.wantCorrect {
				t.Errorf("MaxAddressableBlocks() = %v, want %v", got, tt.wantCorrect)
			}
		})
	}
}

func TestSimpleFileService_LongestFreeRun(t *testing.T) {
	fs := newFileService(t, 10, bs.Options{}, fsvc.Options{})
	_ = fs.MarkDefective(2)
	_ = fs.MarkDefective(7)

	if got, want := fs.LongestFreeRun(), (fsvc.FreeRun{Start: 3, Length: 4}); got != want {
		t.Errorf("LongestFreeRun() = %+v, want %+v", got, want)
	}
}

func TestSimpleFileService_ReleaseBlockAndLostBlocks(t *testing.T) {
	fs := newFileService(t, 10, bs.Options{}, fsvc.Options{})

	manual, _ := fs.AllocateBlock()
	slot, _ := fs.CreateFile("a", 20)
	owned, _ := fs.BlocksOccupiedBy(slot)
	_ = fs.MarkDefective(0)

	lost := fs.LostBlocks()
	if !reflect.DeepEqual(lost.Blocks, []int{manual}) || lost.LostBytes != bs.BlockSize || lost.DefectiveBlocks != 1 {
		t.Errorf("LostBlocks() = %+v, want block %d lost and one defective", lost, manual)
	}

	if err := fs.ReleaseBlock(owned[0]); !errors.Is(err, bs.ErrBlockInUse) {
		t.Errorf("ReleaseBlock() owned error = %v, want %v", err, bs.ErrBlockInUse)
	}
	if err := fs.ReleaseBlock(42); !errors.Is(err, bs.ErrInvalidBlockIndex) {
		t.Errorf("ReleaseBlock() out of range error = %v, want %v", err, bs.ErrInvalidBlockIndex)
	}
	if err := fs.ReleaseBlock(manual); err != nil {
		t.Fatalf("ReleaseBlock() error = %v", err)
	}
	if got := fs.LostBlocks(); len(got.Blocks) != 0 {
		t.Errorf("LostBlocks() after release = %v, want none", got.Blocks)
	}
	if next, _ := fs.AllocateBlock(); next != manual {
		t.Errorf("AllocateBlock() = %v, want released block %v", next, manual)
	}
}

func TestSimpleFileService_IntegrityUnbacked(t *testing.T) {
	fs := newFileService(t, 10, bs.Options{}, fsvc.Options{})
	_, _ = fs.CreateFile("ok", 12)
	_, _ = fs.CreateFile("big", 77)

	report := fs.IntegrityReport()
	if len(report) != 2 {
		t.Fatalf("IntegrityReport() len = %v, want 2", len(report))
	}
	if !report[0].Intact || report[0].BackedBytes != 12 {
		t.Errorf("IntegrityReport()[0] = %+v, want intact with 12 backed bytes", report[0])
	}
	if report[1].Intact || report[1].BackedBytes != 50 {
		t.Errorf("IntegrityReport()[1] = %+v, want not intact with 50 backed bytes", report[1])
	}
}

func TestSimpleFileService_CreationTime(t *testing.T) {
	fixed := time.Date(2025, time.January, 2, 3, 4, 5, 0, time.Local)

	fs := newFileService(t, 10, bs.Options{}, fsvc.Options{RecordCreationTime: true})
	fs.now = func() time.Time { return fixed }
	slot, _ := fs.CreateFile("dated", 5)
	inode, _ := fs.Inode(slot)
	if inode.CreationDate != 20250102 || inode.CreationTime != 30405 {
		t.Errorf("creation = %v %v, want 20250102 030405", inode.CreationDate, inode.CreationTime)
	}

	legacy := newFileService(t, 10, bs.Options{}, fsvc.Options{})
	slot, _ = legacy.CreateFile("undated", 5)
	inode, _ = legacy.Inode(slot)
	if inode.CreationDate != 0 || inode.CreationTime != 0 {
		t.Errorf("creation = %v %v, want unset", inode.CreationDate, inode.CreationTime)
	}
}

func TestSimpleFileService_InitializeResetsEverything(t *testing.T) {
	fs := newFileService(t, 10, bs.Options{}, fsvc.Options{})
	_, _ = fs.CreateFile("a", 30)
	_ = fs.MarkDefective(0)

	if err := fs.Initialize(4); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	stats := fs.Stats()
	want := fsvc.Stats{
		Capacity:       4,
		FreeBlocks:     4,
		InodeCapacity:  is.MaxInodes,
		BlockSizeBytes: bs.BlockSize,
	}
	if stats != want {
		t.Errorf("Stats() = %+v, want %+v", stats, want)
	}
	if len(fs.ListFiles()) != 0 {
		t.Errorf("ListFiles() after Initialize = %v, want empty", fs.ListFiles())
	}

	if err := fs.Initialize(0); !errors.Is(err, bs.ErrInvalidCapacity) {
		t.Errorf("Initialize(0) error = %v, want %v", err, bs.ErrInvalidCapacity)
	}
}

func TestSimpleFileService_ListFiles(t *testing.T) {
	fs := newFileService(t, 10, bs.Options{}, fsvc.Options{})
	_, _ = fs.CreateFile("a", 10)
	b, _ := fs.CreateFile("b", 20)
	_, _ = fs.CreateFile("c", 5)
	_ = fs.DeleteFile(b)

	files := fs.ListFiles()
	if len(files) != 2 || files[0].Name != "a" || files[1].Name != "c" {
		t.Fatalf("ListFiles() = %+v, want a and c", files)
	}
	if !reflect.DeepEqual(files[1].Blocks, []int{6}) {
		t.Errorf("ListFiles()[1].Blocks = %v, want [6]", files[1].Blocks)
	}
}

func TestBeforeInitialize(t *testing.T) {
	ls := zaplog.NewNop()
	fs := NewSimpleFileService(blockmem.NewInMemoryBlockService(ls, bs.Options{}), inodemem.NewInMemoryInodeService(ls), ls, fsvc.Options{})

	if _, err := fs.CreateFile("a", 1); !errors.Is(err, fsvc.ErrSizeExceedsDisk) {
		t.Errorf("CreateFile() error = %v, want %v", err, fsvc.ErrSizeExceedsDisk)
	}
	if _, err := fs.AllocateBlock(); !errors.Is(err, bs.ErrNoFreeBlocks) {
		t.Errorf("AllocateBlock() error = %v, want %v", err, bs.ErrNoFreeBlocks)
	}
	if err := fs.MarkDefective(0); !errors.Is(err, bs.ErrInvalidBlockIndex) {
		t.Errorf("MarkDefective() error = %v, want %v", err, bs.ErrInvalidBlockIndex)
	}
}

func TestSimpleFileService_RollbackLogsInodeFailure(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	ls := zaplog.NewZapLogService(zap.New(core), "")
	fs := NewSimpleFileService(
		blockmem.NewInMemoryBlockService(ls, bs.Options{}),
		inodemem.NewInMemoryInodeService(ls),
		ls,
		fsvc.Options{RollbackOnExhaustion: true},
	)
	if err := fs.Initialize(4); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	// slot 7 was never occupied, so freeing it fails
	fs.rollback(7, nil)

	entries := logs.FilterMessage("Failed to free inode during rollback").All()
	if len(entries) != 1 {
		t.Fatalf("rollback error logs = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["slot"]; got != int64(7) {
		t.Errorf("logged slot = %v, want 7", got)
	}
}
