package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	fsvc "github.com/AnishMulay/inodestore/internal/file_service"
)

// shell is the lettered menu driving one in-process file service.
type shell struct {
	fs  fsvc.FileService
	in  *bufio.Scanner
	out io.Writer
}

func newShell(fs fsvc.FileService, in io.Reader, out io.Writer) *shell {
	return &shell{fs: fs, in: bufio.NewScanner(in), out: out}
}

func (s *shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

// prompt prints label and reads one trimmed line. ok is false at end of input.
func (s *shell) prompt(label string) (string, bool) {
	s.printf("%s", label)
	if !s.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

func (s *shell) promptInt(label string) (int, bool) {
	line, ok := s.prompt(label)
	if !ok {
		return 0, false
	}
	n, err := parseDecimal(line)
	if err != nil {
		s.printf("Not a number: %q\n", line)
		return 0, false
	}
	return n, true
}

func (s *shell) run() error {
	for {
		s.printf("\n==== Inode File System ====\n")
		s.printf("A) Set disk size\n")
		s.printf("B) Take a free block\n")
		s.printf("C) Create file\n")
		s.printf("D) Mark block defective\n")
		s.printf("E) Delete file\n")
		s.printf("F) Create file anywhere\n")
		s.printf("G) Create links\n")
		s.printf("H) Reports\n")
		s.printf("S) Quit\n")
		s.printf("===========================\n")

		choice, ok := s.prompt("Choose an option: ")
		if !ok {
			return s.in.Err()
		}

		switch strings.ToUpper(choice) {
		case "A":
			if n, ok := s.promptInt("Disk size (blocks): "); ok {
				s.report(s.fs.Initialize(n), "Disk initialized with %d blocks.\n", n)
			}
		case "B":
			block, err := s.fs.AllocateBlock()
			s.report(err, "Free block taken: %d\n", block)
		case "C":
			name, ok := s.prompt("File name: ")
			if !ok {
				continue
			}
			size, ok := s.promptInt("File size (bytes): ")
			if !ok {
				continue
			}
			slot, err := s.fs.CreateFile(name, size)
			s.report(err, "File '%s' created with %d bytes at inode %d.\n", name, size, slot)
		case "D":
			if n, ok := s.promptInt("Block to mark defective: "); ok {
				s.report(s.fs.MarkDefective(n), "Block %d marked defective.\n", n)
			}
		case "E":
			if n, ok := s.promptInt("Inode to delete: "); ok {
				s.report(s.fs.DeleteFile(n), "File deleted and blocks released.\n")
			}
		case "F":
			s.printf("Creating files anywhere is not implemented.\n")
		case "G":
			s.printf("Links are not implemented.\n")
		case "H":
			if err := s.reports(); err != nil {
				return err
			}
		case "S":
			s.printf("Bye.\n")
			return nil
		default:
			s.printf("Invalid option %q.\n", choice)
		}
	}
}

func (s *shell) reports() error {
	for {
		s.printf("\n==== Reports ====\n")
		s.printf("1) Blocks occupied by a file\n")
		s.printf("2) Largest file that can be created\n")
		s.printf("3) Intact and corrupted files\n")
		s.printf("4) Lost blocks and lost space\n")
		s.printf("5) All blocks with state\n")
		s.printf("6) Allocated files\n")
		s.printf("7) Links\n")
		s.printf("8) Back\n")
		s.printf("=================\n")

		choice, ok := s.prompt("Choose a report: ")
		if !ok {
			return s.in.Err()
		}

		switch choice {
		case "1":
			n, ok := s.promptInt("Inode: ")
			if !ok {
				continue
			}
			blocks, err := s.fs.BlocksOccupiedBy(n)
			if err != nil {
				s.report(err, "")
				continue
			}
			s.printf("Blocks occupied by inode %d:\n", n)
			for _, b := range blocks {
				s.printf("Block %d\n", b)
			}
		case "2":
			run := s.fs.LongestFreeRun()
			s.printf("Largest file that can be created (free blocks): %d\n", s.fs.LargestCreatableFileBlocks())
			s.printf("Blocks a new file can address: %d\n", s.fs.MaxAddressableBlocks())
			s.printf("Longest free run: %d blocks from %d\n", run.Length, run.Start)
		case "3":
			for _, f := range s.fs.IntegrityReport() {
				status := "intact"
				if !f.Intact {
					status = "corrupted"
				}
				s.printf("[%d] %s: %s, %d/%d bytes backed, defective %v\n", f.Slot, f.Name, status, f.BackedBytes, f.Size, f.DefectiveBlocks)
			}
		case "4":
			lost := s.fs.LostBlocks()
			s.printf("Lost blocks: %v\n", lost.Blocks)
			s.printf("Lost space: %d bytes\n", lost.LostBytes)
			s.printf("Defective blocks: %d\n", lost.DefectiveBlocks)
		case "5":
			s.printf("Block states:\n")
			for _, st := range s.fs.ListBlockStates() {
				s.printf("[%d]: %s\n", st.Index, st.State.Code())
			}
		case "6":
			for _, f := range s.fs.ListFiles() {
				s.printf("[%d] %s %d bytes blocks %v\n", f.Slot, f.Name, f.Size, f.Blocks)
			}
		case "7":
			s.printf("Links are not implemented.\n")
		case "8":
			return nil
		default:
			s.printf("Invalid option %q.\n", choice)
		}
	}
}

// report prints the success line, or the error when err is non-nil.
func (s *shell) report(err error, format string, args ...any) {
	if err != nil {
		s.printf("Error: %v\n", err)
		return
	}
	s.printf(format, args...)
}
