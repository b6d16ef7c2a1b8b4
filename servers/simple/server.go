package simple

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	bs "github.com/AnishMulay/inodestore/internal/block_service"
	blockmem "github.com/AnishMulay/inodestore/internal/block_service/inmemory"
	grpccomm "github.com/AnishMulay/inodestore/internal/communication/grpc"
	"github.com/AnishMulay/inodestore/internal/config"
	fsvc "github.com/AnishMulay/inodestore/internal/file_service"
	fsimple "github.com/AnishMulay/inodestore/internal/file_service/simple"
	inodemem "github.com/AnishMulay/inodestore/internal/inode_service/inmemory"
	"github.com/AnishMulay/inodestore/internal/log_service"
	"github.com/AnishMulay/inodestore/internal/log_service/localdisc"
	"github.com/AnishMulay/inodestore/internal/log_service/zaplog"
	ssimple "github.com/AnishMulay/inodestore/internal/server/simple"
)

// Node is a single inode store process serving one simulated disk.
type Node struct {
	cfg      *config.Config
	ls       log_service.LogService
	closeLog func() error
	fs       fsvc.FileService
	comm     *grpccomm.GRPCCommunicator
	server   *ssimple.SimpleServer
}

// NewLogService builds the logger selected by cfg.LogOutput. The returned
// function flushes and releases it.
func NewLogService(cfg *config.Config) (log_service.LogService, func() error, error) {
	switch strings.ToLower(cfg.LogOutput) {
	case config.LogOutputFile:
		ls, err := localdisc.NewLocalDiscLogService(cfg.LogDir(), cfg.NodeID, cfg.LogLevel)
		if err != nil {
			return nil, nil, err
		}
		return ls, ls.Close, nil
	default:
		ls, err := zaplog.NewConsole(cfg.NodeID, cfg.LogLevel)
		if err != nil {
			return nil, nil, err
		}
		return ls, func() error {
			// stderr sync fails on some terminals
			_ = ls.Sync()
			return nil
		}, nil
	}
}

// NewFileService wires the in-memory block store and inode table into an
// initialized file service of cfg.Capacity blocks.
func NewFileService(cfg *config.Config, ls log_service.LogService) (fsvc.FileService, error) {
	blocks := blockmem.NewInMemoryBlockService(ls, bs.Options{StrictDefective: cfg.StrictDefective})
	inodes := inodemem.NewInMemoryInodeService(ls)
	fs := fsimple.NewSimpleFileService(blocks, inodes, ls, fsvc.Options{
		RollbackOnExhaustion: cfg.RollbackOnExhaustion,
		RejectOversized:      cfg.RejectOversized,
		RecordCreationTime:   cfg.RecordCreationTime,
	})
	if err := fs.Initialize(cfg.Capacity); err != nil {
		return nil, fmt.Errorf("initializing disk: %w", err)
	}
	return fs, nil
}

func Build(cfg *config.Config) (*Node, error) {
	ls, closeLog, err := NewLogService(cfg)
	if err != nil {
		return nil, fmt.Errorf("building log service: %w", err)
	}

	fs, err := NewFileService(cfg, ls)
	if err != nil {
		_ = closeLog()
		return nil, err
	}

	comm := grpccomm.NewGRPCCommunicator(cfg.ListenAddr, ls)
	srv := ssimple.NewSimpleServer(comm, fs, ls)

	return &Node{
		cfg:      cfg,
		ls:       ls,
		closeLog: closeLog,
		fs:       fs,
		comm:     comm,
		server:   srv,
	}, nil
}

func (n *Node) Start() error {
	n.ls.Info(log_service.LogEvent{
		Message: "Node starting",
		Metadata: map[string]any{
			"capacity":        n.cfg.Capacity,
			"strictDefective": n.cfg.StrictDefective,
			"rollback":        n.cfg.RollbackOnExhaustion,
		},
	})
	return n.server.Start()
}

func (n *Node) Stop() error {
	err := n.server.Stop()
	if closeErr := n.closeLog(); err == nil {
		err = closeErr
	}
	return err
}

// Run starts the node and blocks until SIGINT or SIGTERM.
func (n *Node) Run() error {
	if err := n.Start(); err != nil {
		return err
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	return n.Stop()
}

// Address is the bound listen address, valid after Start.
func (n *Node) Address() string {
	return n.comm.Address()
}

func (n *Node) FileService() fsvc.FileService {
	return n.fs
}
