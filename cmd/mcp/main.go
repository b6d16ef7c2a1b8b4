package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"

	inodelib "github.com/AnishMulay/inodestore/clients/library"
	grpccomm "github.com/AnishMulay/inodestore/internal/communication/grpc"
	"github.com/AnishMulay/inodestore/internal/log_service/zaplog"
)

type MCPConfig struct {
	Servers []struct {
		ID      string `yaml:"id"`
		Address string `yaml:"address"`
	} `yaml:"servers"`
	DefaultServer string `yaml:"default_server"`
}

// ServerRegistry resolves tool calls to a client for one node.
type ServerRegistry struct {
	Servers       map[string]*inodelib.InodeClient
	DefaultServer string
}

func (r *ServerRegistry) client(id string) (*inodelib.InodeClient, error) {
	if id == "" {
		id = r.DefaultServer
	}
	c, ok := r.Servers[id]
	if !ok {
		return nil, fmt.Errorf("server %s not found", id)
	}
	return c, nil
}

// LoadConfig reads path, writing a single-node default there when it is missing.
func LoadConfig(path string) (*MCPConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := &MCPConfig{DefaultServer: "node1"}
		cfg.Servers = append(cfg.Servers, struct {
			ID      string `yaml:"id"`
			Address string `yaml:"address"`
		}{ID: "node1", Address: "127.0.0.1:7070"})

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := &MCPConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

func main() {
	path := "config/mcp.yaml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the MCP protocol
	comm := grpccomm.NewGRPCCommunicator("", zaplog.NewNop())
	defer comm.Stop()

	registry := &ServerRegistry{Servers: make(map[string]*inodelib.InodeClient), DefaultServer: cfg.DefaultServer}
	for _, srv := range cfg.Servers {
		registry.Servers[srv.ID] = inodelib.NewInodeClient(srv.Address, comm)
	}

	s := server.NewMCPServer(
		"inodestore",
		"1.0.0",
		server.WithToolCapabilities(false),
	)
	addTools(s, registry)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
	}
}
