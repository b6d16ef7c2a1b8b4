package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	inodelib "github.com/AnishMulay/inodestore/clients/library"
)

type toolCall func(ctx context.Context, c *inodelib.InodeClient, request mcp.CallToolRequest) (any, error)

func serverOption() mcp.ToolOption {
	return mcp.WithString("server", mcp.Description("Server id; the default server when empty"))
}

func addTools(s *server.MCPServer, registry *ServerRegistry) {
	s.AddTool(mcp.NewTool("list_servers",
		mcp.WithDescription("List all configured inode store nodes"),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := "Available servers:\n"
		for id, c := range registry.Servers {
			result += fmt.Sprintf("- %s: %s\n", id, c.ServerAddr)
		}
		result += fmt.Sprintf("Default server: %s\n", registry.DefaultServer)
		return mcp.NewToolResultText(result), nil
	})

	s.AddTool(mcp.NewTool("init_disk",
		mcp.WithDescription("Reset the disk to a number of free blocks and free every inode"),
		mcp.WithNumber("capacity", mcp.Required(), mcp.Description("Disk size in blocks")),
		serverOption(),
	), handle(registry, func(ctx context.Context, c *inodelib.InodeClient, request mcp.CallToolRequest) (any, error) {
		capacity, err := request.RequireInt("capacity")
		if err != nil {
			return nil, err
		}
		return nil, c.Initialize(ctx, capacity)
	}))

	s.AddTool(mcp.NewTool("create_file",
		mcp.WithDescription("Create a file of the given size in bytes"),
		mcp.WithString("name", mcp.Required(), mcp.Description("File name")),
		mcp.WithNumber("size", mcp.Required(), mcp.Description("File size in bytes")),
		serverOption(),
	), handle(registry, func(ctx context.Context, c *inodelib.InodeClient, request mcp.CallToolRequest) (any, error) {
		name, err := request.RequireString("name")
		if err != nil {
			return nil, err
		}
		size, err := request.RequireInt("size")
		if err != nil {
			return nil, err
		}
		slot, err := c.CreateFile(ctx, name, size)
		return map[string]int{"slot": slot}, err
	}))

	s.AddTool(mcp.NewTool("delete_file",
		mcp.WithDescription("Delete the file at an inode and release its blocks"),
		mcp.WithNumber("inode", mcp.Required(), mcp.Description("Inode slot")),
		serverOption(),
	), handle(registry, func(ctx context.Context, c *inodelib.InodeClient, request mcp.CallToolRequest) (any, error) {
		slot, err := request.RequireInt("inode")
		if err != nil {
			return nil, err
		}
		return nil, c.DeleteFile(ctx, slot)
	}))

	s.AddTool(mcp.NewTool("allocate_block",
		mcp.WithDescription("Take one block off the free stack"),
		serverOption(),
	), handle(registry, func(ctx context.Context, c *inodelib.InodeClient, _ mcp.CallToolRequest) (any, error) {
		block, err := c.AllocateBlock(ctx)
		return map[string]int{"block": block}, err
	}))

	s.AddTool(mcp.NewTool("release_block",
		mcp.WithDescription("Return a block no file references to the free stack"),
		mcp.WithNumber("block", mcp.Required(), mcp.Description("Block index")),
		serverOption(),
	), handle(registry, func(ctx context.Context, c *inodelib.InodeClient, request mcp.CallToolRequest) (any, error) {
		block, err := request.RequireInt("block")
		if err != nil {
			return nil, err
		}
		return nil, c.ReleaseBlock(ctx, block)
	}))

	s.AddTool(mcp.NewTool("mark_defective",
		mcp.WithDescription("Mark a block defective"),
		mcp.WithNumber("block", mcp.Required(), mcp.Description("Block index")),
		serverOption(),
	), handle(registry, func(ctx context.Context, c *inodelib.InodeClient, request mcp.CallToolRequest) (any, error) {
		block, err := request.RequireInt("block")
		if err != nil {
			return nil, err
		}
		return nil, c.MarkDefective(ctx, block)
	}))

	s.AddTool(mcp.NewTool("blocks_of",
		mcp.WithDescription("List the blocks occupied by a file"),
		mcp.WithNumber("inode", mcp.Required(), mcp.Description("Inode slot")),
		serverOption(),
	), handle(registry, func(ctx context.Context, c *inodelib.InodeClient, request mcp.CallToolRequest) (any, error) {
		slot, err := request.RequireInt("inode")
		if err != nil {
			return nil, err
		}
		return c.BlocksOccupiedBy(ctx, slot)
	}))

	s.AddTool(mcp.NewTool("get_inode",
		mcp.WithDescription("Show one inode record"),
		mcp.WithNumber("inode", mcp.Required(), mcp.Description("Inode slot")),
		serverOption(),
	), handle(registry, func(ctx context.Context, c *inodelib.InodeClient, request mcp.CallToolRequest) (any, error) {
		slot, err := request.RequireInt("inode")
		if err != nil {
			return nil, err
		}
		return c.Inode(ctx, slot)
	}))

	reports := []struct {
		name, description string
		call              func(context.Context, *inodelib.InodeClient) (any, error)
	}{
		{"list_blocks", "List every block with its state", func(ctx context.Context, c *inodelib.InodeClient) (any, error) { return c.ListBlockStates(ctx) }},
		{"list_files", "List allocated files", func(ctx context.Context, c *inodelib.InodeClient) (any, error) { return c.ListFiles(ctx) }},
		{"largest_file", "Size in blocks of the largest file that can be created", func(ctx context.Context, c *inodelib.InodeClient) (any, error) { return c.LargestFile(ctx) }},
		{"integrity_report", "Intact and corrupted files", func(ctx context.Context, c *inodelib.InodeClient) (any, error) { return c.IntegrityReport(ctx) }},
		{"lost_blocks", "Lost blocks and lost space", func(ctx context.Context, c *inodelib.InodeClient) (any, error) { return c.LostBlocks(ctx) }},
		{"stats", "Disk and inode table counters", func(ctx context.Context, c *inodelib.InodeClient) (any, error) { return c.Stats(ctx) }},
	}
	for _, r := range reports {
		call := r.call
		s.AddTool(mcp.NewTool(r.name,
			mcp.WithDescription(r.description),
			serverOption(),
		), handle(registry, func(ctx context.Context, c *inodelib.InodeClient, _ mcp.CallToolRequest) (any, error) {
			return call(ctx, c)
		}))
	}
}

// handle resolves the target node, runs fn and renders its result as JSON text.
// Failures are tool errors, not protocol errors.
func handle(registry *ServerRegistry, fn toolCall) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		serverID, _ := request.RequireString("server")
		c, err := registry.client(serverID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		result, err := fn(ctx, c, request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if result == nil {
			return mcp.NewToolResultText("OK"), nil
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}
