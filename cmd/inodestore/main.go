package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	inodelib "github.com/AnishMulay/inodestore/clients/library"
	grpccomm "github.com/AnishMulay/inodestore/internal/communication/grpc"
	"github.com/AnishMulay/inodestore/internal/config"
	"github.com/AnishMulay/inodestore/internal/log_service/zaplog"
	"github.com/AnishMulay/inodestore/servers/simple"
)

const requestTimeout = 10 * time.Second

func main() {
	app := cli.App{
		Name:  "inodestore",
		Usage: "a simulated inode file system over a block device",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML config file",
				EnvVars: []string{config.EnvPrefix + "_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "node address; defaults to listen_addr from the config",
			},
		},
		Commands: []*cli.Command{{
			Name:  "serve",
			Usage: "run a node serving one disk over gRPC",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "capacity", Usage: "disk size in blocks"},
			},
			Action: func(ctx *cli.Context) error {
				cfg, err := loadConfig(ctx)
				if err != nil {
					return err
				}
				if ctx.IsSet("capacity") {
					cfg.Capacity = ctx.Int("capacity")
				}
				node, err := simple.Build(cfg)
				if err != nil {
					return err
				}
				return node.Run()
			},
		}, {
			Name:  "shell",
			Usage: "interactive menu over an in-process disk",
			Action: func(ctx *cli.Context) error {
				cfg, err := loadConfig(ctx)
				if err != nil {
					return err
				}
				ls, closeLog, err := simple.NewLogService(cfg)
				if err != nil {
					return err
				}
				defer closeLog()

				fs, err := simple.NewFileService(cfg, ls)
				if err != nil {
					return err
				}
				return newShell(fs, os.Stdin, os.Stdout).run()
			},
		}, {
			Name:      "init",
			Usage:     "reset the disk to CAPACITY free blocks",
			ArgsUsage: "CAPACITY",
			Action: withClient(1, func(ctx context.Context, c *inodelib.InodeClient, args []int) (any, error) {
				return nil, c.Initialize(ctx, args[0])
			}),
		}, {
			Name:      "create",
			Usage:     "create a file of SIZE bytes",
			ArgsUsage: "NAME SIZE",
			Action: func(cctx *cli.Context) error {
				if cctx.NArg() != 2 {
					return cli.ShowSubcommandHelp(cctx)
				}
				size, err := parseDecimal(cctx.Args().Get(1))
				if err != nil {
					return fmt.Errorf("size: %w", err)
				}
				return callClient(cctx, func(ctx context.Context, c *inodelib.InodeClient) (any, error) {
					slot, err := c.CreateFile(ctx, cctx.Args().Get(0), size)
					return map[string]int{"slot": slot}, err
				})
			},
		}, {
			Name:      "delete",
			Usage:     "delete the file at INODE",
			ArgsUsage: "INODE",
			Action: withClient(1, func(ctx context.Context, c *inodelib.InodeClient, args []int) (any, error) {
				return nil, c.DeleteFile(ctx, args[0])
			}),
		}, {
			Name:  "alloc",
			Usage: "take one block off the free stack",
			Action: withClient(0, func(ctx context.Context, c *inodelib.InodeClient, _ []int) (any, error) {
				block, err := c.AllocateBlock(ctx)
				return map[string]int{"block": block}, err
			}),
		}, {
			Name:      "release",
			Usage:     "return a block no file references",
			ArgsUsage: "BLOCK",
			Action: withClient(1, func(ctx context.Context, c *inodelib.InodeClient, args []int) (any, error) {
				return nil, c.ReleaseBlock(ctx, args[0])
			}),
		}, {
			Name:      "defective",
			Usage:     "mark a block defective",
			ArgsUsage: "BLOCK",
			Action: withClient(1, func(ctx context.Context, c *inodelib.InodeClient, args []int) (any, error) {
				return nil, c.MarkDefective(ctx, args[0])
			}),
		}, {
			Name:  "report",
			Usage: "read-only reports",
			Subcommands: []*cli.Command{{
				Name:  "blocks",
				Usage: "every block with its state",
				Action: withClient(0, func(ctx context.Context, c *inodelib.InodeClient, _ []int) (any, error) {
					return c.ListBlockStates(ctx)
				}),
			}, {
				Name:      "blocks-of",
				Usage:     "blocks occupied by the file at INODE",
				ArgsUsage: "INODE",
				Action: withClient(1, func(ctx context.Context, c *inodelib.InodeClient, args []int) (any, error) {
					return c.BlocksOccupiedBy(ctx, args[0])
				}),
			}, {
				Name:      "inode",
				Usage:     "the inode record at INODE",
				ArgsUsage: "INODE",
				Action: withClient(1, func(ctx context.Context, c *inodelib.InodeClient, args []int) (any, error) {
					return c.Inode(ctx, args[0])
				}),
			}, {
				Name:  "files",
				Usage: "allocated files",
				Action: withClient(0, func(ctx context.Context, c *inodelib.InodeClient, _ []int) (any, error) {
					return c.ListFiles(ctx)
				}),
			}, {
				Name:  "largest",
				Usage: "largest file that can be created",
				Action: withClient(0, func(ctx context.Context, c *inodelib.InodeClient, _ []int) (any, error) {
					return c.LargestFile(ctx)
				}),
			}, {
				Name:  "integrity",
				Usage: "intact and corrupted files",
				Action: withClient(0, func(ctx context.Context, c *inodelib.InodeClient, _ []int) (any, error) {
					return c.IntegrityReport(ctx)
				}),
			}, {
				Name:  "lost",
				Usage: "lost blocks and lost space",
				Action: withClient(0, func(ctx context.Context, c *inodelib.InodeClient, _ []int) (any, error) {
					return c.LostBlocks(ctx)
				}),
			}, {
				Name:  "stats",
				Usage: "disk and inode table counters",
				Action: withClient(0, func(ctx context.Context, c *inodelib.InodeClient, _ []int) (any, error) {
					return c.Stats(ctx)
				}),
			}},
		}},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

type clientFunc func(ctx context.Context, c *inodelib.InodeClient) (any, error)

// withClient parses exactly nargs integer arguments before calling fn.
func withClient(nargs int, fn func(context.Context, *inodelib.InodeClient, []int) (any, error)) cli.ActionFunc {
	return func(cctx *cli.Context) error {
		if cctx.NArg() != nargs {
			return cli.ShowSubcommandHelp(cctx)
		}
		args := make([]int, nargs)
		for i := range args {
			n, err := parseDecimal(cctx.Args().Get(i))
			if err != nil {
				return fmt.Errorf("argument %d: %w", i+1, err)
			}
			args[i] = n
		}
		return callClient(cctx, func(ctx context.Context, c *inodelib.InodeClient) (any, error) {
			return fn(ctx, c, args)
		})
	}
}

// callClient dials the node, runs fn and prints its result as JSON.
func callClient(cctx *cli.Context, fn clientFunc) error {
	cfg, err := loadConfig(cctx)
	if err != nil {
		return err
	}
	addr := cctx.String("addr")
	if addr == "" {
		addr = cfg.ListenAddr
	}

	comm := grpccomm.NewGRPCCommunicator("", zaplog.NewNop())
	defer comm.Stop()

	ctx, cancel := context.WithTimeout(cctx.Context, requestTimeout)
	defer cancel()

	result, err := fn(ctx, inodelib.NewInodeClient(addr, comm))
	if err != nil {
		return err
	}
	if result == nil {
		fmt.Println("OK")
		return nil
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
