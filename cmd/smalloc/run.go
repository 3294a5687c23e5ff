package main

import (
	"fmt"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/segalloc/smalloc"
	"strconv"
	"strings"
)

type runOptions struct {
	regionSize  int
	stats       bool
	detailedMap bool
}

func newRunCmd(global *globalOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <op>...",
		Short: "Run a sequence of allocations and releases against a fresh arena",
		Long: `The run command initializes an arena, applies each operation in order and
reports the outcome of each one. Failed operations are reported and skipped.

Operations:
  alloc:N       allocate N payload bytes and print the payload offset
  free:OFFSET   release the allocation whose payload begins at OFFSET

Example:
  smalloc run alloc:100 alloc:100 free:16 alloc:40
  smalloc run alloc:100 alloc:8 free:16 --map
  smalloc run alloc:5000 --region-size 4096`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOps(cmd, global, opts, args)
		},
	}

	cmd.Flags().IntVar(&opts.regionSize, "region-size", 4096, "Requested arena size in bytes, rounded up to the page size")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "Print arena statistics as JSON when done")
	cmd.Flags().BoolVar(&opts.detailedMap, "map", false, "Print arena statistics including every segment")

	return cmd
}

type opKind int

const (
	opAlloc opKind = iota
	opFree
)

type op struct {
	kind  opKind
	value int
	text  string
}

func parseOps(args []string) ([]op, error) {
	ops := make([]op, 0, len(args))

	for _, arg := range args {
		name, value, found := strings.Cut(arg, ":")
		if !found {
			return nil, errors.Newf("operation %q is not of the form alloc:N or free:OFFSET", arg)
		}

		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, errors.Wrapf(err, "operation %q", arg)
		}

		switch name {
		case "alloc":
			ops = append(ops, op{kind: opAlloc, value: n, text: arg})
		case "free":
			ops = append(ops, op{kind: opFree, value: n, text: arg})
		default:
			return nil, errors.Newf("unknown operation %q", name)
		}
	}

	return ops, nil
}

func runOps(cmd *cobra.Command, global *globalOptions, opts *runOptions, args []string) (err error) {
	ops, err := parseOps(args)
	if err != nil {
		return err
	}

	allocator := smalloc.New(newLogger(cmd.ErrOrStderr(), global.verbose), smalloc.CreateOptions{})
	err = allocator.Init(opts.regionSize)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.CombineErrors(err, allocator.Close())
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "arena: %d bytes\n", allocator.Size())

	failures := 0
	for _, o := range ops {
		switch o.kind {
		case opAlloc:
			result, allocErr := allocator.Allocate(o.value)
			if allocErr != nil {
				failures++
				fmt.Fprintf(out, "%s: %v\n", o.text, allocErr)
				continue
			}
			fmt.Fprintf(out, "%s: offset %d, hops %d\n", o.text, result.Offset, result.Hops)
		case opFree:
			freeErr := allocator.ReleaseOffset(o.value)
			if freeErr != nil {
				failures++
				fmt.Fprintf(out, "%s: %v\n", o.text, freeErr)
				continue
			}
			fmt.Fprintf(out, "%s: ok\n", o.text)
		}
	}

	if opts.stats || opts.detailedMap {
		stats, statsErr := allocator.BuildStatsString(opts.detailedMap)
		if statsErr != nil {
			return statsErr
		}
		fmt.Fprintln(out, stats)
	}

	if failures > 0 {
		return errors.Newf("%d of %d operations failed", failures, len(ops))
	}

	return nil
}
