// Command vmmcorectl is a small operator CLI over a file-backed memory
// image (SPEC_FULL.md §2 "CLI / test tooling"), exposing open/ps/read/
// search as subcommands. Grounded on the cobra+pflag stack
// `ja7ad-consumption` uses for its own CLI surface.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vmmcore/cache"
	"vmmcore/config"
	"vmmcore/device"
	"vmmcore/handle"
	"vmmcore/logx"
	"vmmcore/mem"
	"vmmcore/mmu"
	"vmmcore/plugin"
	"vmmcore/plugin/builtin/search"
	"vmmcore/proc"
	"vmmcore/scatter"
	"vmmcore/ustr"
	"vmmcore/vmmerr"
	"vmmcore/vspace"
	"vmmcore/workpool"
)

var (
	imagePath string
	variant   string
)

func main() {
	root := &cobra.Command{
		Use:   "vmmcorectl",
		Short: "inspect a physical memory image through the vmmcore engine",
	}
	root.PersistentFlags().StringVarP(&imagePath, "image", "i", "", "path to the raw memory image")
	root.PersistentFlags().StringVar(&variant, "variant", "a", "paging variant: a (4-level), b (legacy 2-level), c (PAE 3-level)")
	root.MarkPersistentFlagRequired("image")

	root.AddCommand(openCmd(), psCmd(), readCmd(), searchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type engine struct {
	h    *handle.Handle
	sc   *scatter.Core
	mmus *mmu.MMU
}

func openEngine() (*engine, error) {
	dev, err := device.OpenFileDevice(imagePath, false)
	if err != nil {
		return nil, err
	}
	phys := cache.NewPhysCache(1024, 8)
	tlb := cache.NewTLBCache(256, 4)
	sc := scatter.New(dev, phys)

	var v mmu.Variant
	switch variant {
	case "b":
		v = mmu.VariantB
	case "c":
		v = mmu.VariantC
	default:
		v = mmu.VariantA
	}
	m := mmu.New(v, sc, tlb)

	pool := workpool.New(0)
	procs := proc.NewTable(5 * time.Minute)
	plugins := plugin.NewRegistry()
	cfg := config.New()
	log := logx.New(logrus.InfoLevel)

	h, code := handle.Initialize(dev, pool, procs, phys, tlb, plugins, cfg, log)
	if code != vmmerr.Ok {
		return nil, fmt.Errorf("initialize: %s", code)
	}
	return &engine{h: h, sc: sc, mmus: m}, nil
}

func openCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open",
		Short: "open an image and report its address-max option",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.h.Close()
			max, _ := e.h.Device.GetOption(device.OptAddrMax)
			fmt.Printf("opened %s, addr_max=0x%x\n", imagePath, max)
			return nil
		},
	}
}

func psCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ps",
		Short: "list processes currently in the process table",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.h.Close()
			for _, p := range e.h.Procs.Snapshot() {
				fmt.Printf("%8d %8d %s\n", p.Pid, p.Ppid, p.ShortName)
				p.Decref()
			}
			return nil
		},
	}
}

func readCmd() *cobra.Command {
	var dtbHex string
	var vaHex string
	var length int
	c := &cobra.Command{
		Use:   "read",
		Short: "read virtual memory from a process given its DTB",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.h.Close()

			dtb, err := parseHexArg(dtbHex)
			if err != nil {
				return err
			}
			va, err := parseHexArg(vaHex)
			if err != nil {
				return err
			}

			sp := &vspace.Space{Dtb: mem.Pa_t(dtb), MMU: e.mmus, SC: e.sc}
			buf := make([]byte, length)
			n, code := sp.Read(va, buf, true)
			if code != vmmerr.Ok {
				return fmt.Errorf("read: %s", code)
			}
			fmt.Print(hex.Dump(buf[:n]))
			return nil
		},
	}
	c.Flags().StringVar(&dtbHex, "dtb", "", "directory table base, hex")
	c.Flags().StringVar(&vaHex, "va", "", "virtual address, hex")
	c.Flags().IntVar(&length, "len", 256, "bytes to read")
	c.MarkFlagRequired("dtb")
	c.MarkFlagRequired("va")
	return c
}

func searchCmd() *cobra.Command {
	var dtbHex, patternHex string
	c := &cobra.Command{
		Use:   "search",
		Short: "synchronously scan a process's address space for a byte pattern (CLI convenience; the plugin API runs this asynchronously)",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.h.Close()

			dtb, err := parseHexArg(dtbHex)
			if err != nil {
				return err
			}

			sp := &vspace.Space{Dtb: mem.Pa_t(dtb), MMU: e.mmus, SC: e.sc}
			pool := workpool.New(1)
			sr := search.New(pool, func(pid int) (*vspace.Space, bool) { return sp, true })

			writeCtx := &plugin.Context{HasPid: true, Pid: 0, SubPath: ustr.Mk("search.txt")}
			if _, status := sr.Write(writeCtx, []byte(patternHex), 0); status != plugin.Success {
				return fmt.Errorf("search.txt write: %s", status)
			}

			statusCtx := &plugin.Context{HasPid: true, Pid: 0, SubPath: ustr.Mk("status.txt")}
			for {
				buf := make([]byte, 64)
				n, _ := sr.Read(statusCtx, buf, 0)
				line := strings.TrimSpace(string(buf[:n]))
				fmt.Println(line)
				if line != "ACTIVE" {
					break
				}
				time.Sleep(100 * time.Millisecond)
			}

			resultCtx := &plugin.Context{HasPid: true, Pid: 0, SubPath: ustr.Mk("result.txt")}
			buf := make([]byte, 1<<16)
			n, _ := sr.Read(resultCtx, buf, 0)
			fmt.Print(string(buf[:n]))
			return nil
		},
	}
	c.Flags().StringVar(&dtbHex, "dtb", "", "directory table base, hex")
	c.Flags().StringVar(&patternHex, "pattern", "", "hex pattern bytes")
	c.MarkFlagRequired("dtb")
	c.MarkFlagRequired("pattern")
	return c
}

func parseHexArg(s string) (uint64, error) {
	var v uint64
	_, err := fmt.Sscanf(s, "%x", &v)
	return v, err
}
