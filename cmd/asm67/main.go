package main

import (
	goflag "flag"
	"fmt"
	"os"
	"strings"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/kjellc/asm67/pkg/asm"
)

func main() {
	var output string
	var listPath string
	var publicsPath string
	var format string
	var mirror bool
	var noList bool

	rootCmd := &cobra.Command{
		Use:          "asm67 [flags] <input.asm>",
		Short:        "Two-bank assembler for the HP-67/97 Woodstock CPU",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			base := output
			if base == "" {
				base = strings.TrimSuffix(args[0], ".asm")
			}
			if listPath == "" {
				listPath = base + ".lst"
			}
			return assemble(args[0], base, listPath, publicsPath, format, mirror, noList)
		},
	}
	rootCmd.Flags().StringVarP(&output, "output", "o", "", "output base name (default: input without .asm)")
	rootCmd.Flags().StringVarP(&listPath, "list", "l", "", "listing file (default: <base>.lst)")
	rootCmd.Flags().BoolVar(&noList, "no-list", false, "suppress the listing file")
	rootCmd.Flags().StringVar(&publicsPath, "publics", "", "write public symbols to this file")
	rootCmd.Flags().StringVarP(&format, "format", "f", "bin", "ROM output format: bin, rom, header")
	rootCmd.Flags().BoolVar(&mirror, "mirror", false, "mirror bank 0 into the empty bank 1 regions")
	rootCmd.Flags().AddGoFlagSet(goflag.CommandLine)

	defer glog.Flush()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func assemble(input, base, listPath, publicsPath, format string, mirror, noList bool) error {
	src, err := os.Open(input)
	if err != nil {
		return err
	}
	defer src.Close()

	opt := asm.Options{}

	if !noList {
		lst, err := os.Create(listPath)
		if err != nil {
			return err
		}
		defer lst.Close()
		opt.Listing = lst
	}
	if publicsPath != "" {
		pub, err := os.Create(publicsPath)
		if err != nil {
			return err
		}
		defer pub.Close()
		opt.Publics = pub
	}

	a, err := asm.New(src, opt)
	if err != nil {
		return err
	}
	img, err := a.Assemble()
	if err != nil {
		return err
	}

	if mirror {
		if err := img.Mirror(); err != nil {
			return err
		}
	}

	switch format {
	case "bin":
		for bank := 0; bank < 2; bank++ {
			path := fmt.Sprintf("%s.bank%d.bin", base, bank)
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			if err := img.WriteBank(f, bank); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			glog.V(1).Infof("wrote %s", path)
		}
	case "rom":
		f, err := os.Create(base + ".rom")
		if err != nil {
			return err
		}
		defer f.Close()
		if err := img.WriteROMText(f); err != nil {
			return err
		}
	case "header":
		f, err := os.Create(base + ".h")
		if err != nil {
			return err
		}
		defer f.Close()
		if err := img.WriteCHeader(f); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q: use bin, rom, or header", format)
	}
	return nil
}
