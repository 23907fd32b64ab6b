package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"provmap/internal/config"
	"provmap/internal/emit"
	"provmap/internal/errors"
)

func verifyCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that provinces.svg and provinces.json describe the same regions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.verify(cmd)
		},
	}
	f := cmd.Flags()
	f.String("outdir", "docs", "Directory holding provinces.svg and provinces.json")
	mustBind(config.BindFlags(a.v, "verify", f))
	return cmd
}

func (a *app) verify(cmd *cobra.Command) error {
	dir := a.settings.Verify.OutDir
	read := func(name string) ([]byte, error) {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, errors.New(err).Category(errors.CategoryInput).Context("file", name).Build()
		}
		return data, nil
	}
	svgData, err := read(emit.SVGFile)
	if err != nil {
		return err
	}
	jsonData, err := read(emit.JSONFile)
	if err != nil {
		return err
	}

	rep, err := emit.Verify(svgData, jsonData)
	if err != nil {
		return errors.New(err).Category(errors.CategoryInput).Context("dir", dir).Build()
	}
	fmt.Fprintln(cmd.OutOrStdout(), rep.String())
	if !rep.OK() {
		return errors.Newf("outputs are inconsistent: %s", rep).Category(errors.CategoryOutput).Context("dir", dir).Build()
	}
	return nil
}
