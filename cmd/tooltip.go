package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"provmap/internal/config"
	"provmap/internal/errors"
	"provmap/internal/logger"
	"provmap/internal/overlay"
)

func tooltipCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tooltip <region-id>",
		Short: "Print the overlay tooltip for a region and the culture filter result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.tooltip(cmd, args[0])
		},
	}
	f := cmd.Flags()
	f.String("data-dir", "docs", "Directory holding the overlay data files")
	f.String("culture", "", "Also list the regions the culture filter highlights")
	mustBind(config.BindFlags(a.v, "tooltip", f))
	return cmd
}

func (a *app) tooltip(cmd *cobra.Command, id string) error {
	s := a.settings.Tooltip
	data := overlay.LoadData(s.DataDir, logger.Module(a.log, "overlay"))

	e, err := overlay.NewEngine(data)
	if err != nil {
		return errors.New(err).Category(errors.CategoryOverlay).Build()
	}
	html, err := e.Tooltip(cmd.Context(), id)
	if err != nil {
		return errors.New(err).Category(errors.CategoryOverlay).Context("region", id).Build()
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, html)

	if s.Culture == "" {
		return nil
	}
	ids, err := e.Highlighted(cmd.Context(), s.Culture, nil)
	if err != nil {
		return errors.New(err).Category(errors.CategoryOverlay).Context("culture", s.Culture).Build()
	}
	a.log.Info("culture filter", "culture", s.Culture, "highlighted", len(ids))
	for _, hid := range ids {
		fmt.Fprintln(out, hid)
	}
	return nil
}
