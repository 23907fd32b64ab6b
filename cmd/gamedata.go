package cmd

import (
	"github.com/spf13/cobra"

	"provmap/internal/config"
	"provmap/internal/errors"
	"provmap/internal/gamedata"
	"provmap/internal/logger"
)

func gameDataCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gamedata",
		Short: "Build region_data.json, cultures_list.json and loc_data.json from game tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.gameData()
		},
	}
	f := cmd.Flags()
	f.String("manifest", "", "YAML manifest listing the game tables")
	f.String("outdir", "docs", "Output directory")
	mustBind(config.BindFlags(a.v, "gamedata", f))
	return cmd
}

func (a *app) gameData() error {
	s := a.settings.GameData
	if s.Manifest == "" {
		return errors.Newf("--manifest is required").Category(errors.CategoryConfig).Build()
	}
	m, err := gamedata.LoadManifest(s.Manifest)
	if err != nil {
		return errors.New(err).Category(errors.CategoryGameData).Context("file", s.Manifest).Build()
	}

	res, err := gamedata.Build(m, logger.Module(a.log, "gamedata"))
	if err != nil {
		return err
	}
	if err := res.Write(s.OutDir); err != nil {
		return err
	}
	a.log.Info("game data written",
		"outdir", s.OutDir,
		"regions", len(res.RegionData),
		"cultures", len(res.Cultures))
	return nil
}
