/*
Copyright © 2024 the SeisMap authors.
This file is part of SeisMap.

SeisMap is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

SeisMap is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with SeisMap.  If not, see <http://www.gnu.org/licenses/>.
*/

package seismaputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/seismodel/seismap"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

// Log is the logger used for progress reporting.
var Log logrus.FieldLogger = logrus.StandardLogger()

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to SeisMap.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Verbose",
			usage: `
              Verbose turns on debug-level logging.`,
			shorthand:  "v",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "InputFile",
			usage: `
              InputFile is the path to the forecast to be read. It can be a local
              file or an http:// or https:// URL, and it can include environment
              variables.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{remapCmd.Flags(), coarsenCmd.Flags(), describeCmd.Flags()},
		},
		{
			name: "InputFormat",
			usage: `
              InputFormat chooses the format of the input file. Valid options are
              "gridded" for the space-separated text format, "csv" for quadtree
              CSV, "nc" for NetCDF, "gob" for a saved forecast snapshot, and
              "auto" to choose based on the file extension.`,
			defaultVal: "auto",
			flagsets:   []*pflag.FlagSet{remapCmd.Flags(), coarsenCmd.Flags(), describeCmd.Flags()},
		},
		{
			name: "InputGrid",
			usage: `
              InputGrid, when reading the gridded text format, specifies the grid
              the file is on in the form "global:<dh>". Text formats round cell
              bounds, so naming the grid rebuilds it exactly instead of from the
              rounded bounds. Leave it empty to build the grid from the bounds in
              the file.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{remapCmd.Flags(), coarsenCmd.Flags(), describeCmd.Flags()},
		},
		{
			name: "TargetGrid",
			usage: `
              TargetGrid specifies the grid the forecast should be transferred to.
              It accepts "global:<dh>", "regular:<nx>:<ny>:<dx>:<dy>:<x0>:<y0>",
              "level:<L>" for a full quadtree level, or the path of a forecast
              file whose grid should be used.`,
			defaultVal: "global:0.1",
			flagsets:   []*pflag.FlagSet{remapCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path where the result should be written. The file
              extension chooses the format: ".gob", ".nc", ".csv", ".geojson", or
              the gridded text format for anything else. It can include
              environment variables.`,
			defaultVal: "seismap_output.dat",
			flagsets:   []*pflag.FlagSet{remapCmd.Flags(), coarsenCmd.Flags()},
		},
		{
			name: "NProcs",
			usage: `
              NProcs is the number of parallel workers to use when remapping.
              Values below 1 use all available processors. The result does not
              depend on the number of workers.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{remapCmd.Flags()},
		},
		{
			name: "CacheDir",
			usage: `
              CacheDir is a directory where remapping results should be cached on
              disk so repeated runs can be served without recomputing. Leave it
              empty to cache in memory only.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{remapCmd.Flags()},
		},
		{
			name: "MaxCacheEntries",
			usage: `
              MaxCacheEntries is the number of remapping results to hold in the
              in-memory cache.`,
			defaultVal: 10,
			flagsets:   []*pflag.FlagSet{remapCmd.Flags()},
		},
		{
			name: "Horizon",
			usage: `
              Horizon is a forecast horizon in years. Forecasts issued as rates
              per year are scaled by it before remapping, giving expected event
              counts for the horizon. Zero leaves the rates unscaled.`,
			defaultVal: 0.,
			flagsets:   []*pflag.FlagSet{remapCmd.Flags()},
		},
		{
			name: "Factor",
			usage: `
              Factor is the number of cells to merge in each direction when
              coarsening a regular grid, so Factor=2 merges each 2x2 block of
              cells into one.`,
			defaultVal: 2,
			flagsets:   []*pflag.FlagSet{coarsenCmd.Flags()},
		},
		{
			name: "GridSpec",
			usage: `
              GridSpec specifies the grid to create, in the same forms accepted
              by TargetGrid.`,
			defaultVal: "global:1",
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "OutputDir",
			usage: `
              OutputDir is the directory where the grid shapefile should be
              written.`,
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("SEISMAP")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case []int:
				if option.shorthand == "" {
					set.IntSlice(option.name, option.defaultVal.([]int), option.usage)
				} else {
					set.IntSliceP(option.name, option.shorthand, option.defaultVal.([]int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := b.String()
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(remapCmd)
	Root.AddCommand(gridCmd)
	Root.AddCommand(coarsenCmd)
	Root.AddCommand(describeCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("seismap: problem reading configuration file: %v", err)
		}
	}
	if Cfg.GetBool("Verbose") {
		logrus.SetLevel(logrus.DebugLevel)
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "seismap",
	Short: "Transfer gridded earthquake forecasts between grids.",
	Long: `SeisMap transfers gridded earthquake forecasts between spatial
partitions of the globe, conserving the total expected earthquake rate
in every magnitude bin. Use the subcommands specified below to access
the functionality.

Refer to the subcommand documentation for configuration options and default
settings. Configuration can be changed by using a configuration file (and
providing the path to the file using the --config flag), by using command-line
arguments, or by setting environment variables in the format 'SEISMAP_var'
where 'var' is the name of the variable to be set. Refer to
https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of SeisMap.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("SeisMap v%s\n", seismap.Version)
	},
	DisableAutoGenTag: true,
}

// remapCmd is a command that transfers a forecast onto another grid.
var remapCmd = &cobra.Command{
	Use:   "remap",
	Short: "Transfer a forecast onto another grid.",
	Long: `remap reads the forecast specified by InputFile, transfers its rates
onto the grid specified by TargetGrid, and writes the result to OutputFile.
Rates from source cells contained in a target cell are summed exactly;
rates from source cells straddling target cells are split in proportion
to overlap area.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		source, err := ReadForecastFile(ctx, os.ExpandEnv(Cfg.GetString("InputFile")),
			Cfg.GetString("InputFormat"), Cfg.GetString("InputGrid"))
		if err != nil {
			return err
		}
		if horizon := Cfg.GetFloat64("Horizon"); horizon > 0 {
			Log.WithFields(logrus.Fields{
				"horizon": horizon,
			}).Info("scaling rates to forecast horizon")
			source = source.Scale(horizon)
		}
		target, err := ParseGridSpec(ctx, os.ExpandEnv(Cfg.GetString("TargetGrid")))
		if err != nil {
			return err
		}
		r := &seismap.Remapper{
			Workers:         Cfg.GetInt("NProcs"),
			CacheLoc:        os.ExpandEnv(Cfg.GetString("CacheDir")),
			MaxCacheEntries: Cfg.GetInt("MaxCacheEntries"),
		}
		Log.WithFields(logrus.Fields{
			"forecast":    source.Name,
			"sourceCells": source.Grid.Len(),
			"targetGrid":  target.Name,
			"targetCells": target.Len(),
		}).Info("remapping forecast")
		out, err := r.Remap(ctx, source, target)
		if err != nil {
			return err
		}
		Log.WithFields(logrus.Fields{
			"totalRate": out.TotalRate(),
			"output":    outputFile,
		}).Info("writing result")
		return WriteForecastFile(out, outputFile)
	},
	DisableAutoGenTag: true,
}

// gridCmd is a command that creates a grid and saves its cell
// geometry.
var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Create a grid and save it as a shapefile",
	Long: `grid creates the grid specified by GridSpec and writes its cell
geometry to a shapefile in OutputDir for inspection in GIS programs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := ParseGridSpec(context.Background(), os.ExpandEnv(Cfg.GetString("GridSpec")))
		if err != nil {
			return err
		}
		Log.WithFields(logrus.Fields{
			"grid":  g.Name,
			"cells": g.Len(),
		}).Info("writing grid shapefile")
		return g.WriteShapefile(os.ExpandEnv(Cfg.GetString("OutputDir")))
	},
	DisableAutoGenTag: true,
}

// coarsenCmd is a command that aggregates a forecast to a coarser
// grid.
var coarsenCmd = &cobra.Command{
	Use:   "coarsen",
	Short: "Aggregate a forecast to a coarser grid.",
	Long: `coarsen reads the forecast specified by InputFile, which must be on a
regular grid, sums each Factor x Factor block of cells into one cell, and
writes the result to OutputFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		f, err := ReadForecastFile(context.Background(), os.ExpandEnv(Cfg.GetString("InputFile")),
			Cfg.GetString("InputFormat"), Cfg.GetString("InputGrid"))
		if err != nil {
			return err
		}
		out, err := f.Coarsen(Cfg.GetInt("Factor"))
		if err != nil {
			return err
		}
		Log.WithFields(logrus.Fields{
			"forecast": f.Name,
			"from":     f.Grid.Len(),
			"to":       out.Grid.Len(),
		}).Info("coarsened forecast")
		return WriteForecastFile(out, outputFile)
	},
	DisableAutoGenTag: true,
}

// describeCmd is a command that summarizes a forecast.
var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Summarize a forecast.",
	Long: `describe reads the forecast specified by InputFile and prints a
summary of its grid, magnitude bins, and rates.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := ReadForecastFile(context.Background(), os.ExpandEnv(Cfg.GetString("InputFile")),
			Cfg.GetString("InputFormat"), Cfg.GetString("InputGrid"))
		if err != nil {
			return err
		}
		b := f.Grid.Bounds()
		cmd.Printf("name:       %s\n", f.Name)
		cmd.Printf("grid:       %s\n", f.Grid.Name)
		cmd.Printf("cells:      %d\n", f.Grid.Len())
		cmd.Printf("extent:     (%g, %g) to (%g, %g)\n", b.Min.X, b.Min.Y, b.Max.X, b.Max.Y)
		cmd.Printf("area:       %g km2\n", f.Grid.TotalArea())
		cmd.Printf("bins:       %d (M%g to M%g)\n", len(f.Magnitudes),
			f.Magnitudes[0], f.Magnitudes[len(f.Magnitudes)-1])
		cmd.Printf("depths:     %g to %g km\n", f.DepthRange[0], f.DepthRange[1])
		cmd.Printf("total rate: %g\n", f.TotalRate())
		return nil
	},
	DisableAutoGenTag: true,
}
