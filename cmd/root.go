/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"log/slog"
	"os"

	"github.com/roadmetrics/surveyd/params"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var optVerbose bool
var optDatadir string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "surveyd",
	Short: "Road-survey sensor-fusion engine",
	Long: `surveyd turns recorded GPS and accelerometer streams into cumulative
distance, photo-capture triggers, and per-segment road roughness (IRI).`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	pFlags := rootCmd.PersistentFlags()
	pFlags.BoolVarP(&optVerbose, "verbose", "v", false, "Debug logging")
	pFlags.StringVar(&optDatadir, "datadir", params.DatadirRoot, "Data directory (state db)")

	if err := viper.BindPFlag("datadir", pFlags.Lookup("datadir")); err != nil {
		panic(err)
	}
	viper.SetEnvPrefix("SURVEYD")
	viper.AutomaticEnv()
}

func setDefaultSlog(cmd *cobra.Command, args []string) {
	level := slog.LevelInfo
	if optVerbose {
		level = slog.LevelDebug
	}
	slog.SetLogLoggerLevel(level)
}
