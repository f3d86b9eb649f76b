// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	wantHeader  bool
	wantObjects bool
	wantEntries bool
	wantImports bool
	wantNames   bool
	wantAll     bool
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "legacyexe",
		Short: "A legacy PC executable container parser",
		Long:  "Decodes MZ, NE, LE, and LX executable containers, built for reverse-engineering and format-conversion pipelines by Saferwall",
	}

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("You are using version 0.1.0")
		},
	}

	var dumpCmd = &cobra.Command{
		Use:   "dump <file or directory>...",
		Short: "Dumps the decoded container structure",
		Long:  "Dumps the MZ/NE/LE/LX container structure of one or more files",
		Args:  cobra.MinimumNArgs(1),
		// Every structural error is already reported on stderr as it's
		// found (§6); cobra's own "Error: ..." trailer and usage dump
		// would just be noise on top of that.
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          runDump,
	}
	dumpCmd.Flags().BoolVarP(&wantHeader, "header", "", false, "Dump the container header")
	dumpCmd.Flags().BoolVarP(&wantObjects, "objects", "", false, "Dump the segment/object table")
	dumpCmd.Flags().BoolVarP(&wantEntries, "entries", "", false, "Dump the entry table")
	dumpCmd.Flags().BoolVarP(&wantNames, "names", "", false, "Dump resident/non-resident name tables")
	dumpCmd.Flags().BoolVarP(&wantAll, "all", "", false, "Dump everything")

	var importsCmd = &cobra.Command{
		Use:           "imports <file>...",
		Short:         "Dumps resolved import tuples",
		Args:          cobra.MinimumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          runImports,
	}

	rootCmd.AddCommand(versionCmd, dumpCmd, importsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
