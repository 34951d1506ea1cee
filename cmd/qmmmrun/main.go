/*
 * main.go, part of qmmm.
 *
 * Copyright 2026 the goChem authors.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

//qmmmrun runs QM/MM single points over the frames of an extended XYZ
//file, with the QM layers, backends and outputs given in an HCL
//configuration file.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rmera/qmmm"
)

//ExitError is an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

type cliConfig struct {
	ConfigPath string
	FramesPath string
	LogLevel   string
	LogFormat  string
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
	if err := run(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(outW, logW io.Writer, args []string) error {
	cc, exit, err := parseArgs(args, outW)
	if err != nil || exit {
		return err
	}
	logger := newLogger(cc.LogLevel, cc.LogFormat, logW)
	slog.SetDefault(logger)
	qmmm.SetLogger(logger)
	return simulate(context.Background(), cc, outW)
}

//parseArgs processes the command line. It returns true if the program
//should exit without error.
func parseArgs(args []string, output io.Writer) (*cliConfig, bool, error) {
	fs := flag.NewFlagSet("qmmmrun", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(output, `
qmmmrun - QM/MM single points over the frames of an extended XYZ file.

Usage:
  qmmmrun [options] -config run.hcl FRAMES.xyz

Options:
`)
		fs.PrintDefaults()
	}
	cfg := fs.String("config", "qmmm.hcl", "Path to the HCL run configuration.")
	logFormat := fs.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevel := fs.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return nil, true, nil
	}
	cc := &cliConfig{ConfigPath: *cfg, FramesPath: fs.Arg(0), LogFormat: strings.ToLower(*logFormat), LogLevel: strings.ToLower(*logLevel)}
	if cc.LogFormat != "text" && cc.LogFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	switch cc.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	return cc, false, nil
}

//newLogger returns a logger with the given level and format, writing
//to outW. It does not set the global logger.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}
