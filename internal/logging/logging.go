// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package logging configures the command line logger.
package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mlspace/mlspace/logging"
)

// LocationField is the field name used to attach a source location to a
// diagnostic. The text formatter prints it in front of the message.
const LocationField = "location"

// GetLevel parses a log level name.
func GetLevel(level string) (logging.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logging.Debug, nil
	case "", "info":
		return logging.Info, nil
	case "warn", "warning":
		return logging.Warn, nil
	case "error":
		return logging.Error, nil
	default:
		return logging.Info, fmt.Errorf("invalid log level: %v", level)
	}
}

// GetFormatter returns the logrus formatter for a --log-format value.
func GetFormatter(format, timestampFormat string) logrus.Formatter {
	switch format {
	case "json":
		return &logrus.JSONFormatter{TimestampFormat: timestampFormat}
	case "json-pretty":
		return &logrus.JSONFormatter{PrettyPrint: true, TimestampFormat: timestampFormat}
	default:
		return &diagnosticFormatter{}
	}
}

// NewLogger returns a standard logger configured from command line values.
func NewLogger(level, format, timestampFormat string) (*logging.StandardLogger, error) {
	lvl, err := GetLevel(level)
	if err != nil {
		return nil, err
	}
	logger := logging.New()
	logger.SetFormatter(GetFormatter(format, timestampFormat))
	logger.SetLevel(lvl)
	return logger, nil
}

// diagnosticFormatter renders entries the way compilers print diagnostics:
//
//	model.mls:3:7: warning: message
//	  key = value
type diagnosticFormatter struct{}

func (*diagnosticFormatter) Format(e *logrus.Entry) ([]byte, error) {
	b := new(bytes.Buffer)

	if loc, ok := e.Data[LocationField]; ok && loc != nil {
		fmt.Fprintf(b, "%v: ", loc)
	}
	fmt.Fprintf(b, "%s: %s\n", e.Level.String(), e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		if k != LocationField {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	for _, k := range keys {
		val, err := formatField(e.Data[k])
		if err != nil {
			return nil, err
		}
		b.WriteString("  ")
		b.WriteString(k)
		if strings.Contains(val, "\n") {
			b.WriteString(" = |\n    ")
		} else {
			b.WriteString(" = ")
		}
		b.WriteString(val)
		b.WriteByte('\n')
	}
	return b.Bytes(), nil
}

// formatField keeps multi-line strings readable and JSON-encodes the rest.
func formatField(v any) (string, error) {
	if s, ok := v.(string); ok && strings.Contains(s, "\n") {
		return strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n    "), nil
	}
	if err, ok := v.(error); ok {
		v = err.Error()
	}
	bs, err := json.MarshalIndent(v, "    ", "  ")
	if err != nil {
		return "", err
	}
	return string(bs), nil
}
