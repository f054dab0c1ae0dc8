// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package logger

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogInit writes JSON lines to w and human readable lines to stdout.
func LogInit(w io.Writer, dbg bool) *zap.Logger {
	pe := zap.NewProductionEncoderConfig()
	pe.EncodeTime = zapcore.ISO8601TimeEncoder
	fileEncoder := zapcore.NewJSONEncoder(pe)
	consoleEncoder := zapcore.NewConsoleEncoder(pe)
	var level zapcore.Level
	if dbg {
		level = zap.DebugLevel
	} else {
		level = zap.InfoLevel
	}
	core := zapcore.NewTee(
		zapcore.NewCore(fileEncoder, zapcore.AddSync(w), level),
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level),
	)
	return zap.New(core)
}

// NewRotateWriter returns a log file writer that starts a new file every
// rotationTime and removes files older than maxAge. On platforms with
// symlinks, dir/name always points at the current file.
func NewRotateWriter(dir, name string, maxAge, rotationTime time.Duration) (*rotatelogs.RotateLogs, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	logFileName := filepath.Join(dir, name)
	opts := []rotatelogs.Option{
		rotatelogs.WithMaxAge(maxAge),
		rotatelogs.WithRotationTime(rotationTime),
	}
	if runtime.GOOS != "windows" {
		opts = append(opts, rotatelogs.WithLinkName(logFileName))
	}
	return rotatelogs.New(logFileName+".%Y%m%d%H%M", opts...)
}
