package bank

import (
	"context"
	"log/slog"
)

// Observer receives progress events from Encode and Decode
type Observer interface {
	EncodeTruncated(supplied, capacity int)
	EncodePadded(added int)
	PayloadCompressed(raw, compressed int)
	MarkerFound(offset int)
	Decompressed(size int)
	PassCompleted(pass string, results int)
	PassFailed(pass string, reason any)
}

// NopObserver ignores every event
type NopObserver struct{}

func (NopObserver) EncodeTruncated(int, int) {}
func (NopObserver) EncodePadded(int) {}
func (NopObserver) PayloadCompressed(int, int) {}
func (NopObserver) MarkerFound(int) {}
func (NopObserver) Decompressed(int) {}
func (NopObserver) PassCompleted(string, int) {}
func (NopObserver) PassFailed(string, any) {}

// LogObserver forwards events to a structured logger
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates an observer that logs through logger
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

func (o *LogObserver) EncodeTruncated(supplied, capacity int) {
	o.logger.Warn("presets truncated to bank capacity", "supplied", supplied, "capacity", capacity)
}

func (o *LogObserver) EncodePadded(added int) {
	o.logger.Debug("bank padded with init presets", "added", added)
}

func (o *LogObserver) PayloadCompressed(raw, compressed int) {
	o.logger.Info("payload compressed", "raw", raw, "compressed", compressed)
}

func (o *LogObserver) MarkerFound(offset int) {
	o.logger.Info("compressed data located", "offset", offset)
}

func (o *LogObserver) Decompressed(size int) {
	o.logger.Info("payload decompressed", "size", size)
}

func (o *LogObserver) PassCompleted(pass string, results int) {
	level := slog.LevelInfo
	if results == 0 {
		level = slog.LevelDebug
	}
	o.logger.Log(context.Background(), level, "recovery pass complete", "pass", pass, "results", results)
}

func (o *LogObserver) PassFailed(pass string, reason any) {
	o.logger.Warn("recovery pass failed", "pass", pass, "reason", reason)
}
