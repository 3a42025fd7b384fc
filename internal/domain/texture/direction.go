package texture

import (
	"fmt"
	"strings"
)

// Direction selects which conversion job variant runs for a batch.
type Direction string

const (
	ContainerToStandard Direction = "btx2png"
	StandardToContainer Direction = "png2btx"
)

const (
	ExtBTX = ".btx"
	ExtPNG = ".png"
	ExtKTX = ".ktx"
)

// Target formats understood by the external converter.
const (
	FormatPNG = "png"
	FormatKTX = "ktx"
)

// ParseDirection maps a conversionType value to a Direction. Empty input
// falls back to btx2png.
func ParseDirection(raw string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ContainerToStandard:
		return ContainerToStandard, nil
	case StandardToContainer:
		return StandardToContainer, nil
	default:
		return "", fmt.Errorf("%w: conversion type %q", ErrUnsupportedType, raw)
	}
}

// SourceExt returns the extension expected on uploads for this direction.
func (d Direction) SourceExt() string {
	if d == StandardToContainer {
		return ExtPNG
	}
	return ExtBTX
}

// TargetExt returns the extension of produced artifacts.
func (d Direction) TargetExt() string {
	if d == StandardToContainer {
		return ExtBTX
	}
	return ExtPNG
}

// ToolFormat returns the format the external converter is asked to produce.
// For png2btx that is the KTX payload the BTX header is later added to.
func (d Direction) ToolFormat() string {
	if d == StandardToContainer {
		return FormatKTX
	}
	return FormatPNG
}

func (d Direction) String() string {
	return string(d)
}
