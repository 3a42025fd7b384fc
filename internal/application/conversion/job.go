package conversion

import (
	"context"
	"fmt"
	"io"
	"os"

	"btxconv/internal/domain/texture"
)

// convertFile runs one conversion job and returns the ID of the workspace it
// used. The workspace is removed before it returns, whatever the outcome.
func (s *Service) convertFile(ctx context.Context, batchID string, file texture.UploadedFile, dir texture.Direction) (texture.Result, string, error) {
	name, err := texture.NormalizeUploadName(file.Name)
	if err != nil {
		return texture.Result{}, "", err
	}
	if s.opts.StrictExtensions {
		if err := texture.CheckExtension(name, dir); err != nil {
			return texture.Result{}, "", err
		}
	}
	if s.opts.MaxFileBytes > 0 && file.Size > s.opts.MaxFileBytes {
		return texture.Result{}, "", fmt.Errorf("%w: %s exceeds %d bytes", texture.ErrStaging, name, s.opts.MaxFileBytes)
	}

	ws, err := s.store.NewWorkspace()
	if err != nil {
		return texture.Result{}, "", err
	}
	defer s.store.ReleaseWorkspace(ws)

	staged := ws.Path(name)
	if err := s.stage(file, staged); err != nil {
		return texture.Result{}, ws.ID, err
	}

	var result texture.Result
	switch dir {
	case texture.ContainerToStandard:
		result, err = s.containerToStandard(ctx, batchID, ws, name, staged)
	case texture.StandardToContainer:
		result, err = s.standardToContainer(ctx, batchID, ws, name, staged)
	default:
		err = fmt.Errorf("%w: conversion type %q", texture.ErrUnsupportedType, dir)
	}
	return result, ws.ID, err
}

// containerToStandard converts inside the workspace and publishes the PNG
// only once the tool has produced it. The output area is never written on
// failure.
func (s *Service) containerToStandard(ctx context.Context, batchID string, ws texture.Workspace, name, staged string) (texture.Result, error) {
	data, err := os.ReadFile(staged)
	if err != nil {
		return texture.Result{}, fmt.Errorf("%w: read staged file: %v", texture.ErrStaging, err)
	}
	inner, err := s.framer.Strip(data)
	if err != nil {
		return texture.Result{}, err
	}

	ktxPath := intermediatePath(ws, name)
	if err := os.WriteFile(ktxPath, inner, 0o644); err != nil {
		return texture.Result{}, fmt.Errorf("%w: write intermediate: %v", texture.ErrStaging, err)
	}

	outName := texture.OutputName(name, texture.ContainerToStandard)
	converted := ws.Path(outName)
	if converted == staged {
		// A .png upload must not pass for the tool's output.
		if err := os.Remove(staged); err != nil {
			return texture.Result{}, fmt.Errorf("%w: clear staged file: %v", texture.ErrStaging, err)
		}
	}
	format := texture.ContainerToStandard.ToolFormat()
	if err := s.converter.Run(ctx, s.converter.Args(ktxPath, converted, format), converted); err != nil {
		return texture.Result{}, err
	}

	rel, out, err := s.store.OutputPath(batchID, ws.ID, outName)
	if err != nil {
		return texture.Result{}, err
	}
	if err := s.store.PublishFile(converted, out); err != nil {
		return texture.Result{}, err
	}
	return s.describe(outName, rel, out)
}

func (s *Service) standardToContainer(ctx context.Context, batchID string, ws texture.Workspace, name, staged string) (texture.Result, error) {
	ktxPath := intermediatePath(ws, name)
	format := texture.StandardToContainer.ToolFormat()
	if err := s.converter.Run(ctx, s.converter.Args(staged, ktxPath, format), ktxPath); err != nil {
		return texture.Result{}, err
	}

	data, err := os.ReadFile(ktxPath)
	if err != nil {
		return texture.Result{}, fmt.Errorf("%w: read intermediate: %v", texture.ErrStaging, err)
	}

	outName := texture.OutputName(name, texture.StandardToContainer)
	rel, out, err := s.store.OutputPath(batchID, ws.ID, outName)
	if err != nil {
		return texture.Result{}, err
	}
	if err := s.store.WriteArtifact(out, s.framer.Wrap(data)); err != nil {
		return texture.Result{}, err
	}
	return s.describe(outName, rel, out)
}

func (s *Service) stage(file texture.UploadedFile, dst string) error {
	if file.Open == nil {
		return fmt.Errorf("%w: no content for %s", texture.ErrStaging, file.Name)
	}
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("%w: open upload: %v", texture.ErrStaging, err)
	}
	defer src.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: create staged file: %v", texture.ErrStaging, err)
	}
	defer out.Close()

	var reader io.Reader = src
	if s.opts.MaxFileBytes > 0 {
		reader = io.LimitReader(src, s.opts.MaxFileBytes+1)
	}
	written, err := io.Copy(out, reader)
	if err != nil {
		return fmt.Errorf("%w: copy upload: %v", texture.ErrStaging, err)
	}
	if s.opts.MaxFileBytes > 0 && written > s.opts.MaxFileBytes {
		return fmt.Errorf("%w: %s exceeds %d bytes", texture.ErrStaging, file.Name, s.opts.MaxFileBytes)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: close staged file: %v", texture.ErrStaging, err)
	}
	return nil
}

// intermediatePath names the KTX file next to the staged upload. An upload
// that already carries the .ktx name gets a distinct intermediate.
func intermediatePath(ws texture.Workspace, name string) string {
	candidate := texture.BaseName(name) + texture.ExtKTX
	if candidate == name {
		candidate = texture.BaseName(name) + ".intermediate" + texture.ExtKTX
	}
	return ws.Path(candidate)
}

func (s *Service) describe(name, rel, full string) (texture.Result, error) {
	info, err := os.Stat(full)
	if err != nil {
		return texture.Result{}, fmt.Errorf("%w: stat output: %v", texture.ErrStaging, err)
	}
	sum, err := s.store.Checksum(full)
	if err != nil {
		return texture.Result{}, fmt.Errorf("%w: %v", texture.ErrStaging, err)
	}
	return texture.Result{Name: name, Path: rel, Size: info.Size(), Checksum: sum}, nil
}
