package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"btxconv/internal/app"
	"btxconv/internal/domain/texture"
)

type convertOutput struct {
	Summary        string          `json:"summary"`
	ConversionType string          `json:"conversion_type"`
	BatchID        string          `json:"batch_id"`
	Outputs        []convertedFile `json:"outputs"`
	Errors         []failedFile    `json:"errors"`
}

type convertedFile struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Size     int64  `json:"size_bytes"`
	Checksum string `json:"checksum"`
}

type failedFile struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var typeFlag string
	var outFlag string
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "convert FILE...",
		Short: "Convert local texture files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir, err := texture.ParseDirection(typeFlag)
			if err != nil {
				return err
			}
			if outFlag != "" {
				cfg.Storage.OutputsDir = outFlag
				cfg.Storage.IsolateOutputs = false
			}

			a, err := app.New(cfg, ctx.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			report := a.Service.Process(cmd.Context(), localFiles(args), dir)

			view := convertOutput{
				Summary:        report.Summary(),
				ConversionType: dir.String(),
				BatchID:        report.ID,
				Outputs:        make([]convertedFile, 0, len(report.Results)),
				Errors:         make([]failedFile, 0, len(report.Errors)),
			}
			for _, result := range report.Results {
				view.Outputs = append(view.Outputs, convertedFile{
					Name:     result.Name,
					Path:     filepath.Join(cfg.Storage.OutputsDir, filepath.FromSlash(result.Path)),
					Size:     result.Size,
					Checksum: result.Checksum,
				})
			}
			for _, fe := range report.Errors {
				view.Errors = append(view.Errors, failedFile{File: fe.File, Error: fe.Message})
			}

			if jsonFlag {
				if err := writeJSON(cmd, view); err != nil {
					return err
				}
			} else {
				printConvertOutput(cmd.OutOrStdout(), view)
			}

			if !report.Succeeded() {
				return errors.New(report.Summary())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&typeFlag, "type", "t", string(texture.ContainerToStandard), "Conversion type: btx2png or png2btx")
	cmd.Flags().StringVarP(&outFlag, "out", "o", "", "Write outputs directly into this directory")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the report as JSON")
	return cmd
}

func printConvertOutput(out io.Writer, view convertOutput) {
	if len(view.Outputs) > 0 {
		rows := make([][]string, 0, len(view.Outputs))
		for _, o := range view.Outputs {
			rows = append(rows, []string{o.Path, humanize.IBytes(uint64(o.Size)), shortChecksum(o.Checksum)})
		}
		fmt.Fprintln(out, renderTable([]string{"Output", "Size", "BLAKE3"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
	}
	if len(view.Errors) > 0 {
		rows := make([][]string, 0, len(view.Errors))
		for _, fe := range view.Errors {
			rows = append(rows, []string{fe.File, fe.Error})
		}
		fmt.Fprintln(out, renderTable([]string{"File", "Error"}, rows, nil))
	}
	fmt.Fprintln(out, view.Summary)
}

// localFiles adapts paths on disk to uploads. A path that cannot be opened
// still becomes an entry so it is reported as a failed file.
func localFiles(paths []string) []texture.UploadedFile {
	files := make([]texture.UploadedFile, 0, len(paths))
	for _, p := range paths {
		p := p
		var size int64
		if info, err := os.Stat(p); err == nil {
			size = info.Size()
		}
		files = append(files, texture.UploadedFile{
			Name: filepath.Base(p),
			Size: size,
			Open: func() (io.ReadCloser, error) {
				return os.Open(p)
			},
		})
	}
	return files
}

func shortChecksum(sum string) string {
	if len(sum) > 16 {
		return sum[:16]
	}
	return sum
}
