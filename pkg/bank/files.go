package bank

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/james-see/zplanebank/pkg/ingest"
)

// EncodeFile reads a preset list and writes the encoded container to outputPath.
// An empty bankName falls back to the name in the preset file.
func EncodeFile(inputPath, outputPath, bankName string, opts ...Option) (*EncodeResult, error) {
	presets, fileBank, err := ingest.LoadPresets(inputPath)
	if err != nil {
		return nil, err
	}
	if bankName == "" {
		bankName = fileBank
	}

	result, err := Encode(presets, bankName, opts...)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(outputPath, result.Data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write bank file: %w", err)
	}
	return result, nil
}

// DecodeFile decodes a container file and writes its artifacts into outputDir.
// No files are written when decoding fails.
func DecodeFile(inputPath, outputDir string, opts ...Option) (*Artifacts, []string, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read bank file: %w", err)
	}

	artifacts, err := Decode(data, opts...)
	if err != nil {
		return nil, nil, err
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	written, err := WriteArtifacts(outputDir, base, artifacts)
	return artifacts, written, err
}

// WriteArtifacts saves the decompressed payload, recovered strings, each
// coefficient candidate and a JSON report under dir, returning the paths written.
// On error every file written so far is removed and no paths are returned.
func WriteArtifacts(dir, base string, a *Artifacts) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	written, err := writeArtifacts(dir, base, a)
	if err != nil {
		for _, path := range written {
			_ = os.Remove(path)
		}
		return nil, err
	}
	return written, nil
}

func writeArtifacts(dir, base string, a *Artifacts) ([]string, error) {
	var written []string
	write := func(name string, data []byte) error {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		written = append(written, path)
		return nil
	}

	if err := write(base+"_decompressed.bin", a.Decompressed); err != nil {
		return written, err
	}

	if len(a.Strings) > 0 {
		var sb strings.Builder
		for _, s := range a.Strings {
			sb.WriteString(s)
			sb.WriteByte('\n')
		}
		if err := write(base+"_strings.txt", []byte(sb.String())); err != nil {
			return written, err
		}
	}

	for _, c := range a.Coefficients {
		name := fmt.Sprintf("%s_coefficients_offset%d.csv", base, c.Offset)
		if err := write(name, FormatCoefficients(c.Values)); err != nil {
			return written, err
		}
	}

	report, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return written, fmt.Errorf("failed to encode report: %w", err)
	}
	if err := write(base+"_report.json", report); err != nil {
		return written, err
	}

	return written, nil
}

// FormatCoefficients renders one value per line with nine significant digits
func FormatCoefficients(values []float32) []byte {
	out := make([]byte, 0, len(values)*12)
	for _, v := range values {
		out = strconv.AppendFloat(out, float64(v), 'g', 9, 32)
		out = append(out, '\n')
	}
	return out
}
