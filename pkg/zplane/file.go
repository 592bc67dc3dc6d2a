package zplane

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// ParseShapes decodes a shape definition document
func ParseShapes(data []byte) (ShapeSet, error) {
	var set ShapeSet
	if err := json.Unmarshal(data, &set); err != nil {
		return ShapeSet{}, fmt.Errorf("failed to parse shapes: %w", err)
	}
	if set.SampleRateRef <= 0 {
		return ShapeSet{}, fmt.Errorf("%w: sampleRateRef %d", ErrInvalidSampleRate, set.SampleRateRef)
	}
	return set, nil
}

// MarshalShapes encodes a shape set as indented JSON
func MarshalShapes(set ShapeSet) ([]byte, error) {
	return json.MarshalIndent(set, "", "  ")
}

// LoadShapes reads a shape definition file
func LoadShapes(filename string) (ShapeSet, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return ShapeSet{}, fmt.Errorf("failed to read shapes file: %w", err)
	}
	return ParseShapes(data)
}

// SaveShapes writes a shape set to filename
func SaveShapes(set ShapeSet, filename string) error {
	data, err := MarshalShapes(set)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// ConvertFile converts the shapes in inputPath to dstRate and writes them to outputPath.
// Nothing is written when conversion fails.
func ConvertFile(inputPath, outputPath string, dstRate int) (*Report, error) {
	src, err := LoadShapes(inputPath)
	if err != nil {
		return nil, err
	}
	dst, err := Convert(src, dstRate)
	if err != nil {
		return nil, err
	}
	report := Compare(src, dst)
	if err := SaveShapes(dst, outputPath); err != nil {
		return nil, fmt.Errorf("failed to write shapes file: %w", err)
	}
	return report, nil
}
