package stations

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

var (
	ErrConfigUnreadable = errors.New("stations file unreadable")
	ErrConfigMalformed  = errors.New("stations file malformed")
	ErrStationNotFound  = errors.New("station not found")
)

type Station struct {
	ID          string
	URL         string
	Description string
}

// Label is what gets announced when the station starts playing.
func (s Station) Label() string {
	if s.Description != "" {
		return s.Description
	}
	return s.ID
}

// Directory is an ordered, read-only index of stations.
type Directory struct {
	order    []string
	stations map[string]Station
}

// LoadFile reads a stations file in the `identifier url [description...]` format.
func LoadFile(path string) (*Directory, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigUnreadable, err)
	}
	defer file.Close()

	dir, err := Load(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return dir, nil
}

// Load parses station records from r. Blank lines and lines starting
// with '#' are skipped. A repeated identifier replaces the earlier
// record but keeps its position.
func Load(r io.Reader) (*Directory, error) {
	dir := &Directory{
		stations: make(map[string]Station),
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := splitRecord(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: line %d: expected `identifier url [description]`, got %q", ErrConfigMalformed, lineNo, line)
		}
		station := Station{ID: fields[0], URL: fields[1]}
		if len(fields) == 3 {
			station.Description = fields[2]
		}
		dir.add(station)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigUnreadable, err)
	}
	return dir, nil
}

func (d *Directory) add(station Station) {
	if _, exists := d.stations[station.ID]; !exists {
		d.order = append(d.order, station.ID)
	}
	d.stations[station.ID] = station
}

func (d *Directory) Resolve(id string) (Station, error) {
	if station, exists := d.stations[id]; exists {
		return station, nil
	}
	return Station{}, fmt.Errorf("%w: %s", ErrStationNotFound, id)
}

func (d *Directory) List() []Station {
	list := make([]Station, 0, len(d.order))
	for _, id := range d.order {
		list = append(list, d.stations[id])
	}
	return list
}

func (d *Directory) Len() int {
	return len(d.order)
}

// splitRecord splits a trimmed line on whitespace into at most three
// fields. The third field is the untouched remainder of the line.
func splitRecord(line string) []string {
	fields := make([]string, 0, 3)
	rest := line
	for len(fields) < 2 && rest != "" {
		end := strings.IndexFunc(rest, unicode.IsSpace)
		if end < 0 {
			fields = append(fields, rest)
			return fields
		}
		fields = append(fields, rest[:end])
		rest = strings.TrimLeftFunc(rest[end:], unicode.IsSpace)
	}
	if rest != "" {
		fields = append(fields, rest)
	}
	return fields
}
