package service

import (
	"fmt"
	"io"

	"hotelbooking/internal/models"

	"gopkg.in/yaml.v3"
)

type roomsFile struct {
	Rooms []*models.Room `yaml:"rooms"`
}

// ParseRoomsYAML reads a seed file of the form `rooms: [...]`.
func ParseRoomsYAML(r io.Reader) ([]*models.Room, error) {
	var file roomsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse rooms file: %w", err)
	}
	if len(file.Rooms) == 0 {
		return nil, fmt.Errorf("rooms file has no rooms")
	}
	return file.Rooms, nil
}
