package bsonstream

// DefaultKeyField is the conventional record key of mapper and reducer output.
const DefaultKeyField = "_id"

// Config holds stream settings shared by readers and writers.
type Config struct {
	// KeyField names the record key. Defaults to DefaultKeyField.
	KeyField string
	// MaxFrameSize bounds the length of an input frame.
	// Defaults to DefaultMaxFrameSize; negative disables the check.
	MaxFrameSize int
	// BufferSize is the size of the reader and writer buffers.
	// Defaults to 64 KiB.
	BufferSize int
}

func (c Config) withDefaults() Config {
	if c.KeyField == "" {
		c.KeyField = DefaultKeyField
	}
	if c.MaxFrameSize == 0 {
		c.MaxFrameSize = DefaultMaxFrameSize
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 64 * 1024
	}
	return c
}
