package store

// SerializersProfiler times container serialization per container type.
type SerializersProfiler interface {
	StartTiming(containerType string)
	StopTiming(containerType string)
}

// StorageProfiler times storage operations and samples payload sizes.
//
// Operations: "write_new", "write_existing", "flush_write_cache",
// "get_container_by_index", "get_containers" and "read_create".
// Direction is "read" or "write".
type StorageProfiler interface {
	StartTiming(operation string)
	StopTiming(operation string)
	Sample(operation, direction, containerType string, size, compressedSize int)
}

type nopSerializersProfiler struct{}

func (nopSerializersProfiler) StartTiming(string) {}
func (nopSerializersProfiler) StopTiming(string)  {}

type nopStorageProfiler struct{}

func (nopStorageProfiler) StartTiming(string)                      {}
func (nopStorageProfiler) StopTiming(string)                       {}
func (nopStorageProfiler) Sample(string, string, string, int, int) {}

// SetSerializersProfiler installs a serializers profiler. nil disables profiling.
func (s *Store) SetSerializersProfiler(p SerializersProfiler) {
	if p == nil {
		p = nopSerializersProfiler{}
	}
	s.serializersProfiler = p
}

// SetStorageProfiler installs a storage profiler. nil disables profiling.
func (s *Store) SetStorageProfiler(p StorageProfiler) {
	if p == nil {
		p = nopStorageProfiler{}
	}
	s.storageProfiler = p
}
