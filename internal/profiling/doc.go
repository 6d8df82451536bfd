// Package profiling records the timings and payload sizes reported by the
// storage and serializers profiler hooks of the store package.
//
// Profilers accumulate per-name totals. The storage profiler also keeps
// every payload sample, which can be written as tab-separated values.
package profiling
