// Package files groups the data-file plumbing of the loader:
//   - filesystem: Filesystem abstraction (OS and in-memory) used by discovery, reading and export
//   - scanner: Discovery of .csv / .csv.gz data files and the file-to-table naming rule
//   - datafile: Decompression and transcoding of data files, and their creation on export
package files
