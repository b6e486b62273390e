package workflow

import "stemsep/internal/discovery"

// Partition splits files into consecutive batches of at most size entries.
// Every file appears in exactly one batch and order is preserved. A size
// below one is treated as one.
func Partition(files []discovery.InputFile, size int) [][]discovery.InputFile {
	if len(files) == 0 {
		return nil
	}
	if size < 1 {
		size = 1
	}
	batches := make([][]discovery.InputFile, 0, (len(files)+size-1)/size)
	for start := 0; start < len(files); start += size {
		end := min(start+size, len(files))
		batches = append(batches, files[start:end:end])
	}
	return batches
}
