package pipeline

import "os"

// IsValid is the single reuse predicate checked before every pipeline
// stage and format-generation step. An artifact is valid iff it exists,
// its modification time is strictly later than its upstream dependency's,
// and its size exceeds minSize bytes. A missing dependency makes the
// artifact invalid: freshness cannot be established against nothing.
func IsValid(artifact, dependency string, minSize int64) bool {
	ai, err := os.Stat(artifact)
	if err != nil {
		return false
	}
	di, err := os.Stat(dependency)
	if err != nil {
		return false
	}
	return ai.ModTime().After(di.ModTime()) && ai.Size() > minSize
}

// exists reports whether path exists, regardless of freshness.
func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
