package filesystem

import (
	"io"
	"os"
)

// GacheFs adapts the active backend to gache's FileSystem interface.
type GacheFs struct{}

func (GacheFs) OpenFile(name string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	return API().OpenFile(name, flag, perm)
}

func (GacheFs) MkdirAll(path string, perm os.FileMode) error {
	return API().MkdirAll(path, perm)
}

// Gache returns the adapter for use in gache options.
func Gache() *GacheFs {
	return &GacheFs{}
}
