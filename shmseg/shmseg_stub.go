//go:build !(linux && (amd64 || arm64))

package shmseg

// mmapFile and unmapMemory stay nil on unsupported platforms; Create and
// Open check for nil and report errUnsupported instead of dereferencing
// a nil func.
