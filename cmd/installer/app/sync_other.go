//go:build !linux

package app

func syncFilesystems() {}
