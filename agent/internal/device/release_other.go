//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package device

func osRelease() string { return "" }
