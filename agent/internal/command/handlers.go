package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

type pwdHandler struct{}

func (pwdHandler) Name() string { return "pwd" }
func (pwdHandler) Execute(context.Context, Params) (string, error) {
	return os.Getwd()
}

// withinWorkdir resolves target against the working directory and rejects
// anything outside that tree.
func withinWorkdir(target string) (string, error) {
	root, err := os.Getwd()
	if err != nil {
		return "", err
	}
	full := filepath.Clean(filepath.Join(root, target))
	if filepath.IsAbs(target) {
		full = filepath.Clean(target)
	}
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the working directory", target)
	}
	return full, nil
}

type cdHandler struct{}

func (cdHandler) Name() string { return "cd" }
func (cdHandler) Execute(_ context.Context, p Params) (string, error) {
	target := strings.TrimSpace(p.Args())
	if target == "" {
		return "", errors.New("missing directory argument")
	}
	full, err := withinWorkdir(target)
	if err != nil {
		return "", err
	}
	if err := os.Chdir(full); err != nil {
		return "", err
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return "Changed directory to: " + wd, nil
}

type lsHandler struct{}

func (lsHandler) Name() string { return "ls" }
func (lsHandler) Execute(_ context.Context, p Params) (string, error) {
	target := strings.TrimSpace(p.Args())
	if target == "" {
		target = "."
	}
	full, err := withinWorkdir(target)
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return strings.Join(names, "\n"), nil
}

// maxCatSize keeps a single result bounded.
const maxCatSize = 1 << 20

type catHandler struct{}

func (catHandler) Name() string { return "cat" }
func (catHandler) Execute(_ context.Context, p Params) (string, error) {
	target := strings.TrimSpace(p.Args())
	if target == "" {
		return "", errors.New("missing file argument")
	}
	full, err := withinWorkdir(target)
	if err != nil {
		return "", err
	}
	f, err := os.Open(full)
	if err != nil {
		return "", err
	}
	defer f.Close()
	b, err := io.ReadAll(io.LimitReader(f, maxCatSize+1))
	if err != nil {
		return "", err
	}
	if len(b) > maxCatSize {
		return "", fmt.Errorf("file larger than %d bytes", maxCatSize)
	}
	return string(b), nil
}

type hostnameHandler struct{}

func (hostnameHandler) Name() string { return "hostname" }
func (hostnameHandler) Execute(context.Context, Params) (string, error) {
	return os.Hostname()
}

type whoamiHandler struct{}

func (whoamiHandler) Name() string { return "whoami" }
func (whoamiHandler) Execute(context.Context, Params) (string, error) {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username, nil
	}
	for _, k := range []string{"USER", "USERNAME"} {
		if v := os.Getenv(k); v != "" {
			return v, nil
		}
	}
	return "", errors.New("cannot resolve current user")
}

// exitHandler asks the owner of the loop to stop after the current batch.
type exitHandler struct {
	stop func()
}

func (exitHandler) Name() string { return "exit" }
func (h exitHandler) Execute(context.Context, Params) (string, error) {
	if h.stop == nil {
		return "", errors.New("exit is not supported by this runtime")
	}
	h.stop()
	return "[*] Agent exiting...", nil
}

// Builtins returns the standard command set. stop is invoked by "exit".
func Builtins(stop func()) []Handler {
	return []Handler{
		pwdHandler{},
		cdHandler{},
		lsHandler{},
		catHandler{},
		hostnameHandler{},
		whoamiHandler{},
		exitHandler{stop: stop},
	}
}
